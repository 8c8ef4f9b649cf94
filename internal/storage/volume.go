package storage

import (
	"context"

	"github.com/sigreer/disklayer/internal/layout"
)

// VolumeGroup is the LVM volume group on a partition, named vg-<label>
type VolumeGroup struct {
	env     *env
	Name    string
	Volumes []*LogicalVolume

	active bool
}

func newVolumeGroup(e *env, p *Partition, volumes []layout.Volume) *VolumeGroup {
	g := &VolumeGroup{env: e, Name: layout.GroupName(p.cfg.Label)}
	for _, v := range volumes {
		g.Volumes = append(g.Volumes, &LogicalVolume{env: e, group: g, cfg: v})
	}
	return g
}

// create turns device into a physical volume holding the group, then
// creates and formats each logical volume in order
func (g *VolumeGroup) create(ctx context.Context, device string) error {
	tools := g.env.tools

	if err := tools.Volumes.CreatePhysical(ctx, device); err != nil {
		return err
	}
	if err := tools.Volumes.CreateGroup(ctx, g.Name, device); err != nil {
		return err
	}
	g.active = true

	for _, lv := range g.Volumes {
		if err := lv.create(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IsOpen reports whether the group is active
func (g *VolumeGroup) IsOpen() bool {
	return g.active
}

// Open activates the group unless LVM already reports all of its volumes
// active
func (g *VolumeGroup) Open(ctx context.Context) error {
	if g.active {
		return nil
	}
	tools := g.env.tools

	active, err := tools.Volumes.IsActive(ctx, g.Name)
	if err != nil {
		return err
	}
	if !active {
		if err := tools.Volumes.Activate(ctx, g.Name); err != nil {
			return err
		}
	}
	g.active = true
	return nil
}

// Close deactivates the group
func (g *VolumeGroup) Close(ctx context.Context) error {
	if !g.active {
		return nil
	}
	if err := g.env.tools.Volumes.Deactivate(ctx, g.Name); err != nil {
		return err
	}
	g.active = false
	return nil
}

// LogicalVolume is one volume of a group
type LogicalVolume struct {
	env   *env
	group *VolumeGroup
	cfg   layout.Volume

	mountState
}

// Label is the volume name
func (lv *LogicalVolume) Label() string {
	return lv.cfg.Label
}

// IsRoot reports whether the volume is the root filesystem
func (lv *LogicalVolume) IsRoot() bool {
	return lv.cfg.IsRoot
}

// IsEFI reports whether the volume is typed as an EFI system partition
func (lv *LogicalVolume) IsEFI() bool {
	if lv.cfg.VolumeType == "" {
		return false
	}
	t, err := layout.ParsePartitionType(lv.cfg.VolumeType)
	return err == nil && t == layout.PartitionEFI
}

// Source is the volume's device path
func (lv *LogicalVolume) Source() string {
	return "/dev/" + lv.group.Name + "/" + lv.cfg.Label
}

func (lv *LogicalVolume) create(ctx context.Context) error {
	tools := lv.env.tools
	if err := tools.Volumes.CreateLogical(ctx, lv.group.Name, lv.cfg.Label, lv.cfg.Size); err != nil {
		return err
	}
	lv.cfg.Device = lv.Source()
	return tools.Formatter.Format(ctx, lv.cfg.Device, layout.FsType(lv.cfg.FsType), lv.cfg.Label)
}

// Mount mounts the volume on target
func (lv *LogicalVolume) Mount(ctx context.Context, target string) error {
	fstype := layout.FsType(lv.cfg.FsType).MountType()
	return lv.mount(ctx, lv.env.tools, lv.Source(), target, fstype)
}

// Unmount unmounts the volume
func (lv *LogicalVolume) Unmount(ctx context.Context) error {
	return lv.unmount(ctx, lv.env.tools)
}
