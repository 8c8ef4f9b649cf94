package storage

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/layout"
)

var (
	// ErrNotCreated is returned when a partition without a resolved
	// identity is opened or mounted
	ErrNotCreated = errors.New("partition has not been created")
	// ErrNoPassphrase is returned when an encrypted partition is opened
	// without a passphrase
	ErrNoPassphrase = errors.New("passphrase required")
	// ErrNoKeyFile is returned when an encrypted partition is created
	// without a key file to enroll
	ErrNoKeyFile = errors.New("key file required")
)

// Partition is a GPT partition, optionally a LUKS container, holding a
// filesystem, a volume group or the vdev of a ZFS pool
type Partition struct {
	env  *env
	disk *Disk
	cfg  layout.Partition

	// Group is set when the partition is an LVM physical volume
	Group *VolumeGroup
	// Filesystems live in the pool named after the partition label
	Filesystems []*PoolFilesystem

	opened bool
	mountState
}

func newPartition(e *env, d *Disk, cfg layout.Partition) *Partition {
	p := &Partition{env: e, disk: d, cfg: cfg}

	if cfg.FsType == string(layout.FsLVM) || len(cfg.LVM) > 0 {
		p.Group = newVolumeGroup(e, p, cfg.LVM)
	}
	for _, ds := range cfg.ZFS {
		p.Filesystems = append(p.Filesystems, newPoolFilesystem(e, cfg.Label, ds))
	}
	return p
}

// Config returns the partition's layout entry, nested entries included
func (p *Partition) Config() layout.Partition {
	cfg := p.cfg

	if p.cfg.LVM != nil {
		cfg.LVM = make([]layout.Volume, 0, len(p.cfg.LVM))
	}
	if p.Group != nil {
		for _, lv := range p.Group.Volumes {
			cfg.LVM = append(cfg.LVM, lv.cfg)
		}
	}

	if p.cfg.ZFS != nil {
		cfg.ZFS = make([]layout.Dataset, 0, len(p.cfg.ZFS))
	}
	for _, fs := range p.Filesystems {
		cfg.ZFS = append(cfg.ZFS, fs.cfg)
	}
	return cfg
}

// Label is the GPT partition name
func (p *Partition) Label() string {
	return p.cfg.Label
}

// IsRoot reports whether the partition itself is the root filesystem
func (p *Partition) IsRoot() bool {
	return p.cfg.IsRoot
}

// IsSystem reports whether the partition's volumes may hold root
func (p *Partition) IsSystem() bool {
	return p.cfg.IsSystem
}

// IsEFI reports whether the partition has the EFI system partition type
func (p *Partition) IsEFI() bool {
	t, err := layout.ParsePartitionType(p.cfg.PartitionType)
	return err == nil && t == layout.PartitionEFI
}

// Pool returns the ZFS pool name for the partition
func (p *Partition) Pool() string {
	return p.cfg.Label
}

func (p *Partition) hasPool() bool {
	return p.cfg.FsType == string(layout.FsZFS) || len(p.Filesystems) > 0
}

func (p *Partition) log() logrus.FieldLogger {
	return p.disk.log().WithField("partition", p.cfg.Label)
}

// device is the stable path of the partition
func (p *Partition) device() (string, error) {
	switch {
	case p.cfg.DeviceByID != "":
		return p.cfg.DeviceByID, nil
	case p.cfg.Device != "":
		return p.cfg.Device, nil
	}
	return "", failure.New(failure.Resolution, p.cfg.Label, ErrNotCreated)
}

// mapperName is the device-mapper name of the opened LUKS container
func (p *Partition) mapperName() string {
	return p.cfg.Label
}

// target is the block device holding the partition's contents: the
// opened LUKS mapping for encrypted partitions
func (p *Partition) target() (string, error) {
	if p.cfg.Encrypted {
		return layout.MapperPath(p.mapperName()), nil
	}
	return p.device()
}

// create adds the partition to its disk's table and records the identity
// the kernel gave it
func (p *Partition) create(ctx context.Context) error {
	tools := p.env.tools
	if err := tools.Table.Create(ctx, p.disk.Device, p.cfg); err != nil {
		return err
	}

	ident, err := tools.Resolver.Resolve(ctx, p.disk.Device, p.cfg.ID, p.cfg.Label)
	if err != nil {
		return err
	}
	p.cfg.Device = ident.Device
	p.cfg.DeviceName = ident.DeviceName
	p.cfg.DeviceByID = ident.ByID
	p.cfg.DeviceByPartLabel = ident.ByPartLabel
	if p.cfg.Encrypted {
		p.cfg.LuksMapper = layout.MapperPath(p.mapperName())
	}
	return nil
}

// format builds the partition's contents: LUKS container first, then a
// volume group, a pool, or a plain filesystem on top
func (p *Partition) format(ctx context.Context) error {
	tools := p.env.tools

	target, err := p.device()
	if err != nil {
		return err
	}

	if p.cfg.Encrypted {
		if err := p.createContainer(ctx, target); err != nil {
			return err
		}
		target = layout.MapperPath(p.mapperName())
	}

	switch {
	case p.Group != nil:
		if err := p.Group.create(ctx, target); err != nil {
			return err
		}
		p.opened = true

	case p.hasPool():
		if err := tools.Pools.Create(ctx, p.Pool(), target); err != nil {
			return err
		}
		for _, fs := range p.Filesystems {
			if err := tools.Pools.CreateFilesystem(ctx, p.Pool(), fs.cfg.Name); err != nil {
				return err
			}
		}

	default:
		if err := tools.Formatter.Format(ctx, target, layout.FsType(p.cfg.FsType), p.cfg.Label); err != nil {
			return err
		}
	}

	p.log().Info("partition formatted")
	return nil
}

func (p *Partition) createContainer(ctx context.Context, device string) error {
	tools := p.env.tools
	pass := p.env.creds.Passphrase
	if len(pass) == 0 {
		return failure.New(failure.Invalid, p.cfg.Label, ErrNoPassphrase)
	}
	keyFile := p.env.creds.KeyFile
	if keyFile == "" {
		return failure.New(failure.Invalid, p.cfg.Label, ErrNoKeyFile)
	}

	if err := tools.Crypt.Format(ctx, device, pass); err != nil {
		return err
	}
	if err := tools.Crypt.AddKey(ctx, device, keyFile, pass); err != nil {
		return err
	}
	if err := tools.Crypt.Open(ctx, device, p.mapperName(), pass); err != nil {
		return err
	}
	if err := tools.Resolver.WaitForDevice(ctx, layout.MapperPath(p.mapperName())); err != nil {
		return err
	}
	p.opened = true
	return nil
}

// IsOpen reports whether the partition's container and volume group are
// active
func (p *Partition) IsOpen() bool {
	return p.opened
}

// Open unlocks the LUKS container, then activates the volume group.
// Plain partitions need nothing.
func (p *Partition) Open(ctx context.Context) error {
	if p.opened {
		return nil
	}

	if p.cfg.Encrypted {
		if err := p.openContainer(ctx); err != nil {
			return err
		}
	}
	if p.Group != nil {
		if err := p.Group.Open(ctx); err != nil {
			return err
		}
	}

	p.opened = true
	return nil
}

func (p *Partition) openContainer(ctx context.Context) error {
	tools := p.env.tools
	name := p.mapperName()

	active, err := tools.Crypt.IsOpen(ctx, name)
	if err != nil {
		return err
	}
	if !active {
		device, err := p.device()
		if err != nil {
			return err
		}
		pass := p.env.creds.Passphrase
		if len(pass) == 0 {
			return failure.New(failure.Invalid, p.cfg.Label, ErrNoPassphrase)
		}
		if err := tools.Crypt.Open(ctx, device, name, pass); err != nil {
			return err
		}
	} else {
		p.log().Debug("LUKS container already open")
	}

	return tools.Resolver.WaitForDevice(ctx, layout.MapperPath(name))
}

// Close deactivates the volume group, then locks the LUKS container
func (p *Partition) Close(ctx context.Context) error {
	if !p.opened {
		return nil
	}

	if p.Group != nil {
		if err := p.Group.Close(ctx); err != nil {
			return err
		}
	}
	if p.cfg.Encrypted {
		if err := p.env.tools.Crypt.Close(ctx, p.mapperName()); err != nil {
			return err
		}
	}

	p.opened = false
	return nil
}

// probe reads the container and group state from the system
func (p *Partition) probe(ctx context.Context) error {
	tools := p.env.tools
	opened := false

	if p.cfg.Encrypted {
		active, err := tools.Crypt.IsOpen(ctx, p.mapperName())
		if err != nil {
			return err
		}
		opened = active
	}
	if p.Group != nil {
		active, err := tools.Volumes.IsActive(ctx, p.Group.Name)
		if err != nil {
			return err
		}
		p.Group.active = active
		opened = opened || active
	}

	p.opened = opened
	return nil
}

// Source is the device mounted for the partition
func (p *Partition) Source() string {
	src, err := p.target()
	if err != nil {
		return ""
	}
	return src
}

// Mount mounts the partition's filesystem on target
func (p *Partition) Mount(ctx context.Context, target string) error {
	src, err := p.target()
	if err != nil {
		return err
	}
	fstype := layout.FsType(p.cfg.FsType).MountType()
	return p.mount(ctx, p.env.tools, src, target, fstype)
}

// Unmount unmounts the partition
func (p *Partition) Unmount(ctx context.Context) error {
	return p.unmount(ctx, p.env.tools)
}
