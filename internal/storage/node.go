// Package storage is the in-memory device tree built from a layout: disks,
// their partitions, and the volume group or pool filesystems inside each
// partition. It sequences creation, activation and mounting across those
// layers and locates the nodes an installer needs.
package storage

import "context"

// Activatable is a node that must be opened before its contents are usable
// (a LUKS container, a volume group). Open and Close are no-ops when the
// node is already in the requested state.
type Activatable interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	IsOpen() bool
}

// Mountable is a node carrying a filesystem. Unmount detaches it from the
// target given to the last Mount.
type Mountable interface {
	Mount(ctx context.Context, target string) error
	Unmount(ctx context.Context) error
	IsMounted() bool
	// Source is what gets passed to mount
	Source() string
}

// mountState is the bookkeeping shared by every Mountable
type mountState struct {
	mounted bool
	target  string
}

func (m *mountState) IsMounted() bool {
	return m.mounted
}

func (m *mountState) mount(ctx context.Context, tools Tools, source, target, fstype string) error {
	if m.mounted {
		return nil
	}
	if err := tools.Mounter.Mount(ctx, source, target, fstype); err != nil {
		return err
	}
	m.mounted = true
	m.target = target
	return nil
}

func (m *mountState) unmount(ctx context.Context, tools Tools) error {
	if !m.mounted {
		return nil
	}
	if err := tools.Mounter.Unmount(ctx, m.target); err != nil {
		return err
	}
	m.mounted = false
	m.target = ""
	return nil
}

var (
	_ Activatable = (*Tree)(nil)
	_ Activatable = (*Partition)(nil)
	_ Activatable = (*VolumeGroup)(nil)
	_ Mountable   = (*Partition)(nil)
	_ Mountable   = (*LogicalVolume)(nil)
	_ Mountable   = (*PoolFilesystem)(nil)
)
