package storage

import (
	"context"

	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/zfs"
)

// PoolFilesystem is a ZFS filesystem with a legacy mountpoint
type PoolFilesystem struct {
	env  *env
	pool string
	cfg  layout.Dataset

	mountState
}

func newPoolFilesystem(e *env, pool string, cfg layout.Dataset) *PoolFilesystem {
	return &PoolFilesystem{env: e, pool: pool, cfg: cfg}
}

// Name is the filesystem name within its pool
func (f *PoolFilesystem) Name() string {
	return f.cfg.Name
}

// Mountpoint is where the filesystem belongs in the installed system
func (f *PoolFilesystem) Mountpoint() string {
	return f.cfg.Mountpoint
}

// IsRoot reports whether the filesystem is the root filesystem
func (f *PoolFilesystem) IsRoot() bool {
	return f.cfg.IsRoot
}

// Source is the dataset name, pool/name
func (f *PoolFilesystem) Source() string {
	return zfs.Dataset(f.pool, f.cfg.Name)
}

// Mount mounts the dataset on target
func (f *PoolFilesystem) Mount(ctx context.Context, target string) error {
	return f.mount(ctx, f.env.tools, f.Source(), target, layout.FsZFS.MountType())
}

// Unmount unmounts the dataset
func (f *PoolFilesystem) Unmount(ctx context.Context) error {
	return f.unmount(ctx, f.env.tools)
}
