package storage

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sigreer/disklayer/internal/gpt"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/luks"
	"github.com/sigreer/disklayer/internal/lvm"
	"github.com/sigreer/disklayer/internal/mount"
	"github.com/sigreer/disklayer/internal/resolve"
	"github.com/sigreer/disklayer/internal/settle"
	"github.com/sigreer/disklayer/internal/sysexec"
	"github.com/sigreer/disklayer/internal/zfs"
)

// PartitionTable writes partition tables
type PartitionTable interface {
	Wipe(ctx context.Context, disk string) error
	Create(ctx context.Context, disk string, p layout.Partition) error
}

// Formatter puts a filesystem on a block device
type Formatter interface {
	Format(ctx context.Context, device string, fs layout.FsType, label string) error
}

// Crypt manages LUKS containers
type Crypt interface {
	Format(ctx context.Context, device string, passphrase []byte) error
	AddKey(ctx context.Context, device, keyFile string, passphrase []byte) error
	Open(ctx context.Context, device, name string, passphrase []byte) error
	Close(ctx context.Context, name string) error
	IsOpen(ctx context.Context, name string) (bool, error)
}

// Volumes manages LVM volume groups
type Volumes interface {
	CreatePhysical(ctx context.Context, device string) error
	CreateGroup(ctx context.Context, group, device string) error
	CreateLogical(ctx context.Context, group, name string, size layout.Size) error
	Activate(ctx context.Context, group string) error
	Deactivate(ctx context.Context, group string) error
	IsActive(ctx context.Context, group string) (bool, error)
}

// Pools manages ZFS pools
type Pools interface {
	Create(ctx context.Context, pool, device string) error
	CreateFilesystem(ctx context.Context, pool, name string) error
	List(ctx context.Context) ([]string, error)
	ImportAll(ctx context.Context) error
	ExportAll(ctx context.Context) error
	Wipeout(ctx context.Context) error
}

// Mounter attaches sources to directories
type Mounter interface {
	Mount(ctx context.Context, source, target, fstype string) error
	Unmount(ctx context.Context, target string) error
}

// Resolver finds the identity of freshly created partitions
type Resolver interface {
	Resolve(ctx context.Context, disk string, id uint32, label string) (resolve.Identity, error)
	WaitForDevice(ctx context.Context, path string) error
}

// Tools are the external collaborators the tree drives
type Tools struct {
	Table     PartitionTable
	Formatter Formatter
	Crypt     Crypt
	Volumes   Volumes
	Pools     Pools
	Mounter   Mounter
	Resolver  Resolver
	Log       logrus.FieldLogger
}

// NewTools wires the host implementations around run
func NewTools(run sysexec.Runner, ns resolve.Namespace, mounts mount.Table, fs afero.Fs, policy settle.Policy, log logrus.FieldLogger) Tools {
	return Tools{
		Table:     gpt.NewTable(run, log),
		Formatter: gpt.NewFormatter(run, log),
		Crypt:     luks.New(run, log),
		Volumes:   lvm.New(run, log),
		Pools:     zfs.New(run, log),
		Mounter:   mount.New(run, mounts, fs, log),
		Resolver:  resolve.New(run, ns, policy, log),
		Log:       log,
	}
}

// Credentials unlock encrypted partitions
type Credentials struct {
	Passphrase []byte
	// KeyFile is enrolled as a second LUKS key; required when containers are created
	KeyFile string
}
