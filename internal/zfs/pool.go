// Package zfs manages the ZFS pools and filesystems a layout declares
package zfs

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/sysexec"
)

// Options every new pool is created with
var createOptions = []string{"-o", "ashift=12", "-O", "compression=lz4", "-m", "none"}

// Manager runs zpool and zfs
type Manager struct {
	run sysexec.Runner
	log logrus.FieldLogger
}

// New creates a pool manager
func New(run sysexec.Runner, log logrus.FieldLogger) *Manager {
	return &Manager{run: run, log: log}
}

// List returns the names of all imported pools
func (m *Manager) List(ctx context.Context) ([]string, error) {
	out, err := m.run.Run(ctx, "zpool", "list", "-H", "-o", "name")
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	var pools []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			pools = append(pools, name)
		}
	}
	return pools, nil
}

// Exists reports whether pool is currently imported
func (m *Manager) Exists(ctx context.Context, pool string) (bool, error) {
	pools, err := m.List(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range pools {
		if name == pool {
			return true, nil
		}
	}
	return false, nil
}

// ImportAll imports every pool found on attached devices
func (m *Manager) ImportAll(ctx context.Context) error {
	m.log.Info("importing ZFS pools")
	if _, err := m.run.Run(ctx, "zpool", "import", "-a"); err != nil {
		return fmt.Errorf("zpool import failed: %w", err)
	}
	return nil
}

// ExportAll flushes buffers and exports every imported pool
func (m *Manager) ExportAll(ctx context.Context) error {
	// 1. Sync filesystem buffers
	if _, err := m.run.Run(ctx, "sync"); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	// 2. Export the pools
	m.log.Info("exporting ZFS pools")
	if _, err := m.run.Run(ctx, "zpool", "export", "-a"); err != nil {
		return fmt.Errorf("zpool export failed: %w", err)
	}
	return nil
}

// Create makes device part of pool. Pools already on attached disks are
// imported first; if pool is among them device is added as a new vdev,
// otherwise everything else is exported and a fresh pool is created.
func (m *Manager) Create(ctx context.Context, pool, device string) error {
	if err := m.ImportAll(ctx); err != nil {
		return err
	}

	exists, err := m.Exists(ctx, pool)
	if err != nil {
		return err
	}

	log := m.log.WithFields(logrus.Fields{"pool": pool, "device": device})
	if exists {
		log.Info("adding device to existing pool")
		if _, err := m.run.Run(ctx, "zpool", "add", "-f", pool, device); err != nil {
			return fmt.Errorf("failed to add %s to pool %s: %w", device, pool, err)
		}
		return nil
	}

	if _, err := m.run.Run(ctx, "zpool", "export", "-a"); err != nil {
		return fmt.Errorf("zpool export failed: %w", err)
	}

	log.Info("creating pool")
	args := append([]string{"create"}, createOptions...)
	args = append(args, pool, device)
	if _, err := m.run.Run(ctx, "zpool", args...); err != nil {
		return fmt.Errorf("failed to create pool %s: %w", pool, err)
	}
	return nil
}

// CreateFilesystem creates pool/name with a legacy mountpoint so that it
// is only ever mounted explicitly
func (m *Manager) CreateFilesystem(ctx context.Context, pool, name string) error {
	dataset := Dataset(pool, name)
	m.log.WithField("dataset", dataset).Info("creating ZFS filesystem")
	if _, err := m.run.Run(ctx, "zfs", "create", dataset, "-o", "mountpoint=legacy"); err != nil {
		return fmt.Errorf("failed to create %s: %w", dataset, err)
	}
	return nil
}

// Destroy forcibly destroys pool
func (m *Manager) Destroy(ctx context.Context, pool string) error {
	m.log.WithField("pool", pool).Warn("destroying pool")
	if _, err := m.run.Run(ctx, "zpool", "destroy", "-f", pool); err != nil {
		return fmt.Errorf("failed to destroy pool %s: %w", pool, err)
	}
	return nil
}

// Wipeout destroys every imported pool
func (m *Manager) Wipeout(ctx context.Context) error {
	pools, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, pool := range pools {
		if err := m.Destroy(ctx, pool); err != nil {
			return err
		}
	}
	return nil
}

// Dataset returns the full name of a filesystem in pool
func Dataset(pool, name string) string {
	return pool + "/" + name
}
