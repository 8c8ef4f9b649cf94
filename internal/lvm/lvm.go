// Package lvm creates and (de)activates LVM volume groups and their
// logical volumes.
package lvm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/sysexec"
)

// Manager runs the LVM tools
type Manager struct {
	run sysexec.Runner
	log logrus.FieldLogger
}

// New creates an LVM manager
func New(run sysexec.Runner, log logrus.FieldLogger) *Manager {
	return &Manager{run: run, log: log}
}

// CreatePhysical initialises device as a physical volume, overwriting any
// previous LVM metadata
func (m *Manager) CreatePhysical(ctx context.Context, device string) error {
	m.log.WithField("device", device).Info("creating physical volume")
	if _, err := m.run.Run(ctx, "pvcreate", "-y", "-ff", device); err != nil {
		return fmt.Errorf("failed to create physical volume on %s: %w", device, err)
	}
	return nil
}

// CreateGroup creates volume group group on device
func (m *Manager) CreateGroup(ctx context.Context, group, device string) error {
	m.log.WithFields(logrus.Fields{"group": group, "device": device}).Info("creating volume group")
	if _, err := m.run.Run(ctx, "vgcreate", group, device); err != nil {
		return fmt.Errorf("failed to create volume group %s: %w", group, err)
	}
	return nil
}

// CreateLogical carves a logical volume out of group. A zero size takes
// all remaining free extents.
func (m *Manager) CreateLogical(ctx context.Context, group, name string, size layout.Size) error {
	args := []string{"-l", "100%FREE"}
	if !size.IsRemaining() {
		args = []string{"-L", SizeArg(size)}
	}
	args = append(args, "-n", name, group)

	m.log.WithFields(logrus.Fields{
		"group":  group,
		"volume": name,
		"size":   size.Human(),
	}).Info("creating logical volume")

	if _, err := m.run.Run(ctx, "lvcreate", args...); err != nil {
		return fmt.Errorf("failed to create logical volume %s/%s: %w", group, name, err)
	}
	return nil
}

// Activate makes every logical volume of group available
func (m *Manager) Activate(ctx context.Context, group string) error {
	m.log.WithField("group", group).Info("activating volume group")
	if _, err := m.run.Run(ctx, "vgchange", "-a", "y", group); err != nil {
		return fmt.Errorf("failed to activate %s: %w", group, err)
	}
	return nil
}

// Deactivate releases every logical volume of group
func (m *Manager) Deactivate(ctx context.Context, group string) error {
	m.log.WithField("group", group).Info("deactivating volume group")
	if _, err := m.run.Run(ctx, "vgchange", "-a", "n", group); err != nil {
		return fmt.Errorf("failed to deactivate %s: %w", group, err)
	}
	return nil
}

// SizeArg renders a size for lvcreate -L. lvcreate reads a bare number as
// MiB, so byte counts get an explicit b suffix.
func SizeArg(s layout.Size) string {
	switch s.Unit {
	case "", "B":
		return strconv.FormatUint(s.Value, 10) + "b"
	}
	return s.String()
}
