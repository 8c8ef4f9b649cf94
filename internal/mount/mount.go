// Package mount attaches block devices and ZFS filesystems to the
// directory tree, consulting the kernel mount table so that a re-run after
// a partial failure does not stack a second mount on the same target.
package mount

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/sysexec"
)

// Table answers what is mounted where
type Table interface {
	// Source returns the source mounted at target, if any
	Source(target string) (string, bool, error)
}

// HostTable reads /proc/self/mountinfo
type HostTable struct{}

// Source looks target up in the mount table
func (HostTable) Source(target string) (string, bool, error) {
	mounts, err := mountinfo.GetMounts(mountinfo.SingleEntryFilter(filepath.Clean(target)))
	if err != nil {
		return "", false, failure.Path("/proc/self/mountinfo", err)
	}
	if len(mounts) == 0 {
		return "", false, nil
	}
	// Later entries shadow earlier ones on the same target
	return mounts[len(mounts)-1].Source, true, nil
}

// Mounter runs mount and umount
type Mounter struct {
	run   sysexec.Runner
	table Table
	fs    afero.Fs
	log   logrus.FieldLogger
}

// New creates a mounter. fs is used to create missing mount points.
func New(run sysexec.Runner, table Table, fs afero.Fs, log logrus.FieldLogger) *Mounter {
	return &Mounter{run: run, table: table, fs: fs, log: log}
}

// Mount attaches source at target. fstype may be empty to let mount probe
// it. Nothing is done when source is already mounted there.
func (m *Mounter) Mount(ctx context.Context, source, target, fstype string) error {
	log := m.log.WithFields(logrus.Fields{"device": source, "target": target})

	current, mounted, err := m.table.Source(target)
	if err != nil {
		return err
	}
	if mounted && sameSource(current, source) {
		log.Debug("already mounted")
		return nil
	}

	if err := m.fs.MkdirAll(target, 0755); err != nil {
		return failure.Path(target, err)
	}

	args := []string{source, target}
	if fstype != "" {
		args = append([]string{"-t", fstype}, args...)
	}

	log.Info("mounting")
	if _, err := m.run.Run(ctx, "mount", args...); err != nil {
		return fmt.Errorf("failed to mount %s on %s: %w", source, target, err)
	}
	return nil
}

// Unmount detaches whatever is mounted at target. An unmounted target is
// left alone.
func (m *Mounter) Unmount(ctx context.Context, target string) error {
	_, mounted, err := m.table.Source(target)
	if err != nil {
		return err
	}
	if !mounted {
		m.log.WithField("target", target).Debug("not mounted")
		return nil
	}

	m.log.WithField("target", target).Info("unmounting")
	if _, err := m.run.Run(ctx, "umount", target); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", target, err)
	}
	return nil
}

// sameSource compares mount sources, following device symlinks such as
// /dev/disk/by-id links. ZFS datasets compare by name.
func sameSource(a, b string) bool {
	if a == b {
		return true
	}
	return canonical(a) == canonical(b)
}

func canonical(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}
