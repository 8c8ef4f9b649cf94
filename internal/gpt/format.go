package gpt

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/sysexec"
)

// Formatter creates filesystems and swap areas
type Formatter struct {
	run sysexec.Runner
	log logrus.FieldLogger
}

// NewFormatter creates a formatter
func NewFormatter(run sysexec.Runner, log logrus.FieldLogger) *Formatter {
	return &Formatter{run: run, log: log}
}

// Format writes fs onto device with the given label. Only plain
// filesystems are handled here; zfs and lvm containers are built by their
// own managers.
func (f *Formatter) Format(ctx context.Context, device string, fs layout.FsType, label string) error {
	var name string
	var args []string

	switch fs {
	case layout.FsFat32:
		name, args = "mkfs.fat", []string{"-F", "32", "-n", label, device}
	case layout.FsExt4:
		name, args = "mkfs.ext4", []string{"-L", label, device}
	case layout.FsSwap:
		name, args = "mkswap", []string{"-L", label, device}
	default:
		return failure.Genericf("cannot format %s: unsupported filesystem %q", device, fs)
	}

	f.log.WithFields(logrus.Fields{
		"device": device,
		"fs":     fs,
		"label":  label,
	}).Info("formatting")

	if _, err := f.run.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to format %s as %s: %w", device, fs, err)
	}
	return nil
}
