// Package gpt writes GUID partition tables with sgdisk and puts filesystems
// on the resulting block devices.
package gpt

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/sysexec"
)

// Table edits a disk's partition table
type Table struct {
	run sysexec.Runner
	log logrus.FieldLogger
}

// NewTable creates a partition table editor
func NewTable(run sysexec.Runner, log logrus.FieldLogger) *Table {
	return &Table{run: run, log: log}
}

// Wipe destroys the GPT and MBR structures on disk
func (t *Table) Wipe(ctx context.Context, disk string) error {
	t.log.WithField("disk", disk).Info("wiping partition table")
	if _, err := t.run.Run(ctx, "sgdisk", "-Z", disk); err != nil {
		return fmt.Errorf("failed to wipe %s: %w", disk, err)
	}
	return nil
}

// Create appends a partition at the first free sector. sgdisk assigns the
// next free number, which is why partitions are created in id order.
func (t *Table) Create(ctx context.Context, disk string, p layout.Partition) error {
	pt, err := layout.ParsePartitionType(p.PartitionType)
	if err != nil {
		return failure.New(failure.Invalid, "partition_type", err)
	}

	t.log.WithFields(logrus.Fields{
		"disk":      disk,
		"partition": p.Label,
		"size":      p.Size.Human(),
		"type":      pt,
	}).Info("creating partition")

	_, err = t.run.Run(ctx, "sgdisk",
		"-n", "0:0:"+EndArg(p.Size),
		"-t", "0:"+pt.GPTCode(),
		"-c", "0:"+p.Label,
		disk)
	if err != nil {
		return fmt.Errorf("failed to create partition %s on %s: %w", p.Label, disk, err)
	}
	return nil
}

// EndArg renders a size as the end field of sgdisk -n. Zero keeps the
// default end (the rest of the disk). sgdisk has no byte unit so plain
// byte counts are rounded up to KiB.
func EndArg(s layout.Size) string {
	if s.IsRemaining() {
		return "0"
	}
	switch s.Unit {
	case "", "B":
		kib := (s.Value + 1023) / 1024
		return "+" + strconv.FormatUint(kib, 10) + "K"
	}
	return "+" + s.String()
}
