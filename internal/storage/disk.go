package storage

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/layout"
)

// Disk is a physical device and its partitions
type Disk struct {
	env            *env
	Device         string
	ReadOnly       bool
	ContainsSystem bool
	Partitions     []*Partition

	emptyTable bool
}

func newDisk(e *env, cfg layout.Disk) *Disk {
	d := &Disk{
		env:            e,
		Device:         cfg.Device,
		ReadOnly:       cfg.ReadOnly,
		ContainsSystem: cfg.ContainsSystem,
		emptyTable:     cfg.Partitions != nil && len(cfg.Partitions) == 0,
	}

	cfg.Partitions = append([]layout.Partition(nil), cfg.Partitions...)
	cfg.SortPartitions()
	for _, p := range cfg.Partitions {
		d.Partitions = append(d.Partitions, newPartition(e, d, p))
	}
	return d
}

// Config returns the disk's layout entry
func (d *Disk) Config() layout.Disk {
	cfg := layout.Disk{
		Device:         d.Device,
		ReadOnly:       d.ReadOnly,
		ContainsSystem: d.ContainsSystem,
	}
	if d.emptyTable {
		cfg.Partitions = []layout.Partition{}
	}
	for _, p := range d.Partitions {
		cfg.Partitions = append(cfg.Partitions, p.Config())
	}
	return cfg
}

func (d *Disk) log() logrus.FieldLogger {
	return d.env.tools.Log.WithField("disk", d.Device)
}

// create wipes the disk, then writes every partition and records its
// identity before any of them is formatted
func (d *Disk) create(ctx context.Context) error {
	if err := d.env.tools.Table.Wipe(ctx, d.Device); err != nil {
		return err
	}

	// Pass 1: partition table
	for _, p := range d.Partitions {
		if err := p.create(ctx); err != nil {
			return err
		}
	}

	// Pass 2: contents
	for _, p := range d.Partitions {
		if err := p.format(ctx); err != nil {
			return err
		}
	}

	d.log().WithField("partitions", len(d.Partitions)).Info("disk created")
	return nil
}

// Open activates the disk's partitions in order
func (d *Disk) Open(ctx context.Context) error {
	for _, p := range d.Partitions {
		if err := p.Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close deactivates the disk's partitions in order
func (d *Disk) Close(ctx context.Context) error {
	for _, p := range d.Partitions {
		if err := p.Close(ctx); err != nil {
			return err
		}
	}
	return nil
}
