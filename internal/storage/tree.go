package storage

import (
	"context"

	"github.com/sigreer/disklayer/internal/layout"
)

// env is shared by every node of a tree
type env struct {
	tools Tools
	creds Credentials
}

// Tree is the device tree of one layout
type Tree struct {
	env    *env
	Disks  []*Disk
	opened bool
}

// New builds the tree for l. Partitions are ordered by id.
func New(l layout.Layout, tools Tools, creds Credentials) *Tree {
	e := &env{tools: tools, creds: creds}
	t := &Tree{env: e}
	for _, d := range l.Disks {
		t.Disks = append(t.Disks, newDisk(e, d))
	}
	return t
}

// Config returns the layout the tree currently describes, including every
// identity resolved so far
func (t *Tree) Config() layout.Layout {
	var l layout.Layout
	for _, d := range t.Disks {
		l.Disks = append(l.Disks, d.Config())
	}
	return l
}

// IsOpen reports whether the tree was opened (or created) and not closed since
func (t *Tree) IsOpen() bool {
	return t.opened
}

// Create destroys all visible pools, then partitions and formats every
// writable disk. The tree is closed again once everything is built.
func (t *Tree) Create(ctx context.Context) error {
	log := t.env.tools.Log

	log.Warn("destroying all ZFS pools")
	if err := t.env.tools.Pools.Wipeout(ctx); err != nil {
		return err
	}

	for _, d := range t.Disks {
		if d.ReadOnly {
			log.WithField("disk", d.Device).Info("skipping read-only disk")
			continue
		}
		if err := d.create(ctx); err != nil {
			return err
		}
	}
	t.opened = true

	return t.Close(ctx)
}

// Open activates every disk, then imports the pools they carry
func (t *Tree) Open(ctx context.Context) error {
	if t.opened {
		return nil
	}
	for _, d := range t.Disks {
		if err := d.Open(ctx); err != nil {
			return err
		}
	}
	if err := t.env.tools.Pools.ImportAll(ctx); err != nil {
		return err
	}
	t.opened = true
	return nil
}

// Close exports the pools, then deactivates every disk
func (t *Tree) Close(ctx context.Context) error {
	if !t.opened {
		return nil
	}
	if err := t.env.tools.Pools.ExportAll(ctx); err != nil {
		return err
	}
	for _, d := range t.Disks {
		if err := d.Close(ctx); err != nil {
			return err
		}
	}
	t.opened = false
	return nil
}

// Probe loads the activation state left behind by an earlier run from the
// system, so that a fresh tree can close what another process opened
func (t *Tree) Probe(ctx context.Context) error {
	opened := false
	for _, d := range t.Disks {
		for _, p := range d.Partitions {
			if err := p.probe(ctx); err != nil {
				return err
			}
			opened = opened || p.opened
		}
	}

	pools, err := t.env.tools.Pools.List(ctx)
	if err != nil {
		return err
	}
	t.opened = opened || len(pools) > 0
	return nil
}
