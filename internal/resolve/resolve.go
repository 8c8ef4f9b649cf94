// Package resolve finds the kernel device and the stable identity links of
// a partition that was just written to a disk's partition table. sgdisk
// reports success but not the node the kernel assigned, so the identity is
// looked up afterwards, polling until udev has caught up.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/settle"
	"github.com/sigreer/disklayer/internal/sysexec"
)

var (
	// ErrNoPartition means the partition table has no entry for the id yet
	ErrNoPartition = errors.New("partition not in table")
	// ErrNoStableID means no by-id link points at the partition yet
	ErrNoStableID = errors.New("no by-id link for partition")
	// ErrNoDevice means a device node has not appeared
	ErrNoDevice = errors.New("device node not present")
)

// Identity is everything known about a created partition
type Identity struct {
	Device      string
	DeviceName  string
	ByID        string
	ByPartLabel string
}

// Resolver maps (disk, partition id) to an Identity
type Resolver struct {
	run    sysexec.Runner
	ns     Namespace
	policy settle.Policy
	log    logrus.FieldLogger
}

// New creates a resolver
func New(run sysexec.Runner, ns Namespace, policy settle.Policy, log logrus.FieldLogger) *Resolver {
	return &Resolver{run: run, ns: ns, policy: policy, log: log}
}

// Resolve polls Lookup until the partition and its by-id link are visible
// or the settle timeout elapses
func (r *Resolver) Resolve(ctx context.Context, disk string, id uint32, label string) (Identity, error) {
	var ident Identity
	what := fmt.Sprintf("partition %d on %s", id, disk)
	err := r.policy.Wait(ctx, what, func() error {
		var err error
		ident, err = r.Lookup(ctx, disk, id, label)
		return err
	})
	if err != nil {
		return Identity{}, err
	}

	r.log.WithFields(logrus.Fields{
		"partition": label,
		"device":    ident.Device,
		"by_id":     ident.ByID,
	}).Info("partition identified")
	return ident, nil
}

// Lookup resolves the identity from a single snapshot of the partition
// table and the by-id namespace
func (r *Resolver) Lookup(ctx context.Context, disk string, id uint32, label string) (Identity, error) {
	// 1. Transient node from the partition table
	entries, err := ListPartitions(ctx, r.run, disk)
	if err != nil {
		return Identity{}, err
	}
	entry, ok := matchPartition(entries, disk, id)
	if !ok {
		return Identity{}, failure.New(failure.Resolution, disk, fmt.Errorf("%w: id %d", ErrNoPartition, id))
	}

	name := entry.KernelName
	if name == "" {
		name = filepath.Base(entry.Path)
	}

	// 2. First by-id link pointing at it
	links, err := r.ns.ReadLinks(layout.ByIDDir)
	if err != nil {
		return Identity{}, failure.Path(layout.ByIDDir, err)
	}
	byID, ok := matchLink(links, name)
	if !ok {
		return Identity{}, failure.New(failure.Resolution, entry.Path, ErrNoStableID)
	}

	// 3. by-partlabel follows from the label written at creation
	return Identity{
		Device:      entry.Path,
		DeviceName:  name,
		ByID:        filepath.Join(layout.ByIDDir, byID),
		ByPartLabel: layout.PartLabelPath(label),
	}, nil
}

// WaitForDevice polls until path exists
func (r *Resolver) WaitForDevice(ctx context.Context, path string) error {
	return r.policy.Wait(ctx, path, func() error {
		if r.ns.Exists(path) {
			return nil
		}
		return failure.New(failure.Resolution, path, ErrNoDevice)
	})
}

// matchPartition finds the table entry for partition id: its path is the
// disk path followed by the ordinal (sda1, nvme0n1p1, ...-part1) or lsblk
// reports that partition number
func matchPartition(entries []TableEntry, disk string, id uint32) (TableEntry, bool) {
	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(disk) + "(p|-part)?" + strconv.FormatUint(uint64(id), 10) + "$")
	for _, e := range entries {
		if pattern.MatchString(e.Path) {
			return e, true
		}
	}
	for _, e := range entries {
		if e.Number == id {
			return e, true
		}
	}
	return TableEntry{}, false
}

// matchLink returns the first link, in name order, whose target is the
// kernel device name
func matchLink(links map[string]string, kernelName string) (string, bool) {
	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if filepath.Base(links[name]) == kernelName {
			return name, true
		}
	}
	return "", false
}
