package storage

import (
	"errors"

	"github.com/sigreer/disklayer/internal/failure"
)

var (
	ErrSystemDiskNotFound = errors.New("System disk not found")
	ErrRootNotFound       = errors.New("Root partition not found")
	ErrEFINotFound        = errors.New("EFI partition not found")
)

// FindSystemDisk returns the first disk marked contains_system
func (t *Tree) FindSystemDisk() (*Disk, error) {
	for _, d := range t.Disks {
		if d.ContainsSystem {
			return d, nil
		}
	}
	return nil, failure.New(failure.Generic, "", ErrSystemDiskNotFound)
}

// FindRoot returns the root filesystem of the system disk: a partition
// flagged is_root, or a logical volume or pool filesystem flagged is_root
// inside an is_system partition
func (t *Tree) FindRoot() (Mountable, error) {
	d, err := t.FindSystemDisk()
	if err != nil {
		return nil, err
	}

	for _, p := range d.Partitions {
		if p.IsRoot() {
			return p, nil
		}
		if !p.IsSystem() {
			continue
		}
		if p.Group != nil {
			for _, lv := range p.Group.Volumes {
				if lv.IsRoot() {
					return lv, nil
				}
			}
		}
		for _, fs := range p.Filesystems {
			if fs.IsRoot() {
				return fs, nil
			}
		}
	}
	return nil, failure.New(failure.Generic, d.Device, ErrRootNotFound)
}

// FindEFI returns the EFI system partition of the system disk, or a
// logical volume typed EFI inside an is_system partition
func (t *Tree) FindEFI() (Mountable, error) {
	d, err := t.FindSystemDisk()
	if err != nil {
		return nil, err
	}

	for _, p := range d.Partitions {
		if p.IsEFI() {
			return p, nil
		}
		if !p.IsSystem() || p.Group == nil {
			continue
		}
		for _, lv := range p.Group.Volumes {
			if lv.IsEFI() {
				return lv, nil
			}
		}
	}
	return nil, failure.New(failure.Generic, d.Device, ErrEFINotFound)
}
