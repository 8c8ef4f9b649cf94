// Package layout is the declarative description of a machine's storage:
// disks, their GPT partitions, and what lives inside each partition (LUKS,
// an LVM volume group, ZFS filesystems). It is what gets loaded from and
// written back to the layout JSON documents.
package layout

import (
	"fmt"
	"sort"
	"strings"
)

// PlaceholderPrefix marks a disk device to be substituted from a device mapping
const PlaceholderPrefix = "#"

// MapperDir is where cryptsetup publishes opened LUKS containers
const MapperDir = "/dev/mapper"

// ByIDDir and ByPartLabelDir are the udev stable-identity namespaces
const (
	ByIDDir        = "/dev/disk/by-id"
	ByPartLabelDir = "/dev/disk/by-partlabel"
)

// Layout is the whole storage description of one host
type Layout struct {
	Disks []Disk `json:"disks"`
}

// Disk is one physical device and its partition table
type Disk struct {
	// Device path, or "#name" to be replaced through MapDevices
	Device         string      `json:"device"`
	ReadOnly       bool        `json:"read_only"`
	ContainsSystem bool        `json:"contains_system"`
	Partitions     []Partition `json:"partitions"`
}

// Partition is one GPT partition. The resolved fields are empty until the
// partition has been created.
type Partition struct {
	ID            uint32    `json:"id"`
	Size          Size      `json:"size"`
	PartitionType string    `json:"partition_type"`
	Encrypted     bool      `json:"encrypted"`
	FsType        string    `json:"fs_type"`
	Label         string    `json:"label"`
	IsSystem      bool      `json:"is_system"`
	IsRoot        bool      `json:"is_root"`
	LVM           []Volume  `json:"lvm"`
	ZFS           []Dataset `json:"zfs"`

	Device            string `json:"device,omitempty"`
	DeviceName        string `json:"device_name,omitempty"`
	DeviceByID        string `json:"device_by_id,omitempty"`
	DeviceByPartLabel string `json:"device_by_partlabel,omitempty"`
	LuksMapper        string `json:"luks_mapper,omitempty"`
}

// Volume is an LVM logical volume carved from the partition's volume group
type Volume struct {
	ID         uint32 `json:"id"`
	Size       Size   `json:"size"`
	VolumeType string `json:"volume_type"`
	Encrypted  bool   `json:"encrypted"`
	FsType     string `json:"fs_type"`
	Label      string `json:"label"`
	IsRoot     bool   `json:"is_root"`

	Device string `json:"device,omitempty"`
}

// Dataset is a ZFS filesystem in the pool named after its partition's label
type Dataset struct {
	Name       string `json:"name"`
	Mountpoint string `json:"mountpoint"`
	IsRoot     bool   `json:"is_root"`
}

// GroupName returns the LVM volume group name for a partition label
func GroupName(label string) string {
	return "vg-" + label
}

// VolumePath returns the device path of a logical volume
func VolumePath(label, volume string) string {
	return "/dev/" + GroupName(label) + "/" + volume
}

// MapperPath returns the device-mapper path of an opened LUKS container
func MapperPath(name string) string {
	return MapperDir + "/" + name
}

// PartLabelPath returns the by-partlabel link for a partition label
func PartLabelPath(label string) string {
	return ByPartLabelDir + "/" + label
}

// SortPartitions orders partitions by id, which is their creation order
func (d *Disk) SortPartitions() {
	sort.SliceStable(d.Partitions, func(i, j int) bool {
		return d.Partitions[i].ID < d.Partitions[j].ID
	})
}

// IsPlaceholder reports whether the disk device still needs mapping
func (d *Disk) IsPlaceholder() bool {
	return strings.HasPrefix(d.Device, PlaceholderPrefix)
}

// HasEncrypted reports whether any partition is a LUKS container
func (l *Layout) HasEncrypted() bool {
	for _, d := range l.Disks {
		for _, p := range d.Partitions {
			if p.Encrypted {
				return true
			}
		}
	}
	return false
}

// MapDevices replaces "#name" disk devices using mapping[name]. Unknown
// placeholders are left as they are and returned.
func (l *Layout) MapDevices(mapping map[string]string) []string {
	var unmapped []string
	for i := range l.Disks {
		d := &l.Disks[i]
		if !d.IsPlaceholder() {
			continue
		}
		key := strings.TrimPrefix(d.Device, PlaceholderPrefix)
		if dev, ok := mapping[key]; ok {
			d.Device = dev
			continue
		}
		unmapped = append(unmapped, key)
	}
	return unmapped
}

// ParseDeviceMapping parses NAME=DEVICE pairs
func ParseDeviceMapping(pairs []string) (map[string]string, error) {
	mapping := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, dev, ok := strings.Cut(p, "=")
		if !ok || name == "" || dev == "" {
			return nil, fmt.Errorf("device mapping must be NAME=DEVICE, got %q", p)
		}
		mapping[name] = dev
	}
	return mapping, nil
}
