package layout

import (
	"fmt"

	"github.com/sigreer/disklayer/internal/failure"
)

// ValidatePartition checks the fields every partition must carry
func ValidatePartition(p Partition) error {
	if p.ID == 0 {
		return failure.InvalidValue("partition.id", "must be non-zero")
	}
	field := fmt.Sprintf("partition[%d]", p.ID)
	if _, err := ParsePartitionType(p.PartitionType); err != nil {
		return failure.InvalidValue(field+".partition_type", err.Error())
	}
	if _, err := ParseFsType(p.FsType); err != nil {
		return failure.InvalidValue(field+".fs_type", err.Error())
	}
	if p.Label == "" {
		return failure.InvalidValue(field+".label", "must not be empty")
	}
	for _, v := range p.LVM {
		if err := ValidateVolume(v); err != nil {
			return err
		}
	}
	for _, ds := range p.ZFS {
		if err := ValidateDataset(ds); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVolume checks a logical volume entry
func ValidateVolume(v Volume) error {
	if v.Label == "" {
		return failure.InvalidValue("lvm.label", "must not be empty")
	}
	if _, err := ParseFsType(v.FsType); err != nil {
		return failure.InvalidValue("lvm["+v.Label+"].fs_type", err.Error())
	}
	if v.VolumeType != "" {
		if _, err := ParsePartitionType(v.VolumeType); err != nil {
			return failure.InvalidValue("lvm["+v.Label+"].volume_type", err.Error())
		}
	}
	return nil
}

// ValidateDataset checks a ZFS filesystem entry
func ValidateDataset(ds Dataset) error {
	if ds.Name == "" {
		return failure.InvalidValue("zfs.name", "must not be empty")
	}
	if ds.Mountpoint == "" {
		return failure.InvalidValue("zfs["+ds.Name+"].mountpoint", "must not be empty")
	}
	return nil
}

// ValidateDisk checks a disk and all of its partitions
func ValidateDisk(d Disk) error {
	if d.Device == "" {
		return failure.InvalidValue("disk.device", "must not be empty")
	}
	for _, p := range d.Partitions {
		if err := ValidatePartition(p); err != nil {
			return fmt.Errorf("disk %s: %w", d.Device, err)
		}
	}
	return nil
}

// Validate checks every disk. It is structural only: uniqueness of the
// root and EFI roles is left to CheckRoles.
func Validate(l Layout) error {
	for _, d := range l.Disks {
		if err := ValidateDisk(d); err != nil {
			return err
		}
	}
	return nil
}
