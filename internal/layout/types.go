package layout

import "fmt"

// PartitionType is the GPT type of a partition
type PartitionType int

const (
	PartitionLinux PartitionType = iota
	PartitionEFI
)

// ParsePartitionType accepts the names and GPT codes used in layouts
func ParsePartitionType(s string) (PartitionType, error) {
	switch s {
	case "efi", "boot", "ef00":
		return PartitionEFI, nil
	case "linux", "8300":
		return PartitionLinux, nil
	}
	return PartitionLinux, fmt.Errorf("invalid partition type %q", s)
}

// GPTCode returns the sgdisk type code
func (t PartitionType) GPTCode() string {
	if t == PartitionEFI {
		return "ef00"
	}
	return "8300"
}

func (t PartitionType) String() string {
	if t == PartitionEFI {
		return "efi"
	}
	return "linux"
}

// FsType is the filesystem (or container) a partition or volume is formatted with
type FsType string

const (
	FsExt4  FsType = "ext4"
	FsFat32 FsType = "fat32"
	FsSwap  FsType = "swap"
	FsZFS   FsType = "zfs"
	FsLVM   FsType = "lvm"
)

// ParseFsType validates a filesystem tag
func ParseFsType(s string) (FsType, error) {
	switch t := FsType(s); t {
	case FsExt4, FsFat32, FsSwap, FsZFS, FsLVM:
		return t, nil
	}
	return "", fmt.Errorf("invalid filesystem type %q", s)
}

// MountType returns the -t argument for mount, empty when mount can probe it
func (t FsType) MountType() string {
	switch t {
	case FsZFS:
		return "zfs"
	case FsFat32:
		return "vfat"
	}
	return ""
}
