package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sigreer/disklayer/internal/failure"
)

// ErrAmbiguousRole is returned when more than one node claims the root or
// EFI role, or more than one disk claims to hold the system
var ErrAmbiguousRole = errors.New("ambiguous role")

// CheckRoles rejects layouts where the root or EFI search would have more
// than one candidate. Layouts with no candidate pass; the search itself
// reports that case when it is needed.
func CheckRoles(l Layout) error {
	var systemDisks, roots, efis []string

	for _, d := range l.Disks {
		if !d.ContainsSystem {
			continue
		}
		systemDisks = append(systemDisks, d.Device)

		for _, p := range d.Partitions {
			if p.IsRoot {
				roots = append(roots, "partition "+p.Label)
			}
			if t, err := ParsePartitionType(p.PartitionType); err == nil && t == PartitionEFI {
				efis = append(efis, "partition "+p.Label)
			}
			if !p.IsSystem {
				continue
			}
			for _, v := range p.LVM {
				if v.IsRoot {
					roots = append(roots, "volume "+VolumePath(p.Label, v.Label))
				}
				if v.VolumeType == "" {
					continue
				}
				if t, err := ParsePartitionType(v.VolumeType); err == nil && t == PartitionEFI {
					efis = append(efis, "volume "+VolumePath(p.Label, v.Label))
				}
			}
			for _, ds := range p.ZFS {
				if ds.IsRoot {
					roots = append(roots, "dataset "+p.Label+"/"+ds.Name)
				}
			}
		}
	}

	if err := single("contains_system", systemDisks); err != nil {
		return err
	}
	if err := single("is_root", roots); err != nil {
		return err
	}
	return single("efi", efis)
}

func single(role string, candidates []string) error {
	if len(candidates) <= 1 {
		return nil
	}
	return failure.New(failure.Invalid, role,
		fmt.Errorf("%w: %d candidates (%s)", ErrAmbiguousRole, len(candidates), strings.Join(candidates, ", ")))
}
