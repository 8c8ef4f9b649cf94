package lvm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sigreer/disklayer/internal/failure"
)

// lvReport represents lvs JSON output
type lvReport struct {
	Report []struct {
		LV []struct {
			LVName   string `json:"lv_name"`
			VGName   string `json:"vg_name"`
			LVPath   string `json:"lv_path"`
			LVActive string `json:"lv_active"`
		} `json:"lv"`
	} `json:"report"`
}

// LogicalVolume is one row of the lvs report
type LogicalVolume struct {
	Name   string
	Group  string
	Path   string
	Active bool
}

// Volumes lists the logical volumes of group. A group LVM does not know
// about has no volumes.
func (m *Manager) Volumes(ctx context.Context, group string) ([]LogicalVolume, error) {
	out, err := m.run.Run(ctx, "lvs", "--reportformat", "json", "-o", "lv_name,vg_name,lv_path,lv_active", group)
	if err != nil {
		if failure.IsKind(err, failure.Command) {
			return nil, nil
		}
		return nil, err
	}
	return parseReport(out)
}

// IsActive reports whether group has volumes and all of them are active
func (m *Manager) IsActive(ctx context.Context, group string) (bool, error) {
	lvs, err := m.Volumes(ctx, group)
	if err != nil {
		return false, err
	}
	if len(lvs) == 0 {
		return false, nil
	}
	for _, lv := range lvs {
		if !lv.Active {
			return false, nil
		}
	}
	return true, nil
}

func parseReport(out []byte) ([]LogicalVolume, error) {
	if len(out) == 0 {
		return nil, nil
	}

	var report lvReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("failed to parse lvs output: %w", err)
	}

	var lvs []LogicalVolume
	for _, r := range report.Report {
		for _, lv := range r.LV {
			lvs = append(lvs, LogicalVolume{
				Name:   lv.LVName,
				Group:  lv.VGName,
				Path:   lv.LVPath,
				Active: lv.LVActive == "active",
			})
		}
	}
	return lvs, nil
}
