package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/luks"
	"github.com/sigreer/disklayer/internal/zfs"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a layout as a table",
	Long: `Print the disks, partitions, logical volumes and ZFS filesystems of a
layout. Encrypted partitions whose mapper is currently active are marked open.`,
	RunE: runShow,
}

func init() {
	addHostFlag(showCmd)
	showCmd.Flags().Bool("input", false, "show <host>.in.json instead of the resolved layout")
	showCmd.Flags().Bool("json", false, "Output as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	host, err := hostFlag(cmd)
	if err != nil {
		return err
	}
	input, _ := cmd.Flags().GetBool("input")
	jsonOut, _ := cmd.Flags().GetBool("json")

	l, _, err := loadLayout(host, input)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(l)
	}

	open := map[string]bool{}
	mappers, err := luks.ListOpen(cmd.Context(), app.run)
	if err != nil {
		app.log.WithError(err).Debug("cannot list active mappers")
	}
	for _, m := range mappers {
		open[m.Name] = true
	}

	for _, d := range l.Disks {
		var flags []string
		if d.ReadOnly {
			flags = append(flags, "read-only")
		}
		if d.ContainsSystem {
			flags = append(flags, "system")
		}
		fmt.Printf("\n%s %s\n", d.Device, bracket(flags))
		fmt.Printf("%-4s %-10s %-8s %-6s %-16s %-10s %s\n", "ID", "SIZE", "TYPE", "FS", "LABEL", "STATE", "DEVICE")
		fmt.Println(strings.Repeat("-", 85))

		for _, p := range d.Partitions {
			fmt.Printf("%-4d %-10s %-8s %-6s %-16s %-10s %s\n",
				p.ID, p.Size.Human(), p.PartitionType, p.FsType, p.Label, partitionState(p, open), orDash(p.DeviceByID))

			for _, v := range p.LVM {
				fmt.Printf("  lv %-10s %-8s %-6s %-16s %-10s %s\n",
					v.Size.Human(), v.VolumeType, v.FsType, v.Label, roleMark(v.IsRoot), orDash(v.Device))
			}
			if len(p.ZFS) > 0 {
				fmt.Printf("  pool %-32s %s\n", p.Label, poolState(cmd, p.Label))
			}
			for _, ds := range p.ZFS {
				fmt.Printf("  fs %-34s %-10s %s\n", p.Label+"/"+ds.Name, roleMark(ds.IsRoot), orDash(ds.Mountpoint))
			}
		}
	}
	return nil
}

func partitionState(p layout.Partition, open map[string]bool) string {
	switch {
	case !p.Encrypted:
		return roleMark(p.IsRoot)
	case open[p.Label]:
		return "open"
	default:
		return "locked"
	}
}

// poolState reports the health of an imported pool, or "exported"
func poolState(cmd *cobra.Command, pool string) string {
	h, err := zfs.New(app.run, app.log).Health(cmd.Context(), pool)
	if err != nil {
		return "exported"
	}
	if n := h.TotalErrors(); n > 0 {
		return fmt.Sprintf("%s (%d errors)", h.State, n)
	}
	return h.State
}

func roleMark(root bool) string {
	if root {
		return "root"
	}
	return "-"
}

func bracket(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	return "[" + strings.Join(flags, ", ") + "]"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
