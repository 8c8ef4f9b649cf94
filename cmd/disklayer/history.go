package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sigreer/disklayer/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `Show the runs recorded in the journal database, newest first.

With a run id, show the partition identities that run resolved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	// Opening would create the database
	if ok, _ := afero.Exists(app.fs, app.cfg.Database); !ok {
		fmt.Println("No runs recorded.")
		return nil
	}

	j, err := journal.Open(app.cfg.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	jsonOut, _ := cmd.Flags().GetBool("json")

	if len(args) == 1 {
		return showRunPartitions(j, args[0], jsonOut)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := j.ListRuns(limit)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-36s %-10s %-12s %-10s %-16s %s\n", "RUN", "OPERATION", "HOST", "STATUS", "STARTED", "ERROR")
	fmt.Println(strings.Repeat("-", 100))
	for _, r := range runs {
		status := r.Status
		if r.DryRun {
			status += "*"
		}
		fmt.Printf("%-36s %-10s %-12s %-10s %-16s %s\n",
			r.ID, r.Operation, r.Host, status, humanize.Time(r.StartedAt), orDash(r.Error))
	}
	return nil
}

func showRunPartitions(j *journal.Journal, runID string, jsonOut bool) error {
	parts, err := j.Partitions(runID)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(parts)
	}

	if len(parts) == 0 {
		fmt.Printf("No partitions recorded for run %s.\n", runID)
		return nil
	}

	fmt.Printf("%-16s %-4s %-16s %-12s %s\n", "DISK", "ID", "LABEL", "KERNEL", "BY-ID")
	fmt.Println(strings.Repeat("-", 100))
	for _, p := range parts {
		fmt.Printf("%-16s %-4d %-16s %-12s %s\n",
			p.Disk, p.PartitionID, p.Label, orDash(p.DeviceName), orDash(p.DeviceByID))
	}
	return nil
}
