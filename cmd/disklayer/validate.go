package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigreer/disklayer/internal/layout"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a layout without touching any disk",
	Long: `Load a layout and check every field, the size rules and the root and EFI
roles. The resolved <host>.json is checked unless --input is given.`,
	RunE: runValidate,
}

func init() {
	addHostFlag(validateCmd)
	validateCmd.Flags().Bool("input", false, "check <host>.in.json instead of the resolved layout")
}

func runValidate(cmd *cobra.Command, args []string) error {
	host, err := hostFlag(cmd)
	if err != nil {
		return err
	}
	input, _ := cmd.Flags().GetBool("input")

	l, path, err := loadLayout(host, input)
	if err != nil {
		return err
	}
	if err := layout.CheckRoles(*l); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	partitions := 0
	for _, d := range l.Disks {
		partitions += len(d.Partitions)
	}
	fmt.Printf("%s: OK (%d disks, %d partitions)\n", path, len(l.Disks), partitions)
	return nil
}
