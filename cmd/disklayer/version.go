package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigreer/disklayer/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	// config is not needed to print the version
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("disklayer %s\n", version.Version)
	},
}
