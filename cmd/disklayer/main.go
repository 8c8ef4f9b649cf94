package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "disklayer",
	Short: "Declarative disk layout tool",
	Long: `disklayer turns a JSON disk layout into GPT partitions, LUKS containers,
LVM volume groups and ZFS pools, and brings an existing layout online or
offline for installation.

Layouts are read from <layouts_dir>/<host>.in.json. After partitioning,
the layout with every resolved device identity is written to
<layouts_dir>/<host>.json, which open, close, secrets and install use.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/disklayer/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every external command")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log changes instead of making them; nothing is journaled")

	rootCmd.AddCommand(partitionCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// Interrupts cancel the running external command; nothing is rolled back
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
