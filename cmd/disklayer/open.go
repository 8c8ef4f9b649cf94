package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigreer/disklayer/internal/journal"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/storage"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Unlock and activate a created layout",
	Long: `Open every LUKS container, activate every volume group, then import all
ZFS pools. Containers and groups that are already active are left alone.`,
	RunE: runOpen,
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Deactivate and lock a created layout",
	Long: `Export all ZFS pools, then deactivate every volume group and close every
LUKS container of the layout that is currently active.`,
	RunE: runClose,
}

func init() {
	addHostFlag(openCmd)
	addPasswordFlag(openCmd)
	addHostFlag(closeCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	host, err := hostFlag(cmd)
	if err != nil {
		return err
	}
	l, _, err := loadLayout(host, false)
	if err != nil {
		return err
	}
	if err := layout.CheckRoles(*l); err != nil {
		return err
	}

	return journaled("open", host, func(*journal.Journal, *journal.Run) error {
		tree := newTree(*l, storage.Credentials{Passphrase: passphrase(cmd)})
		if err := tree.Open(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Layout %s is open\n", host)
		return nil
	})
}

func runClose(cmd *cobra.Command, args []string) error {
	host, err := hostFlag(cmd)
	if err != nil {
		return err
	}
	l, _, err := loadLayout(host, false)
	if err != nil {
		return err
	}

	return journaled("close", host, func(*journal.Journal, *journal.Run) error {
		tree := newTree(*l, storage.Credentials{})
		if err := tree.Probe(cmd.Context()); err != nil {
			return err
		}
		if !tree.IsOpen() {
			fmt.Printf("Layout %s is not open\n", host)
			return nil
		}
		if err := tree.Close(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Layout %s is closed\n", host)
		return nil
	})
}
