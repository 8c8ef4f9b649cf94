package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/journal"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/storage"
)

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Create the layout on its disks",
	Long: `Create every partition, LUKS container, volume group and ZFS pool of a layout.

THIS DESTROYS DATA. Every imported ZFS pool is destroyed and every disk
not marked read_only is wiped.

The steps are:
  1. Destroy all ZFS pools
  2. Per disk: wipe the partition table
  3. Per disk: create the partitions in id order, resolving each one's
     kernel device and /dev/disk/by-id link
  4. Per disk: format each partition (LUKS, LVM, ZFS or a filesystem)
  5. Close everything and write <host>.json

Disks written as "#name" in the layout are mapped with --device name=/dev/...

Examples:
  disklayer partition --host laptop --device main=/dev/nvme0n1
  disklayer partition --host server --password "$PASS" --dry-run -v`,
	RunE: runPartition,
}

func init() {
	addHostFlag(partitionCmd)
	addPasswordFlag(partitionCmd)
	partitionCmd.Flags().StringArray("device", nil, "map a #name disk placeholder: NAME=DEVICE (repeatable)")
}

func runPartition(cmd *cobra.Command, args []string) error {
	host, err := hostFlag(cmd)
	if err != nil {
		return err
	}

	l, _, err := loadLayout(host, true)
	if err != nil {
		return err
	}

	pairs, _ := cmd.Flags().GetStringArray("device")
	mapping, err := layout.ParseDeviceMapping(pairs)
	if err != nil {
		return failure.New(failure.Invalid, "--device", err)
	}
	if unmapped := l.MapDevices(mapping); len(unmapped) > 0 {
		return failure.InvalidValue("--device", "no device given for "+layout.PlaceholderPrefix+strings.Join(unmapped, ", "+layout.PlaceholderPrefix))
	}
	if err := layout.CheckRoles(*l); err != nil {
		return err
	}

	creds, err := createCredentials(app.fs, *l, passphrase(cmd), app.cfg.KeyFile)
	if err != nil {
		return err
	}

	return journaled("partition", host, func(j *journal.Journal, run *journal.Run) error {
		tree := newTree(*l, creds)
		if err := tree.Create(cmd.Context()); err != nil {
			return err
		}

		resolved := tree.Config()
		out := layout.ResolvedPath(app.cfg.LayoutsDir, host)
		if err := layout.Save(app.fs, out, &resolved); err != nil {
			return err
		}
		if j != nil {
			if err := j.RecordPartitions(run.ID, resolved); err != nil {
				app.log.WithError(err).Warn("failed to record partitions")
			}
		}

		fmt.Printf("Layout %s created, resolved layout written to %s\n", host, out)
		return nil
	})
}

// createCredentials checks that an encrypted layout has both a passphrase
// and an existing key file before any disk is touched
func createCredentials(fs afero.Fs, l layout.Layout, pass []byte, keyFile string) (storage.Credentials, error) {
	creds := storage.Credentials{Passphrase: pass, KeyFile: keyFile}
	if !l.HasEncrypted() {
		return creds, nil
	}
	if len(pass) == 0 {
		return creds, failure.New(failure.Invalid, "--password", storage.ErrNoPassphrase)
	}
	if ok, _ := afero.Exists(fs, keyFile); !ok {
		return creds, failure.New(failure.Invalid, "key_file", fmt.Errorf("%w: %s does not exist", storage.ErrNoKeyFile, keyFile))
	}
	return creds, nil
}
