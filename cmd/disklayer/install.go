package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigreer/disklayer/internal/install"
	"github.com/sigreer/disklayer/internal/journal"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/storage"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Copy the LUKS key file into the target system",
	Long: `Open the layout, mount its root filesystem and install the key file below
<secrets_dir>/<key_filename> with mode 0000, then close the layout again.`,
	RunE: runSecrets,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Mount the target system and run the installer",
	Long: `Open the layout, mount root at mount_root and the EFI partition at
<mount_root>/boot/efi, run installer.command with mount_root as its last
argument, then unmount and close the layout.`,
	RunE: runInstall,
}

func init() {
	addHostFlag(secretsCmd)
	addPasswordFlag(secretsCmd)
	addHostFlag(installCmd)
	addPasswordFlag(installCmd)
}

// withOpenTree opens the resolved layout of host for the length of fn
func withOpenTree(cmd *cobra.Command, operation string, fn func(ctx context.Context, tree *storage.Tree) error) error {
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

	ctx := cmd.Context()
	return journaled(operation, host, func(*journal.Journal, *journal.Run) (err error) {
		tree := newTree(*l, storage.Credentials{Passphrase: passphrase(cmd)})
		if err := tree.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if cerr := tree.Close(ctx); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return fn(ctx, tree)
	})
}

func runSecrets(cmd *cobra.Command, args []string) error {
	cfg := app.cfg
	secrets := install.NewSecrets(app.fs, cfg.MountRoot, cfg.KeyFile, cfg.SecretsDir, cfg.KeyFilename, app.log)

	return withOpenTree(cmd, "secrets", func(ctx context.Context, tree *storage.Tree) error {
		if err := secrets.Install(ctx, tree); err != nil {
			return err
		}
		fmt.Printf("Key file installed at %s\n", cfg.SecretsPath(cfg.MountRoot))
		return nil
	})
}

func runInstall(cmd *cobra.Command, args []string) error {
	installer := install.NewInstaller(app.run, app.cfg.MountRoot, app.cfg.Installer.Command, app.log)

	return withOpenTree(cmd, "install", func(ctx context.Context, tree *storage.Tree) error {
		if err := installer.Install(ctx, tree); err != nil {
			return err
		}
		fmt.Println("Installation finished")
		return nil
	})
}
