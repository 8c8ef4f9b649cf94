package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sigreer/disklayer/internal/config"
	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/journal"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/mount"
	"github.com/sigreer/disklayer/internal/resolve"
	"github.com/sigreer/disklayer/internal/storage"
	"github.com/sigreer/disklayer/internal/sysexec"
)

// passwordEnv may hold the LUKS passphrase instead of --password
const passwordEnv = "DISKLAYER_PASSWORD"

// app is what every command shares once setup has run
var app struct {
	cfg *config.Config
	log *logrus.Logger
	run sysexec.Runner
	fs  afero.Fs
}

// setup loads the config and builds the logger, runner and filesystem
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, _ := logrus.ParseLevel(cfg.Log.Level)
	if verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	// Dry runs read the real filesystem but keep their writes in memory
	fs := afero.NewOsFs()
	if dryRun {
		fs = afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(fs), afero.NewMemMapFs())
		log.Warn("dry run: no command is executed and no file is written")
	}

	app.cfg = cfg
	app.log = log
	app.run = sysexec.NewExec(log, dryRun)
	app.fs = fs
	return nil
}

func addHostFlag(cmd *cobra.Command) {
	cmd.Flags().String("host", "", "layout to use (default is the configured host)")
}

func addPasswordFlag(cmd *cobra.Command) {
	cmd.Flags().String("password", "", "LUKS passphrase (default is $"+passwordEnv+")")
}

func hostFlag(cmd *cobra.Command) (string, error) {
	host, _ := cmd.Flags().GetString("host")
	if host == "" {
		host = app.cfg.Host
	}
	if host == "" {
		return "", failure.InvalidValue("host", "no --host given and no host configured")
	}
	return host, nil
}

func passphrase(cmd *cobra.Command) []byte {
	pass, _ := cmd.Flags().GetString("password")
	if pass == "" {
		pass = os.Getenv(passwordEnv)
	}
	if pass == "" {
		return nil
	}
	return []byte(pass)
}

// loadLayout reads the resolved layout of host, or the hand-written input
// layout when input is set
func loadLayout(host string, input bool) (*layout.Layout, string, error) {
	path := layout.ResolvedPath(app.cfg.LayoutsDir, host)
	if input {
		path = layout.InputPath(app.cfg.LayoutsDir, host)
	}
	l, err := layout.Load(app.fs, path)
	if err != nil {
		return nil, path, err
	}
	return l, path, nil
}

func newTree(l layout.Layout, creds storage.Credentials) *storage.Tree {
	tools := storage.NewTools(app.run, resolve.DevNamespace{}, mount.HostTable{}, app.fs, app.cfg.Settle, app.log)
	return storage.New(l, tools, creds)
}

// journaled runs fn as a journal entry. A journal that cannot be opened
// only costs the history, never the operation. Dry runs are not recorded.
func journaled(operation, host string, fn func(j *journal.Journal, run *journal.Run) error) error {
	if dryRun {
		app.log.WithField("database", app.cfg.Database).Debug("dry run, journal not written")
		return fn(nil, nil)
	}

	j, err := journal.Open(app.cfg.Database)
	if err != nil {
		app.log.WithError(err).Warn("journal unavailable, run will not be recorded")
		return fn(nil, nil)
	}
	defer j.Close()

	run, err := j.StartRun(operation, host, dryRun)
	if err != nil {
		app.log.WithError(err).Warn("failed to record run")
		return fn(nil, nil)
	}

	runErr := fn(j, run)
	if err := j.FinishRun(run, runErr); err != nil {
		app.log.WithError(err).Warn("failed to record run result")
	}
	return runErr
}
