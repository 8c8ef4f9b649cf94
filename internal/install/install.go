// Package install holds the collaborators that use an opened layout: the
// installer that runs against the mounted target system and the secret
// installer that drops the LUKS key file into it.
package install

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/storage"
	"github.com/sigreer/disklayer/internal/sysexec"
)

// EFIDir is where the EFI system partition is mounted below the root
const EFIDir = "boot/efi"

// ErrNoCommand is returned when no installer command is configured
var ErrNoCommand = errors.New("no installer command configured")

// Roles finds the nodes an installation targets
type Roles interface {
	FindRoot() (storage.Mountable, error)
	FindEFI() (storage.Mountable, error)
}

// Installer mounts the target system and runs the install command on it
type Installer struct {
	run       sysexec.Runner
	mountRoot string
	command   []string
	log       logrus.FieldLogger
}

// NewInstaller creates an installer. command is run with the mount root
// appended as its last argument.
func NewInstaller(run sysexec.Runner, mountRoot string, command []string, log logrus.FieldLogger) *Installer {
	return &Installer{run: run, mountRoot: mountRoot, command: command, log: log}
}

// Install mounts root and EFI, runs the install command, then unmounts EFI
// and root again
func (i *Installer) Install(ctx context.Context, roles Roles) (err error) {
	if len(i.command) == 0 {
		return failure.New(failure.Invalid, "installer.command", ErrNoCommand)
	}

	root, err := roles.FindRoot()
	if err != nil {
		return err
	}
	efi, err := roles.FindEFI()
	if err != nil {
		return err
	}

	if err := root.Mount(ctx, i.mountRoot); err != nil {
		return err
	}
	defer unmount(ctx, root, &err)

	if err := efi.Mount(ctx, filepath.Join(i.mountRoot, EFIDir)); err != nil {
		return err
	}
	defer unmount(ctx, efi, &err)

	i.log.WithFields(logrus.Fields{
		"root":    root.Source(),
		"efi":     efi.Source(),
		"command": sysexec.CommandLine(i.command[0], i.command[1:]...),
	}).Info("running installer")

	args := append(append([]string{}, i.command[1:]...), i.mountRoot)
	if _, err := i.run.Run(ctx, i.command[0], args...); err != nil {
		return fmt.Errorf("installer failed: %w", err)
	}
	return nil
}

// Secrets installs the LUKS key file into the target system so that it can
// unlock its own containers at boot
type Secrets struct {
	fs        afero.Fs
	mountRoot string
	keyFile   string
	// dest is relative to the mount root
	dest string
	log  logrus.FieldLogger
}

// NewSecrets creates a secret installer copying keyFile to
// <mountRoot>/<secretsDir>/<keyFilename>
func NewSecrets(fs afero.Fs, mountRoot, keyFile, secretsDir, keyFilename string, log logrus.FieldLogger) *Secrets {
	return &Secrets{
		fs:        fs,
		mountRoot: mountRoot,
		keyFile:   keyFile,
		dest:      filepath.Join(secretsDir, keyFilename),
		log:       log,
	}
}

// Install mounts root, writes the key file with no permissions at all
// (root still reads it), and unmounts root
func (s *Secrets) Install(ctx context.Context, roles Roles) (err error) {
	key, err := afero.ReadFile(s.fs, s.keyFile)
	if err != nil {
		return failure.Path(s.keyFile, err)
	}

	root, err := roles.FindRoot()
	if err != nil {
		return err
	}
	if err := root.Mount(ctx, s.mountRoot); err != nil {
		return err
	}
	defer unmount(ctx, root, &err)

	path := filepath.Join(s.mountRoot, s.dest)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return failure.Path(filepath.Dir(path), err)
	}
	if err := afero.WriteFile(s.fs, path, key, 0400); err != nil {
		return failure.Path(path, err)
	}
	if err := s.fs.Chmod(path, 0); err != nil {
		return failure.Path(path, err)
	}

	s.log.WithField("path", path).Info("installed key file")
	return nil
}

// unmount is deferred after a successful mount; its error is reported
// only when nothing failed before it
func unmount(ctx context.Context, m storage.Mountable, err *error) {
	if uerr := m.Unmount(ctx); uerr != nil && *err == nil {
		*err = uerr
	}
}
