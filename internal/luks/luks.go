// Package luks drives cryptsetup to create, open and close LUKS containers.
// Passphrases are always passed on stdin.
package luks

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/sysexec"
)

// Cipher parameters for new containers
const (
	Cipher  = "aes-xts-plain64"
	KeySize = "256"
	Hash    = "sha512"
	Type    = "luks1"
)

// Crypt manages LUKS containers
type Crypt struct {
	run sysexec.Runner
	log logrus.FieldLogger
}

// New creates a LUKS manager
func New(run sysexec.Runner, log logrus.FieldLogger) *Crypt {
	return &Crypt{run: run, log: log}
}

// Format initialises a LUKS header on device protected by passphrase
func (c *Crypt) Format(ctx context.Context, device string, passphrase []byte) error {
	c.log.WithField("device", device).Info("creating LUKS container")
	_, err := c.run.RunInput(ctx, passphrase, "cryptsetup", "luksFormat",
		"-c", Cipher, "-s", KeySize, "-h", Hash, "--type", Type,
		"-q", device, "-")
	if err != nil {
		return fmt.Errorf("failed to format LUKS container on %s: %w", device, err)
	}
	return nil
}

// AddKey enrols keyFile as an additional key, authorised by passphrase
func (c *Crypt) AddKey(ctx context.Context, device, keyFile string, passphrase []byte) error {
	c.log.WithFields(logrus.Fields{"device": device, "key_file": keyFile}).Info("adding LUKS key file")
	_, err := c.run.RunInput(ctx, passphrase, "cryptsetup", "luksAddKey", "--key-file", "-", device, keyFile)
	if err != nil {
		return fmt.Errorf("failed to add key to %s: %w", device, err)
	}
	return nil
}

// Open maps device to /dev/mapper/<name>
func (c *Crypt) Open(ctx context.Context, device, name string, passphrase []byte) error {
	c.log.WithFields(logrus.Fields{"device": device, "mapper": name}).Info("opening LUKS container")
	_, err := c.run.RunInput(ctx, passphrase, "cryptsetup", "luksOpen", "--key-file", "-", device, name)
	if err != nil {
		return fmt.Errorf("failed to open %s as %s: %w", device, name, err)
	}
	return nil
}

// Close removes the mapping /dev/mapper/<name>
func (c *Crypt) Close(ctx context.Context, name string) error {
	path := layout.MapperPath(name)
	c.log.WithField("mapper", name).Info("closing LUKS container")
	if _, err := c.run.Run(ctx, "cryptsetup", "luksClose", path); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// IsOpen reports whether /dev/mapper/<name> is an active mapping.
// cryptsetup exits nonzero for inactive devices, so a failed status
// command reads as closed.
func (c *Crypt) IsOpen(ctx context.Context, name string) (bool, error) {
	out, err := c.run.Run(ctx, "cryptsetup", "status", layout.MapperPath(name))
	if err != nil && !failure.IsKind(err, failure.Command) {
		return false, err
	}
	return bytes.Contains(out, []byte("is active")), nil
}
