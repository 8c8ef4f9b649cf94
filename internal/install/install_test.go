package install

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/storage"
	"github.com/sigreer/disklayer/internal/sysexec"
)

// fakeNode records mount events into a shared log
type fakeNode struct {
	name    string
	events  *[]string
	target  string
	mounted bool
}

func (n *fakeNode) Mount(ctx context.Context, target string) error {
	*n.events = append(*n.events, "mount "+n.name+" "+target)
	n.mounted, n.target = true, target
	return nil
}

func (n *fakeNode) Unmount(ctx context.Context) error {
	*n.events = append(*n.events, "unmount "+n.name)
	n.mounted = false
	return nil
}

func (n *fakeNode) IsMounted() bool { return n.mounted }
func (n *fakeNode) Source() string  { return "/dev/" + n.name }

type fakeRoles struct {
	root, efi storage.Mountable
	err       error
}

func (r fakeRoles) FindRoot() (storage.Mountable, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.root, nil
}

func (r fakeRoles) FindEFI() (storage.Mountable, error) { return r.efi, nil }

func newRoles() (fakeRoles, *[]string) {
	var events []string
	return fakeRoles{
		root: &fakeNode{name: "root", events: &events},
		efi:  &fakeNode{name: "boot", events: &events},
	}, &events
}

func TestInstaller(t *testing.T) {
	log, _ := test.NewNullLogger()
	run := sysexec.NewFake()
	roles, events := newRoles()

	i := NewInstaller(run, "/mnt/root", []string{"nixos-install", "--root"}, log)
	if err := i.Install(context.Background(), roles); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	wantEvents := []string{
		"mount root /mnt/root",
		"mount boot /mnt/root/boot/efi",
		"unmount boot",
		"unmount root",
	}
	if diff := cmp.Diff(wantEvents, *events); diff != "" {
		t.Errorf("mount events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"nixos-install --root /mnt/root"}, run.Lines()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestInstallerCommandFails(t *testing.T) {
	log, _ := test.NewNullLogger()
	boom := failure.Commandf("nixos-install", "exit status 1: build failed")
	run := sysexec.NewFake().On("nixos-install", sysexec.Fail(boom))
	roles, events := newRoles()

	err := NewInstaller(run, "/mnt/root", []string{"nixos-install"}, log).Install(context.Background(), roles)
	if !errors.Is(err, boom) {
		t.Fatalf("Install() error = %v, want %v", err, boom)
	}
	if n := len(*events); n != 4 || (*events)[3] != "unmount root" {
		t.Errorf("events = %v, want everything unmounted", *events)
	}
}

func TestInstallerWithoutCommand(t *testing.T) {
	log, _ := test.NewNullLogger()
	roles, events := newRoles()

	err := NewInstaller(sysexec.NewFake(), "/mnt/root", nil, log).Install(context.Background(), roles)
	if !errors.Is(err, ErrNoCommand) {
		t.Errorf("Install() error = %v, want ErrNoCommand", err)
	}
	if len(*events) != 0 {
		t.Errorf("events = %v, want nothing mounted", *events)
	}
}

func TestSecrets(t *testing.T) {
	log, _ := test.NewNullLogger()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/etc/disklayer/keyfile", []byte("0123456789abcdef"), 0600); err != nil {
		t.Fatal(err)
	}
	roles, events := newRoles()

	s := NewSecrets(fs, "/mnt/root", "/etc/disklayer/keyfile", "etc/secrets/disks", "keyfile", log)
	if err := s.Install(context.Background(), roles); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	const dest = "/mnt/root/etc/secrets/disks/keyfile"
	got, err := afero.ReadFile(fs, dest)
	if err != nil {
		t.Fatalf("reading installed key: %v", err)
	}
	if string(got) != "0123456789abcdef" {
		t.Errorf("installed key = %q", got)
	}
	info, err := fs.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != os.FileMode(0) {
		t.Errorf("key mode = %v, want 0000", perm)
	}

	if diff := cmp.Diff([]string{"mount root /mnt/root", "unmount root"}, *events); diff != "" {
		t.Errorf("mount events mismatch (-want +got):\n%s", diff)
	}
}

func TestSecretsErrors(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx := context.Background()

	roles, events := newRoles()
	s := NewSecrets(afero.NewMemMapFs(), "/mnt/root", "/missing", "etc/secrets/disks", "keyfile", log)
	if err := s.Install(ctx, roles); !failure.IsKind(err, failure.Filesystem) {
		t.Errorf("Install() without key error = %v, want Filesystem kind", err)
	}
	if len(*events) != 0 {
		t.Errorf("events = %v, want nothing mounted", *events)
	}

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/key", []byte("k"), 0600)
	notFound := errors.New("Root partition not found")
	s = NewSecrets(fs, "/mnt/root", "/key", "etc/secrets/disks", "keyfile", log)
	if err := s.Install(ctx, fakeRoles{err: notFound}); !errors.Is(err, notFound) {
		t.Errorf("Install() without root error = %v, want %v", err, notFound)
	}
}
