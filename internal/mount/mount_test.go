package mount

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"

	"github.com/sigreer/disklayer/internal/sysexec"
)

// fakeTable maps target -> source
type fakeTable map[string]string

func (f fakeTable) Source(target string) (string, bool, error) {
	src, ok := f[target]
	return src, ok, nil
}

func TestMount(t *testing.T) {
	tests := []struct {
		name   string
		table  fakeTable
		source string
		fstype string
		want   []string
	}{
		{
			name:   "not mounted",
			table:  fakeTable{},
			source: "/dev/vg-system/root",
			want:   []string{"mount /dev/vg-system/root /mnt/root"},
		},
		{
			name:   "zfs",
			table:  fakeTable{},
			source: "rpool/root",
			fstype: "zfs",
			want:   []string{"mount -t zfs rpool/root /mnt/root"},
		},
		{
			name:   "same source already mounted",
			table:  fakeTable{"/mnt/root": "rpool/root"},
			source: "rpool/root",
			fstype: "zfs",
		},
		{
			name:   "other source mounted",
			table:  fakeTable{"/mnt/root": "/dev/sdz9"},
			source: "/dev/vg-system/root",
			want:   []string{"mount /dev/vg-system/root /mnt/root"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, _ := test.NewNullLogger()
			run := sysexec.NewFake()
			fs := afero.NewMemMapFs()
			m := New(run, tt.table, fs, log)

			if err := m.Mount(context.Background(), tt.source, "/mnt/root", tt.fstype); err != nil {
				t.Fatalf("Mount() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, run.Lines(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("commands mismatch (-want +got):\n%s", diff)
			}
			if len(tt.want) > 0 {
				if ok, _ := afero.DirExists(fs, "/mnt/root"); !ok {
					t.Error("mount point was not created")
				}
			}
		})
	}
}

func TestUnmount(t *testing.T) {
	log, _ := test.NewNullLogger()
	run := sysexec.NewFake()
	m := New(run, fakeTable{"/mnt/root": "/dev/sda2"}, afero.NewMemMapFs(), log)
	ctx := context.Background()

	if err := m.Unmount(ctx, "/mnt/root"); err != nil {
		t.Fatal(err)
	}
	if err := m.Unmount(ctx, "/mnt/root/boot/efi"); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"umount /mnt/root"}, run.Lines()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}
