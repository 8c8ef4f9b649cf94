package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/settle"
	"github.com/sigreer/disklayer/internal/sysexec"
)

type fakeNamespace struct {
	links   map[string]string
	present map[string]bool
	reads   int
}

func (f *fakeNamespace) ReadLinks(dir string) (map[string]string, error) {
	f.reads++
	return f.links, nil
}

func (f *fakeNamespace) Exists(path string) bool {
	return f.present[path]
}

var quick = settle.Policy{
	Timeout:         50 * time.Millisecond,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

const sdaTable = `{
   "blockdevices": [
      {"path":"/dev/sda", "kname":"sda", "type":"disk", "partn":null,
         "children": [
            {"path":"/dev/sda1", "kname":"sda1", "type":"part", "partn":1},
            {"path":"/dev/sda2", "kname":"sda2", "type":"part", "partn":2}
         ]
      }
   ]
}`

const nvmeTable = `{
   "blockdevices": [
      {"path":"/dev/nvme0n1", "kname":"nvme0n1", "type":"disk", "partn":null,
         "children": [
            {"path":"/dev/nvme0n1p1", "kname":"nvme0n1p1", "type":"part", "partn":"1"},
            {"path":"/dev/nvme0n1p2", "kname":"nvme0n1p2", "type":"part", "partn":"2"}
         ]
      }
   ]
}`

func TestListPartitions(t *testing.T) {
	run := sysexec.NewFake().On("lsblk", sysexec.Output(nvmeTable))

	got, err := ListPartitions(context.Background(), run, "/dev/nvme0n1")
	if err != nil {
		t.Fatalf("ListPartitions() error = %v", err)
	}
	want := []TableEntry{
		{Path: "/dev/nvme0n1p1", KernelName: "nvme0n1p1", Number: 1},
		{Path: "/dev/nvme0n1p2", KernelName: "nvme0n1p2", Number: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListPartitions() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"lsblk -J -o PATH,KNAME,TYPE,PARTN /dev/nvme0n1"}, run.Lines()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		disk  string
		table string
		id    uint32
		links map[string]string
		want  Identity
	}{
		{
			name:  "sata",
			disk:  "/dev/sda",
			table: sdaTable,
			id:    2,
			links: map[string]string{
				"ata-DISK":       "/dev/sda",
				"ata-DISK-part1": "/dev/sda1",
				"wwn-0x50-part2": "/dev/sda2",
				"ata-DISK-part2": "/dev/sda2",
			},
			want: Identity{
				Device:      "/dev/sda2",
				DeviceName:  "sda2",
				ByID:        "/dev/disk/by-id/ata-DISK-part2",
				ByPartLabel: "/dev/disk/by-partlabel/root",
			},
		},
		{
			name:  "nvme",
			disk:  "/dev/nvme0n1",
			table: nvmeTable,
			id:    1,
			links: map[string]string{
				"nvme-SN123-part1": "/dev/nvme0n1p1",
				"nvme-SN123":       "/dev/nvme0n1",
			},
			want: Identity{
				Device:      "/dev/nvme0n1p1",
				DeviceName:  "nvme0n1p1",
				ByID:        "/dev/disk/by-id/nvme-SN123-part1",
				ByPartLabel: "/dev/disk/by-partlabel/root",
			},
		},
		{
			name:  "disk given by id",
			disk:  "/dev/disk/by-id/ata-DISK",
			table: sdaTable,
			id:    1,
			links: map[string]string{"ata-DISK-part1": "/dev/sda1"},
			want: Identity{
				Device:      "/dev/sda1",
				DeviceName:  "sda1",
				ByID:        "/dev/disk/by-id/ata-DISK-part1",
				ByPartLabel: "/dev/disk/by-partlabel/root",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := sysexec.NewFake().On("lsblk", sysexec.Output(tt.table))
			r := New(run, &fakeNamespace{links: tt.links}, quick, quietLogger())

			got, err := r.Resolve(context.Background(), tt.disk, tt.id, "root")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveWaitsForUdev(t *testing.T) {
	empty := `{"blockdevices": [{"path":"/dev/sda", "kname":"sda", "type":"disk"}]}`
	run := sysexec.NewFake().On("lsblk",
		sysexec.Output(empty),
		sysexec.Output(empty),
		sysexec.Output(sdaTable),
	)
	ns := &fakeNamespace{links: map[string]string{"ata-DISK-part1": "/dev/sda1"}}
	r := New(run, ns, settle.Policy{Timeout: time.Second, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}, quietLogger())

	got, err := r.Resolve(context.Background(), "/dev/sda", 1, "boot")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Device != "/dev/sda1" {
		t.Errorf("Device = %q, want /dev/sda1", got.Device)
	}
	if len(run.Calls) != 3 {
		t.Errorf("lsblk called %d times, want 3", len(run.Calls))
	}
}

func TestResolveTimeout(t *testing.T) {
	tests := []struct {
		name    string
		links   map[string]string
		wantErr error
	}{
		{name: "no by-id link", links: map[string]string{"ata-DISK-part1": "/dev/sda1"}, wantErr: ErrNoStableID},
		{name: "link to another partition", links: map[string]string{"ata-OTHER-part9": "/dev/sdb9"}, wantErr: ErrNoStableID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := sysexec.NewFake().On("lsblk", sysexec.Output(sdaTable))
			r := New(run, &fakeNamespace{links: tt.links}, quick, quietLogger())

			_, err := r.Resolve(context.Background(), "/dev/sda", 2, "root")
			if !failure.IsKind(err, failure.Timeout) {
				t.Fatalf("Resolve() error = %v, want Timeout kind", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v in chain", err, tt.wantErr)
			}
		})
	}
}

func TestResolveCommandFailure(t *testing.T) {
	boom := failure.Commandf("lsblk", "exit status 32: not a block device")
	run := sysexec.NewFake().On("lsblk", sysexec.Fail(boom))
	r := New(run, &fakeNamespace{}, settle.Policy{Timeout: time.Minute}, quietLogger())

	_, err := r.Resolve(context.Background(), "/dev/sdz", 1, "root")
	if got := failure.KindOf(err); got != failure.Command {
		t.Fatalf("Resolve() error = %v, kind %v, want CMD", err, got)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Resolve() error = %v, want %v in chain", err, boom)
	}
	if len(run.Calls) != 1 {
		t.Errorf("lsblk called %d times, want 1", len(run.Calls))
	}
}

func TestLookupMissingPartition(t *testing.T) {
	run := sysexec.NewFake().On("lsblk", sysexec.Output(sdaTable))
	r := New(run, &fakeNamespace{}, quick, quietLogger())

	_, err := r.Lookup(context.Background(), "/dev/sda", 7, "data")
	if !errors.Is(err, ErrNoPartition) {
		t.Errorf("Lookup() error = %v, want ErrNoPartition", err)
	}
	if !failure.IsKind(err, failure.Resolution) {
		t.Errorf("Lookup() kind = %v, want Resolution", failure.KindOf(err))
	}
}

func TestWaitForDevice(t *testing.T) {
	ns := &fakeNamespace{present: map[string]bool{"/dev/mapper/system": true}}
	r := New(sysexec.NewFake(), ns, quick, quietLogger())

	if err := r.WaitForDevice(context.Background(), "/dev/mapper/system"); err != nil {
		t.Errorf("WaitForDevice(present) error = %v", err)
	}

	err := r.WaitForDevice(context.Background(), "/dev/mapper/missing")
	if !failure.IsKind(err, failure.Timeout) {
		t.Errorf("WaitForDevice(missing) error = %v, want Timeout kind", err)
	}
}
