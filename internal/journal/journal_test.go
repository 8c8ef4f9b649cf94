package journal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sigreer/disklayer/internal/layout"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRuns(t *testing.T) {
	j := openTemp(t)

	first, err := j.StartRun("partition", "workstation", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.FinishRun(first, nil); err != nil {
		t.Fatal(err)
	}

	second, err := j.StartRun("open", "workstation", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.FinishRun(second, errors.New("(CMD) cryptsetup => exit status 2")); err != nil {
		t.Fatal(err)
	}

	third, err := j.StartRun("close", "server", false)
	if err != nil {
		t.Fatal(err)
	}

	runs, err := j.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns() returned %d runs, want 3", len(runs))
	}

	ignoreTimes := cmpopts.IgnoreFields(Run{}, "StartedAt", "FinishedAt")
	want := []*Run{
		{ID: third.ID, Operation: "close", Host: "server", Status: StatusRunning},
		{ID: second.ID, Operation: "open", Host: "workstation", Status: StatusFailed, DryRun: true,
			Error: "(CMD) cryptsetup => exit status 2"},
		{ID: first.ID, Operation: "partition", Host: "workstation", Status: StatusSucceeded},
	}
	if diff := cmp.Diff(want, runs, ignoreTimes); diff != "" {
		t.Errorf("ListRuns() mismatch (-want +got):\n%s", diff)
	}
	if runs[0].FinishedAt != nil {
		t.Error("running run has a finish time")
	}
	if runs[2].FinishedAt == nil {
		t.Error("finished run has no finish time")
	}

	limited, err := j.ListRuns(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != third.ID {
		t.Errorf("ListRuns(1) = %v, want only the newest run", limited)
	}
}

func TestRecordPartitions(t *testing.T) {
	j := openTemp(t)
	run, err := j.StartRun("partition", "workstation", false)
	if err != nil {
		t.Fatal(err)
	}

	l := layout.Layout{Disks: []layout.Disk{{
		Device: "/dev/sda",
		Partitions: []layout.Partition{
			{ID: 1, Label: "boot", Device: "/dev/sda1", DeviceName: "sda1",
				DeviceByID: "/dev/disk/by-id/ata-DISK-part1", DeviceByPartLabel: "/dev/disk/by-partlabel/boot"},
			{ID: 2, Label: "system", Device: "/dev/sda2", DeviceName: "sda2",
				DeviceByID: "/dev/disk/by-id/ata-DISK-part2", DeviceByPartLabel: "/dev/disk/by-partlabel/system",
				LuksMapper: "/dev/mapper/system"},
		},
	}}}
	if err := j.RecordPartitions(run.ID, l); err != nil {
		t.Fatalf("RecordPartitions() error = %v", err)
	}

	got, err := j.Partitions(run.ID)
	if err != nil {
		t.Fatalf("Partitions() error = %v", err)
	}
	want := []*PartitionRecord{
		{RunID: run.ID, Disk: "/dev/sda", PartitionID: 1, Label: "boot", Device: "/dev/sda1", DeviceName: "sda1",
			DeviceByID: "/dev/disk/by-id/ata-DISK-part1", DeviceByPartLabel: "/dev/disk/by-partlabel/boot"},
		{RunID: run.ID, Disk: "/dev/sda", PartitionID: 2, Label: "system", Device: "/dev/sda2", DeviceName: "sda2",
			DeviceByID: "/dev/disk/by-id/ata-DISK-part2", DeviceByPartLabel: "/dev/disk/by-partlabel/system",
			LuksMapper: "/dev/mapper/system"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Partitions() mismatch (-want +got):\n%s", diff)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	run, err := j.StartRun("validate", "host", false)
	if err != nil {
		t.Fatal(err)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer j.Close()

	runs, err := j.ListRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("ListRuns() after reopen = %v", runs)
	}
}
