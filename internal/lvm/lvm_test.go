package lvm

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/layout"
	"github.com/sigreer/disklayer/internal/sysexec"
)

func newManager(run sysexec.Runner) *Manager {
	log, _ := test.NewNullLogger()
	return New(run, log)
}

func TestCreate(t *testing.T) {
	run := sysexec.NewFake()
	m := newManager(run)
	ctx := context.Background()

	steps := []func() error{
		func() error { return m.CreatePhysical(ctx, "/dev/mapper/system") },
		func() error { return m.CreateGroup(ctx, "vg-system", "/dev/mapper/system") },
		func() error { return m.CreateLogical(ctx, "vg-system", "swap", layout.MustSize("8G")) },
		func() error { return m.CreateLogical(ctx, "vg-system", "small", layout.MustSize("1048576")) },
		func() error { return m.CreateLogical(ctx, "vg-system", "root", layout.Size{}) },
		func() error { return m.Activate(ctx, "vg-system") },
		func() error { return m.Deactivate(ctx, "vg-system") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{
		"pvcreate -y -ff /dev/mapper/system",
		"vgcreate vg-system /dev/mapper/system",
		"lvcreate -L 8G -n swap vg-system",
		"lvcreate -L 1048576b -n small vg-system",
		"lvcreate -l 100%FREE -n root vg-system",
		"vgchange -a y vg-system",
		"vgchange -a n vg-system",
	}
	if diff := cmp.Diff(want, run.Lines()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

const lvsOutput = `{
      "report": [
          {
              "lv": [
                  {"lv_name":"root", "vg_name":"vg-system", "lv_path":"/dev/vg-system/root", "lv_active":"active"},
                  {"lv_name":"swap", "vg_name":"vg-system", "lv_path":"/dev/vg-system/swap", "lv_active":"%s"}
              ]
          }
      ]
  }`

func TestIsActive(t *testing.T) {
	tests := []struct {
		name  string
		reply sysexec.Reply
		want  bool
	}{
		{name: "all active", reply: sysexec.Output(fmtReport("active")), want: true},
		{name: "one inactive", reply: sysexec.Output(fmtReport(""))},
		{name: "no volumes", reply: sysexec.Output(`{"report": [{"lv": []}]}`)},
		{
			name:  "unknown group",
			reply: sysexec.Fail(failure.Commandf("lvs", "exit status 5: Volume group \"vg-system\" not found")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := sysexec.NewFake().On("lvs", tt.reply)
			got, err := newManager(run).IsActive(context.Background(), "vg-system")
			if err != nil {
				t.Fatalf("IsActive() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumes(t *testing.T) {
	run := sysexec.NewFake().On("lvs", sysexec.Output(fmtReport("active")))
	got, err := newManager(run).Volumes(context.Background(), "vg-system")
	if err != nil {
		t.Fatal(err)
	}
	want := []LogicalVolume{
		{Name: "root", Group: "vg-system", Path: "/dev/vg-system/root", Active: true},
		{Name: "swap", Group: "vg-system", Path: "/dev/vg-system/swap", Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Volumes() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"lvs --reportformat json -o lv_name,vg_name,lv_path,lv_active vg-system"}, run.Lines()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func fmtReport(swapState string) string {
	return fmt.Sprintf(lvsOutput, swapState)
}
