package failure

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Commandf("zpool", "exit status 1: %s", "no such pool"), "(CMD) zpool => exit status 1: no such pool"},
		{Path("/etc/disklayer/keyfile", fs.ErrNotExist), "(FILESYSTEM) /etc/disklayer/keyfile => file does not exist"},
		{InvalidValue("label", "must not be empty"), "(INVALID) label => must not be empty"},
		{Genericf("unsupported filesystem %q", "btrfs"), `(GENERIC) unsupported filesystem "btrfs"`},
		{New(Resolution, "/dev/sda", nil), "(RESOLVE) /dev/sda"},
		{&Error{Kind: Timeout}, "(TIMEOUT)"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestKinds(t *testing.T) {
	inner := New(Resolution, "/dev/sda", errors.New("partition 2 not found"))
	outer := New(Timeout, "partition 2 of /dev/sda", inner)
	wrapped := fmt.Errorf("creating layout: %w", outer)

	if got := KindOf(wrapped); got != Timeout {
		t.Errorf("KindOf() = %v, want TIMEOUT", got)
	}
	if !IsKind(wrapped, Resolution) {
		t.Error("IsKind(Resolution) = false for a timeout wrapping a resolution error")
	}
	if IsKind(wrapped, Command) {
		t.Error("IsKind(Command) = true")
	}
	if got := KindOf(errors.New("plain")); got != Generic {
		t.Errorf("KindOf(untagged) = %v, want GENERIC", got)
	}
	if !errors.Is(Path("/x", fs.ErrNotExist), fs.ErrNotExist) {
		t.Error("Path error does not unwrap to its cause")
	}
}
