package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sigreer/disklayer/internal/sysexec"
)

// lsblkOutput represents the JSON output from lsblk
type lsblkOutput struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

// lsblkDevice represents a single device in lsblk output. PARTN is a
// number on recent util-linux and a string on older releases.
type lsblkDevice struct {
	Path     string          `json:"path"`
	Kname    string          `json:"kname"`
	Type     string          `json:"type"`
	PartN    json.RawMessage `json:"partn"`
	Children []lsblkDevice   `json:"children,omitempty"`
}

// TableEntry is one partition of a disk's partition table
type TableEntry struct {
	Path       string
	KernelName string
	Number     uint32
}

// ListPartitions enumerates the partition table of disk
func ListPartitions(ctx context.Context, run sysexec.Runner, disk string) ([]TableEntry, error) {
	out, err := run.Run(ctx, "lsblk", "-J", "-o", "PATH,KNAME,TYPE,PARTN", disk)
	if err != nil {
		return nil, err
	}

	var output lsblkOutput
	if err := json.Unmarshal(out, &output); err != nil {
		return nil, fmt.Errorf("failed to parse lsblk output: %w", err)
	}

	var entries []TableEntry
	for _, dev := range output.Blockdevices {
		collectPartitions(dev, &entries)
	}
	return entries, nil
}

func collectPartitions(dev lsblkDevice, entries *[]TableEntry) {
	if dev.Type == "part" {
		*entries = append(*entries, TableEntry{
			Path:       dev.Path,
			KernelName: dev.Kname,
			Number:     parsePartN(dev.PartN),
		})
	}

	// Process children recursively
	for _, child := range dev.Children {
		collectPartitions(child, entries)
	}
}

func parsePartN(raw json.RawMessage) uint32 {
	if len(raw) == 0 {
		return 0
	}
	var n uint32
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseUint(s, 10, 32); err == nil {
			return uint32(v)
		}
	}
	return 0
}
