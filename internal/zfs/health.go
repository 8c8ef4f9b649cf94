package zfs

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Pool states
const (
	StateOnline   = "ONLINE"
	StateDegraded = "DEGRADED"
	StateFaulted  = "FAULTED"
	StateUnavail  = "UNAVAIL"
)

// Health is the state of one pool as zpool status reports it
type Health struct {
	Name    string
	State   string
	Status  string
	Errors  string
	Devices []DeviceHealth
}

// DeviceHealth is one leaf device of a pool
type DeviceHealth struct {
	Path      string
	State     string
	ReadErrs  int64
	WriteErrs int64
	CksumErrs int64
}

// IsDegraded returns true if the pool is not fully healthy
func (h *Health) IsDegraded() bool {
	return h.State != StateOnline
}

// TotalErrors sums the error counters of every device
func (h *Health) TotalErrors() int64 {
	var n int64
	for _, d := range h.Devices {
		n += d.ReadErrs + d.WriteErrs + d.CksumErrs
	}
	return n
}

// Health returns the status of an imported pool. Devices are listed with
// full paths, the /dev/disk/by-id links the pool was created on.
func (m *Manager) Health(ctx context.Context, pool string) (*Health, error) {
	out, err := m.run.Run(ctx, "zpool", "status", "-P", pool)
	if err != nil {
		return nil, fmt.Errorf("failed to get status of pool %s: %w", pool, err)
	}

	h := parseStatus(string(out))
	if h == nil || h.Name != pool {
		return nil, fmt.Errorf("pool not found: %s", pool)
	}
	return h, nil
}

// parseStatus reads the first pool of zpool status -P output
func parseStatus(output string) *Health {
	var h *Health
	inConfig := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "pool:") {
			if h != nil {
				break
			}
			h = &Health{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, "pool:"))}
			continue
		}
		if h == nil {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "state:"):
			h.State = strings.TrimSpace(strings.TrimPrefix(trimmed, "state:"))
		case strings.HasPrefix(trimmed, "status:"):
			h.Status = strings.TrimSpace(strings.TrimPrefix(trimmed, "status:"))
		case strings.HasPrefix(trimmed, "errors:"):
			h.Errors = strings.TrimSpace(strings.TrimPrefix(trimmed, "errors:"))
			inConfig = false
		case strings.HasPrefix(trimmed, "config:"):
			inConfig = true
		case inConfig:
			// NAME STATE READ WRITE CKSUM; only device paths are leaves
			fields := strings.Fields(trimmed)
			if len(fields) < 5 || !strings.HasPrefix(fields[0], "/dev/") {
				continue
			}
			d := DeviceHealth{Path: fields[0], State: fields[1]}
			d.ReadErrs, _ = strconv.ParseInt(fields[2], 10, 64)
			d.WriteErrs, _ = strconv.ParseInt(fields[3], 10, 64)
			d.CksumErrs, _ = strconv.ParseInt(fields[4], 10, 64)
			h.Devices = append(h.Devices, d)
		}
	}
	return h
}
