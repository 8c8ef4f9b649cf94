package luks

import (
	"context"
	"strings"

	"github.com/sigreer/disklayer/internal/sysexec"
)

// cryptUUIDPrefix marks dm targets set up by cryptsetup
const cryptUUIDPrefix = "CRYPT-"

// Mapper is an active device-mapper crypt target
type Mapper struct {
	Name   string
	UUID   string
	MajMin string
}

// ListOpen returns the active crypt mappings known to device-mapper
func ListOpen(ctx context.Context, run sysexec.Runner) ([]Mapper, error) {
	out, err := run.Run(ctx, "dmsetup", "info", "-c", "--noheadings", "--separator", ":", "-o", "name,uuid,major,minor")
	if err != nil {
		return nil, err
	}
	return parseDMInfo(string(out)), nil
}

func parseDMInfo(out string) []Mapper {
	var mappers []Mapper

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Parse colon-separated fields
		fields := strings.Split(line, ":")
		if len(fields) < 4 {
			continue
		}
		if !strings.HasPrefix(fields[1], cryptUUIDPrefix) {
			continue
		}

		m := Mapper{
			Name: fields[0],
			UUID: fields[1],
		}
		if fields[2] != "" && fields[3] != "" {
			m.MajMin = fields[2] + ":" + fields[3]
		}
		mappers = append(mappers, m)
	}

	return mappers
}
