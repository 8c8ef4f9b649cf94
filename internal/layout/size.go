package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"
)

var sizePattern = regexp.MustCompile(`^([0-9]+)([BKMGTP])?$`)

// unitShift maps a unit suffix to its power-of-two exponent
var unitShift = map[string]uint{
	"":  0,
	"B": 0,
	"K": 10,
	"M": 20,
	"G": 30,
	"T": 40,
	"P": 50,
}

// Size is a requested partition or volume size: an integer plus an optional
// binary unit suffix. The zero Size means "use the remaining space".
type Size struct {
	Value uint64
	Unit  string
}

// ParseSize parses "512M", "20G", "4096" or "0"; an empty string is zero
func ParseSize(s string) (Size, error) {
	if s == "" {
		return Size{}, nil
	}
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return Size{}, fmt.Errorf("invalid size %q", s)
	}
	v, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Size{}, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if v == 0 {
		return Size{}, nil
	}
	if v > math.MaxUint64>>unitShift[m[2]] {
		return Size{}, fmt.Errorf("invalid size %q: does not fit in 64 bits of bytes", s)
	}
	return Size{Value: v, Unit: m[2]}, nil
}

// MustSize is ParseSize for literals
func MustSize(s string) Size {
	size, err := ParseSize(s)
	if err != nil {
		panic(err)
	}
	return size
}

// IsRemaining reports whether the size means "all remaining space"
func (s Size) IsRemaining() bool {
	return s.Value == 0
}

// Bytes returns the size in bytes
func (s Size) Bytes() uint64 {
	return s.Value << unitShift[s.Unit]
}

// String renders the size the way it was written
func (s Size) String() string {
	if s.Value == 0 {
		return "0"
	}
	return strconv.FormatUint(s.Value, 10) + s.Unit
}

// Human renders the size for display
func (s Size) Human() string {
	if s.IsRemaining() {
		return "remaining"
	}
	return humanize.IBytes(s.Bytes())
}

// MarshalJSON writes the size as a string
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the size as a string (or a bare integer byte count)
func (s *Size) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Size{}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var n uint64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("size must be a string: %s", data)
		}
		str = strconv.FormatUint(n, 10)
	}
	parsed, err := ParseSize(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
