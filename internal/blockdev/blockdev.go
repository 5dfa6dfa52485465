// Package blockdev parses `lsblk -J -b` reports and selects block devices for
// automatic mounting.
//
// The inventory is never cached: callers fetch a fresh report for every
// install or check because disk state can change between runs.
package blockdev

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ListCommand produces the report Parse understands.
const ListCommand = "lsblk -J -b"

// Device is one node of the lsblk device tree.
type Device struct {
	Name        string
	MajMin      string
	Size        string
	Type        string
	ReadOnly    bool
	Removable   bool
	Mountpoints []*string
	Children    []Device
}

// rawDevice mirrors the JSON emitted by util-linux lsblk. Older releases emit
// a single "mountpoint" and encode rm/ro as "0"/"1" strings.
type rawDevice struct {
	Name        string          `json:"name"`
	MajMin      string          `json:"maj:min"`
	RM          flexBool        `json:"rm"`
	RO          flexBool        `json:"ro"`
	Size        json.RawMessage `json:"size"`
	Type        string          `json:"type"`
	Mountpoints []*string       `json:"mountpoints"`
	Mountpoint  *string         `json:"mountpoint"`
	Children    []Device        `json:"children"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Device) UnmarshalJSON(data []byte) error {
	var raw rawDevice
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	size, err := decodeSize(raw.Size)
	if err != nil {
		return fmt.Errorf("device %s: %w", raw.Name, err)
	}

	mountpoints := raw.Mountpoints
	if mountpoints == nil && raw.Mountpoint != nil {
		mountpoints = []*string{raw.Mountpoint}
	}

	*d = Device{
		Name:        raw.Name,
		MajMin:      raw.MajMin,
		Size:        size,
		Type:        raw.Type,
		ReadOnly:    bool(raw.RO),
		Removable:   bool(raw.RM),
		Mountpoints: mountpoints,
		Children:    raw.Children,
	}
	return nil
}

// decodeSize accepts both "20G" and the plain numbers lsblk --bytes prints.
func decodeSize(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("invalid size: %w", err)
		}
		return s, nil
	}
	return string(raw), nil
}

// Path returns the device node path, e.g. /dev/sdb.
func (d *Device) Path() string {
	return "/dev/" + d.Name
}

// Bytes returns the size in bytes derived from the lsblk size string.
func (d *Device) Bytes() uint64 {
	return ParseSize(d.Size)
}

// IsBusy reports whether the device is ineligible for automatic selection.
// Only an unpartitioned whole disk with no mountpoint is free; lsblk reports
// such a disk with either no mountpoints or a single null entry.
func (d *Device) IsBusy() bool {
	if d.Type != "disk" || len(d.Children) > 0 {
		return true
	}
	switch len(d.Mountpoints) {
	case 0:
		return false
	case 1:
		return d.Mountpoints[0] != nil
	default:
		return true
	}
}

// MountedAt reports whether one of the device's own mountpoints equals path.
func (d *Device) MountedAt(path string) bool {
	for _, mp := range d.Mountpoints {
		if mp != nil && *mp == path {
			return true
		}
	}
	return false
}

// ParseSize converts an lsblk size such as "2T" or "512M" to bytes.
// Suffixes are case-sensitive binary multiples. Unsuffixed values are bytes.
// Anything unparsable, including values that overflow uint64, yields 0.
func ParseSize(s string) uint64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	multiplier := uint64(1)
	switch s[len(s)-1] {
	case 'T':
		multiplier = 1 << 40
	case 'G':
		multiplier = 1 << 30
	case 'M':
		multiplier = 1 << 20
	case 'K':
		multiplier = 1 << 10
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n > math.MaxUint64/multiplier {
		return 0
	}
	return n * multiplier
}

// flexBool decodes true/false, 0/1 and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		*b = true
	case "0", "false", "no", "", "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}
