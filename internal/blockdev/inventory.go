package blockdev

import (
	"encoding/json"
	"fmt"
)

// Inventory is the top level of an lsblk report.
type Inventory struct {
	Devices []Device `json:"blockdevices"`
}

// Parse decodes the output of ListCommand.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse lsblk output: %w", err)
	}
	return &inv, nil
}

// MountedAt returns the first top-level device with a mountpoint equal to
// path. Children are not searched.
func (inv *Inventory) MountedAt(path string) (*Device, bool) {
	for i := range inv.Devices {
		if inv.Devices[i].MountedAt(path) {
			return &inv.Devices[i], true
		}
	}
	return nil, false
}

// BiggestUnmounted returns the largest device that is not busy.
// Ties go to the device listed first.
func (inv *Inventory) BiggestUnmounted() (*Device, bool) {
	var biggest *Device
	for i := range inv.Devices {
		d := &inv.Devices[i]
		if d.IsBusy() {
			continue
		}
		if biggest == nil || d.Bytes() > biggest.Bytes() {
			biggest = d
		}
	}
	return biggest, biggest != nil
}

// Candidates returns the devices eligible for automatic selection.
func (inv *Inventory) Candidates() []Device {
	var out []Device
	for _, d := range inv.Devices {
		if !d.IsBusy() {
			out = append(out, d)
		}
	}
	return out
}
