package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/jsonc"

	"github.com/Sandr0x00/mijia/internal/mijia"
)

// Device is one entry of the device file.
type Device struct {
	Counter  int    `json:"counter"`
	Location string `json:"loc,omitempty"`
}

// Devices maps normalized hardware addresses to their configuration.
type Devices map[string]Device

// IDs returns the device identifiers in sorted order.
func (d Devices) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDevices reads and validates the device file.
func LoadDevices(path string) (Devices, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	devices, err := ParseDevices(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return devices, nil
}

// ParseDevices decodes a device map and normalizes its keys.
func ParseDevices(data []byte) (Devices, error) {
	var raw map[string]Device
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing devices: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("no devices configured")
	}

	devices := make(Devices, len(raw))
	for addr, dev := range raw {
		id, err := mijia.CanonicalAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid device address %q: %w", addr, err)
		}
		if _, dup := devices[id]; dup {
			return nil, fmt.Errorf("duplicate device address %q", addr)
		}
		devices[id] = dev
	}
	return devices, nil
}
