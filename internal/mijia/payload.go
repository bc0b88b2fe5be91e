// Package mijia decodes the custom advertisement format broadcast by
// Xiaomi Mijia LYWSD03MMC thermometers running the ATC/pvvx firmware.
//
// Service data layout (15 bytes, little-endian):
// - 0-5:   hardware address, reversed
// - 6-7:   temperature (0.01 °C)
// - 8-9:   humidity (0.01 %)
// - 10-11: battery voltage (mV)
// - 12:    battery level (%)
// - 13:    measurement counter
// - 14:    flags
package mijia

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
)

// PayloadSize is the exact length of the service data attachment.
const PayloadSize = 15

// ServiceUUID is the environmental sensing service the firmware advertises under.
const ServiceUUID = "0000181a-0000-1000-8000-00805f9b34fb"

// Advertisement is one observed broadcast as reported by the scanner.
type Advertisement struct {
	Address      string
	ServiceUUIDs []string
	ServiceData  map[string][]byte
}

// Reading is the decoded content of one payload.
type Reading struct {
	Address        string
	TemperatureRaw uint16
	HumidityRaw    uint16
	BatteryMV      uint16
	BatteryPercent uint8
	Counter        uint8
	Flags          uint8
}

// FormatError reports a broadcast that does not match the expected shape.
type FormatError struct {
	Reason string
}

func (e FormatError) Error() string {
	return "malformed advertisement: " + e.Reason
}

// IsFormatError checks if an error is a format error.
func IsFormatError(err error) bool {
	_, ok := err.(FormatError)
	return ok
}

// CanonicalAddress parses a 6-byte hardware address in any form net.ParseMAC
// accepts and returns it as lower-case colon-separated hex.
func CanonicalAddress(addr string) (string, error) {
	mac, err := net.ParseMAC(strings.TrimSpace(addr))
	if err != nil {
		return "", err
	}
	if len(mac) != 6 {
		return "", fmt.Errorf("address %q has %d bytes, want 6", addr, len(mac))
	}
	return mac.String(), nil
}

// NormalizeAddress returns the device key for an address. Addresses that
// do not parse are only lower-cased, so they never match a configured device.
func NormalizeAddress(addr string) string {
	if id, err := CanonicalAddress(addr); err == nil {
		return id
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// ExtractPayload returns the single service-scoped payload of an advertisement.
func ExtractPayload(adv Advertisement) ([]byte, error) {
	if len(adv.ServiceUUIDs) != 1 {
		return nil, FormatError{Reason: fmt.Sprintf("expected 1 service uuid, got %d %v", len(adv.ServiceUUIDs), adv.ServiceUUIDs)}
	}

	uuid := adv.ServiceUUIDs[0]
	data, ok := adv.ServiceData[uuid]
	if !ok {
		return nil, FormatError{Reason: "no service data for " + uuid}
	}
	if len(data) != PayloadSize {
		return nil, FormatError{Reason: fmt.Sprintf("invalid length %d: %x", len(data), data)}
	}

	return data, nil
}

// Decode parses a 15-byte service data payload.
func Decode(data []byte) (Reading, error) {
	if len(data) != PayloadSize {
		return Reading{}, FormatError{Reason: fmt.Sprintf("invalid length %d: %x", len(data), data)}
	}

	mac := make(net.HardwareAddr, 6)
	for i := 0; i < 6; i++ {
		mac[i] = data[5-i]
	}

	return Reading{
		Address:        mac.String(),
		TemperatureRaw: binary.LittleEndian.Uint16(data[6:8]),
		HumidityRaw:    binary.LittleEndian.Uint16(data[8:10]),
		BatteryMV:      binary.LittleEndian.Uint16(data[10:12]),
		BatteryPercent: data[12],
		Counter:        data[13],
		Flags:          data[14],
	}, nil
}

// Encode builds the payload a sensor would broadcast for r.
// An unparsable address is encoded as zeros.
func Encode(r Reading) []byte {
	data := make([]byte, PayloadSize)

	if mac, err := net.ParseMAC(r.Address); err == nil && len(mac) == 6 {
		for i := 0; i < 6; i++ {
			data[5-i] = mac[i]
		}
	}

	binary.LittleEndian.PutUint16(data[6:8], r.TemperatureRaw)
	binary.LittleEndian.PutUint16(data[8:10], r.HumidityRaw)
	binary.LittleEndian.PutUint16(data[10:12], r.BatteryMV)
	data[12] = r.BatteryPercent
	data[13] = r.Counter
	data[14] = r.Flags
	return data
}

// NewAdvertisement wraps a payload the way the firmware broadcasts it.
func NewAdvertisement(addr string, payload []byte) Advertisement {
	return Advertisement{
		Address:      addr,
		ServiceUUIDs: []string{ServiceUUID},
		ServiceData:  map[string][]byte{ServiceUUID: payload},
	}
}
