package mijia

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const placeholder = "-"

// ParseAdvertisement parses one line of a recorded capture:
//
//	<address> <service-uuid>[,<service-uuid>...] <hex payload>
//
// Multiple service UUIDs share the same payload; they exist so that captures
// can reproduce malformed broadcasts. A "-" in place of the UUID list or the
// payload stands for none.
func ParseAdvertisement(line string) (Advertisement, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Advertisement{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	var payload []byte
	if fields[2] != placeholder {
		var err error
		payload, err = hex.DecodeString(fields[2])
		if err != nil {
			return Advertisement{}, fmt.Errorf("failed to decode payload: %w", err)
		}
	}

	var uuids []string
	if fields[1] != placeholder {
		uuids = strings.Split(strings.ToLower(fields[1]), ",")
	}
	data := make(map[string][]byte, len(uuids))
	if payload != nil {
		for _, uuid := range uuids {
			data[uuid] = payload
		}
	}

	return Advertisement{
		Address:      fields[0],
		ServiceUUIDs: uuids,
		ServiceData:  data,
	}, nil
}

// FormatAdvertisement renders adv in the capture line format.
func FormatAdvertisement(adv Advertisement) string {
	uuids := placeholder
	if len(adv.ServiceUUIDs) > 0 {
		uuids = strings.Join(adv.ServiceUUIDs, ",")
	}

	payload := placeholder
	if len(adv.ServiceUUIDs) > 0 {
		if data := adv.ServiceData[adv.ServiceUUIDs[0]]; len(data) > 0 {
			payload = hex.EncodeToString(data)
		}
	}
	return fmt.Sprintf("%s %s %s", adv.Address, uuids, payload)
}
