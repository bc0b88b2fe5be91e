package mijia

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Captured from a LYWSD03MMC: 21.53 °C, 48.70 %, 2951 mV, 84 %, counter 0x2c.
var samplePayload = []byte{
	0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa, // address, reversed
	0x69, 0x08, // temperature 2153
	0x06, 0x13, // humidity 4870
	0x87, 0x0b, // battery 2951 mV
	0x54, // battery 84 %
	0x2c, // counter
	0x04, // flags
}

func TestDecode(t *testing.T) {
	reading, err := Decode(samplePayload)
	require.NoError(t, err)

	assert.Equal(t, "aa:bb:cc:dd:ee:ff", reading.Address)
	assert.Equal(t, uint16(2153), reading.TemperatureRaw)
	assert.Equal(t, uint16(4870), reading.HumidityRaw)
	assert.Equal(t, uint16(2951), reading.BatteryMV)
	assert.Equal(t, uint8(84), reading.BatteryPercent)
	assert.Equal(t, uint8(0x2c), reading.Counter)
	assert.Equal(t, uint8(0x04), reading.Flags)
}

func TestEncodeDecode(t *testing.T) {
	readings := []Reading{
		{Address: "a4:c1:38:00:00:01", TemperatureRaw: 0, HumidityRaw: 0, BatteryMV: 0},
		{Address: "a4:c1:38:12:34:56", TemperatureRaw: 0xffff, HumidityRaw: 10000, BatteryMV: 3300, BatteryPercent: 100, Counter: 255, Flags: 0xff},
		{Address: "01:02:03:04:05:06", TemperatureRaw: 0x0102, HumidityRaw: 0x0304, BatteryMV: 0x0506, BatteryPercent: 7, Counter: 8, Flags: 9},
	}

	for _, want := range readings {
		data := Encode(want)
		require.Len(t, data, PayloadSize)

		got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncodeByteOrder(t *testing.T) {
	data := Encode(Reading{
		Address:        "01:02:03:04:05:06",
		TemperatureRaw: 0x0102,
		HumidityRaw:    0x0304,
		BatteryMV:      0x0506,
		BatteryPercent: 7,
		Counter:        8,
		Flags:          9,
	})

	assert.Equal(t, []byte{6, 5, 4, 3, 2, 1, 0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 7, 8, 9}, data)
}

func TestDecodeInvalidLength(t *testing.T) {
	for _, size := range []int{0, 1, 14, 16, 20} {
		_, err := Decode(make([]byte, size))
		assert.True(t, IsFormatError(err), "size %d", size)
	}
}

func TestExtractPayload(t *testing.T) {
	adv := NewAdvertisement("AA:BB:CC:DD:EE:FF", samplePayload)

	data, err := ExtractPayload(adv)
	require.NoError(t, err)
	assert.Equal(t, samplePayload, data)
}

func TestExtractPayloadServiceCount(t *testing.T) {
	none := Advertisement{Address: "aa:bb:cc:dd:ee:ff"}
	_, err := ExtractPayload(none)
	assert.True(t, IsFormatError(err))

	two := Advertisement{
		Address:      "aa:bb:cc:dd:ee:ff",
		ServiceUUIDs: []string{ServiceUUID, "0000fe95-0000-1000-8000-00805f9b34fb"},
		ServiceData:  map[string][]byte{ServiceUUID: samplePayload},
	}
	_, err = ExtractPayload(two)
	assert.True(t, IsFormatError(err))
}

func TestExtractPayloadMissingData(t *testing.T) {
	adv := Advertisement{
		Address:      "aa:bb:cc:dd:ee:ff",
		ServiceUUIDs: []string{ServiceUUID},
	}

	_, err := ExtractPayload(adv)
	assert.True(t, IsFormatError(err))
}

func TestExtractPayloadInvalidLength(t *testing.T) {
	adv := NewAdvertisement("aa:bb:cc:dd:ee:ff", samplePayload[:14])

	_, err := ExtractPayload(adv)
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
	assert.Contains(t, err.Error(), "invalid length 14")
}

func TestIsFormatErrorFalse(t *testing.T) {
	assert.False(t, IsFormatError(nil))
	assert.False(t, IsFormatError(assert.AnError))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "a4:c1:38:ab:cd:ef", NormalizeAddress(" A4:C1:38:AB:CD:EF "))
	assert.Equal(t, "a4:c1:38:ab:cd:ef", NormalizeAddress("A4-C1-38-AB-CD-EF"))
	assert.Equal(t, "not-an-address", NormalizeAddress("Not-An-Address"))
}

func TestCanonicalAddress(t *testing.T) {
	id, err := CanonicalAddress("aabb.ccdd.eeff")
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", id)

	_, err = CanonicalAddress("00:00:00:00:fe:80:00:00")
	assert.Error(t, err)

	_, err = CanonicalAddress("kitchen")
	assert.Error(t, err)
}
