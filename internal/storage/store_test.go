package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Sandr0x00/mijia/internal/mijia"
	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	now := time.Now()
	reading := mijia.Reading{
		Address:        "aa:bb:cc:dd:ee:ff",
		TemperatureRaw: 2153,
		HumidityRaw:    4870,
		BatteryMV:      2951,
		BatteryPercent: 84,
		Counter:        44,
	}

	event := NewEvent(reading, now)

	assert.Equal(t, int64(0), event.ID)
	assert.Equal(t, uint16(2153), event.TemperatureRaw)
	assert.Equal(t, uint16(4870), event.HumidityRaw)
	assert.Equal(t, uint16(2951), event.BatteryMV)
	assert.Equal(t, uint8(84), event.BatteryPercent)
	assert.Equal(t, now, event.Timestamp)
}

func TestIsSupportedDriver(t *testing.T) {
	assert.True(t, IsSupportedDriver(DriverModernc))
	assert.True(t, IsSupportedDriver(DriverCgo))
	assert.False(t, IsSupportedDriver("postgres"))
	assert.False(t, IsSupportedDriver(""))
}

func TestReceiptValid(t *testing.T) {
	assert.False(t, Receipt{}.Valid())
	assert.False(t, Receipt{DeviceID: "aa:bb:cc:dd:ee:ff"}.Valid())
	assert.True(t, Receipt{DeviceID: "aa:bb:cc:dd:ee:ff", EventID: 1}.Valid())
}

func TestStorageError(t *testing.T) {
	err := &StorageError{Device: "aa:bb:cc:dd:ee:ff", Op: "append", Err: context.DeadlineExceeded}

	assert.Equal(t, "append aa:bb:cc:dd:ee:ff: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsStorageError(err))
	assert.True(t, IsStorageError(fmt.Errorf("wrapped: %w", err)))
}

func TestIsStorageErrorFalse(t *testing.T) {
	assert.False(t, IsStorageError(nil))
	assert.False(t, IsStorageError(assert.AnError))
}

func TestErrNotFound(t *testing.T) {
	err := ErrNotFound{Resource: "event", ID: "aa:bb:cc:dd:ee:ff"}

	assert.Equal(t, "event not found: aa:bb:cc:dd:ee:ff", err.Error())
	assert.True(t, IsNotFound(err))
}

func TestIsNotFoundFalse(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(assert.AnError))
}
