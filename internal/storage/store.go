// Package storage provides storage abstractions for the sensor event log.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Sandr0x00/mijia/internal/mijia"
)

// Store is the interface for the per-device append-only event log.
type Store interface {
	// Schema
	EnsureSchema(ctx context.Context, deviceID string) error

	// Events
	Append(ctx context.Context, deviceID string, reading mijia.Reading) (Receipt, error)
	Latest(ctx context.Context, deviceID string) (*Event, error)
	History(ctx context.Context, deviceID string, since, until time.Time) ([]Event, error)
	Count(ctx context.Context, deviceID string) (int, error)

	// Lifecycle
	Close() error
}

// SQLite driver names accepted by the event store.
const (
	DriverModernc = "sqlite"  // pure Go
	DriverCgo     = "sqlite3" // cgo
)

// IsSupportedDriver reports whether name is a known SQLite driver.
func IsSupportedDriver(name string) bool {
	return name == DriverModernc || name == DriverCgo
}

// Event is one stored sensor reading.
type Event struct {
	ID             int64
	TemperatureRaw uint16
	HumidityRaw    uint16
	BatteryMV      uint16
	BatteryPercent uint8
	Timestamp      time.Time
}

// NewEvent creates the record stored for an accepted reading.
func NewEvent(reading mijia.Reading, timestamp time.Time) Event {
	return Event{
		TemperatureRaw: reading.TemperatureRaw,
		HumidityRaw:    reading.HumidityRaw,
		BatteryMV:      reading.BatteryMV,
		BatteryPercent: reading.BatteryPercent,
		Timestamp:      timestamp,
	}
}

// Receipt acknowledges a durable append. Only a successful Append returns one.
type Receipt struct {
	DeviceID  string
	EventID   int64
	Timestamp time.Time
}

// Valid reports whether the receipt refers to a stored event.
func (r Receipt) Valid() bool {
	return r.DeviceID != "" && r.EventID > 0
}

// StorageError wraps a failure to create a schema or append an event.
type StorageError struct {
	Device string
	Op     string
	Err    error
}

func (e *StorageError) Error() string {
	return e.Op + " " + e.Device + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError checks if an error is or wraps a storage error.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ErrNotFound is returned when a record is not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found: " + e.ID
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
