// Package sqlite provides a SQLite implementation of the storage.Store interface.
//
// Every device gets its own database file named after its address, so a
// locked or broken file only affects that device.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Sandr0x00/mijia/internal/mijia"
	"github.com/Sandr0x00/mijia/internal/storage"
)

const dirPermissions = 0750

// Options configures a Store.
type Options struct {
	Dir         string
	Driver      string
	BusyTimeout time.Duration
	// Now overrides the insertion clock; defaults to time.Now in UTC.
	Now func() time.Time
}

// Store is a SQLite implementation of storage.Store.
type Store struct {
	opts Options

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// NewStore creates a store writing one database file per device into opts.Dir.
func NewStore(opts Options) (*Store, error) {
	if opts.Driver == "" {
		opts.Driver = storage.DriverModernc
	}
	if !storage.IsSupportedDriver(opts.Driver) {
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if err := os.MkdirAll(opts.Dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	return &Store{
		opts: opts,
		dbs:  make(map[string]*sql.DB),
	}, nil
}

// Path returns the database file used for a device.
func (s *Store) Path(deviceID string) string {
	return filepath.Join(s.opts.Dir, deviceID+".db")
}

// existingDB is db for read paths: it never creates a database file, so
// querying a device that was never prepared leaves no empty file behind.
func (s *Store) existingDB(deviceID string) (*sql.DB, error) {
	s.mu.Lock()
	_, open := s.dbs[deviceID]
	s.mu.Unlock()

	if !open {
		if _, err := os.Stat(s.Path(deviceID)); errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound{Resource: "database", ID: deviceID}
		}
	}
	return s.db(deviceID)
}

func (s *Store) db(deviceID string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[deviceID]; ok {
		return db, nil
	}

	conn, err := dsn(s.opts.Driver, s.Path(deviceID), s.opts.BusyTimeout)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(s.opts.Driver, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer per file keeps inserts in acceptance order.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s.dbs[deviceID] = db
	return db, nil
}

// Close closes every open database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for id, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", id, err)
		}
		delete(s.dbs, id)
	}
	return firstErr
}

// Schema methods

func (s *Store) EnsureSchema(ctx context.Context, deviceID string) error {
	db, err := s.db(deviceID)
	if err != nil {
		return &storage.StorageError{Device: deviceID, Op: "ensure schema", Err: err}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return &storage.StorageError{Device: deviceID, Op: "ensure schema", Err: err}
	}
	return nil
}

// Event methods

func (s *Store) Append(ctx context.Context, deviceID string, reading mijia.Reading) (storage.Receipt, error) {
	db, err := s.db(deviceID)
	if err != nil {
		return storage.Receipt{}, &storage.StorageError{Device: deviceID, Op: "append", Err: err}
	}

	event := storage.NewEvent(reading, s.opts.Now())
	res, err := db.ExecContext(ctx, `
		INSERT INTO sensor_data (temp, humidity, battery_mv, battery_level, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, int64(event.TemperatureRaw), int64(event.HumidityRaw), int64(event.BatteryMV), int64(event.BatteryPercent), event.Timestamp)
	if err != nil {
		return storage.Receipt{}, &storage.StorageError{Device: deviceID, Op: "append", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storage.Receipt{}, &storage.StorageError{Device: deviceID, Op: "append", Err: err}
	}

	return storage.Receipt{DeviceID: deviceID, EventID: id, Timestamp: event.Timestamp}, nil
}

func (s *Store) Latest(ctx context.Context, deviceID string) (*storage.Event, error) {
	db, err := s.existingDB(deviceID)
	if err != nil {
		return nil, err
	}

	var event storage.Event
	err = db.QueryRowContext(ctx, `
		SELECT id, temp, humidity, battery_mv, battery_level, timestamp
		FROM sensor_data ORDER BY id DESC LIMIT 1
	`).Scan(&event.ID, &event.TemperatureRaw, &event.HumidityRaw, &event.BatteryMV, &event.BatteryPercent, &event.Timestamp)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound{Resource: "event", ID: deviceID}
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Store) History(ctx context.Context, deviceID string, since, until time.Time) ([]storage.Event, error) {
	db, err := s.existingDB(deviceID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, temp, humidity, battery_mv, battery_level, timestamp
		FROM sensor_data
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY id ASC
	`, since.UTC(), until.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []storage.Event
	for rows.Next() {
		var event storage.Event
		if err := rows.Scan(&event.ID, &event.TemperatureRaw, &event.HumidityRaw, &event.BatteryMV, &event.BatteryPercent, &event.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) Count(ctx context.Context, deviceID string) (int, error) {
	db, err := s.existingDB(deviceID)
	if err != nil {
		return 0, err
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sensor_data").Scan(&count)
	return count, err
}

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
