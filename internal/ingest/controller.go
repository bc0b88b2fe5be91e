// Package ingest turns observed broadcasts into stored events.
//
// Per broadcast: drop untracked devices, validate and decode the payload,
// drop repeated counters, append the reading, then advance the counter.
// The counter only moves after the append succeeded.
package ingest

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Sandr0x00/mijia/internal/logging"
	"github.com/Sandr0x00/mijia/internal/mijia"
	"github.com/Sandr0x00/mijia/internal/registry"
	"github.com/Sandr0x00/mijia/internal/storage"
)

// DefaultTimeout bounds one storage operation.
const DefaultTimeout = 5 * time.Second

// EventStore is the part of storage.Store the controller writes to.
type EventStore interface {
	EnsureSchema(ctx context.Context, deviceID string) error
	Append(ctx context.Context, deviceID string, reading mijia.Reading) (storage.Receipt, error)
}

// Outcome is what happened to one broadcast.
type Outcome int

const (
	Ignored Outcome = iota
	Malformed
	Duplicate
	Stored
	Failed
	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Malformed:
		return "malformed"
	case Duplicate:
		return "duplicate"
	case Stored:
		return "stored"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats counts outcomes since the controller was created.
type Stats struct {
	Ignored   uint64
	Malformed uint64
	Duplicate uint64
	Stored    uint64
	Failed    uint64
}

// Options configures a Controller.
type Options struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Controller runs the decode, dedup and persist pipeline.
// Handle is safe for concurrent use.
type Controller struct {
	registry *registry.Registry
	store    EventStore
	timeout  time.Duration
	logger   *slog.Logger
	counts   [numOutcomes]atomic.Uint64
}

// NewController creates a controller writing accepted readings to store.
func NewController(reg *registry.Registry, store EventStore, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Controller{
		registry: reg,
		store:    store,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// Prepare creates the table of every tracked device. A device whose schema
// cannot be created is logged and skipped; the returned count says how many
// failed.
func (c *Controller) Prepare(ctx context.Context) int {
	failed := 0
	for _, id := range c.registry.Devices() {
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.store.EnsureSchema(opCtx, id)
		cancel()
		if err != nil {
			c.logger.Error("failed to create schema", "device", id, "error", err)
			failed++
		}
	}
	return failed
}

// Handle processes one broadcast.
func (c *Controller) Handle(ctx context.Context, adv mijia.Advertisement) Outcome {
	return c.record(c.handle(ctx, adv))
}

func (c *Controller) handle(ctx context.Context, adv mijia.Advertisement) Outcome {
	id := mijia.NormalizeAddress(adv.Address)
	if !c.registry.Tracked(id) {
		return Ignored
	}

	payload, err := mijia.ExtractPayload(adv)
	if err != nil {
		c.logger.Error("dropping broadcast", "device", id, "error", err)
		return Malformed
	}

	reading, err := mijia.Decode(payload)
	if err != nil {
		c.logger.Error("dropping broadcast", "device", id, "error", err)
		return Malformed
	}
	if reading.Address != id {
		c.logger.Warn("embedded address differs", "device", id, "embedded", reading.Address)
	}

	// Sensors repeat each sample many times; skip the lock for those.
	if !c.registry.IsNew(id, reading.Counter) {
		return Duplicate
	}

	previous, seen := c.registry.Last(id)
	accepted, err := c.registry.Admit(id, reading.Counter, func() (storage.Receipt, error) {
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.store.Append(opCtx, id, reading)
	})
	if err != nil {
		c.logger.Error("failed to store reading", "device", id, "counter", reading.Counter, "error", err)
		return Failed
	}
	if !accepted {
		return Duplicate
	}

	c.logger.Debug("stored reading",
		"device", id,
		"counter", reading.Counter,
		"previous", previous,
		"first", !seen,
		"temp", reading.TemperatureRaw,
		"humidity", reading.HumidityRaw,
		"battery_mv", reading.BatteryMV,
		"battery_level", reading.BatteryPercent,
	)
	return Stored
}

func (c *Controller) record(o Outcome) Outcome {
	c.counts[o].Add(1)
	return o
}

// Stats returns a snapshot of the outcome counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Ignored:   c.counts[Ignored].Load(),
		Malformed: c.counts[Malformed].Load(),
		Duplicate: c.counts[Duplicate].Load(),
		Stored:    c.counts[Stored].Load(),
		Failed:    c.counts[Failed].Load(),
	}
}
