package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"tinygo.org/x/bluetooth"

	"github.com/Sandr0x00/mijia/internal/logging"
	"github.com/Sandr0x00/mijia/internal/mijia"
)

// Radio scans for advertisements with the default Bluetooth adapter.
type Radio struct {
	adapter *bluetooth.Adapter
	logger  *slog.Logger
}

// NewRadio creates a source backed by the system's default adapter.
func NewRadio(logger *slog.Logger) *Radio {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Radio{adapter: bluetooth.DefaultAdapter, logger: logger}
}

// Run scans until ctx is cancelled. The adapter invokes handle from its own
// goroutine, so handle must not block for long.
func (r *Radio) Run(ctx context.Context, handle Handler) error {
	if err := r.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable adapter: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := r.adapter.StopScan(); err != nil {
			r.logger.Warn("failed to stop scan", "error", err)
		}
	}()

	err := r.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		handle(toAdvertisement(result))
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

// toAdvertisement converts a scan result. The adapter does not expose the
// advertised service UUID list, so ServiceUUIDs holds only the UUIDs that
// carry service data. The one-UUID rule is therefore checked against those:
// an advertisement listing extra UUIDs without data still passes.
func toAdvertisement(result bluetooth.ScanResult) mijia.Advertisement {
	elements := result.ServiceData()

	adv := mijia.Advertisement{
		Address:     result.Address.String(),
		ServiceData: make(map[string][]byte, len(elements)),
	}
	for _, el := range elements {
		uuid := el.UUID.String()
		adv.ServiceUUIDs = append(adv.ServiceUUIDs, uuid)
		adv.ServiceData[uuid] = el.Data
	}
	return adv
}

var _ Source = (*Radio)(nil)
