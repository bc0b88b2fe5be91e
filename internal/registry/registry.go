// Package registry tracks the last accepted measurement counter per device.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Sandr0x00/mijia/internal/mijia"
	"github.com/Sandr0x00/mijia/internal/storage"
)

// unseen is outside the counter range, so the first broadcast is always new.
const unseen = -1

type entry struct {
	mu   sync.Mutex
	last int
}

// Registry holds the last-seen counter of every configured device.
//
// The set of devices is fixed at construction. Each device has its own lock,
// so devices never contend with each other.
type Registry struct {
	entries map[string]*entry
}

// New creates a registry tracking the given device identifiers.
func New(ids []string) *Registry {
	entries := make(map[string]*entry, len(ids))
	for _, id := range ids {
		entries[mijia.NormalizeAddress(id)] = &entry{last: unseen}
	}
	return &Registry{entries: entries}
}

// Tracked reports whether the device is configured.
func (r *Registry) Tracked(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// Devices returns the tracked identifiers in sorted order.
func (r *Registry) Devices() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsNew reports whether counter differs from the last accepted one.
// Any change counts, including wraparound and decreases.
func (r *Registry) IsNew(id string, counter uint8) bool {
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last != int(counter)
}

// Last returns the last accepted counter, or false if none was accepted yet.
func (r *Registry) Last(id string) (uint8, bool) {
	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == unseen {
		return 0, false
	}
	return uint8(e.last), true
}

// Record advances the counter for the device named in receipt.
func (r *Registry) Record(receipt storage.Receipt, counter uint8) error {
	e, err := r.lookup(receipt)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.last = int(counter)
	e.mu.Unlock()
	return nil
}

// Admit runs persist for a new counter and records it once persist succeeds.
//
// The device lock is held for the whole check-store-record sequence, so
// events of one device are serialized while other devices proceed. It
// returns false with a nil error for duplicates. When persist fails the
// counter stays where it was.
func (r *Registry) Admit(id string, counter uint8, persist func() (storage.Receipt, error)) (bool, error) {
	e, ok := r.entries[id]
	if !ok {
		return false, fmt.Errorf("device not tracked: %s", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.last == int(counter) {
		return false, nil
	}

	receipt, err := persist()
	if err != nil {
		return false, err
	}
	if receipt.DeviceID != id || !receipt.Valid() {
		return false, fmt.Errorf("invalid receipt for %s: %+v", id, receipt)
	}

	e.last = int(counter)
	return true, nil
}

func (r *Registry) lookup(receipt storage.Receipt) (*entry, error) {
	if !receipt.Valid() {
		return nil, fmt.Errorf("invalid receipt: %+v", receipt)
	}
	e, ok := r.entries[receipt.DeviceID]
	if !ok {
		return nil, fmt.Errorf("device not tracked: %s", receipt.DeviceID)
	}
	return e, nil
}
