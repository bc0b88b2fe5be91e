package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/Sandr0x00/mijia/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deviceA = "aa:bb:cc:dd:ee:ff"
	deviceB = "a4:c1:38:00:00:01"
)

func receipt(id string) storage.Receipt {
	return storage.Receipt{DeviceID: id, EventID: 1}
}

func TestTracked(t *testing.T) {
	r := New([]string{"AA:BB:CC:DD:EE:FF", deviceB})

	assert.True(t, r.Tracked(deviceA))
	assert.True(t, r.Tracked(deviceB))
	assert.False(t, r.Tracked("11:22:33:44:55:66"))
	assert.Equal(t, []string{deviceB, deviceA}, r.Devices())
}

func TestFirstCounterIsAlwaysNew(t *testing.T) {
	r := New([]string{deviceA})

	for c := 0; c <= 255; c++ {
		assert.True(t, r.IsNew(deviceA, uint8(c)))
	}

	_, ok := r.Last(deviceA)
	assert.False(t, ok)
}

func TestIsNewUntracked(t *testing.T) {
	r := New([]string{deviceA})
	assert.False(t, r.IsNew(deviceB, 1))
}

func TestRecord(t *testing.T) {
	r := New([]string{deviceA})

	require.NoError(t, r.Record(receipt(deviceA), 5))

	assert.False(t, r.IsNew(deviceA, 5))
	assert.True(t, r.IsNew(deviceA, 6))
	assert.True(t, r.IsNew(deviceA, 4))

	last, ok := r.Last(deviceA)
	assert.True(t, ok)
	assert.Equal(t, uint8(5), last)
}

func TestRecordRejectsInvalidReceipt(t *testing.T) {
	r := New([]string{deviceA})

	assert.Error(t, r.Record(storage.Receipt{}, 5))
	assert.Error(t, r.Record(storage.Receipt{DeviceID: deviceA}, 5))
	assert.Error(t, r.Record(receipt(deviceB), 5))

	assert.True(t, r.IsNew(deviceA, 5))
}

func TestAdmit(t *testing.T) {
	r := New([]string{deviceA})
	calls := 0
	persist := func() (storage.Receipt, error) {
		calls++
		return receipt(deviceA), nil
	}

	accepted, err := r.Admit(deviceA, 5, persist)
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = r.Admit(deviceA, 5, persist)
	require.NoError(t, err)
	assert.False(t, accepted)

	accepted, err = r.Admit(deviceA, 6, persist)
	require.NoError(t, err)
	assert.True(t, accepted)

	assert.Equal(t, 2, calls)
}

func TestAdmitWraparound(t *testing.T) {
	r := New([]string{deviceA})
	persist := func() (storage.Receipt, error) { return receipt(deviceA), nil }

	_, _ = r.Admit(deviceA, 255, persist)
	accepted, err := r.Admit(deviceA, 0, persist)
	require.NoError(t, err)
	assert.True(t, accepted)

	last, _ := r.Last(deviceA)
	assert.Equal(t, uint8(0), last)
}

func TestAdmitPersistFailureKeepsCounter(t *testing.T) {
	r := New([]string{deviceA})
	persist := func() (storage.Receipt, error) { return receipt(deviceA), nil }
	failing := func() (storage.Receipt, error) { return storage.Receipt{}, errors.New("disk full") }

	_, _ = r.Admit(deviceA, 5, persist)

	accepted, err := r.Admit(deviceA, 6, failing)
	assert.Error(t, err)
	assert.False(t, accepted)

	last, _ := r.Last(deviceA)
	assert.Equal(t, uint8(5), last)

	// The same broadcast is still new on the next attempt.
	accepted, err = r.Admit(deviceA, 6, persist)
	require.NoError(t, err)
	assert.True(t, accepted)
}

func TestAdmitRejectsForeignReceipt(t *testing.T) {
	r := New([]string{deviceA, deviceB})

	accepted, err := r.Admit(deviceA, 1, func() (storage.Receipt, error) { return receipt(deviceB), nil })
	assert.Error(t, err)
	assert.False(t, accepted)
	assert.True(t, r.IsNew(deviceA, 1))
}

func TestAdmitUntracked(t *testing.T) {
	r := New([]string{deviceA})

	_, err := r.Admit(deviceB, 1, func() (storage.Receipt, error) {
		t.Fatal("persist must not run for untracked devices")
		return storage.Receipt{}, nil
	})
	assert.Error(t, err)
}

func TestAdmitConcurrentDuplicates(t *testing.T) {
	r := New([]string{deviceA})
	var mu sync.Mutex
	stored := 0
	persist := func() (storage.Receipt, error) {
		mu.Lock()
		stored++
		mu.Unlock()
		return receipt(deviceA), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Admit(deviceA, 7, persist)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, stored)
}
