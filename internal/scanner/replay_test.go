package scanner

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Sandr0x00/mijia/internal/mijia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capture = `# recorded 2024-03-01
aa:bb:cc:dd:ee:ff 0000181a-0000-1000-8000-00805f9b34fb ffeeddccbbaa69080613870b542c04

not a valid line
aa:bb:cc:dd:ee:ff 0000181a-0000-1000-8000-00805f9b34fb ffeeddccbbaa69080613870b542d04
`

func TestReplay(t *testing.T) {
	var got []mijia.Advertisement
	err := NewReplay(strings.NewReader(capture), nil).Run(context.Background(), func(adv mijia.Advertisement) {
		got = append(got, adv)
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first, err := mijia.Decode(got[0].ServiceData[mijia.ServiceUUID])
	require.NoError(t, err)
	second, err := mijia.Decode(got[1].ServiceData[mijia.ServiceUUID])
	require.NoError(t, err)

	assert.Equal(t, uint8(0x2c), first.Counter)
	assert.Equal(t, uint8(0x2d), second.Counter)
}

func TestReplayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := NewReplay(strings.NewReader(capture), nil).Run(ctx, func(mijia.Advertisement) { calls++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestCapture(t *testing.T) {
	var buf bytes.Buffer
	var forwarded int
	handle := Capture(&buf, func(mijia.Advertisement) { forwarded++ })

	payload := mijia.Encode(mijia.Reading{Address: "aa:bb:cc:dd:ee:ff", Counter: 3})
	handle(mijia.NewAdvertisement("aa:bb:cc:dd:ee:ff", payload))

	assert.Equal(t, 1, forwarded)

	// What was captured replays to the same broadcast.
	var replayed []mijia.Advertisement
	err := NewReplay(&buf, nil).Run(context.Background(), func(adv mijia.Advertisement) {
		replayed = append(replayed, adv)
	})
	require.NoError(t, err)
	require.Len(t, replayed, 1)
	assert.Equal(t, payload, replayed[0].ServiceData[mijia.ServiceUUID])
}
