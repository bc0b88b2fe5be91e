// Package scanner delivers observed broadcasts to the recorder, either live
// from the Bluetooth adapter or from a recorded capture file.
package scanner

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Sandr0x00/mijia/internal/mijia"
)

// Handler receives one broadcast. It may be called from several goroutines.
type Handler func(mijia.Advertisement)

// Source produces broadcasts until ctx is cancelled or it runs dry.
type Source interface {
	Run(ctx context.Context, handle Handler) error
}

// Capture returns a Handler that writes every broadcast to w in the replay
// format before passing it on to next.
func Capture(w io.Writer, next Handler) Handler {
	var mu sync.Mutex
	return func(adv mijia.Advertisement) {
		mu.Lock()
		fmt.Fprintln(w, mijia.FormatAdvertisement(adv))
		mu.Unlock()
		next(adv)
	}
}
