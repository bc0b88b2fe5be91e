package ingest

import (
	"context"
	"sync"

	"github.com/Sandr0x00/mijia/internal/mijia"
)

// DefaultQueueSize is the per-device backlog of a Dispatcher.
const DefaultQueueSize = 16

// Dispatcher hands broadcasts to one worker per tracked device, so a slow
// store for one device never holds up the radio callback or other devices.
type Dispatcher struct {
	controller *Controller
	queues     map[string]chan mijia.Advertisement
	wg         sync.WaitGroup
	once       sync.Once
}

// NewDispatcher starts one worker per tracked device. Workers keep ctx's
// values but not its cancellation, so broadcasts queued before shutdown are
// still stored while Close drains them; the controller's timeout bounds each
// call. Workers exit once Close has drained their queue.
func NewDispatcher(ctx context.Context, c *Controller, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	d := &Dispatcher{
		controller: c,
		queues:     make(map[string]chan mijia.Advertisement),
	}
	ctx = context.WithoutCancel(ctx)
	for _, id := range c.registry.Devices() {
		queue := make(chan mijia.Advertisement, queueSize)
		d.queues[id] = queue

		d.wg.Add(1)
		go func(queue <-chan mijia.Advertisement) {
			defer d.wg.Done()
			for adv := range queue {
				c.Handle(ctx, adv)
			}
		}(queue)
	}
	return d
}

// Submit queues a broadcast without blocking. Untracked devices are
// handled inline. It returns false if the device's queue is full and
// the broadcast was dropped.
func (d *Dispatcher) Submit(adv mijia.Advertisement) bool {
	queue, ok := d.queues[mijia.NormalizeAddress(adv.Address)]
	if !ok {
		d.controller.Handle(context.Background(), adv)
		return true
	}

	select {
	case queue <- adv:
		return true
	default:
		d.controller.logger.Warn("queue full, dropping broadcast", "device", adv.Address)
		return false
	}
}

// Close stops accepting broadcasts and waits for queued ones to finish.
// Submit must not be called after Close.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		for _, queue := range d.queues {
			close(queue)
		}
	})
	d.wg.Wait()
}
