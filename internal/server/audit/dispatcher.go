package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dispatcher forwards events to a Sink from a single background goroutine.
// Record never blocks: when the buffer is full the event is dropped and
// counted.
type Dispatcher struct {
	sink      Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(sink Sink, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := &Dispatcher{
		sink: sink,
		ch:   make(chan Event, bufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case e := <-d.ch:
			d.sink.Emit(context.Background(), e)
		case <-d.done:
			for {
				select {
				case e := <-d.ch:
					d.sink.Emit(context.Background(), e)
				default:
					return
				}
			}
		}
	}
}

// Record enqueues e. It is a no-op on a nil or closed dispatcher.
func (d *Dispatcher) Record(_ context.Context, e Event) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- e:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Close stops accepting events, drains the buffer and waits for the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
