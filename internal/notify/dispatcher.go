package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBuffer  = 256
	defaultTimeout = 2 * time.Second
)

// Dispatcher hands events to a Sink from a single background worker.
// Enqueue never blocks; events are dropped when the buffer is full.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	logger  *logrus.Logger
	queue   chan Event

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

type Options struct {
	Buffer  int
	Timeout time.Duration
	Logger  *logrus.Logger
}

func NewDispatcher(sink Sink, opts Options) *Dispatcher {
	if sink == nil {
		sink = Discard{}
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	d := &Dispatcher{
		sink:    sink,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		queue:   make(chan Event, opts.Buffer),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue schedules evt for delivery and reports whether it was accepted.
func (d *Dispatcher) Enqueue(evt Event) bool {
	if evt.TS == "" {
		evt.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- evt:
		return true
	default:
		d.dropped.Add(1)
		d.logger.WithFields(logrus.Fields{
			"event_type": evt.Type,
			"project_id": evt.ProjectID,
		}).Warn("notify: queue full, event dropped")
		return false
	}
}

// Dropped returns how many events were refused because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for evt := range d.queue {
		d.deliver(evt)
	}
}

func (d *Dispatcher) deliver(evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.sink.Publish(ctx, evt); err != nil {
		d.logger.WithFields(logrus.Fields{
			"event_type": evt.Type,
			"project_id": evt.ProjectID,
			"entity_id":  evt.EntityID,
		}).WithError(err).Warn("notify: publish failed")
	}
}
