package goSSO

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher hands audit events to the sink on its own goroutine so
// that flows never wait on sink I/O. When the queue is full the event is
// either dropped (DropIfFull) or the caller waits until ctx is done; both
// losses are counted.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	dropIfFull bool

	stop     chan struct{}
	stopped  atomic.Bool
	stopOnce sync.Once
	worker   sync.WaitGroup

	dropped atomic.Uint64
}

// newAuditDispatcher returns nil when audit is disabled. All methods accept a
// nil receiver.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		dropIfFull: cfg.DropIfFull,
		stop:       make(chan struct{}),
	}
	d.worker.Add(1)
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer d.worker.Done()

	ctx := context.Background()
	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(ctx, ev)
		case <-d.stop:
			d.flush(ctx)
			return
		}
	}
}

// flush delivers whatever is still queued at shutdown.
func (d *auditDispatcher) flush(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(ctx, ev)
		default:
			return
		}
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopped.Load() {
		return
	}

	var wait <-chan struct{}
	if !d.dropIfFull {
		wait = ctx.Done()
	}

	select {
	case d.queue <- event:
		return
	case <-d.stop:
		return
	default:
	}
	if d.dropIfFull {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- event:
	case <-d.stop:
	case <-wait:
		d.dropped.Add(1)
	}
}

// Close stops accepting events, flushes the queue and waits for the worker.
// Calling it more than once is safe.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

// Dropped reports events lost to a full queue.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
