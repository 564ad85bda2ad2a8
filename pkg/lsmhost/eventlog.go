package lsmhost

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errFlushEventLogStopped = errors.New("flush event log stopped")

// flushEventLog drains a Host's flushEvent channel on its own goroutine and
// hands each event to a handler, decoupling the inline flush path from
// logging. Unlike a general-purpose channel consumer, it is specialized to
// flushEvent: Host is its only caller and its only shutdown path is Stop.
type flushEventLog struct {
	handler func(flushEvent) error

	in     <-chan flushEvent
	wg     sync.WaitGroup
	cancel func()
}

func newFlushEventLog(in <-chan flushEvent, handler func(flushEvent) error) *flushEventLog {
	return &flushEventLog{
		in:      in,
		handler: handler,
		cancel:  func() {},
	}
}

// Start begins draining events until ctx is cancelled or Stop is called. A
// handler error is a bug in the host's own logging path, not a condition a
// caller can recover from, so it panics the same way a mutable table
// contract violation does.
func (l *flushEventLog) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		for {
			if err := l.drainOne(ctx); err != nil {
				if errors.Is(err, errFlushEventLogStopped) {
					return
				}
				panic("flush event log: " + err.Error())
			}
		}
	}()
}

func (l *flushEventLog) drainOne(ctx context.Context) error {
	select {
	case ev := <-l.in:
		if err := l.handler(ev); err != nil {
			return fmt.Errorf("handle flush event: %w", err)
		}
		return nil
	case <-ctx.Done():
		return errFlushEventLogStopped
	}
}

// Stop cancels the draining goroutine and waits for it to exit.
func (l *flushEventLog) Stop() {
	l.cancel()
	l.wg.Wait()
}
