package session

import "context"

// Resumer moves a completion callback onto the consumer's thread of
// control. Load and Export call Resume exactly once per request, from a
// background goroutine.
type Resumer interface {
	Resume(fn func())
}

// ResumerFunc adapts a function to Resumer.
type ResumerFunc func(fn func())

// Resume calls f(fn).
func (f ResumerFunc) Resume(fn func()) { f(fn) }

// Inline runs callbacks on the goroutine that finished the work. Use it
// only when the caller already serializes access to the session.
var Inline Resumer = ResumerFunc(func(fn func()) { fn() })

// Queue is a Resumer drained by the consumer: callbacks run inside Next
// or Run, on the goroutine that calls them.
type Queue struct {
	ch chan func()
}

// NewQueue returns a queue buffering up to size pending callbacks.
// Background work blocks in Resume while the buffer is full.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan func(), size)}
}

// Resume enqueues fn.
func (q *Queue) Resume(fn func()) { q.ch <- fn }

// Next waits for one callback and runs it.
func (q *Queue) Next(ctx context.Context) error {
	select {
	case fn := <-q.ch:
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run runs callbacks until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		if err := q.Next(ctx); err != nil {
			return err
		}
	}
}
