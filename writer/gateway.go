// Package writer serializes all store mutations through a single
// executor. Readers never go through it.
package writer

import (
	"context"
)

// Unit is one mutation executed by the gateway. It must either fully
// apply or fail without leaving partial writes behind.
type Unit func(ctx context.Context) (any, error)

type result struct {
	value any
	err   error
}

type submission struct {
	ctx  context.Context
	unit Unit
	done chan result
}

// Gateway owns a bounded FIFO queue of units and executes them one at
// a time. At most one unit is in flight against the store at any
// instant.
type Gateway struct {
	queue chan submission
}

func NewGateway(queueSize int) *Gateway {
	return &Gateway{
		queue: make(chan submission, queueSize),
	}
}

// Run drains the queue serially until ctx is cancelled. It must be
// running for Do to make progress.
func (g *Gateway) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-g.queue:
			if err := sub.ctx.Err(); err != nil {
				sub.done <- result{err: err}

				continue
			}

			value, err := sub.unit(sub.ctx)
			sub.done <- result{value: value, err: err}
		}
	}
}

// Do submits a unit and blocks the caller until that unit's outcome is
// available. Units from distinct callers are executed in submission
// order (the queue is FIFO).
func (g *Gateway) Do(ctx context.Context, unit Unit) (any, error) {
	done := make(chan result, 1)

	select {
	case g.queue <- submission{ctx: ctx, unit: unit, done: done}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
