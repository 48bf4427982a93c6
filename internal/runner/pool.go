package runner

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Predict after Close.
var ErrClosed = errors.New("runner closed")

// pool hands out a fixed set of items, one borrower per item.
type pool[T any] struct {
	items    chan T
	size     int
	done     chan struct{}
	doneOnce sync.Once
}

func newPool[T any](items []T) *pool[T] {
	p := &pool[T]{
		items: make(chan T, len(items)),
		size:  len(items),
		done:  make(chan struct{}),
	}
	for _, it := range items {
		p.items <- it
	}
	return p
}

// get blocks until an item is free, ctx ends or the pool is closed.
func (p *pool[T]) get(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-p.done:
		return zero, ErrClosed
	default:
	}
	select {
	case it := <-p.items:
		select {
		case <-p.done:
			p.items <- it
			return zero, ErrClosed
		default:
		}
		return it, nil
	case <-p.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (p *pool[T]) put(it T) {
	p.items <- it
}

// drain stops new borrowers and waits for every item to come back.
func (p *pool[T]) drain() []T {
	p.doneOnce.Do(func() { close(p.done) })
	out := make([]T, 0, p.size)
	for range p.size {
		out = append(out, <-p.items)
	}
	return out
}
