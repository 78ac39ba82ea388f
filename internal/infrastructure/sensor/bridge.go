package sensor

import (
	"context"
	"sync"
)

// OneShot is a single-use promise bridging a device callback to a blocked
// caller. Exactly one Resolve or Fail wins; later calls report false and
// leave the settled outcome untouched.
type OneShot[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func NewOneShot[T any]() *OneShot[T] {
	return &OneShot[T]{done: make(chan struct{})}
}

func (o *OneShot[T]) Resolve(value T) bool {
	settled := false
	o.once.Do(func() {
		o.value = value
		close(o.done)
		settled = true
	})
	return settled
}

func (o *OneShot[T]) Fail(err error) bool {
	settled := false
	o.once.Do(func() {
		o.err = err
		close(o.done)
		settled = true
	})
	return settled
}

// Await blocks until the promise settles or the context ends. A context
// error does not settle the promise; a late Resolve still records the
// value for any other waiter.
func (o *OneShot[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
