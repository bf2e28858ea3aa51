// Package stream provides a small channel-backed abstraction for finite,
// lazily produced sequences with a single terminal signal. It is the
// backbone of the bridge's read paths: a producer goroutine feeds items
// into the stream and finishes it exactly once, either cleanly or with an
// error, and operator stages compose over it without buffering or
// reordering.
package stream

import "context"

// Stream is a finite, lazily produced sequence of values.
//
// Consumers range over Items; once that channel is closed, Err reports
// whether the sequence completed cleanly (nil) or terminated with a fault.
// This mirrors the sql.Rows / bufio.Scanner contract: Err is only
// meaningful after Items has been drained.
type Stream[T any] struct {
	items chan T
	err   error // written by the producer before items is closed
}

// Items returns the channel the sequence is delivered on. The channel is
// closed exactly once, after the final item and after the terminal error
// (if any) has been recorded.
func (s *Stream[T]) Items() <-chan T {
	return s.items
}

// Err returns the terminal error of the sequence. It must only be called
// after Items has been closed; before that its value is undefined.
func (s *Stream[T]) Err() error {
	return s.err
}

// Generate starts fn in its own goroutine and returns the stream it feeds.
//
// fn emits items via the supplied emit callback, which returns false when
// the consumer's context has been cancelled; the producer should stop and
// return ctx.Err() in that case, which propagates the cancellation upstream
// instead of leaving orphaned work running. The value fn returns becomes
// the stream's terminal signal.
func Generate[T any](ctx context.Context, fn func(ctx context.Context, emit func(T) bool) error) *Stream[T] {
	s := &Stream[T]{items: make(chan T)}
	emit := func(v T) bool {
		select {
		case s.items <- v:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		s.err = fn(ctx, emit)
		close(s.items)
	}()
	return s
}

// FromSlice returns a stream that emits the given items in order and then
// completes cleanly.
func FromSlice[T any](ctx context.Context, items []T) *Stream[T] {
	return Generate(ctx, func(ctx context.Context, emit func(T) bool) error {
		for _, v := range items {
			if !emit(v) {
				return ctx.Err()
			}
		}
		return nil
	})
}

// Fail returns a stream that emits nothing and terminates with err.
func Fail[T any](err error) *Stream[T] {
	s := &Stream[T]{items: make(chan T), err: err}
	close(s.items)
	return s
}

// Collect drains the stream into a slice. It returns the collected items
// and the stream's terminal error; on context cancellation it returns what
// was received so far together with ctx.Err().
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	var out []T
	for {
		select {
		case v, ok := <-s.Items():
			if !ok {
				return out, s.Err()
			}
			out = append(out, v)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}
