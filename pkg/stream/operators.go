package stream

import "context"

// --- Operator Stages ---
//
// Each operator wraps a source stream in a new stage goroutine that forwards
// items unchanged and in order, transforming only the terminal signal. A
// stage observes exactly one terminal signal from its source and produces
// exactly one of its own.

// OnErrorResume forwards src, replacing a terminal error with the result of
// mapErr. A clean completion passes through untouched.
func OnErrorResume[T any](ctx context.Context, src *Stream[T], mapErr func(error) error) *Stream[T] {
	return Generate(ctx, func(ctx context.Context, emit func(T) bool) error {
		if err := forward(ctx, src, emit, nil); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return mapErr(err)
		}
		return nil
	})
}

// DoOnComplete forwards src, invoking fn if and only if the source
// completes without an error.
func DoOnComplete[T any](ctx context.Context, src *Stream[T], fn func()) *Stream[T] {
	return Generate(ctx, func(ctx context.Context, emit func(T) bool) error {
		if err := forward(ctx, src, emit, nil); err != nil {
			return err
		}
		fn()
		return nil
	})
}

// DoOnNext forwards src, invoking fn for every item before it is emitted
// downstream. The terminal signal passes through untouched.
func DoOnNext[T any](ctx context.Context, src *Stream[T], fn func(T)) *Stream[T] {
	return Generate(ctx, func(ctx context.Context, emit func(T) bool) error {
		return forward(ctx, src, emit, fn)
	})
}

// SwitchIfEmptyError forwards src, replacing a clean zero-element completion
// with the error produced by errFn. Non-empty completions and terminal
// errors pass through untouched.
func SwitchIfEmptyError[T any](ctx context.Context, src *Stream[T], errFn func() error) *Stream[T] {
	return Generate(ctx, func(ctx context.Context, emit func(T) bool) error {
		seen := false
		err := forward(ctx, src, func(v T) bool {
			seen = true
			return emit(v)
		}, nil)
		if err != nil {
			return err
		}
		if !seen {
			return errFn()
		}
		return nil
	})
}

// forward drains src into emit, calling observe (if non-nil) on each item
// first. It returns the source's terminal error, or ctx.Err() if the
// consumer went away mid-sequence.
func forward[T any](ctx context.Context, src *Stream[T], emit func(T) bool, observe func(T)) error {
	for {
		select {
		case v, ok := <-src.Items():
			if !ok {
				return src.Err()
			}
			if observe != nil {
				observe(v)
			}
			if !emit(v) {
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
