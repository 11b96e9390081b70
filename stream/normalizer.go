package stream

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime/debug"
)

// ErrNotStreamable is returned by Open when a producer value matches none of
// the classifiable shapes (for example a bare scalar returned for a
// streaming task).
var ErrNotStreamable = errors.New("producer is not streamable")

const (
	// DefaultMaxWorkers bounds how many blocking producers may be driven
	// concurrently across all requests sharing a Normalizer.
	DefaultMaxWorkers = 32
	// DefaultChunkBuffer is the handoff channel capacity between a worker
	// and its consumer.
	DefaultChunkBuffer = 16
)

// Options configures a Normalizer.
type Options struct {
	// MaxWorkers limits concurrently driven synchronous producers. Values
	// <= 0 remove the bound.
	MaxWorkers int
	// ChunkBuffer sets the handoff channel capacity for worker-driven and
	// converted producers.
	ChunkBuffer int
}

// Normalizer classifies producer values and adapts them onto Stream handles.
// It owns the bounded worker pool shared by all streams it opens; a stalled
// blocking producer occupies one slot until it yields, completes, or its
// request context is cancelled.
type Normalizer struct {
	opts  Options
	slots chan struct{}
}

// New creates a Normalizer with optional overrides.
func New(optFns ...func(o *Options)) *Normalizer {
	opts := Options{
		MaxWorkers:  DefaultMaxWorkers,
		ChunkBuffer: DefaultChunkBuffer,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ChunkBuffer < 0 {
		opts.ChunkBuffer = 0
	}

	n := &Normalizer{opts: opts}
	if opts.MaxWorkers > 0 {
		n.slots = make(chan struct{}, opts.MaxWorkers)
	}
	return n
}

var defaultNormalizer = New()

// Normalize opens producer on a shared package-level Normalizer. Callers that
// need their own pool bounds should construct one with New.
func Normalize(ctx context.Context, producer any) (*Stream, error) {
	return defaultNormalizer.Open(ctx, producer)
}

// Classify reports the shape tag for a producer value without consuming it.
// The second result is false when the value is not streamable.
func Classify(producer any) (Kind, bool) {
	switch p := producer.(type) {
	case *Stream:
		return p.Kind(), true
	case Source, <-chan string, chan string, <-chan any, chan any:
		return KindAsync, true
	case iter.Seq[string], func(func(string) bool),
		iter.Seq2[string, error], func(func(string, error) bool),
		[]string, []any:
		return KindSync, true
	default:
		return 0, false
	}
}

// Open classifies producer and begins consumption, returning the normalized
// stream. Channel-backed producers are passed through (or converted) with no
// worker involvement; blocking shapes are driven on a pool goroutine that
// hands chunks off in emission order. Classification failure is reported
// before any chunk exists, so the caller can still answer with an ordinary
// error response.
//
// The context bounds the producer: once it is cancelled the worker stops at
// its next handoff and the pool slot is released. Each producer is consumed
// exactly once.
func (n *Normalizer) Open(ctx context.Context, producer any) (*Stream, error) {
	switch p := producer.(type) {
	case *Stream:
		return p, nil
	case Source:
		return &Stream{kind: KindAsync, chunks: p.Chunks, errs: p.Errs}, nil
	case <-chan string:
		return &Stream{kind: KindAsync, chunks: p}, nil
	case chan string:
		return &Stream{kind: KindAsync, chunks: p}, nil
	case <-chan any:
		return &Stream{kind: KindAsync, chunks: n.convert(ctx, p)}, nil
	case chan any:
		return &Stream{kind: KindAsync, chunks: n.convert(ctx, p)}, nil
	case iter.Seq[string]:
		return n.bridge(ctx, withNilErr(p)), nil
	case func(func(string) bool):
		return n.bridge(ctx, withNilErr(iter.Seq[string](p))), nil
	case iter.Seq2[string, error]:
		return n.bridge(ctx, p), nil
	case func(func(string, error) bool):
		return n.bridge(ctx, iter.Seq2[string, error](p)), nil
	case []string:
		return n.bridge(ctx, stringSliceSeq(p)), nil
	case []any:
		return n.bridge(ctx, anySliceSeq(p)), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotStreamable, producer)
	}
}

// convert pumps an any-typed channel into a string channel, rendering each
// item with fmt.Sprint. No pool slot is taken: channel receives park the
// goroutine instead of blocking a worker.
func (n *Normalizer) convert(ctx context.Context, in <-chan any) <-chan string {
	out := make(chan string, n.opts.ChunkBuffer)
	go func() {
		defer close(out)
		for {
			select {
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- fmt.Sprint(v):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// bridge drives a blocking sequence on a worker goroutine and hands chunks
// off through an ordered channel. The terminal error (sequence error or
// recovered panic) is buffered on errs before chunks is closed, preserving
// its position after the last good chunk.
func (n *Normalizer) bridge(ctx context.Context, seq iter.Seq2[string, error]) *Stream {
	chunks := make(chan string, n.opts.ChunkBuffer)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		if n.slots != nil {
			select {
			case n.slots <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-n.slots }()
		}

		var iterErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					iterErr = &panicErr{val: r, stack: debug.Stack()}
				}
			}()
			for chunk, err := range seq {
				if err != nil {
					iterErr = err
					return
				}
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}()
		if iterErr != nil {
			errs <- iterErr
		}
	}()

	return &Stream{kind: KindSync, chunks: chunks, errs: errs}
}

func withNilErr(seq iter.Seq[string]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func stringSliceSeq(items []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, v := range items {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func anySliceSeq(items []any) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, v := range items {
			if !yield(fmt.Sprint(v), nil) {
				return
			}
		}
	}
}

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
