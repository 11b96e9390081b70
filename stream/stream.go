// Package stream normalizes heterogeneous chunk producers into a single
// uniform, ordered stream shape consumable by the gateway.
//
// A producer obtained from an executor's StreamRun may be channel-backed
// (already asynchronous) or a blocking sequence/slice (synchronous). The
// Normalizer classifies the value once into a closed tag set and, for
// synchronous shapes, drives iteration on a worker goroutine from a bounded
// pool so blocking caller code never stalls the consumer. Chunks keep their
// emission order end to end, and a producer failure surfaces after the last
// successfully produced chunk.
package stream

import (
	"sync"
)

// Kind tags the classification of a producer. The set is closed: downstream
// logic branches on the tag instead of re-probing the value.
type Kind int

const (
	// KindAsync marks channel-backed producers consumed in place.
	KindAsync Kind = iota + 1
	// KindSync marks blocking producers driven on a worker goroutine.
	KindSync
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAsync:
		return "async"
	case KindSync:
		return "sync"
	default:
		return "unknown"
	}
}

// Source is the channel-pair producer shape. Executors that already stream
// through channels (for example the bot adapters) return one of these from
// StreamRun.
//
// Contract: the stream ends when Chunks is closed. A terminal error, if any,
// must be sent on Errs (capacity >= 1) before Chunks is closed so the
// consumer observes it after the last delivered chunk. Errs may be nil when
// the producer cannot fail.
type Source struct {
	Chunks <-chan string
	Errs   <-chan error
}

// Stream is the normalized handle over a producer. It is single-pass: the
// underlying producer is consumed exactly once and the stream cannot be
// restarted.
//
// Consumption follows the sql.Rows pattern: receive from Chunks() until it is
// closed, then check Err() for the terminal error.
type Stream struct {
	kind   Kind
	chunks <-chan string
	errs   <-chan error

	errOnce sync.Once
	err     error
}

// Kind returns the classification tag assigned when the stream was opened.
func (s *Stream) Kind() Kind { return s.kind }

// Chunks returns the ordered chunk channel. It is closed when the producer
// exhausts, fails, or the context is cancelled.
func (s *Stream) Chunks() <-chan string { return s.chunks }

// Err returns the terminal error, if any. It is valid once Chunks() is
// closed; the error was buffered before the close so no chunk is ever
// reordered behind it.
func (s *Stream) Err() error {
	s.errOnce.Do(func() {
		if s.errs == nil {
			return
		}
		select {
		case err, ok := <-s.errs:
			if ok {
				s.err = err
			}
		default:
		}
	})
	return s.err
}
