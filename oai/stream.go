package oai

import (
	"context"
	"io"

	"github.com/fenlight/go-oai/sse"
)

// Stream is a lazy, single-pass sequence of typed events decoded from one
// SSE response. It is tied to one underlying connection and cannot be
// restarted. A Stream must not be shared across goroutines.
type Stream[E any] struct {
	ctx    context.Context
	body   io.ReadCloser
	dec    *sse.Decoder
	parse  func(sse.Event) (E, error)
	dbg    Debugger
	err    error
	closed bool
}

func newStream[E any](ctx context.Context, body io.ReadCloser, dbg Debugger, parse func(sse.Event) (E, error)) *Stream[E] {
	return &Stream[E]{
		ctx:   ctx,
		body:  body,
		dec:   newEventDecoder(body),
		parse: parse,
		dbg:   dbg,
	}
}

// Events yields each event in receive order. Per-event failures
// (DecodeError, UnknownEventError) are yielded at their position in the
// sequence and decoding continues; a transport failure is yielded once and
// ends the sequence. Breaking out of the loop releases the connection.
func (s *Stream[E]) Events() func(yield func(E, error) bool) {
	var zero E
	return func(yield func(E, error) bool) {
		defer s.Close()
		for {
			select {
			case <-s.ctx.Done():
				s.err = s.ctx.Err()
				return
			default:
			}

			ev, err := s.dec.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				s.err = err
				yield(zero, err)
				return
			}
			if s.dbg != nil {
				s.dbg.RawEvent(ev.Data)
			}

			e, perr := s.parse(ev)
			if perr != nil {
				if !yield(zero, perr) {
					return
				}
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Err returns the failure that ended the stream, or nil after a clean end.
func (s *Stream[E]) Err() error {
	return s.err
}

// Close releases the underlying connection. It is safe to call more than
// once and after the stream has ended.
func (s *Stream[E]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
