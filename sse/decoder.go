// Package sse decodes server-sent event streams into discrete events.
//
// The decoder is single-pass and tied to one underlying connection: events
// come out in exactly the order their terminating delimiter arrived on the
// wire, and a frame split across multiple reads is buffered until complete.
package sse

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Event is one decoded server-sent event.
type Event struct {
	// Type is the value of the "event:" field, or "" for unnamed events.
	Type string
	// Data is the payload, with multiple "data:" lines joined by "\n".
	Data []byte
	// ID is the value of the "id:" field, if any.
	ID string
	// Retry is the server-suggested reconnection delay, if any.
	Retry time.Duration
}

type state int

const (
	stateIdle state = iota
	stateAccumulating
	stateClosed
	stateErrored
)

// Decoder reads SSE frames from r. It owns an internal buffer for frames
// that arrive split across reads; no two calls may run concurrently.
type Decoder struct {
	r       io.Reader
	buf     []byte // unconsumed transport bytes
	scratch []byte
	state   state
	err     error

	// Sentinel, when non-empty, is a data payload that cleanly terminates
	// the stream ("[DONE]" for OpenAI-style streams). Bytes after the
	// sentinel are discarded.
	Sentinel string

	// frame being accumulated
	eventType string
	dataLines [][]byte
	lastID    string
	retry     time.Duration
}

// NewDecoder returns a decoder reading frames from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, scratch: make([]byte, 4096)}
}

// Next returns the next complete event. It returns io.EOF once the stream
// has ended cleanly (sentinel or transport EOF); any other error is a
// transport failure and is sticky.
func (d *Decoder) Next() (Event, error) {
	switch d.state {
	case stateClosed:
		return Event{}, io.EOF
	case stateErrored:
		return Event{}, d.err
	}

	for {
		// Drain complete lines out of the buffer first.
		for {
			line, rest, found := cutLine(d.buf)
			if !found {
				break
			}
			d.buf = rest
			ev, emit, done := d.processLine(line)
			if done {
				d.state = stateClosed
				d.buf = nil
				return Event{}, io.EOF
			}
			if emit {
				return ev, nil
			}
		}

		n, err := d.r.Read(d.scratch)
		if n > 0 {
			d.buf = append(d.buf, d.scratch[:n]...)
			continue
		}
		if err == io.EOF {
			// A frame that was still accumulating when the connection
			// closed is flushed as a final event.
			if ev, ok := d.flush(); ok {
				d.state = stateClosed
				if d.Sentinel != "" && string(ev.Data) == d.Sentinel {
					return Event{}, io.EOF
				}
				return ev, nil
			}
			d.state = stateClosed
			return Event{}, io.EOF
		}
		if err != nil {
			d.state = stateErrored
			d.err = fmt.Errorf("error reading stream: %w", err)
			return Event{}, d.err
		}
	}
}

// processLine feeds one line into the frame accumulator. It returns the
// completed event when the line was a frame delimiter, and done when the
// sentinel payload was seen.
func (d *Decoder) processLine(line []byte) (ev Event, emit, done bool) {
	if len(line) == 0 {
		ev, emit = d.flush()
		if emit && d.Sentinel != "" && string(ev.Data) == d.Sentinel {
			return Event{}, false, true
		}
		return ev, emit, false
	}

	d.state = stateAccumulating

	if line[0] == ':' {
		return Event{}, false, false // comment line
	}

	field, value := cutField(line)
	switch string(field) {
	case "data":
		d.dataLines = append(d.dataLines, value)
	case "event":
		d.eventType = string(value)
	case "id":
		d.lastID = string(value)
	case "retry":
		if ms, err := strconv.Atoi(string(value)); err == nil && ms >= 0 {
			d.retry = time.Duration(ms) * time.Millisecond
		}
	default:
		// Unknown fields are ignored per the SSE processing model.
	}
	return Event{}, false, false
}

// flush emits the accumulated frame, if it carries any data.
func (d *Decoder) flush() (Event, bool) {
	if len(d.dataLines) == 0 {
		d.eventType = ""
		d.retry = 0
		d.state = stateIdle
		return Event{}, false
	}
	ev := Event{
		Type:  d.eventType,
		Data:  bytes.Join(d.dataLines, []byte("\n")),
		ID:    d.lastID,
		Retry: d.retry,
	}
	d.eventType = ""
	d.dataLines = nil
	d.retry = 0
	d.state = stateIdle
	return ev, true
}

// cutLine splits buf at the first line terminator, handling both "\n" and
// "\r\n". found is false when no complete line is buffered yet.
func cutLine(buf []byte) (line, rest []byte, found bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, buf, false
	}
	line = buf[:i]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, buf[i+1:], true
}

// cutField splits an SSE line into field name and value, stripping the
// single optional space after the colon.
func cutField(line []byte) (field, value []byte) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return line, nil
	}
	field, value = line[:i], line[i+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}
