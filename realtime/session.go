// Package realtime maintains a WebSocket session against the realtime API.
// Framing is one event per WebSocket message in both directions; there is
// no SSE layer and no sentinel, the connection close is the terminal
// signal.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/fenlight/go-oai/oai"
)

type inbound struct {
	event ServerEvent
	err   error
}

// Session is one realtime connection. Sends may happen from any goroutine;
// Events must be consumed from a single goroutine.
type Session struct {
	conn    *websocket.Conn
	cancel  context.CancelFunc
	group   *errgroup.Group
	inbound chan inbound

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error

	mu  sync.Mutex
	err error
}

// Dial opens a realtime session for the given model. The config supplies
// the endpoint and authentication; cancelling ctx tears the session down.
func Dial(ctx context.Context, config oai.Config, model string) (*Session, error) {
	headers, err := config.Headers()
	if err != nil {
		return nil, err
	}
	headers.Del("Content-Type")
	headers.Set("OpenAI-Beta", "realtime=v1")

	wsURL := websocketURL(config.BaseURL()) + "/realtime?model=" + url.QueryEscape(model)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, &oai.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: err.Error()}
		}
		return nil, fmt.Errorf("error dialing realtime endpoint: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(sessionCtx)
	s := &Session{
		conn:    conn,
		cancel:  cancel,
		group:   group,
		inbound: make(chan inbound, 16),
	}

	// The read loop owns the connection's inbound side; the watchdog closes
	// the connection when the context ends, which unblocks the read loop.
	group.Go(func() error {
		<-groupCtx.Done()
		return conn.Close()
	})
	group.Go(func() error {
		defer cancel()
		return s.readLoop(groupCtx)
	})

	return s, nil
}

// websocketURL converts an HTTP API base into its WebSocket counterpart.
func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

func (s *Session) readLoop(ctx context.Context) error {
	defer close(s.inbound)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			s.setErr(fmt.Errorf("error reading session: %w", err))
			return err
		}
		event, perr := decodeServerEvent(data)
		select {
		case s.inbound <- inbound{event: event, err: perr}:
		case <-ctx.Done():
			return nil
		}
	}
}

// Send transmits one client event. The type discriminant is injected from
// the event's static type, so callers never set it by hand.
func (s *Session) Send(event ClientEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}
	payload := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}
	typeTag, _ := json.Marshal(event.eventType())
	payload["type"] = typeTag
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("error writing event: %w", err)
	}
	return nil
}

// Events yields server events in receive order. Per-event failures
// (unknown type, malformed payload) appear in-sequence and the session
// continues; the sequence ends when the connection closes or the context
// is cancelled.
func (s *Session) Events() func(yield func(ServerEvent, error) bool) {
	return func(yield func(ServerEvent, error) bool) {
		for in := range s.inbound {
			if !yield(in.event, in.err) {
				return
			}
		}
	}
}

// Err returns the failure that ended the session, or nil after a clean
// close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Close tears the session down and releases the connection. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteMessage(websocket.CloseMessage, message)
		s.writeMu.Unlock()

		s.cancel()
		s.closeErr = s.group.Wait()
	})
	return s.closeErr
}
