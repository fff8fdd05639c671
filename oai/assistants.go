package oai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fenlight/go-oai/sse"
)

// RunRequest starts an assistant run on a thread.
type RunRequest struct {
	AssistantID  string `json:"assistant_id"`
	Model        string `json:"model,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Stream       bool   `json:"stream,omitempty"`
}

// Run is the subset of the run object the stream surface needs.
type Run struct {
	ID          string `json:"id"`
	Object      string `json:"object"`
	ThreadID    string `json:"thread_id"`
	AssistantID string `json:"assistant_id"`
	Status      string `json:"status"`
	LastError   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error,omitempty"`
}

// MessageDelta carries incremental assistant message content.
type MessageDelta struct {
	ID    string `json:"id"`
	Delta struct {
		Content []struct {
			Index int    `json:"index"`
			Type  string `json:"type"`
			Text  *struct {
				Value string `json:"value"`
			} `json:"text,omitempty"`
		} `json:"content"`
	} `json:"delta"`
}

// RunEvent is one assistant stream event. Unlike chat and Responses API
// streams, the discriminant travels in the SSE "event:" field rather than
// inside the JSON payload.
type RunEvent struct {
	Type string
	Data json.RawMessage
}

// Run decodes the payload of a thread.run.* event.
func (e RunEvent) Run() (*Run, error) {
	var run Run
	if err := json.Unmarshal(e.Data, &run); err != nil {
		return nil, &DecodeError{Data: e.Data, Err: err}
	}
	return &run, nil
}

// MessageDelta decodes the payload of a thread.message.delta event.
func (e RunEvent) MessageDelta() (*MessageDelta, error) {
	var delta MessageDelta
	if err := json.Unmarshal(e.Data, &delta); err != nil {
		return nil, &DecodeError{Data: e.Data, Err: err}
	}
	return &delta, nil
}

var knownRunEvents = map[string]bool{
	"thread.created":              true,
	"thread.run.created":          true,
	"thread.run.queued":           true,
	"thread.run.in_progress":      true,
	"thread.run.requires_action":  true,
	"thread.run.completed":        true,
	"thread.run.incomplete":       true,
	"thread.run.failed":           true,
	"thread.run.cancelling":       true,
	"thread.run.cancelled":        true,
	"thread.run.expired":          true,
	"thread.run.step.created":     true,
	"thread.run.step.in_progress": true,
	"thread.run.step.delta":       true,
	"thread.run.step.completed":   true,
	"thread.run.step.failed":      true,
	"thread.run.step.cancelled":   true,
	"thread.run.step.expired":     true,
	"thread.message.created":      true,
	"thread.message.in_progress":  true,
	"thread.message.delta":        true,
	"thread.message.completed":    true,
	"thread.message.incomplete":   true,
	"error":                       true,
}

// StreamRun starts an assistant run on the given thread and streams its
// events until the terminal "done" frame.
func (c *Client) StreamRun(ctx context.Context, threadID string, req RunRequest) (*Stream[RunEvent], error) {
	req.Stream = true
	body, err := c.postStream(ctx, fmt.Sprintf("/threads/%s/runs", threadID), req)
	if err != nil {
		return nil, err
	}
	return newStream(ctx, body, c.debugger, parseRunEvent), nil
}

func parseRunEvent(ev sse.Event) (RunEvent, error) {
	if !knownRunEvents[ev.Type] {
		return RunEvent{}, &UnknownEventError{Type: ev.Type, Data: ev.Data}
	}
	if !json.Valid(ev.Data) {
		return RunEvent{}, &DecodeError{Data: ev.Data, Err: fmt.Errorf("payload is not valid JSON")}
	}
	return RunEvent{Type: ev.Type, Data: append(json.RawMessage(nil), ev.Data...)}, nil
}
