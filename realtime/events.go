package realtime

import (
	"encoding/json"

	"github.com/fenlight/go-oai/oai"
)

// ClientEvent is an event the caller sends over the session. The concrete
// types below cover session configuration, audio buffering, conversation
// items, and response control.
type ClientEvent interface {
	eventType() string
}

// SessionConfig is the mutable part of a realtime session.
type SessionConfig struct {
	Modalities        []string `json:"modalities,omitempty"`
	Instructions      string   `json:"instructions,omitempty"`
	Voice             string   `json:"voice,omitempty"`
	InputAudioFormat  string   `json:"input_audio_format,omitempty"`
	OutputAudioFormat string   `json:"output_audio_format,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
}

type SessionUpdate struct {
	Session SessionConfig `json:"session"`
}

func (SessionUpdate) eventType() string { return "session.update" }

// InputAudioBufferAppend carries base64-encoded audio for the input buffer.
type InputAudioBufferAppend struct {
	Audio string `json:"audio"`
}

func (InputAudioBufferAppend) eventType() string { return "input_audio_buffer.append" }

type InputAudioBufferCommit struct{}

func (InputAudioBufferCommit) eventType() string { return "input_audio_buffer.commit" }

type InputAudioBufferClear struct{}

func (InputAudioBufferClear) eventType() string { return "input_audio_buffer.clear" }

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

type ConversationItemCreate struct {
	Item ConversationItem `json:"item"`
}

func (ConversationItemCreate) eventType() string { return "conversation.item.create" }

type ResponseConfig struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

type ResponseCreate struct {
	Response *ResponseConfig `json:"response,omitempty"`
}

func (ResponseCreate) eventType() string { return "response.create" }

type ResponseCancel struct {
	ResponseID string `json:"response_id,omitempty"`
}

func (ResponseCancel) eventType() string { return "response.cancel" }

// ServerEvent is an event received from the server. Use a type switch over
// the concrete types to handle it.
type ServerEvent interface {
	ServerEventType() string
}

// ErrorDetail mirrors the error payload of an "error" server event.
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

type ErrorEvent struct {
	EventID string      `json:"event_id"`
	Error   ErrorDetail `json:"error"`
}

func (ErrorEvent) ServerEventType() string { return "error" }

type SessionCreated struct {
	EventID string          `json:"event_id"`
	Session json.RawMessage `json:"session"`
}

func (SessionCreated) ServerEventType() string { return "session.created" }

type SessionUpdated struct {
	EventID string          `json:"event_id"`
	Session json.RawMessage `json:"session"`
}

func (SessionUpdated) ServerEventType() string { return "session.updated" }

type ConversationItemAdded struct {
	EventID string          `json:"event_id"`
	Item    json.RawMessage `json:"item"`
}

func (ConversationItemAdded) ServerEventType() string { return "conversation.item.added" }

type InputAudioBufferCommitted struct {
	EventID        string `json:"event_id"`
	PreviousItemID string `json:"previous_item_id,omitempty"`
	ItemID         string `json:"item_id"`
}

func (InputAudioBufferCommitted) ServerEventType() string { return "input_audio_buffer.committed" }

type InputAudioBufferSpeechStarted struct {
	EventID      string `json:"event_id"`
	AudioStartMS int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

func (InputAudioBufferSpeechStarted) ServerEventType() string {
	return "input_audio_buffer.speech_started"
}

type InputAudioBufferSpeechStopped struct {
	EventID    string `json:"event_id"`
	AudioEndMS int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

func (InputAudioBufferSpeechStopped) ServerEventType() string {
	return "input_audio_buffer.speech_stopped"
}

type ResponseCreated struct {
	EventID  string          `json:"event_id"`
	Response json.RawMessage `json:"response"`
}

func (ResponseCreated) ServerEventType() string { return "response.created" }

type ResponseOutputTextDelta struct {
	EventID      string `json:"event_id"`
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

func (ResponseOutputTextDelta) ServerEventType() string { return "response.output_text.delta" }

// ResponseOutputAudioDelta carries a base64-encoded audio fragment.
type ResponseOutputAudioDelta struct {
	EventID     string `json:"event_id"`
	ResponseID  string `json:"response_id"`
	ItemID      string `json:"item_id"`
	OutputIndex int    `json:"output_index"`
	Delta       string `json:"delta"`
}

func (ResponseOutputAudioDelta) ServerEventType() string { return "response.output_audio.delta" }

type ResponseOutputAudioTranscriptDelta struct {
	EventID    string `json:"event_id"`
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	Delta      string `json:"delta"`
}

func (ResponseOutputAudioTranscriptDelta) ServerEventType() string {
	return "response.output_audio_transcript.delta"
}

type ResponseDone struct {
	EventID  string          `json:"event_id"`
	Response json.RawMessage `json:"response"`
}

func (ResponseDone) ServerEventType() string { return "response.done" }

type RateLimit struct {
	Name         string  `json:"name"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	ResetSeconds float64 `json:"reset_seconds"`
}

type RateLimitsUpdated struct {
	EventID    string      `json:"event_id"`
	RateLimits []RateLimit `json:"rate_limits"`
}

func (RateLimitsUpdated) ServerEventType() string { return "rate_limits.updated" }

// decodeServerEvent dispatches one frame by its type discriminant. An
// unrecognized type or malformed payload is a per-event error; the session
// keeps reading.
func decodeServerEvent(data []byte) (ServerEvent, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &oai.DecodeError{Data: data, Err: err}
	}

	var event ServerEvent
	switch envelope.Type {
	case "error":
		event = &ErrorEvent{}
	case "session.created":
		event = &SessionCreated{}
	case "session.updated":
		event = &SessionUpdated{}
	case "conversation.item.added":
		event = &ConversationItemAdded{}
	case "input_audio_buffer.committed":
		event = &InputAudioBufferCommitted{}
	case "input_audio_buffer.speech_started":
		event = &InputAudioBufferSpeechStarted{}
	case "input_audio_buffer.speech_stopped":
		event = &InputAudioBufferSpeechStopped{}
	case "response.created":
		event = &ResponseCreated{}
	case "response.output_text.delta":
		event = &ResponseOutputTextDelta{}
	case "response.output_audio.delta":
		event = &ResponseOutputAudioDelta{}
	case "response.output_audio_transcript.delta":
		event = &ResponseOutputAudioTranscriptDelta{}
	case "response.done":
		event = &ResponseDone{}
	case "rate_limits.updated":
		event = &RateLimitsUpdated{}
	default:
		return nil, &oai.UnknownEventError{Type: envelope.Type, Data: data}
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, &oai.DecodeError{Data: data, Err: err}
	}
	return event, nil
}
