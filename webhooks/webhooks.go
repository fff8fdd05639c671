// Package webhooks verifies signatures on platform webhook deliveries.
//
// Signatures follow the Standard Webhooks scheme: HMAC-SHA256 over
// "{id}.{timestamp}.{payload}" with a base64 secret, sent alongside the
// delivery ID and timestamp headers.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	headerID        = "webhook-id"
	headerTimestamp = "webhook-timestamp"
	headerSignature = "webhook-signature"

	secretPrefix     = "whsec_"
	defaultTolerance = 5 * time.Minute
)

var (
	// ErrInvalidSignature means no signature in the header matched the
	// payload.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	// ErrTimestampOutOfTolerance means the delivery timestamp is too far
	// from the current time in either direction.
	ErrTimestampOutOfTolerance = errors.New("webhook timestamp outside of tolerance")
	// ErrMissingHeader means a required webhook header is absent.
	ErrMissingHeader = errors.New("missing webhook header")
)

// Event is the outer envelope of a webhook delivery.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt int64           `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// Verifier checks webhook deliveries against one signing secret.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier parses a "whsec_"-prefixed base64 signing secret.
func NewVerifier(secret string) (*Verifier, error) {
	encoded, ok := strings.CutPrefix(secret, secretPrefix)
	if !ok {
		return nil, fmt.Errorf("signing secret must start with %q", secretPrefix)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("error decoding signing secret: %w", err)
	}
	return &Verifier{secret: key, tolerance: defaultTolerance, now: time.Now}, nil
}

// WithTolerance sets the accepted clock skew between delivery and receipt.
func (v *Verifier) WithTolerance(tolerance time.Duration) *Verifier {
	v.tolerance = tolerance
	return v
}

// Verify checks the delivery's signature and timestamp. The payload must be
// the raw request body, unmodified.
func (v *Verifier) Verify(payload []byte, headers http.Header) error {
	id := headers.Get(headerID)
	timestamp := headers.Get(headerTimestamp)
	signatures := headers.Get(headerSignature)
	if id == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeader
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid webhook timestamp: %w", err)
	}
	age := v.now().Sub(time.Unix(unix, 0))
	if age > v.tolerance || age < -v.tolerance {
		return ErrTimestampOutOfTolerance
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	// The header may carry several space-separated signatures during key
	// rotation; any single match verifies the delivery.
	for _, entry := range strings.Fields(signatures) {
		encoded, ok := strings.CutPrefix(entry, "v1,")
		if !ok {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Unwrap verifies the delivery and decodes the event envelope.
func (v *Verifier) Unwrap(payload []byte, headers http.Header) (*Event, error) {
	if err := v.Verify(payload, headers); err != nil {
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("error decoding webhook payload: %w", err)
	}
	return &event, nil
}
