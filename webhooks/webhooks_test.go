package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func testSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString([]byte(testKey))
}

func sign(id, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testKey))
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedHeaders(id string, at time.Time, payload []byte) http.Header {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	h := http.Header{}
	h.Set("webhook-id", id)
	h.Set("webhook-timestamp", timestamp)
	h.Set("webhook-signature", sign(id, timestamp, payload))
	return h
}

func newTestVerifier(t *testing.T, at time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret())
	require.NoError(t, err)
	v.now = func() time.Time { return at }
	return v
}

func TestVerifyValidSignature(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1","type":"response.completed","created_at":1,"data":{"id":"resp_1"}}`)
	v := newTestVerifier(t, now)
	assert.NoError(t, v.Verify(payload, signedHeaders("wh_1", now, payload)))
}

func TestVerifyTamperedPayload(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)
	headers := signedHeaders("wh_1", now, payload)
	v := newTestVerifier(t, now)
	assert.ErrorIs(t, v.Verify([]byte(`{"id":"evt_2"}`), headers), ErrInvalidSignature)
}

func TestVerifyWrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)
	headers := signedHeaders("wh_1", now, payload)

	other, err := NewVerifier("whsec_" + base64.StdEncoding.EncodeToString([]byte("another-secret-key-entirely-here")))
	require.NoError(t, err)
	other.now = func() time.Time { return now }
	assert.ErrorIs(t, other.Verify(payload, headers), ErrInvalidSignature)
}

func TestVerifyStaleTimestamp(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)
	v := newTestVerifier(t, now)

	stale := signedHeaders("wh_1", now.Add(-10*time.Minute), payload)
	assert.ErrorIs(t, v.Verify(payload, stale), ErrTimestampOutOfTolerance)

	future := signedHeaders("wh_1", now.Add(10*time.Minute), payload)
	assert.ErrorIs(t, v.Verify(payload, future), ErrTimestampOutOfTolerance)

	// A wider tolerance admits the same delivery.
	v.WithTolerance(time.Hour)
	assert.NoError(t, v.Verify(payload, stale))
}

func TestVerifyMissingHeaders(t *testing.T) {
	v := newTestVerifier(t, time.Now())
	assert.ErrorIs(t, v.Verify([]byte(`{}`), http.Header{}), ErrMissingHeader)
}

func TestVerifyKeyRotation(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)
	timestamp := strconv.FormatInt(now.Unix(), 10)

	h := http.Header{}
	h.Set("webhook-id", "wh_1")
	h.Set("webhook-timestamp", timestamp)
	// An old key's signature followed by the current one.
	h.Set("webhook-signature", "v1,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA= "+sign("wh_1", timestamp, payload))

	v := newTestVerifier(t, now)
	assert.NoError(t, v.Verify(payload, h))
}

func TestNewVerifierRejectsBadSecrets(t *testing.T) {
	_, err := NewVerifier("not-prefixed")
	assert.Error(t, err)

	_, err = NewVerifier("whsec_%%%not-base64%%%")
	assert.Error(t, err)
}

func TestUnwrap(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1","type":"response.completed","created_at":1700000000,"data":{"id":"resp_1"}}`)
	v := newTestVerifier(t, now)

	event, err := v.Unwrap(payload, signedHeaders("wh_1", now, payload))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "response.completed", event.Type)
	assert.JSONEq(t, `{"id":"resp_1"}`, string(event.Data))

	_, err = v.Unwrap([]byte(`{"tampered":true}`), signedHeaders("wh_1", now, payload))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
