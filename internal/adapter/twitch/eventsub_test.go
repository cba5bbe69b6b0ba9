package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/platform/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscriptionRequest struct {
	Type      string `json:"type"`
	Version   string `json:"version"`
	Condition struct {
		BroadcasterUserID string `json:"broadcaster_user_id"`
	} `json:"condition"`
	Transport struct {
		Method   string `json:"method"`
		Callback string `json:"callback"`
		Secret   string `json:"secret"`
	} `json:"transport"`
}

func fastRegistrar(h *HelixClient) *SubscriptionRegistrar {
	r := NewSubscriptionRegistrar(h, "https://relay.example.com/callback", testWebhookSecret)
	r.policy.InitialBackoff = time.Millisecond
	r.policy.RateLimitBackoff = time.Millisecond
	return r
}

func TestSubscriptionRegistrar_Register(t *testing.T) {
	var got subscriptionRequest
	var auth string
	h := newHelixServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eventsub/subscriptions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"data":[{"id":"sub-1","status":"webhook_callback_verification_pending","type":"stream.online","version":"1","condition":{"broadcaster_user_id":"160027788"}}],"total":1}`))
	})

	status, err := fastRegistrar(h).Register(context.Background(), "app-token", "160027788")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)

	assert.Equal(t, "Bearer app-token", auth)
	assert.Equal(t, "stream.online", got.Type)
	assert.Equal(t, "1", got.Version)
	assert.Equal(t, "160027788", got.Condition.BroadcasterUserID)
	assert.Equal(t, "webhook", got.Transport.Method)
	assert.Equal(t, "https://relay.example.com/callback", got.Transport.Callback)
	assert.Equal(t, testWebhookSecret, got.Transport.Secret)
}

func TestSubscriptionRegistrar_ConflictIsSuccess(t *testing.T) {
	h := newHelixServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"Conflict","status":409,"message":"subscription already exists"}`))
	})

	status, err := fastRegistrar(h).Register(context.Background(), "t", "1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, status)
}

func TestSubscriptionRegistrar_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	h := newHelixServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Service Unavailable","status":503,"message":""}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	status, err := fastRegistrar(h).Register(context.Background(), "t", "1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSubscriptionRegistrar_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	h := newHelixServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Forbidden","status":403,"message":"invalid transport"}`))
	})

	status, err := fastRegistrar(h).Register(context.Background(), "t", "1")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "permanent")
}

func TestClassifyEventSubError(t *testing.T) {
	assert.Equal(t, retry.After, classifyEventSubError(&statusError{StatusCode: 429}))
	assert.Equal(t, retry.Retry, classifyEventSubError(&statusError{StatusCode: 502}))
	assert.Equal(t, retry.Stop, classifyEventSubError(&statusError{StatusCode: 400}))
	assert.Equal(t, retry.Retry, classifyEventSubError(errors.New("dial tcp: connection refused")))
}
