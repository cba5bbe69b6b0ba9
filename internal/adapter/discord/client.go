// Package discord posts go-live announcements to Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/version"
	"github.com/sony/gobreaker"
)

const (
	breakerName         = "discord"
	breakerTripFailures = 5
	breakerOpenTimeout  = 30 * time.Second
)

// StatusError is returned when Discord answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("discord webhook returned HTTP %d: %s", e.StatusCode, e.Body)
}

// webhookPayload is the subset of Discord's execute-webhook body the relay sends.
type webhookPayload struct {
	Content   string `json:"content"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Client sends announcements once, without retry. A circuit breaker fails fast
// while Discord is unavailable; per-webhook 4xx answers do not trip it.
type Client struct {
	http *http.Client
	cb   *gobreaker.CircuitBreaker
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		},
	})
	return &Client{http: httpClient, cb: cb}
}

// State reports the breaker state, for health and tests.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

func (c *Client) Send(ctx context.Context, a domain.Announcement) error {
	body, err := json.Marshal(webhookPayload{
		Content:   a.Content,
		Username:  a.Username,
		AvatarURL: a.AvatarURL,
	})
	if err != nil {
		return fmt.Errorf("failed to encode announcement: %w", err)
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, a.WebhookURL, body)
	})
	return err
}

func (c *Client) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// countsAsHealthy keeps a misconfigured webhook (404, 401, 400) from opening
// the breaker for every other broadcaster.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	if se, ok := errors.AsType[*StatusError](err); ok {
		return se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
	}
	return false
}
