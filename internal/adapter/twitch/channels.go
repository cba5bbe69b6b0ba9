package twitch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/version"
	"github.com/nicklaw5/helix/v2"
)

// HelixClient holds the shared Helix options. Each call gets its own
// helix.Client carrying the caller's token and context, so lookups never
// wait on each other.
type HelixClient struct {
	opts helix.Options
}

// NewHelixClient builds a Helix client. apiBaseURL may be empty for the public API.
func NewHelixClient(clientID, apiBaseURL string, httpClient *http.Client) (*HelixClient, error) {
	opts := helix.Options{
		ClientID:  clientID,
		UserAgent: version.UserAgent(),
	}
	if apiBaseURL != "" {
		opts.APIBaseURL = apiBaseURL
	}
	if httpClient != nil {
		opts.HTTPClient = httpClient
	}

	h := &HelixClient{opts: opts}
	if _, err := h.client(context.Background(), ""); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *HelixClient) client(ctx context.Context, token string) (*helix.Client, error) {
	opts := h.opts
	opts.AppAccessToken = token
	client, err := helix.NewClientWithContext(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}
	return client, nil
}

func (h *HelixClient) with(ctx context.Context, token string, fn func(c *helix.Client) error) error {
	client, err := h.client(ctx, token)
	if err != nil {
		return err
	}
	return fn(client)
}

// ChannelClient looks up channel information for a broadcaster.
type ChannelClient struct {
	helix *HelixClient
}

func NewChannelClient(h *HelixClient) *ChannelClient {
	return &ChannelClient{helix: h}
}

// LookupChannel issues one GET /channels request. Non-200 statuses are returned, not retried.
func (c *ChannelClient) LookupChannel(ctx context.Context, token, broadcasterID string) (*domain.ChannelLookup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var resp *helix.GetChannelInformationResponse
	err := c.helix.with(ctx, token, func(client *helix.Client) error {
		var err error
		resp, err = client.GetChannelInformation(&helix.GetChannelInformationParams{
			BroadcasterIDs: []string{broadcasterID},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("channel lookup request failed: %w", err)
	}

	lookup := &domain.ChannelLookup{StatusCode: resp.StatusCode}
	for _, ch := range resp.Data.Channels {
		lookup.Channels = append(lookup.Channels, domain.StreamSnapshot{
			BroadcasterID:          ch.BroadcasterID,
			BroadcasterDisplayName: ch.BroadcasterName,
			Title:                  ch.Title,
		})
	}
	return lookup, nil
}
