package app

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	apperrors "github.com/OtterDevelopment/twitch-hook/internal/platform/errors"
)

// Broadcasters administers the directory. Writes fail with an unsupported
// error when the configured directory is read-only.
type Broadcasters struct {
	directory domain.BroadcasterDirectory
}

func NewBroadcasters(directory domain.BroadcasterDirectory) *Broadcasters {
	return &Broadcasters{directory: directory}
}

func (b *Broadcasters) List(ctx context.Context) ([]domain.BroadcasterEntry, error) {
	entries, err := b.directory.List(ctx)
	if err != nil {
		return nil, apperrors.InternalError("failed to list broadcasters", err)
	}
	return entries, nil
}

func (b *Broadcasters) Get(ctx context.Context, broadcasterID string) (*domain.BroadcasterEntry, error) {
	entry, err := b.directory.Lookup(ctx, broadcasterID)
	if errors.Is(err, domain.ErrBroadcasterNotFound) {
		return nil, apperrors.NotFoundError("broadcaster not found").WithContext("broadcaster_id", broadcasterID)
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to look up broadcaster", err)
	}
	return entry, nil
}

func (b *Broadcasters) Save(ctx context.Context, entry domain.BroadcasterEntry) (*domain.BroadcasterEntry, error) {
	repo, err := b.writable()
	if err != nil {
		return nil, err
	}

	entry.DisplayName = strings.TrimSpace(entry.DisplayName)
	entry.RequiredTitleKeyword = strings.TrimSpace(entry.RequiredTitleKeyword)
	if err := ValidateEntry(entry); err != nil {
		return nil, err
	}

	saved, err := repo.Upsert(ctx, entry)
	if err != nil {
		return nil, apperrors.InternalError("failed to save broadcaster", err)
	}
	return saved, nil
}

func (b *Broadcasters) Delete(ctx context.Context, broadcasterID string) error {
	repo, err := b.writable()
	if err != nil {
		return err
	}

	err = repo.Delete(ctx, broadcasterID)
	if errors.Is(err, domain.ErrBroadcasterNotFound) {
		return apperrors.NotFoundError("broadcaster not found").WithContext("broadcaster_id", broadcasterID)
	}
	if err != nil {
		return apperrors.InternalError("failed to delete broadcaster", err)
	}
	return nil
}

func (b *Broadcasters) writable() (domain.BroadcasterRepository, error) {
	repo, ok := b.directory.(domain.BroadcasterRepository)
	if !ok {
		return nil, apperrors.UnsupportedError("broadcaster directory is read-only", domain.ErrDirectoryReadOnly)
	}
	return repo, nil
}

// ValidateEntry checks an entry before it is written to the directory.
func ValidateEntry(entry domain.BroadcasterEntry) error {
	if entry.BroadcasterID == "" {
		return apperrors.ValidationError("broadcaster_id is required")
	}
	for _, r := range entry.BroadcasterID {
		if r < '0' || r > '9' {
			return apperrors.ValidationError("broadcaster_id must be numeric").WithContext("broadcaster_id", entry.BroadcasterID)
		}
	}
	if err := validateURL("webhook_url", entry.WebhookURL, true); err != nil {
		return err
	}
	return validateURL("avatar_url", entry.AvatarURL, false)
}

func validateURL(field, raw string, required bool) error {
	if raw == "" {
		if required {
			return apperrors.ValidationError(field + " is required")
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return apperrors.ValidationError(field + " must be an absolute http(s) URL")
	}
	return nil
}
