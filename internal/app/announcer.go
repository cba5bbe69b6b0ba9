package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	apperrors "github.com/OtterDevelopment/twitch-hook/internal/platform/errors"
)

// Outcome labels for announcement attempts.
const (
	OutcomeSent               = "sent"
	OutcomeFiltered           = "filtered"
	OutcomeUnknownBroadcaster = "unknown_broadcaster"
	OutcomeFailed             = "failed"
)

// Announcer resolves a broadcaster's Discord target and posts the go-live message.
type Announcer struct {
	directory domain.BroadcasterDirectory
	sender    domain.AnnouncementSender
}

func NewAnnouncer(directory domain.BroadcasterDirectory, sender domain.AnnouncementSender) *Announcer {
	return &Announcer{directory: directory, sender: sender}
}

// Announce posts at most one message. Unknown broadcasters and titles missing the
// required keyword are skipped without error.
func (a *Announcer) Announce(ctx context.Context, snapshot domain.StreamSnapshot) (string, error) {
	entry, err := a.directory.Lookup(ctx, snapshot.BroadcasterID)
	if errors.Is(err, domain.ErrBroadcasterNotFound) {
		slog.InfoContext(ctx, "No announcement target for broadcaster", "broadcaster_id", snapshot.BroadcasterID)
		return OutcomeUnknownBroadcaster, nil
	}
	if err != nil {
		return OutcomeFailed, apperrors.DispatchError("broadcaster directory lookup failed", err).
			WithContext("broadcaster_id", snapshot.BroadcasterID)
	}

	if !TitleMatches(entry.RequiredTitleKeyword, snapshot.Title) {
		slog.InfoContext(ctx, "Stream title does not contain required keyword, skipping announcement",
			"broadcaster_id", snapshot.BroadcasterID, "keyword", entry.RequiredTitleKeyword, "title", snapshot.Title)
		return OutcomeFiltered, nil
	}

	displayName := entry.DisplayName
	if displayName == "" {
		displayName = snapshot.BroadcasterDisplayName
	}

	msg := domain.Announcement{
		WebhookURL: entry.WebhookURL,
		Content:    FormatAnnouncement(displayName, snapshot.Title),
		Username:   entry.Username,
		AvatarURL:  entry.AvatarURL,
	}
	if err := a.sender.Send(ctx, msg); err != nil {
		return OutcomeFailed, apperrors.DispatchError("discord webhook delivery failed", err).
			WithContext("broadcaster_id", snapshot.BroadcasterID)
	}

	slog.InfoContext(ctx, "Announcement sent", "broadcaster_id", snapshot.BroadcasterID, "display_name", displayName)
	return OutcomeSent, nil
}

// TitleMatches reports whether title contains keyword, ignoring case.
// An empty keyword matches every title.
func TitleMatches(keyword, title string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(keyword))
}

func FormatAnnouncement(displayName, title string) string {
	content := fmt.Sprintf("%s is now live on Twitch!", displayName)
	if title != "" {
		content += fmt.Sprintf(" They'll be streaming %s.", title)
	}
	return content
}
