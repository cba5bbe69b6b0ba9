package domain

import "context"

// Announcement is a Discord webhook message ready for delivery.
type Announcement struct {
	WebhookURL string
	Content    string
	Username   string
	AvatarURL  string
}

// AnnouncementSender delivers announcements. Delivery is attempted once.
type AnnouncementSender interface {
	Send(ctx context.Context, a Announcement) error
}
