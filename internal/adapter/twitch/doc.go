// Package twitch talks to Twitch: the app access token, Helix channel lookups,
// EventSub subscription creation, and the inbound EventSub webhook.
package twitch
