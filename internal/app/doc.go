// Package app provides the application service layer.
//
// Relay turns a verified stream.online notification into a channel lookup and a
// fire-and-forget Discord announcement. Registrar subscribes every known
// broadcaster on Twitch, and Broadcasters backs the admin API. Depends on
// domain interfaces, not concrete implementations.
package app
