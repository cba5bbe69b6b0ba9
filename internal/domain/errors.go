package domain

import "errors"

var (
	ErrBroadcasterNotFound = errors.New("broadcaster not found")
	ErrTokenNotFound       = errors.New("access token not found")
	ErrDirectoryReadOnly   = errors.New("broadcaster directory is read-only")
	ErrUpstreamToken       = errors.New("stream lookup failed after token refresh")
	ErrInvalidStreamData   = errors.New("invalid stream data")
)
