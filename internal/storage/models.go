package storage

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Credential keys used by the session layer.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)
