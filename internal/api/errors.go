package api

import "fmt"

// AuthError reports that the service rejected the session token. Callers
// treat it as a forced-logout trigger.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Message
}

// RequestError is any non-auth failure: a non-2xx response or a transport
// error (StatusCode 0). Cached data from earlier successful reads stays
// valid when one of these surfaces.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
