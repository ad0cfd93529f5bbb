package goAuthClient

import (
	"errors"

	"github.com/MrEthical07/goAuthClient/guard"
	"github.com/MrEthical07/goAuthClient/session"
)

var (
	// ErrInvalidCredentials is returned when the server rejects a login (4xx)
	// or when username or password is blank.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNetwork is returned on transport failure, timeout, or a 5xx response.
	ErrNetwork = errors.New("network error")
	// ErrMalformedResponse is returned when a 2xx login response lacks the
	// access token or identity object.
	ErrMalformedResponse = errors.New("malformed auth response")
	// ErrStorageCorrupt marks a half-written credential. It is healed inside
	// the token store and never returned by Client methods.
	ErrStorageCorrupt = session.ErrStorageCorrupt
	// ErrStorageUnavailable is returned when the storage backend fails.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrTransientInconsistency reports session state lagging the token store.
	// Only the guard sees it.
	ErrTransientInconsistency = guard.ErrTransientInconsistency

	// ErrLoginInFlight is returned when a login is already running.
	ErrLoginInFlight = errors.New("login already in flight")
	// ErrLoginRateLimited is returned when local login attempts exceed the
	// configured rate or the auth API answers 429.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrLoginSuperseded is returned when a logout or newer login ended the
	// session while the request was running. The result was discarded.
	ErrLoginSuperseded = errors.New("login superseded")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrClientNotReady is returned before Init has completed.
	ErrClientNotReady = errors.New("client not initialized")
)

// Notification texts returned by UserMessage.
const (
	MessageInvalidCredentials = "Incorrect username or password."
	MessageNetwork            = "Unable to reach the server. Check your connection and try again."
	MessageRateLimited        = "Too many login attempts. Please wait a moment and try again."
	MessageGeneric            = "Something went wrong. Please try again."
)

// UserMessage maps err to the text a host shows to the user. Malformed
// responses read the same as rejected credentials. It returns "" for nil and
// for errors that are never user visible.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMalformedResponse):
		return MessageInvalidCredentials
	case errors.Is(err, ErrNetwork):
		return MessageNetwork
	case errors.Is(err, ErrLoginRateLimited):
		return MessageRateLimited
	case errors.Is(err, ErrLoginInFlight),
		errors.Is(err, ErrLoginSuperseded),
		errors.Is(err, ErrStorageCorrupt),
		errors.Is(err, ErrTransientInconsistency):
		return ""
	default:
		return MessageGeneric
	}
}
