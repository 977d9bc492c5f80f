package domain

import "errors"

// Sentinel errors crossing the service boundary. Handlers translate
// these into HTTP error payloads; nothing else leaks to clients.
var (
	// ErrAuthFailed is deliberately uniform for unknown emails, wrong
	// passwords, and deactivated accounts so login responses cannot be
	// used to enumerate members.
	ErrAuthFailed = errors.New("invalid email or password")

	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrInviteExhausted   = errors.New("invite code exhausted")
	ErrWeakPassword      = errors.New("password does not meet minimum length")
	ErrSessionExpired    = errors.New("session expired")
	ErrUnauthorized      = errors.New("insufficient role")
	ErrNotFound          = errors.New("record not found")

	// ErrConfiguration marks a startup configuration defect. It is
	// fatal: the process refuses to serve rather than run without a
	// login-capable admin or a session signing key.
	ErrConfiguration = errors.New("configuration error")
)
