// Package auth provides session and client value types and pure validation
// functions. This package has NO dependencies on I/O or external packages.
package auth

import "time"

// Client is an API consumer identified by name and a hashed secret.
type Client struct {
	Name       string
	SecretHash []byte // bcrypt hash of the client secret
	CreatedAt  time.Time
}

// Session represents an authenticated client session (immutable value type).
type Session struct {
	Token      string
	ClientName string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the session has expired at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// VerifyResult is the outcome of session verification.
type VerifyResult struct {
	Verified bool
	Session  Session // populated only when Verified
	Reason   string  // populated only when !Verified
}

// Reasons for verification failure.
const (
	ReasonNotFound = "session_not_found"
	ReasonExpired  = "session_expired"
	ReasonNoToken  = "missing_token"
)
