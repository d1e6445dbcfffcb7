package domain

import "time"

// Session is one authenticated device/login instance. Sessions are flagged
// invalid on logout rather than deleted, keeping an audit trail.
type Session struct {
	ID         string
	UserID     string
	TokenHash  string // SHA-256 fingerprint of the bearer token
	UserAgent  string
	IP         string
	Valid      bool
	LastActive time.Time
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Live reports whether the session can still authenticate a request at t.
func (s Session) Live(t time.Time) bool {
	return s.Valid && t.Before(s.ExpiresAt)
}
