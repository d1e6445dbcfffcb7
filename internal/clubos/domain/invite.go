package domain

import "time"

// Invite binds an email address to a club role before the invitee has an
// account. At most one live (unexpired) invite exists per (email, club) pair,
// and redeeming consumes the record.
type Invite struct {
	ID          string
	Email       string // lowercased
	ClubID      string
	Role        Role
	Designation string
	TokenHash   string // SHA-256 fingerprint of the opaque invite token
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
