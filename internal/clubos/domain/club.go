package domain

import "time"

type Club struct {
	ID          string
	Name        string
	University  string
	SessionYear string // e.g. "2024-2025"
	About       string
	LogoURL     string
	CreatedBy   string // user id; empty if the creator's account is gone
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Membership binds one user to one club. It is owned by the club: a user only
// ever holds the club id, so role and designation are always resolved fresh
// from here.
type Membership struct {
	ClubID      string
	UserID      string
	Role        Role
	Designation string // free text, e.g. "President"
	JoinedAt    time.Time
}

// Member is a membership joined with the user's public identity, as returned
// by the members listing.
type Member struct {
	UserID      string
	Name        string
	Email       string
	Role        Role
	Designation string
	JoinedAt    time.Time
}

// ClubMembership pairs a club with the caller's own membership in it, for the
// "my clubs" listing.
type ClubMembership struct {
	Club        Club
	Role        Role
	Designation string
}
