package store

import (
	"context"
	"errors"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and let services state
// exactly which tables they touch.
type Store interface {
	Users() Users
	Clubs() Clubs
	Members() Members
	Invites() Invites
	Sessions() Sessions

	ApplyMigrations() error

	// WithTx executes fn within a transaction, rolling back when fn errors.
	// Every membership-list mutation runs through here so check-then-write
	// sequences (last-admin, duplicate membership) can't interleave.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Tx starts a transaction the caller commits or rolls back explicitly.
	// Prefer WithTx.
	Tx(ctx context.Context) (Tx, error)

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by lowercased email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id provided by the app via ULID).
	// Returns ErrAlreadyExists on a duplicate email.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile mutates name/bio/batch/department and bumps updated_at.
	UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) error

	UpdateAvatarURL(ctx context.Context, userID, avatarURL string) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetResetToken stores the hashed password-reset token and its expiry.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetUserByResetTokenHash returns the user holding an unexpired reset token.
	GetUserByResetTokenHash(ctx context.Context, tokenHash string) (domain.User, error)

	ClearResetToken(ctx context.Context, userID string) error

	// ClearExpiredResetTokens is housekeeping.
	ClearExpiredResetTokens(ctx context.Context) error

	// DeleteUser cascades to memberships and sessions (per schema).
	DeleteUser(ctx context.Context, userID string) error
}

// ProfileUpdate carries the mutable profile fields; nil means "leave as is".
type ProfileUpdate struct {
	Name       *string
	Bio        *string
	Batch      *string
	Department *string
}

type Clubs interface {
	// CreateClub inserts a new club. Returns ErrAlreadyExists when a club
	// with the same (name, university) pair exists.
	CreateClub(ctx context.Context, c domain.Club) error

	GetClubByID(ctx context.Context, id string) (domain.Club, error)

	// UpdateClub mutates name/university/session_year/about.
	UpdateClub(ctx context.Context, clubID string, u ClubUpdate) error

	UpdateClubLogoURL(ctx context.Context, clubID, logoURL string) error

	// DeleteClub removes the club; memberships and invites cascade away with
	// it so no member-side reference survives.
	DeleteClub(ctx context.Context, clubID string) error

	// ListClubsForUser returns every club the user belongs to together with
	// their role and designation, insertion-ordered.
	ListClubsForUser(ctx context.Context, userID string) ([]domain.ClubMembership, error)
}

// ClubUpdate carries the mutable club fields; nil means "leave as is".
type ClubUpdate struct {
	Name        *string
	University  *string
	SessionYear *string
	About       *string
}

type Members interface {
	// AddMember appends a membership. Returns ErrAlreadyExists when the
	// (club, user) pair is already present.
	AddMember(ctx context.Context, m domain.Membership) error

	// GetMember returns the membership for a (club, user) pair.
	GetMember(ctx context.Context, clubID, userID string) (domain.Membership, error)

	// ListMembers returns memberships joined with user identity, in join order.
	ListMembers(ctx context.Context, clubID string) ([]domain.Member, error)

	// UpdateMember sets role and/or designation; nil leaves a field as is.
	UpdateMember(ctx context.Context, clubID, userID string, role *domain.Role, designation *string) error

	RemoveMember(ctx context.Context, clubID, userID string) error

	// CountAdmins returns how many members hold the admin role.
	CountAdmins(ctx context.Context, clubID string) (int, error)

	// CountMembershipsForClub is used by the cascade property tests.
	CountMembershipsForClub(ctx context.Context, clubID string) (int, error)
}

type Invites interface {
	// CreateInvite writes a new invite (token_hash is the fingerprint of the
	// opaque invite token).
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetActiveInviteByTokenHash returns an unexpired invite by hash.
	GetActiveInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	// GetActiveInviteByEmailClub returns the live invite for an (email, club)
	// pair, used for the duplicate-invite check.
	GetActiveInviteByEmailClub(ctx context.Context, email, clubID string) (domain.Invite, error)

	// DeleteInvite consumes an invite.
	DeleteInvite(ctx context.Context, inviteID string) error

	// DeleteExpiredInvites is housekeeping.
	DeleteExpiredInvites(ctx context.Context) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// ListActiveSessions returns valid, unexpired sessions for a user,
	// newest first. Token hashes are included; callers must not expose them.
	ListActiveSessions(ctx context.Context, userID string) ([]domain.Session, error)

	// RevokeSession flips valid=0 for a session owned by userID. Returns
	// ErrNotFound when the session doesn't exist or belongs to someone else.
	RevokeSession(ctx context.Context, sessionID, userID string) error

	// RevokeAllSessions bulk-invalidates every live session of a user.
	RevokeAllSessions(ctx context.Context, userID string) error

	// TouchSession updates last_active; best-effort, callers may drop errors.
	TouchSession(ctx context.Context, sessionID string, t time.Time) error
}
