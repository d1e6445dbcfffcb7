package sqlite

import (
	"context"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
)

type invitesRepo struct {
	db dbtx
}

const inviteColumns = `id, email, club_id, role, designation, token_hash, expires_at, created_at, updated_at`

func scanInvite(row interface{ Scan(...any) error }) (domain.Invite, error) {
	var inv domain.Invite
	var role string

	err := row.Scan(
		&inv.ID, &inv.Email, &inv.ClubID, &role, &inv.Designation,
		&inv.TokenHash, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invite{}, err
	}

	inv.Role = domain.Role(role)
	return inv, nil
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (id, email, club_id, role, designation, token_hash, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.ClubID, inv.Role.String(), inv.Designation,
		inv.TokenHash, inv.ExpiresAt.UTC(), now, now,
	)
	return mapConstraint(err)
}

func (r *invitesRepo) GetActiveInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE token_hash = ? AND expires_at > ?`,
		hash, time.Now().UTC(),
	)

	inv, err := scanInvite(row)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) GetActiveInviteByEmailClub(ctx context.Context, email, clubID string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE email = ? AND club_id = ? AND expires_at > ?`,
		email, clubID, time.Now().UTC(),
	)

	inv, err := scanInvite(row)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) DeleteInvite(ctx context.Context, inviteID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invites WHERE id = ?`, inviteID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *invitesRepo) DeleteExpiredInvites(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
