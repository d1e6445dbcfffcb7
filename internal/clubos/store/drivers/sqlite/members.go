package sqlite

import (
	"context"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
)

type membersRepo struct {
	db dbtx
}

func (r *membersRepo) AddMember(ctx context.Context, m domain.Membership) error {
	joinedAt := m.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (club_id, user_id, role, designation, joined_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ClubID, m.UserID, m.Role.String(), m.Designation, joinedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *membersRepo) GetMember(ctx context.Context, clubID, userID string) (domain.Membership, error) {
	var m domain.Membership
	var role string

	err := r.db.QueryRowContext(ctx,
		`SELECT club_id, user_id, role, designation, joined_at
		 FROM memberships WHERE club_id = ? AND user_id = ?`,
		clubID, userID,
	).Scan(&m.ClubID, &m.UserID, &role, &m.Designation, &m.JoinedAt)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}

	m.Role = domain.Role(role)
	return m, nil
}

func (r *membersRepo) ListMembers(ctx context.Context, clubID string) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.user_id, u.name, u.email, m.role, m.designation, m.joined_at
		 FROM memberships m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.club_id = ?
		 ORDER BY m.joined_at, m.user_id`,
		clubID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var m domain.Member
		var role string
		if err := rows.Scan(&m.UserID, &m.Name, &m.Email, &role, &m.Designation, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membersRepo) UpdateMember(ctx context.Context, clubID, userID string, role *domain.Role, designation *string) error {
	var roleStr *string
	if role != nil {
		s := role.String()
		roleStr = &s
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE memberships SET
			role        = COALESCE(?, role),
			designation = COALESCE(?, designation)
		 WHERE club_id = ? AND user_id = ?`,
		roleStr, designation, clubID, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *membersRepo) RemoveMember(ctx context.Context, clubID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE club_id = ? AND user_id = ?`,
		clubID, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *membersRepo) CountAdmins(ctx context.Context, clubID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE club_id = ? AND role = 'admin'`,
		clubID,
	).Scan(&n)
	return n, err
}

func (r *membersRepo) CountMembershipsForClub(ctx context.Context, clubID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE club_id = ?`,
		clubID,
	).Scan(&n)
	return n, err
}
