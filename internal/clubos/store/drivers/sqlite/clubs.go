package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
)

type clubsRepo struct {
	db dbtx
}

const clubColumns = `id, name, university, session_year, about, logo_url, created_by, archived, created_at, updated_at`

func scanClub(row interface{ Scan(...any) error }) (domain.Club, error) {
	var c domain.Club
	var createdBy sql.NullString

	err := row.Scan(
		&c.ID, &c.Name, &c.University, &c.SessionYear, &c.About, &c.LogoURL,
		&createdBy, &c.Archived, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Club{}, err
	}

	if createdBy.Valid {
		c.CreatedBy = createdBy.String
	}
	return c, nil
}

func (r *clubsRepo) CreateClub(ctx context.Context, c domain.Club) error {
	now := time.Now().UTC()
	var createdBy any
	if c.CreatedBy != "" {
		createdBy = c.CreatedBy
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clubs (id, name, university, session_year, about, logo_url, created_by, archived, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.University, c.SessionYear, c.About, c.LogoURL, createdBy, c.Archived, now, now,
	)
	return mapConstraint(err)
}

func (r *clubsRepo) GetClubByID(ctx context.Context, id string) (domain.Club, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clubColumns+` FROM clubs WHERE id = ?`, id)

	c, err := scanClub(row)
	if err != nil {
		return domain.Club{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clubsRepo) UpdateClub(ctx context.Context, clubID string, u store.ClubUpdate) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clubs SET
			name         = COALESCE(?, name),
			university   = COALESCE(?, university),
			session_year = COALESCE(?, session_year),
			about        = COALESCE(?, about),
			updated_at   = ?
		 WHERE id = ?`,
		u.Name, u.University, u.SessionYear, u.About, time.Now().UTC(), clubID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *clubsRepo) UpdateClubLogoURL(ctx context.Context, clubID, logoURL string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clubs SET logo_url = ?, updated_at = ? WHERE id = ?`,
		logoURL, time.Now().UTC(), clubID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *clubsRepo) DeleteClub(ctx context.Context, clubID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clubs WHERE id = ?`, clubID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *clubsRepo) ListClubsForUser(ctx context.Context, userID string) ([]domain.ClubMembership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.university, c.session_year, c.about, c.logo_url,
		        c.created_by, c.archived, c.created_at, c.updated_at,
		        m.role, m.designation
		 FROM memberships m
		 JOIN clubs c ON c.id = m.club_id
		 WHERE m.user_id = ?
		 ORDER BY m.joined_at, c.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClubMembership
	for rows.Next() {
		var cm domain.ClubMembership
		var createdBy sql.NullString
		var role string

		err := rows.Scan(
			&cm.Club.ID, &cm.Club.Name, &cm.Club.University, &cm.Club.SessionYear,
			&cm.Club.About, &cm.Club.LogoURL, &createdBy, &cm.Club.Archived,
			&cm.Club.CreatedAt, &cm.Club.UpdatedAt, &role, &cm.Designation,
		)
		if err != nil {
			return nil, err
		}

		if createdBy.Valid {
			cm.Club.CreatedBy = createdBy.String
		}
		cm.Role = domain.Role(role)
		out = append(out, cm)
	}
	return out, rows.Err()
}
