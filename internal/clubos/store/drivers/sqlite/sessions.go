package sqlite

import (
	"context"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, token_hash, user_agent, ip, valid, last_active, expires_at, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.IP, &s.Valid,
		&s.LastActive, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, user_agent, ip, valid, last_active, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, s.UserAgent, s.IP, s.Valid, now, s.ExpiresAt.UTC(), now, now,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ?`, hash)

	s, err := scanSession(row)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) ListActiveSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = ? AND valid = 1 AND expires_at > ?
		 ORDER BY created_at DESC`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, sessionID, userID string) error {
	// Flipping an already-invalid session still matches the row, which keeps
	// revocation idempotent while an unknown/foreign id maps to not-found.
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET valid = 0, updated_at = ? WHERE id = ? AND user_id = ?`,
		time.Now().UTC(), sessionID, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *sessionsRepo) RevokeAllSessions(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET valid = 0, updated_at = ? WHERE user_id = ? AND valid = 1`,
		time.Now().UTC(), userID,
	)
	return err
}

func (r *sessionsRepo) TouchSession(ctx context.Context, sessionID string, t time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_active = ? WHERE id = ?`, t.UTC(), sessionID)
	return err
}
