package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/pkg/cryptox"
	"github.com/Fahimkhan9/clubos/pkg/idx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrSessionNotFound = errors.New("session not found")
)

// DefaultSessionTTL matches the original cookie lifetime.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionService issues and validates bearer sessions. A session token is an
// HS256 JWT carrying {sub, sid, exp}; its SHA-256 fingerprint keys a
// persisted session row, so revocation works even while the JWT itself is
// still within its validity window.
type SessionService struct {
	Store     store.Store
	JWTSecret []byte
	TTL       time.Duration
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultSessionTTL
}

// Issue creates a session for userID and returns the signed bearer token
// alongside the persisted session.
func (s *SessionService) Issue(ctx context.Context, userID, userAgent, ip string) (string, domain.Session, error) {
	log := slogx.FromContext(ctx)

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl())
	sessionID := idx.New().String()

	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
	if err != nil {
		log.Error("failed to sign session token", slog.Any("error", err))
		return "", domain.Session{}, err
	}

	session := domain.Session{
		ID:         sessionID,
		UserID:     userID,
		TokenHash:  cryptox.FingerprintToken(token),
		UserAgent:  userAgent,
		IP:         ip,
		Valid:      true,
		LastActive: now,
		ExpiresAt:  expiresAt,
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		log.Error("failed to persist session",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return "", domain.Session{}, err
	}

	log.Info("session issued",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)
	return token, session, nil
}

// Authenticate validates a bearer token and returns the user and session
// behind it. The JWT is checked before any storage access so malformed or
// forged tokens never touch the database.
func (s *SessionService) Authenticate(ctx context.Context, token string) (domain.User, domain.Session, error) {
	if token == "" {
		return domain.User{}, domain.Session{}, ErrUnauthenticated
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.JWTSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.User{}, domain.Session{}, ErrSessionExpired
		}
		return domain.User{}, domain.Session{}, ErrUnauthenticated
	}

	session, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Session{}, ErrUnauthenticated
		}
		return domain.User{}, domain.Session{}, err
	}

	now := time.Now().UTC()
	if !session.Valid {
		return domain.User{}, domain.Session{}, ErrSessionRevoked
	}
	if !now.Before(session.ExpiresAt) {
		return domain.User{}, domain.Session{}, ErrSessionExpired
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Session{}, ErrUnauthenticated
		}
		return domain.User{}, domain.Session{}, err
	}

	// Best effort; authentication must not block on the activity write.
	go func(sessionID string, t time.Time) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Store.Sessions().TouchSession(ctx, sessionID, t); err != nil {
			slog.Debug("failed to touch session", slog.Any("error", err))
		}
	}(session.ID, now)

	return user, session, nil
}

// Revoke invalidates one session owned by userID. Revoking an already-revoked
// session succeeds.
func (s *SessionService) Revoke(ctx context.Context, sessionID, userID string) error {
	err := s.Store.Sessions().RevokeSession(ctx, sessionID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// RevokeAll invalidates every live session of a user. Password changes and
// resets call this so stolen tokens die with the old credential.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.Sessions().RevokeAllSessions(ctx, userID)
}

// ListActive returns the user's live sessions with token hashes blanked.
func (s *SessionService) ListActive(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.Store.Sessions().ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].TokenHash = ""
	}
	return sessions, nil
}
