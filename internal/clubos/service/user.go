package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/mail"
	"github.com/Fahimkhan9/clubos/internal/clubos/media"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/pkg/cryptox"
	"github.com/Fahimkhan9/clubos/pkg/idx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrResetTokenInvalid  = errors.New("reset token is invalid or expired")
)

// ResetTokenTTL bounds the password-reset window.
const ResetTokenTTL = 15 * time.Minute

const avatarFolder = "clubos/avatars"

// UserService owns accounts: registration, credentials, profile, and the
// password reset loop.
type UserService struct {
	Store       store.Store
	Sessions    *SessionService
	Mailer      mail.Mailer
	Media       media.Storage
	FrontendURL string
}

// RegisterParams carries signup input. InviteToken is optional; when present
// the invite is redeemed in the same transaction as user creation, so a bad
// token fails the whole signup.
type RegisterParams struct {
	Name        string
	Email       string
	Password    string
	InviteToken string
	UserAgent   string
	IP          string
}

// Register creates the account and signs the new user in.
func (s *UserService) Register(ctx context.Context, p RegisterParams) (domain.User, string, domain.Session, error) {
	log := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, "", domain.Session{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Name:         strings.TrimSpace(p.Name),
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		PasswordHash: hash,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		if p.InviteToken != "" {
			if _, _, err := redeemInvite(ctx, tx, user, p.InviteToken); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.User{}, "", domain.Session{}, err
	}

	token, session, err := s.Sessions.Issue(ctx, user.ID, p.UserAgent, p.IP)
	if err != nil {
		return domain.User{}, "", domain.Session{}, err
	}

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.Bool("via_invite", p.InviteToken != ""),
	)
	return user, token, session, nil
}

// SignIn verifies credentials and issues a fresh session for this device.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) SignIn(ctx context.Context, email, password, userAgent, ip string) (domain.User, string, domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, "", domain.Session{}, ErrInvalidCredentials
		}
		return domain.User{}, "", domain.Session{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, "", domain.Session{}, ErrInvalidCredentials
		}
		return domain.User{}, "", domain.Session{}, err
	}

	token, session, err := s.Sessions.Issue(ctx, user.ID, userAgent, ip)
	if err != nil {
		return domain.User{}, "", domain.Session{}, err
	}
	return user, token, session, nil
}

// Profile returns the user's account record.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// UpdateProfile applies the provided field changes.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, p store.ProfileUpdate) (domain.User, error) {
	err := s.Store.Users().UpdateProfile(ctx, userID, p)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return s.Profile(ctx, userID)
}

// UpdateAvatar uploads a new avatar and removes the previous one.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, r io.Reader, filename string) (string, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.Media.Upload(ctx, r, filename, avatarFolder)
	if err != nil {
		return "", err
	}

	if err := s.Store.Users().UpdateAvatarURL(ctx, userID, url); err != nil {
		return "", err
	}

	if user.AvatarURL != "" {
		if err := s.Media.Delete(ctx, user.AvatarURL); err != nil {
			log.Warn("failed to delete old avatar",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
		}
	}
	return url, nil
}

// ChangePassword verifies the current password, swaps in the new hash, and
// revokes every session so stolen tokens die with the old credential.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	return s.Sessions.RevokeAll(ctx, userID)
}

// ForgotPassword mints a short-lived reset token and emails its link. Only
// the token's fingerprint is stored.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	expiresAt := time.Now().UTC().Add(ResetTokenTTL)
	if err := s.Store.Users().SetResetToken(ctx, user.ID, cryptox.FingerprintToken(token), expiresAt); err != nil {
		return err
	}

	subject, body := mail.ResetMessage(s.FrontendURL, token)
	mailCtx, cancel := context.WithTimeout(ctx, defaultMailTimeout)
	defer cancel()
	if err := s.Mailer.Send(mailCtx, email, subject, body); err != nil {
		log.Warn("failed to send reset email",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return ErrDeliveryFailed
	}

	log.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword consumes a reset token, installs the new password, and
// revokes every session.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.Store.Users().GetUserByResetTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	if err := s.Store.Users().ClearResetToken(ctx, user.ID); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset completed", slog.String("user_id", user.ID))
	return s.Sessions.RevokeAll(ctx, user.ID)
}

// DeleteAccount removes the user; memberships and sessions cascade away with
// the row. The avatar is cleaned up best effort.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.AvatarURL != "" {
		if err := s.Media.Delete(ctx, user.AvatarURL); err != nil {
			log.Warn("failed to delete avatar",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
		}
	}

	log.Info("account deleted", slog.String("user_id", userID))
	return nil
}
