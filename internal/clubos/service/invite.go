package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/mail"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/pkg/cryptox"
	"github.com/Fahimkhan9/clubos/pkg/idx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrAlreadyMember  = errors.New("user is already a member of this club")
	ErrInvitePending  = errors.New("an invitation is already pending for this user")
	ErrInviteNotFound = errors.New("invalid or expired invite token")
	ErrEmailMismatch  = errors.New("this invitation is not for your email")
	ErrDeliveryFailed = errors.New("failed to deliver email")
)

// InviteTTL bounds how long an invitation can be redeemed.
const InviteTTL = 7 * 24 * time.Hour

const defaultMailTimeout = 10 * time.Second

// InviteService runs the invite ledger: minting invitations for people
// without accounts, direct-adding people who already have one, and redeeming
// tokens into memberships.
type InviteService struct {
	Store       store.Store
	Mailer      mail.Mailer
	FrontendURL string

	// MailTimeout bounds the total email delivery attempt (both tries).
	MailTimeout time.Duration
}

// Invite adds email's owner to the club directly when they already have an
// account, otherwise records an invitation and emails a signup link.
// directlyAdded reports which path was taken. A delivery failure leaves the
// invite persisted and returns ErrDeliveryFailed so the caller can say
// "created, but the email bounced".
func (s *InviteService) Invite(ctx context.Context, clubID, email string, role domain.Role, designation string) (directlyAdded bool, err error) {
	log := slogx.FromContext(ctx)

	if _, ok := domain.ParseRole(role.String()); !ok {
		return false, ErrInvalidRole
	}
	email = strings.ToLower(strings.TrimSpace(email))

	club, err := s.Store.Clubs().GetClubByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrClubNotFound
		}
		return false, err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		// Existing account: add the membership right away, no invite record.
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			addErr := tx.Members().AddMember(ctx, domain.Membership{
				ClubID:      clubID,
				UserID:      user.ID,
				Role:        role,
				Designation: designation,
			})
			if errors.Is(addErr, store.ErrAlreadyExists) {
				return ErrAlreadyMember
			}
			return addErr
		})
		if err != nil {
			return false, err
		}
		log.Info("member added directly",
			slog.String("club_id", clubID),
			slog.String("user_id", user.ID),
			slog.String("role", role.String()),
		)
		return true, nil

	case errors.Is(err, store.ErrNotFound):
		// Fall through to the invite path.

	default:
		return false, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return false, err
	}

	invite := domain.Invite{
		ID:          idx.New().String(),
		Email:       email,
		ClubID:      clubID,
		Role:        role,
		Designation: designation,
		TokenHash:   cryptox.FingerprintToken(token),
		ExpiresAt:   time.Now().UTC().Add(InviteTTL),
	}

	// The pending check and the insert share a transaction so two racing
	// invites for the same (email, club) cannot both pass the check.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, txErr := tx.Invites().GetActiveInviteByEmailClub(ctx, email, clubID); txErr == nil {
			return ErrInvitePending
		} else if !errors.Is(txErr, store.ErrNotFound) {
			return txErr
		}
		return tx.Invites().CreateInvite(ctx, invite)
	})
	if err != nil {
		return false, err
	}

	if err := s.sendInviteMail(ctx, email, club.Name, token); err != nil {
		log.Warn("invite created but email delivery failed",
			slog.String("invite_id", invite.ID),
			slog.String("club_id", clubID),
			slog.Any("error", err),
		)
		return false, ErrDeliveryFailed
	}

	log.Info("invitation sent",
		slog.String("invite_id", invite.ID),
		slog.String("club_id", clubID),
		slog.String("role", role.String()),
	)
	return false, nil
}

// sendInviteMail tries delivery twice inside one bounded window so a slow
// relay can't hold the request hostage.
func (s *InviteService) sendInviteMail(ctx context.Context, email, clubName, token string) error {
	timeout := s.MailTimeout
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	subject, body := mail.InviteMessage(s.FrontendURL, clubName, token)

	err := s.Mailer.Send(ctx, email, subject, body)
	if err == nil || ctx.Err() != nil {
		return err
	}
	return s.Mailer.Send(ctx, email, subject, body)
}

// Redeem consumes an invite token for the authenticated user, appending the
// membership it encodes. When the user already belongs to the club the invite
// is cleaned up and alreadyMember is reported instead of an error.
func (s *InviteService) Redeem(ctx context.Context, userID, token string) (m domain.Membership, alreadyMember bool, err error) {
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, txErr := tx.Users().GetUserByID(ctx, userID)
		if txErr != nil {
			if errors.Is(txErr, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return txErr
		}
		m, alreadyMember, txErr = redeemInvite(ctx, tx, user, token)
		return txErr
	})
	if err != nil {
		return domain.Membership{}, false, err
	}

	slogx.FromContext(ctx).Info("invite redeemed",
		slog.String("user_id", userID),
		slog.String("club_id", m.ClubID),
		slog.Bool("already_member", alreadyMember),
	)
	return m, alreadyMember, nil
}

// redeemInvite is the shared core of invite acceptance. It runs inside an
// open transaction; registration reuses it so signup-with-token is one
// logical unit.
func redeemInvite(ctx context.Context, tx store.Tx, user domain.User, token string) (domain.Membership, bool, error) {
	invite, err := tx.Invites().GetActiveInviteByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, false, ErrInviteNotFound
		}
		return domain.Membership{}, false, err
	}

	if !strings.EqualFold(user.Email, invite.Email) {
		return domain.Membership{}, false, ErrEmailMismatch
	}

	membership := domain.Membership{
		ClubID:      invite.ClubID,
		UserID:      user.ID,
		Role:        invite.Role,
		Designation: invite.Designation,
	}

	err = tx.Members().AddMember(ctx, membership)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		// Already in the club; consume the invite and report success.
		if err := tx.Invites().DeleteInvite(ctx, invite.ID); err != nil {
			return domain.Membership{}, false, err
		}
		existing, err := tx.Members().GetMember(ctx, invite.ClubID, user.ID)
		if err != nil {
			return domain.Membership{}, false, err
		}
		return existing, true, nil
	case err != nil:
		return domain.Membership{}, false, err
	}

	if err := tx.Invites().DeleteInvite(ctx, invite.ID); err != nil {
		return domain.Membership{}, false, err
	}

	// Re-read so joined_at reflects what the row actually holds.
	created, err := tx.Members().GetMember(ctx, invite.ClubID, user.ID)
	if err != nil {
		return domain.Membership{}, false, err
	}
	return created, false, nil
}
