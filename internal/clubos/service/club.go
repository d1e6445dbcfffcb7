package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/media"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/pkg/idx"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

var (
	ErrClubNotFound     = errors.New("club not found")
	ErrClubExists       = errors.New("a club with this name already exists in this university")
	ErrMemberNotFound   = errors.New("member not found")
	ErrNotClubMember    = errors.New("not a member of this club")
	ErrInsufficientRole = errors.New("insufficient role for this action")
	ErrCannotRemoveSelf = errors.New("cannot remove yourself from the club")
	ErrLastAdmin        = errors.New("club must retain at least one admin")
)

const logoFolder = "clubos/logos"

// ClubService owns clubs and their membership lists. Every membership
// mutation runs inside a transaction so check-then-write sequences cannot
// interleave.
type ClubService struct {
	Store store.Store
	Media media.Storage
}

// Create registers a new club; the creator joins as its first admin in the
// same transaction.
func (s *ClubService) Create(ctx context.Context, actorID, name, university, sessionYear, designation string) (domain.Club, error) {
	log := slogx.FromContext(ctx)

	club := domain.Club{
		ID:          idx.New().String(),
		Name:        strings.TrimSpace(name),
		University:  strings.TrimSpace(university),
		SessionYear: sessionYear,
		CreatedBy:   actorID,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Clubs().CreateClub(ctx, club); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrClubExists
			}
			return err
		}
		return tx.Members().AddMember(ctx, domain.Membership{
			ClubID:      club.ID,
			UserID:      actorID,
			Role:        domain.RoleAdmin,
			Designation: designation,
		})
	})
	if err != nil {
		return domain.Club{}, err
	}

	log.Info("club created",
		slog.String("club_id", club.ID),
		slog.String("created_by", actorID),
	)
	return club, nil
}

func (s *ClubService) Get(ctx context.Context, clubID string) (domain.Club, error) {
	club, err := s.Store.Clubs().GetClubByID(ctx, clubID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Club{}, ErrClubNotFound
	}
	return club, err
}

// ListMine returns every club the user belongs to along with their own role
// and designation in each.
func (s *ClubService) ListMine(ctx context.Context, userID string) ([]domain.ClubMembership, error) {
	return s.Store.Clubs().ListClubsForUser(ctx, userID)
}

// Update applies the provided club field changes.
func (s *ClubService) Update(ctx context.Context, clubID string, u store.ClubUpdate) (domain.Club, error) {
	if err := s.Store.Clubs().UpdateClub(ctx, clubID, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Club{}, ErrClubNotFound
		}
		return domain.Club{}, err
	}
	return s.Get(ctx, clubID)
}

// UpdateLogo uploads a new logo and removes the previous one.
func (s *ClubService) UpdateLogo(ctx context.Context, clubID string, r io.Reader, filename string) (string, error) {
	log := slogx.FromContext(ctx)

	club, err := s.Get(ctx, clubID)
	if err != nil {
		return "", err
	}

	url, err := s.Media.Upload(ctx, r, filename, logoFolder)
	if err != nil {
		return "", err
	}

	if err := s.Store.Clubs().UpdateClubLogoURL(ctx, clubID, url); err != nil {
		return "", err
	}

	if club.LogoURL != "" {
		if err := s.Media.Delete(ctx, club.LogoURL); err != nil {
			log.Warn("failed to delete old logo",
				slog.String("club_id", clubID),
				slog.Any("error", err),
			)
		}
	}
	return url, nil
}

// Delete removes the club; memberships and invites cascade away with the row
// so no member-side reference survives. The logo is cleaned up best effort.
func (s *ClubService) Delete(ctx context.Context, clubID string) error {
	log := slogx.FromContext(ctx)

	club, err := s.Get(ctx, clubID)
	if err != nil {
		return err
	}

	if err := s.Store.Clubs().DeleteClub(ctx, clubID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClubNotFound
		}
		return err
	}

	if club.LogoURL != "" {
		if err := s.Media.Delete(ctx, club.LogoURL); err != nil {
			log.Warn("failed to delete logo",
				slog.String("club_id", clubID),
				slog.Any("error", err),
			)
		}
	}

	log.Info("club deleted", slog.String("club_id", clubID))
	return nil
}

// Members lists the club's membership roll with user identity attached.
func (s *ClubService) Members(ctx context.Context, clubID string) ([]domain.Member, error) {
	if _, err := s.Get(ctx, clubID); err != nil {
		return nil, err
	}
	return s.Store.Members().ListMembers(ctx, clubID)
}

// ResolveRole looks up userID's role in the club. This is the single source
// the authorization guard consults; roles are never cached elsewhere.
func (s *ClubService) ResolveRole(ctx context.Context, clubID, userID string) (domain.Role, error) {
	m, err := s.Store.Members().GetMember(ctx, clubID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotClubMember
		}
		return "", err
	}
	return m.Role, nil
}

// RemoveMember strips targetID's membership. Admins cannot remove themselves,
// which also means a removal can never leave the club adminless.
func (s *ClubService) RemoveMember(ctx context.Context, clubID, actorID, targetID string) error {
	if actorID == targetID {
		return ErrCannotRemoveSelf
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Members().RemoveMember(ctx, clubID, targetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("member removed",
		slog.String("club_id", clubID),
		slog.String("user_id", targetID),
		slog.String("removed_by", actorID),
	)
	return nil
}

// UpdateMember changes targetID's role and/or designation. Demoting the last
// admin is refused; the count check and the write share a transaction so no
// interleaving can slip a club below one admin.
func (s *ClubService) UpdateMember(ctx context.Context, clubID, actorID, targetID string, role *domain.Role, designation *string) (domain.Membership, error) {
	if role != nil {
		if _, ok := domain.ParseRole(role.String()); !ok {
			return domain.Membership{}, ErrInvalidRole
		}
	}

	var updated domain.Membership
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Members().GetMember(ctx, clubID, targetID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		if role != nil && current.Role == domain.RoleAdmin && *role != domain.RoleAdmin {
			admins, err := tx.Members().CountAdmins(ctx, clubID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		if err := tx.Members().UpdateMember(ctx, clubID, targetID, role, designation); err != nil {
			return err
		}
		updated, err = tx.Members().GetMember(ctx, clubID, targetID)
		return err
	})
	if err != nil {
		return domain.Membership{}, err
	}

	slogx.FromContext(ctx).Info("member updated",
		slog.String("club_id", clubID),
		slog.String("user_id", targetID),
		slog.String("updated_by", actorID),
		slog.String("role", updated.Role.String()),
	)
	return updated, nil
}
