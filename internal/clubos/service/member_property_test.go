package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/pkg/idx"
)

// Random sequences of guarded membership mutations must never drop a club
// below one admin, and deleting the club must never leave membership rows
// behind. Mutations are attempted only when the actor's resolved role is
// admin, mirroring the authorization gate in front of these operations.
func TestMembershipInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		st := newTestStore(t)
		svc := &ClubService{Store: st, Media: &memStorage{}}
		ctx := context.Background()

		// Password hashing is not under test here; a fixed hash keeps the
		// many generated users cheap.
		newUser := func(name, email string) domain.User {
			u := domain.User{
				ID:           idx.New().String(),
				Name:         name,
				Email:        email,
				PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$dGVzdHNhbHQ$dGVzdGhhc2g",
			}
			require.NoError(rt, st.Users().CreateUser(ctx, u))
			return u
		}

		founder := newUser("Founder", "founder@example.com")
		club, err := svc.Create(ctx, founder.ID, "Prop Club", "Prop University", "", "")
		require.NoError(rt, err)

		users := []domain.User{founder}
		for i := 0; i < 4; i++ {
			u := newUser(fmt.Sprintf("User%d", i), fmt.Sprintf("user%d@example.com", i))
			users = append(users, u)
			require.NoError(rt, st.Members().AddMember(ctx, domain.Membership{
				ClubID: club.ID,
				UserID: u.ID,
				Role:   domain.RoleMember,
			}))
		}

		userGen := rapid.SampledFrom(users)
		roleGen := rapid.SampledFrom([]domain.Role{domain.RoleAdmin, domain.RoleModerator, domain.RoleMember})

		isAdmin := func(userID string) bool {
			role, err := svc.ResolveRole(ctx, club.ID, userID)
			return err == nil && role == domain.RoleAdmin
		}

		rt.Repeat(map[string]func(*rapid.T){
			"updateRole": func(rt *rapid.T) {
				actor := userGen.Draw(rt, "actor")
				target := userGen.Draw(rt, "target")
				role := roleGen.Draw(rt, "role")
				if !isAdmin(actor.ID) {
					return
				}

				_, err := svc.UpdateMember(ctx, club.ID, actor.ID, target.ID, &role, nil)
				if err != nil && !errors.Is(err, ErrLastAdmin) && !errors.Is(err, ErrMemberNotFound) {
					rt.Fatalf("unexpected update error: %v", err)
				}
			},
			"remove": func(rt *rapid.T) {
				actor := userGen.Draw(rt, "actor")
				target := userGen.Draw(rt, "target")
				if !isAdmin(actor.ID) {
					return
				}

				err := svc.RemoveMember(ctx, club.ID, actor.ID, target.ID)
				if err != nil && !errors.Is(err, ErrCannotRemoveSelf) && !errors.Is(err, ErrMemberNotFound) {
					rt.Fatalf("unexpected remove error: %v", err)
				}
			},
			"readd": func(rt *rapid.T) {
				target := userGen.Draw(rt, "target")

				err := st.Members().AddMember(ctx, domain.Membership{
					ClubID: club.ID,
					UserID: target.ID,
					Role:   domain.RoleMember,
				})
				if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
					rt.Fatalf("unexpected add error: %v", err)
				}
			},
			"": func(rt *rapid.T) {
				// Checked after every step: the admin seat never empties.
				admins, err := st.Members().CountAdmins(ctx, club.ID)
				require.NoError(rt, err)
				require.GreaterOrEqual(rt, admins, 1)

				// And membership rows stay unique per (club, user).
				members, err := st.Members().ListMembers(ctx, club.ID)
				require.NoError(rt, err)
				seen := make(map[string]bool, len(members))
				for _, m := range members {
					require.False(rt, seen[m.UserID])
					seen[m.UserID] = true
				}
			},
		})

		// The club dies clean: no membership row survives deletion.
		require.NoError(rt, svc.Delete(ctx, club.ID))
		count, err := st.Members().CountMembershipsForClub(ctx, club.ID)
		require.NoError(rt, err)
		require.Zero(rt, count)
	})
}
