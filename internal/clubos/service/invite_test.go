package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
)

func TestInviteDirectAddForExistingAccount(t *testing.T) {
	st := newTestStore(t)
	mailer := &recordMailer{}
	svc := &InviteService{Store: st, Mailer: mailer, FrontendURL: "http://front.test"}
	ctx := context.Background()

	admin := seedUser(t, st, "Admin", "admin@example.com", "password123")
	club := seedClub(t, st, admin.ID, "Chess Club")
	existing := seedUser(t, st, "Bob", "bob@example.com", "password123")

	directlyAdded, err := svc.Invite(ctx, club.ID, "Bob@Example.com", domain.RoleModerator, "Treasurer")
	require.NoError(t, err)
	require.True(t, directlyAdded)

	m, err := st.Members().GetMember(ctx, club.ID, existing.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleModerator, m.Role)
	require.Equal(t, "Treasurer", m.Designation)

	// No invite record and no email on the direct path.
	require.Zero(t, mailer.count())
	_, err = st.Invites().GetActiveInviteByEmailClub(ctx, "bob@example.com", club.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("inviting a member again conflicts", func(t *testing.T) {
		_, err := svc.Invite(ctx, club.ID, "bob@example.com", domain.RoleMember, "")
		require.ErrorIs(t, err, ErrAlreadyMember)
	})
}

func TestInviteEmailsSignupLink(t *testing.T) {
	st := newTestStore(t)
	mailer := &recordMailer{}
	svc := &InviteService{Store: st, Mailer: mailer, FrontendURL: "http://front.test"}
	ctx := context.Background()

	admin := seedUser(t, st, "Admin", "admin@example.com", "password123")
	club := seedClub(t, st, admin.ID, "Chess Club")

	directlyAdded, err := svc.Invite(ctx, club.ID, "new@example.com", domain.RoleMember, "Member")
	require.NoError(t, err)
	require.False(t, directlyAdded)

	require.Equal(t, 1, mailer.count())
	msg := mailer.last()
	require.Equal(t, "new@example.com", msg.To)
	require.Contains(t, msg.Body, "http://front.test/signup?inviteToken=")
	require.Contains(t, msg.Subject, club.Name)

	invite, err := st.Invites().GetActiveInviteByEmailClub(ctx, "new@example.com", club.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleMember, invite.Role)

	// The raw token is never persisted.
	token := msg.Body[strings.Index(msg.Body, "inviteToken=")+len("inviteToken="):]
	token = token[:strings.IndexAny(token, `"`)]
	require.NotEqual(t, token, invite.TokenHash)

	t.Run("second invite for the same email conflicts", func(t *testing.T) {
		_, err := svc.Invite(ctx, club.ID, "new@example.com", domain.RoleMember, "")
		require.ErrorIs(t, err, ErrInvitePending)
	})

	t.Run("same email can be invited to a different club", func(t *testing.T) {
		other := seedClub(t, st, admin.ID, "Debate Club")

		directlyAdded, err := svc.Invite(ctx, other.ID, "new@example.com", domain.RoleMember, "")
		require.NoError(t, err)
		require.False(t, directlyAdded)

		_, err = st.Invites().GetActiveInviteByEmailClub(ctx, "new@example.com", other.ID)
		require.NoError(t, err)
	})

	t.Run("unknown club", func(t *testing.T) {
		_, err := svc.Invite(ctx, "nope", "x@example.com", domain.RoleMember, "")
		require.ErrorIs(t, err, ErrClubNotFound)
	})

	t.Run("bogus role", func(t *testing.T) {
		_, err := svc.Invite(ctx, club.ID, "y@example.com", domain.Role("owner"), "")
		require.ErrorIs(t, err, ErrInvalidRole)
	})
}

func TestInviteDeliveryFailureKeepsRecord(t *testing.T) {
	st := newTestStore(t)
	mailer := &recordMailer{failures: 2} // both attempts fail
	svc := &InviteService{Store: st, Mailer: mailer, FrontendURL: "http://front.test"}
	ctx := context.Background()

	admin := seedUser(t, st, "Admin", "admin@example.com", "password123")
	club := seedClub(t, st, admin.ID, "Chess Club")

	_, err := svc.Invite(ctx, club.ID, "new@example.com", domain.RoleMember, "")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	// The invite survives; it can still be redeemed out of band.
	_, err = st.Invites().GetActiveInviteByEmailClub(ctx, "new@example.com", club.ID)
	require.NoError(t, err)
}

func TestInviteDeliveryRetriesOnce(t *testing.T) {
	st := newTestStore(t)
	mailer := &recordMailer{failures: 1} // first attempt fails, retry succeeds
	svc := &InviteService{Store: st, Mailer: mailer, FrontendURL: "http://front.test"}
	ctx := context.Background()

	admin := seedUser(t, st, "Admin", "admin@example.com", "password123")
	club := seedClub(t, st, admin.ID, "Chess Club")

	_, err := svc.Invite(ctx, club.ID, "new@example.com", domain.RoleMember, "")
	require.NoError(t, err)
	require.Equal(t, 1, mailer.count())
}

func TestRedeemInvite(t *testing.T) {
	st := newTestStore(t)
	svc := &InviteService{Store: st, Mailer: &recordMailer{}, FrontendURL: "http://front.test"}
	ctx := context.Background()

	admin := seedUser(t, st, "Admin", "admin@example.com", "password123")
	club := seedClub(t, st, admin.ID, "Chess Club")
	invitee := seedUser(t, st, "Carol", "carol@example.com", "password123")

	invite, token := seedInvite(t, st, "carol@example.com", club.ID, domain.RoleModerator, time.Now().UTC().Add(time.Hour))

	m, alreadyMember, err := svc.Redeem(ctx, invitee.ID, token)
	require.NoError(t, err)
	require.False(t, alreadyMember)
	require.Equal(t, club.ID, m.ClubID)
	require.Equal(t, domain.RoleModerator, m.Role)
	// The returned membership carries the stored join time, not a zero value.
	require.False(t, m.JoinedAt.IsZero())

	// Consumed: the same token never redeems twice.
	_, _, err = svc.Redeem(ctx, invitee.ID, token)
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = st.Invites().GetActiveInviteByTokenHash(ctx, invite.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedeemInviteEdgeCases(t *testing.T) {
	st := newTestStore(t)
	svc := &InviteService{Store: st, Mailer: &recordMailer{}, FrontendURL: "http://front.test"}
	ctx := context.Background()

	admin := seedUser(t, st, "Admin", "admin@example.com", "password123")
	club := seedClub(t, st, admin.ID, "Chess Club")

	t.Run("expired invite", func(t *testing.T) {
		user := seedUser(t, st, "Dave", "dave@example.com", "password123")
		_, token := seedInvite(t, st, "dave@example.com", club.ID, domain.RoleMember, time.Now().UTC().Add(-time.Minute))

		_, _, err := svc.Redeem(ctx, user.ID, token)
		require.ErrorIs(t, err, ErrInviteNotFound)
	})

	t.Run("email mismatch", func(t *testing.T) {
		user := seedUser(t, st, "Erin", "erin@example.com", "password123")
		_, token := seedInvite(t, st, "someone-else@example.com", club.ID, domain.RoleMember, time.Now().UTC().Add(time.Hour))

		_, _, err := svc.Redeem(ctx, user.ID, token)
		require.ErrorIs(t, err, ErrEmailMismatch)

		// Membership must not exist after the failed redeem.
		_, err = st.Members().GetMember(ctx, club.ID, user.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("case-insensitive email match", func(t *testing.T) {
		user := seedUser(t, st, "Frank", "frank@example.com", "password123")
		_, token := seedInvite(t, st, "Frank@Example.COM", club.ID, domain.RoleMember, time.Now().UTC().Add(time.Hour))

		_, alreadyMember, err := svc.Redeem(ctx, user.ID, token)
		require.NoError(t, err)
		require.False(t, alreadyMember)
	})

	t.Run("already a member cleans up the invite", func(t *testing.T) {
		invite, token := seedInvite(t, st, "admin@example.com", club.ID, domain.RoleMember, time.Now().UTC().Add(time.Hour))

		m, alreadyMember, err := svc.Redeem(ctx, admin.ID, token)
		require.NoError(t, err)
		require.True(t, alreadyMember)
		// The existing membership wins; the invite's member role does not
		// overwrite admin.
		require.Equal(t, domain.RoleAdmin, m.Role)

		_, err = st.Invites().GetActiveInviteByTokenHash(ctx, invite.TokenHash)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("garbage token", func(t *testing.T) {
		user := seedUser(t, st, "Grace", "grace@example.com", "password123")
		_, _, err := svc.Redeem(ctx, user.ID, "no-such-token")
		require.ErrorIs(t, err, ErrInviteNotFound)
	})
}
