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

func newUserService(t *testing.T) (*UserService, store.Store, *recordMailer, *memStorage) {
	t.Helper()

	st := newTestStore(t)
	mailer := &recordMailer{}
	storage := &memStorage{}
	sessions := &SessionService{Store: st, JWTSecret: []byte("test-secret")}
	svc := &UserService{
		Store:       st,
		Sessions:    sessions,
		Mailer:      mailer,
		Media:       storage,
		FrontendURL: "http://front.test",
	}
	return svc, st, mailer, storage
}

func TestRegister(t *testing.T) {
	svc, st, _, _ := newUserService(t)
	ctx := context.Background()

	user, token, session, err := svc.Register(ctx, RegisterParams{
		Name:     "Alice",
		Email:    "  Alice@Example.COM ",
		Password: "password123",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEmpty(t, token)
	require.Equal(t, user.ID, session.UserID)

	// The session works immediately.
	got, _, err := svc.Sessions.Authenticate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, _, _, err := svc.Register(ctx, RegisterParams{
			Name:     "Alice Again",
			Email:    "alice@example.com",
			Password: "password456",
		})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("password hash is not the password", func(t *testing.T) {
		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotContains(t, stored.PasswordHash, "password123")
		require.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))
	})
}

func TestRegisterWithInviteToken(t *testing.T) {
	svc, st, _, _ := newUserService(t)
	ctx := context.Background()

	admin := seedUser(t, st, "Admin", "admin@example.com", "password123")
	club := seedClub(t, st, admin.ID, "Chess Club")
	invite, token := seedInvite(t, st, "newbie@example.com", club.ID, domain.RoleModerator, time.Now().UTC().Add(time.Hour))

	user, _, _, err := svc.Register(ctx, RegisterParams{
		Name:        "Newbie",
		Email:       "newbie@example.com",
		Password:    "password123",
		InviteToken: token,
	})
	require.NoError(t, err)

	m, err := st.Members().GetMember(ctx, club.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleModerator, m.Role)

	_, err = st.Invites().GetActiveInviteByTokenHash(ctx, invite.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegisterWithBadInviteTokenFailsWholeSignup(t *testing.T) {
	svc, st, _, _ := newUserService(t)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, RegisterParams{
		Name:        "Nope",
		Email:       "nope@example.com",
		Password:    "password123",
		InviteToken: "expired-or-bogus",
	})
	require.ErrorIs(t, err, ErrInviteNotFound)

	// User creation rolled back with the failed redeem.
	_, err = st.Users().GetUserByEmail(ctx, "nope@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSignIn(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, RegisterParams{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	user, token, _, err := svc.SignIn(ctx, "alice@example.com", "password123", "agent", "ip")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEmpty(t, token)

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.SignIn(ctx, "alice@example.com", "wrong", "", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email looks identical", func(t *testing.T) {
		_, _, _, err := svc.SignIn(ctx, "ghost@example.com", "password123", "", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, RegisterParams{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user.ID, "wrong", "newpassword1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "password123", "newpassword1"))

	// Old token is dead, old password refused, new password works.
	_, _, err = svc.Sessions.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrSessionRevoked)

	_, _, _, err = svc.SignIn(ctx, "alice@example.com", "password123", "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = svc.SignIn(ctx, "alice@example.com", "newpassword1", "", "")
	require.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, st, mailer, _ := newUserService(t)
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, RegisterParams{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		err := svc.ForgotPassword(ctx, "ghost@example.com")
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	require.Equal(t, 1, mailer.count())

	msg := mailer.last()
	require.Contains(t, msg.Body, "http://front.test/reset-password/")

	resetToken := msg.Body[strings.Index(msg.Body, "reset-password/")+len("reset-password/"):]
	resetToken = resetToken[:strings.IndexAny(resetToken, `"`)]

	// Only the fingerprint is stored.
	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotEqual(t, resetToken, stored.ResetTokenHash)

	t.Run("bogus token refused", func(t *testing.T) {
		err := svc.ResetPassword(ctx, "bogus", "newpassword1")
		require.ErrorIs(t, err, ErrResetTokenInvalid)
	})

	require.NoError(t, svc.ResetPassword(ctx, resetToken, "newpassword1"))

	// Token consumed, sessions revoked, new password live.
	err = svc.ResetPassword(ctx, resetToken, "again")
	require.ErrorIs(t, err, ErrResetTokenInvalid)

	_, _, err = svc.Sessions.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrSessionRevoked)

	_, _, _, err = svc.SignIn(ctx, "alice@example.com", "newpassword1", "", "")
	require.NoError(t, err)
}

func TestUpdateProfileAndAvatar(t *testing.T) {
	svc, _, _, storage := newUserService(t)
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, RegisterParams{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	bio := "Plays chess"
	batch := "2023"
	updated, err := svc.UpdateProfile(ctx, user.ID, store.ProfileUpdate{Bio: &bio, Batch: &batch})
	require.NoError(t, err)
	require.Equal(t, "Plays chess", updated.Bio)
	require.Equal(t, "2023", updated.Batch)
	require.Equal(t, "Alice", updated.Name) // untouched fields survive

	url1, err := svc.UpdateAvatar(ctx, user.ID, strings.NewReader("img1"), "one.png")
	require.NoError(t, err)
	require.NotEmpty(t, url1)

	url2, err := svc.UpdateAvatar(ctx, user.ID, strings.NewReader("img2"), "two.png")
	require.NoError(t, err)
	require.NotEqual(t, url1, url2)

	// First avatar cleaned up after the swap.
	require.Contains(t, storage.deleted, url1)
}

func TestDeleteAccountCascades(t *testing.T) {
	svc, st, _, storage := newUserService(t)
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, RegisterParams{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	admin := seedUser(t, st, "Admin", "admin@example.com", "password123")
	club := seedClub(t, st, admin.ID, "Chess Club")
	require.NoError(t, st.Members().AddMember(ctx, domain.Membership{
		ClubID: club.ID, UserID: user.ID, Role: domain.RoleMember,
	}))

	avatarURL, err := svc.UpdateAvatar(ctx, user.ID, strings.NewReader("img"), "pic.png")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, user.ID))

	_, err = st.Users().GetUserByID(ctx, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Membership and session rows cascade with the account.
	_, err = st.Members().GetMember(ctx, club.ID, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = svc.Sessions.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrUnauthenticated)

	require.Contains(t, storage.deleted, avatarURL)
}
