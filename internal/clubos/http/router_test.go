package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/internal/clubos/store/drivers/sqlite"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []fakeMail
}

type fakeMail struct {
	To   string
	Body string
}

func (m *fakeMailer) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, fakeMail{To: to, Body: body})
	return nil
}

type fakeStorage struct{}

func (fakeStorage) Upload(_ context.Context, r io.Reader, filename, folder string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "https://media.test/" + folder + "/" + filename, nil
}

func (fakeStorage) Delete(_ context.Context, _ string) error { return nil }

type testEnv struct {
	router *Router
	store  store.Store
	mailer *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mailer := &fakeMailer{}
	sessions := &service.SessionService{Store: st, JWTSecret: []byte("test-secret")}
	users := &service.UserService{
		Store:       st,
		Sessions:    sessions,
		Mailer:      mailer,
		Media:       fakeStorage{},
		FrontendURL: "http://front.test",
	}
	clubs := &service.ClubService{Store: st, Media: fakeStorage{}}
	invites := &service.InviteService{Store: st, Mailer: mailer, FrontendURL: "http://front.test"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter("test", false, st, logger)
	router.SessionService = sessions
	router.UserService = users
	router.ClubService = clubs
	router.InviteService = invites
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, mailer: mailer}
}

// do issues a JSON request. Distinct forwarded IPs per caller keep the
// per-IP limits on credential endpoints out of the way.
func (e *testEnv) do(t *testing.T, method, path, token, ip string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (e *testEnv) signup(t *testing.T, name, email, ip string) (AuthResponse, string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/v1/users/signup", "", ip, SignupRequest{
		Name: name, Email: email, Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	auth := decode[AuthResponse](t, rec)
	return auth, auth.Token
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users/profile", "", "10.1.0.1", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "unauthorized", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users/profile", "garbage", "10.1.0.1", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSignupSigninProfile(t *testing.T) {
	env := newTestEnv(t)

	auth, token := env.signup(t, "Alice", "alice@example.com", "10.2.0.1")
	require.Equal(t, "alice@example.com", auth.User.Email)

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/signup", "", "10.2.0.2", SignupRequest{
			Name: "Alice", Email: "alice@example.com", Password: "password123",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "email_taken", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("profile round trip", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/users/profile", token, "10.2.0.1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "Alice", decode[UserResponse](t, rec).Name)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/signin", "", "10.2.0.3", SigninRequest{
			Email: "alice@example.com", Password: "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("signout kills the session", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/signout", token, "10.2.0.1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodGet, "/v1/users/profile", token, "10.2.0.1", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "session_revoked", decode[ErrorResponse](t, rec).Error)
	})
}

func TestClubRoleGuard(t *testing.T) {
	env := newTestEnv(t)

	_, adminToken := env.signup(t, "Admin", "admin@example.com", "10.3.0.1")
	_, outsiderToken := env.signup(t, "Outsider", "outsider@example.com", "10.3.0.2")

	rec := env.do(t, http.MethodPost, "/v1/clubs", adminToken, "10.3.0.1", CreateClubRequest{
		Name: "Chess Club", University: "Test University", Designation: "President",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	club := decode[ClubResponse](t, rec)

	about := "About us"

	t.Run("outsider is not a member", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/v1/clubs/"+club.ID, outsiderToken, "10.3.0.2", UpdateClubRequest{About: &about})
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "not_a_member", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("unknown club is 404 before any role check", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/v1/clubs/does-not-exist", outsiderToken, "10.3.0.2", UpdateClubRequest{About: &about})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	// Direct-add the outsider as a plain member via the invite endpoint.
	rec = env.do(t, http.MethodPost, "/v1/clubs/"+club.ID+"/invite", adminToken, "10.3.0.1", InviteMemberRequest{
		Email: "outsider@example.com", Role: "member",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("member role is not enough to update the club", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/v1/clubs/"+club.ID, outsiderToken, "10.3.0.2", UpdateClubRequest{About: &about})
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "insufficient_role", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("member cannot list members", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/clubs/"+club.ID+"/members", outsiderToken, "10.3.0.2", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	// Promote to moderator; club updates open up, admin-only routes stay shut.
	outsiderID := env.memberID(t, adminToken, club.ID, "outsider@example.com")
	role := "moderator"
	rec = env.do(t, http.MethodPatch, "/v1/clubs/"+club.ID+"/members/"+outsiderID, adminToken, "10.3.0.1", UpdateMemberRequest{Role: &role})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("moderator can update the club", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/v1/clubs/"+club.ID, outsiderToken, "10.3.0.2", UpdateClubRequest{About: &about})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, about, decode[ClubResponse](t, rec).About)
	})

	t.Run("moderator cannot delete the club", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/v1/clubs/"+club.ID, outsiderToken, "10.3.0.2", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "insufficient_role", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("moderator cannot change roles", func(t *testing.T) {
		member := "member"
		rec := env.do(t, http.MethodPatch, "/v1/clubs/"+club.ID+"/members/"+outsiderID, outsiderToken, "10.3.0.2", UpdateMemberRequest{Role: &member})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// memberID resolves a member's user id from the members listing.
func (e *testEnv) memberID(t *testing.T, token, clubID, email string) string {
	t.Helper()

	rec := e.do(t, http.MethodGet, "/v1/clubs/"+clubID+"/members", token, "10.9.0.9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, m := range decode[[]MemberResponse](t, rec) {
		if m.Email == email {
			return m.UserID
		}
	}
	t.Fatalf("member %s not found in club %s", email, clubID)
	return ""
}

func TestMemberAdminRules(t *testing.T) {
	env := newTestEnv(t)

	_, adminToken := env.signup(t, "Admin", "admin@example.com", "10.4.0.1")

	rec := env.do(t, http.MethodPost, "/v1/clubs", adminToken, "10.4.0.1", CreateClubRequest{
		Name: "Chess Club", University: "Test University",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	club := decode[ClubResponse](t, rec)
	adminID := env.memberID(t, adminToken, club.ID, "admin@example.com")

	t.Run("admin cannot remove self", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/v1/clubs/"+club.ID+"/members/"+adminID, adminToken, "10.4.0.1", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "cannot_remove_self", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("demoting the last admin conflicts", func(t *testing.T) {
		member := "member"
		rec := env.do(t, http.MethodPatch, "/v1/clubs/"+club.ID+"/members/"+adminID, adminToken, "10.4.0.1", UpdateMemberRequest{Role: &member})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "last_admin", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("bogus role is a bad request", func(t *testing.T) {
		owner := "owner"
		rec := env.do(t, http.MethodPatch, "/v1/clubs/"+club.ID+"/members/"+adminID, adminToken, "10.4.0.1", UpdateMemberRequest{Role: &owner})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInviteSignupFlow(t *testing.T) {
	env := newTestEnv(t)

	_, adminToken := env.signup(t, "Admin", "admin@example.com", "10.5.0.1")

	rec := env.do(t, http.MethodPost, "/v1/clubs", adminToken, "10.5.0.1", CreateClubRequest{
		Name: "Chess Club", University: "Test University",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	club := decode[ClubResponse](t, rec)

	rec = env.do(t, http.MethodPost, "/v1/clubs/"+club.ID+"/invite", adminToken, "10.5.0.1", InviteMemberRequest{
		Email: "newbie@example.com", Role: "moderator", Designation: "Secretary",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, env.mailer.sent, 1)
	body := env.mailer.sent[0].Body
	token := body[strings.Index(body, "inviteToken=")+len("inviteToken="):]
	token = token[:strings.IndexAny(token, `"`)]

	t.Run("repeat invite conflicts while pending", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/clubs/"+club.ID+"/invite", adminToken, "10.5.0.1", InviteMemberRequest{
			Email: "newbie@example.com", Role: "member",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "invite_pending", decode[ErrorResponse](t, rec).Error)
	})

	// Signing up with the invite token lands directly in the club.
	rec = env.do(t, http.MethodPost, "/v1/users/signup", "", "10.5.0.2", SignupRequest{
		Name: "Newbie", Email: "newbie@example.com", Password: "password123", InviteToken: token,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	members := env.do(t, http.MethodGet, "/v1/clubs/"+club.ID+"/members", adminToken, "10.5.0.1", nil)
	require.Equal(t, http.StatusOK, members.Code)
	var found bool
	for _, m := range decode[[]MemberResponse](t, members) {
		if m.Email == "newbie@example.com" {
			found = true
			require.Equal(t, "moderator", m.Role)
			require.Equal(t, "Secretary", m.Designation)
		}
	}
	require.True(t, found)

	t.Run("consumed token fails the next signup", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/signup", "", "10.5.0.3", SignupRequest{
			Name: "Copycat", Email: "copycat@example.com", Password: "password123", InviteToken: token,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_invite", decode[ErrorResponse](t, rec).Error)
	})
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)

	_, token1 := env.signup(t, "Alice", "alice@example.com", "10.6.0.1")

	// Second device.
	rec := env.do(t, http.MethodPost, "/v1/users/signin", "", "10.6.0.2", SigninRequest{
		Email: "alice@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token2 := decode[AuthResponse](t, rec).Token

	rec = env.do(t, http.MethodGet, "/v1/sessions", token1, "10.6.0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decode[[]SessionResponse](t, rec)
	require.Len(t, sessions, 2)

	// Find the other device and revoke it.
	var otherID string
	for _, s := range sessions {
		if !s.Current {
			otherID = s.ID
		}
	}
	require.NotEmpty(t, otherID)

	rec = env.do(t, http.MethodDelete, "/v1/sessions/"+otherID, token1, "10.6.0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/users/profile", token2, "10.6.0.2", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "session_revoked", decode[ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodGet, "/v1/users/profile", token1, "10.6.0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Sign out everywhere: the current session dies with the rest.
	rec = env.do(t, http.MethodPost, "/v1/users/signin", "", "10.6.0.3", SigninRequest{
		Email: "alice@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token3 := decode[AuthResponse](t, rec).Token

	rec = env.do(t, http.MethodDelete, "/v1/sessions", token1, "10.6.0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, token := range []string{token1, token3} {
		rec = env.do(t, http.MethodGet, "/v1/users/profile", token, "10.6.0.1", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "session_revoked", decode[ErrorResponse](t, rec).Error)
	}
}
