package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Fahimkhan9/clubos/internal/clubos/domain"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/internal/clubos/store/drivers/sqlite"
	"github.com/Fahimkhan9/clubos/pkg/cryptox"
	"github.com/Fahimkhan9/clubos/pkg/idx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// recordMailer captures outgoing mail for assertions. failures>0 makes the
// next sends error, one per send.
type recordMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failures int
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *recordMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.failures--
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// memStorage is an in-memory media.Storage.
type memStorage struct {
	mu      sync.Mutex
	uploads int
	deleted []string
}

func (s *memStorage) Upload(_ context.Context, r io.Reader, filename, folder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = io.Copy(io.Discard, r)
	s.uploads++
	return "https://media.test/" + folder + "/" + filename, nil
}

func (s *memStorage) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = append(s.deleted, url)
	return nil
}

func seedUser(t *testing.T, st store.Store, name, email, password string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	user := domain.User{
		ID:           idx.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))
	return user
}

func seedClub(t *testing.T, st store.Store, adminID, name string) domain.Club {
	t.Helper()
	ctx := context.Background()

	club := domain.Club{
		ID:         idx.New().String(),
		Name:       name,
		University: "Test University",
		CreatedBy:  adminID,
	}
	require.NoError(t, st.Clubs().CreateClub(ctx, club))
	require.NoError(t, st.Members().AddMember(ctx, domain.Membership{
		ClubID: club.ID,
		UserID: adminID,
		Role:   domain.RoleAdmin,
	}))
	return club
}

func seedInvite(t *testing.T, st store.Store, email, clubID string, role domain.Role, expiresAt time.Time) (domain.Invite, string) {
	t.Helper()

	token := cryptox.MustGenerateToken(cryptox.TokenSize128)
	invite := domain.Invite{
		ID:        idx.New().String(),
		Email:     email,
		ClubID:    clubID,
		Role:      role,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, st.Invites().CreateInvite(context.Background(), invite))
	return invite, token
}
