package auth

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albinfrick/habbit-service/internal/auth/entity"
)

type fakeUserStore struct {
	byUsername map[string]*entity.User
	byEmail    map[string]*entity.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byUsername: make(map[string]*entity.User),
		byEmail:    make(map[string]*entity.User),
	}
}

func (f *fakeUserStore) Create(ctx context.Context, u *entity.User) error {
	if _, ok := f.byUsername[u.Username]; ok {
		return &pq.Error{Code: "23505"}
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return &pq.Error{Code: "23505"}
	}
	f.byUsername[u.Username] = u
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func testConfig() Config {
	return Config{Secret: "test-secret", CronSecret: "cron-secret", TokenTTL: time.Hour}
}

func TestSignupLoginTokenRoundTrip(t *testing.T) {
	svc := NewService(newFakeUserStore(), testConfig())
	ctx := context.Background()

	id, err := svc.Signup(ctx, "albin", "albin@example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// by username
	u, err := svc.Authenticate(ctx, "albin", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	// by email, case-insensitive
	u, err = svc.Authenticate(ctx, "Albin@Example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	token, err := svc.IssueToken(id)
	require.NoError(t, err)

	got, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc := NewService(newFakeUserStore(), testConfig())
	ctx := context.Background()

	_, err := svc.Signup(ctx, "albin", "albin@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "albin", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	// unknown users look exactly like wrong passwords
	_, err = svc.Authenticate(ctx, "nobody", "hunter22")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestSignupRejectsDuplicates(t *testing.T) {
	svc := NewService(newFakeUserStore(), testConfig())
	ctx := context.Background()

	_, err := svc.Signup(ctx, "albin", "albin@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "albin", "other@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestVerifyTokenRejectsForgedTokens(t *testing.T) {
	svc := NewService(newFakeUserStore(), testConfig())
	other := NewService(newFakeUserStore(), Config{Secret: "different-secret", TokenTTL: time.Hour})

	token, err := other.IssueToken("u1")
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUserFromRequest(t *testing.T) {
	svc := NewService(newFakeUserStore(), testConfig())

	token, err := svc.IssueToken("u1")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/habbit-api/habits", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	got, err := svc.UserFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "u1", got)

	r = httptest.NewRequest("GET", "/habbit-api/habits", nil)
	_, err = svc.UserFromRequest(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCronAuthorized(t *testing.T) {
	svc := NewService(newFakeUserStore(), testConfig())

	r := httptest.NewRequest("POST", "/habbit-api/reminders/run", nil)
	r.Header.Set("X-Cron-Secret", "cron-secret")
	assert.True(t, svc.CronAuthorized(r))

	r = httptest.NewRequest("POST", "/habbit-api/reminders/run", nil)
	r.Header.Set("X-Cron-Secret", "nope")
	assert.False(t, svc.CronAuthorized(r))

	// no configured secret means the surface is closed, not open
	open := NewService(newFakeUserStore(), Config{Secret: "s"})
	r = httptest.NewRequest("POST", "/habbit-api/reminders/run", nil)
	r.Header.Set("X-Cron-Secret", "")
	assert.False(t, open.CronAuthorized(r))
}
