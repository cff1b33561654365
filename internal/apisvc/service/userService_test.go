package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avvvet/manavault/internal/apisvc/models"
	"github.com/avvvet/manavault/internal/apisvc/store"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUserStore struct {
	users  map[string]*models.User
	nextID int64
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}, nextID: 1}
}

func (m *memUserStore) CreateUser(_ context.Context, email, hash string) (*models.User, error) {
	if _, ok := m.users[email]; ok {
		return nil, store.ErrEmailTaken
	}
	u := &models.User{ID: m.nextID, Email: email, PasswordHash: hash}
	m.nextID++
	m.users[email] = u
	return u, nil
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *memUserStore) GetByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	for _, u := range m.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == token && u.ResetPasswordExpires.After(now) {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUserStore) SetResetToken(_ context.Context, id int64, token string, expires time.Time) error {
	for _, u := range m.users {
		if u.ID == id {
			u.ResetPasswordToken = &token
			u.ResetPasswordExpires = &expires
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memUserStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	for _, u := range m.users {
		if u.ID == id {
			u.PasswordHash = hash
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeMailer struct {
	sent map[string]string
	err  error
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, email, token string) error {
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[email] = token
	return nil
}

func newTestService(t *testing.T) (*UserService, *memUserStore, *fakeMailer, *jwtauth.JWTAuth) {
	t.Helper()
	users := newMemUserStore()
	mailer := &fakeMailer{}
	auth := jwtauth.New("HS256", []byte("test-secret"), nil)
	return NewUserService(users, auth, mailer, time.Hour), users, mailer, auth
}

func TestSignupHashesPasswordAndNormalizesEmail(t *testing.T) {
	svc, users, _, _ := newTestService(t)

	u, err := svc.Signup(context.Background(), "  Ana@Example.COM ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	stored := users.users["ana@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))
}

func TestSignupRejectsEmptyInput(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Signup(context.Background(), "a@b.c", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), "ana@example.com", "one")
	require.NoError(t, err)
	_, err = svc.Signup(context.Background(), "ANA@example.com", "two")
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, _, _, auth := newTestService(t)

	u, err := svc.Signup(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)

	tokenString, err := svc.Login(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)

	token, err := jwtauth.VerifyToken(auth, tokenString)
	require.NoError(t, err)
	assert.EqualValues(t, u.ID, token.PrivateClaims()["id"])
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.Expiration(), time.Minute)
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, users, mailer, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "ana@example.com", "old-password")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "Ana@example.com"))
	token := mailer.sent["ana@example.com"]
	require.NotEmpty(t, token)

	require.NoError(t, svc.ResetPassword(ctx, token, "new-password"))
	assert.Nil(t, users.users["ana@example.com"].ResetPasswordToken)

	_, err = svc.Login(ctx, "ana@example.com", "new-password")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "ana@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// tokens are single use
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "again"), ErrInvalidResetToken)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, _, mailer, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "ana@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "ana@example.com"))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	err = svc.ResetPassword(ctx, mailer.sent["ana@example.com"], "new")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, _, mailer, _ := newTestService(t)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.sent)
}

func TestForgotPasswordMailerFailure(t *testing.T) {
	svc, _, mailer, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "ana@example.com", "pw")
	require.NoError(t, err)

	mailer.err = errors.New("smtp down")
	err = svc.ForgotPassword(ctx, "ana@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}
