package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryUsers struct {
	mu   sync.Mutex
	byID map[string]*User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*User{}}
}

func (m *memoryUsers) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memoryUsers) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryUsers) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}

func (m *memoryUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.LastLogin = at
	}
	return nil
}

func newTestAuth(t *testing.T) (*service, *memoryUsers) {
	t.Helper()
	users := newMemoryUsers()
	svc := NewServiceWithStore(users, nil, AuthServiceConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
		BcryptCost:  bcrypt.MinCost,
	})
	return svc.(*service), users
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	user, err := svc.Register(ctx, " Ana ", " Ana@Example.com ", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, "segredo1", user.PasswordHash)

	resp, err := svc.Login(ctx, "ANA@example.com", "segredo1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.False(t, resp.User.LastLogin.IsZero())

	claims, err := svc.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.PatientID)
	assert.Equal(t, user.ID, claims.Subject)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	_, err := svc.Register(ctx, "Ana", "not-an-email", "segredo1")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(ctx, "Ana", "ana@example.com", "12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(ctx, "Ana", "ana@example.com", "123456")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Outra", "ana@example.com", "654321")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, users := newTestAuth(t)

	user, err := svc.Register(ctx, "Ana", "ana@example.com", "segredo1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana@example.com", "errado")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ninguem@example.com", "segredo1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	users.byID[user.ID].Status = "inactive"
	_, err = svc.Login(ctx, "ana@example.com", "segredo1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenFailures(t *testing.T) {
	ctx := context.Background()
	svc, users := newTestAuth(t)

	user, err := svc.Register(ctx, "Ana", "ana@example.com", "segredo1")
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Signed with another secret.
	other, _ := newTestAuth(t)
	other.jwtSecret = []byte("other-secret")
	foreign, _, err := other.generateToken(user)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Issued two days ago with a one hour lifetime.
	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, _, err := svc.generateToken(user)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ValidateToken(ctx, expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Unsigned tokens are refused.
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{PatientID: user.ID})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Deactivated accounts lose access.
	valid, _, err := svc.generateToken(user)
	require.NoError(t, err)
	users.byID[user.ID].Status = "inactive"
	_, err = svc.ValidateToken(ctx, valid)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth(t)

	user, err := svc.Register(ctx, "Ana", "ana@example.com", "segredo1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "errado", "novasenha"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "segredo1", "curta"), ErrWeakPassword)
	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "segredo1", "segredo1"), ErrPasswordMismatch)
	assert.ErrorIs(t, svc.ChangePassword(ctx, "missing", "segredo1", "novasenha"), ErrUserNotFound)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "segredo1", "novasenha"))

	_, err = svc.Login(ctx, "ana@example.com", "segredo1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ana@example.com", "novasenha")
	assert.NoError(t, err)
}
