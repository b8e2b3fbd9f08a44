package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/types"
)

// memoryUsers is an in-memory UserStore
type memoryUsers struct {
	mu    sync.Mutex
	byID  map[string]*storage.User
	seq   int
	login map[string]int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*storage.User{}, login: map[string]int{}}
}

func (m *memoryUsers) Create(ctx context.Context, user *storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	c := *user
	m.byID[user.ID] = &c
	return nil
}

func (m *memoryUsers) GetByID(ctx context.Context, id string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memoryUsers) UpdateRole(ctx context.Context, id string, role types.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *memoryUsers) TouchLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.login[id]++
	return nil
}

func newService(users UserStore) *AuthService {
	return NewAuthService(&types.AuthConfig{JWTSecret: "test-secret", JWTExpiration: time.Hour}, users, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	users := newMemoryUsers()
	svc := newService(users)
	ctx := context.Background()

	info, err := svc.Register(ctx, &types.RegisterRequest{
		Email:    "Ada@Example.com",
		Password: "correct-horse",
		FullName: "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", info.Email)
	assert.Equal(t, types.RoleJobSeeker, info.Role)

	_, err = svc.Register(ctx, &types.RegisterRequest{Email: "ada@example.com", Password: "x", FullName: "Dup"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	resp, err := svc.Login(ctx, &types.LoginRequest{Email: "ADA@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.EqualValues(t, 3600, resp.ExpiresIn)
	assert.Equal(t, info.ID, resp.User.ID)
	assert.Equal(t, 1, users.login[info.ID])

	claims, err := svc.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, info.ID, claims.UserID)
	assert.Equal(t, types.RoleJobSeeker, claims.Role)
	assert.Equal(t, "lifecompass", claims.Issuer)
}

// racingUsers loses every insert to a concurrent registration
type racingUsers struct {
	*memoryUsers
}

func (racingUsers) Create(ctx context.Context, user *storage.User) error {
	return fmt.Errorf("insert user: %w", gorm.ErrDuplicatedKey)
}

func TestRegisterConcurrentDuplicate(t *testing.T) {
	svc := newService(racingUsers{newMemoryUsers()})
	_, err := svc.Register(context.Background(), &types.RegisterRequest{
		Email: "ada@example.com", Password: "correct-horse", FullName: "Ada",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	_, err := newService(newMemoryUsers()).Register(context.Background(), &types.RegisterRequest{
		Email: "x@example.com", Password: "password1", FullName: "X", Role: types.RoleAdmin,
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLoginFailures(t *testing.T) {
	users := newMemoryUsers()
	svc := newService(users)
	ctx := context.Background()

	_, err := svc.Register(ctx, &types.RegisterRequest{Email: "a@example.com", Password: "password1", FullName: "A"})
	require.NoError(t, err)

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := svc.Login(ctx, &types.LoginRequest{Email: "a@example.com", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := svc.Login(ctx, &types.LoginRequest{Email: "b@example.com", Password: "password1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Inactive", func(t *testing.T) {
		u, _ := users.GetByEmail(ctx, "a@example.com")
		users.byID[u.ID].IsActive = false
		_, err := svc.Login(ctx, &types.LoginRequest{Email: "a@example.com", Password: "password1"})
		assert.ErrorIs(t, err, ErrAccountInactive)
	})

	t.Run("NoStore", func(t *testing.T) {
		_, err := newService(nil).Login(ctx, &types.LoginRequest{Email: "a@example.com", Password: "password1"})
		assert.ErrorIs(t, err, ErrNoUserStore)
	})
}

func TestValidateJWT(t *testing.T) {
	svc := newService(nil)

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewAuthService(&types.AuthConfig{JWTSecret: "other", JWTExpiration: time.Hour}, nil, nil)
		token, _, err := other.IssueToken(Identity{UserID: "u1", Role: types.RoleAdmin})
		require.NoError(t, err)

		_, err = svc.ValidateJWT(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		claims := &Claims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = svc.ValidateJWT(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.ValidateJWT("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		claims := &Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = svc.ValidateJWT(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRefreshTokenPicksUpRoleChange(t *testing.T) {
	users := newMemoryUsers()
	svc := newService(users)
	ctx := context.Background()

	info, err := svc.Register(ctx, &types.RegisterRequest{Email: "r@example.com", Password: "password1", FullName: "R"})
	require.NoError(t, err)
	token, _, err := svc.IssueToken(Identity{UserID: info.ID, Email: info.Email, Role: info.Role})
	require.NoError(t, err)

	require.NoError(t, users.UpdateRole(ctx, info.ID, types.RoleRecruiter))

	resp, err := svc.RefreshToken(ctx, token)
	require.NoError(t, err)
	claims, err := svc.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleRecruiter, claims.Role)
}

func TestChangeRole(t *testing.T) {
	users := newMemoryUsers()
	svc := newService(users)
	ctx := context.Background()

	info, err := svc.Register(ctx, &types.RegisterRequest{Email: "s@example.com", Password: "password1", FullName: "S"})
	require.NoError(t, err)

	admin := Identity{UserID: "admin-1", Role: types.RoleAdmin}
	recruiter := Identity{UserID: "rec-1", Role: types.RoleRecruiter}

	_, err = svc.ChangeRole(ctx, recruiter, info.ID, types.RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ChangeRole(ctx, admin, info.ID, types.Role("overlord"))
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.ChangeRole(ctx, admin, "missing", types.RoleRecruiter)
	assert.ErrorIs(t, err, ErrUserNotFound)

	user, err := svc.ChangeRole(ctx, admin, info.ID, types.RoleRecruiter)
	require.NoError(t, err)
	assert.Equal(t, types.RoleRecruiter, user.Role)
}

func TestPermissions(t *testing.T) {
	seeker := Permissions(types.RoleJobSeeker)
	assert.True(t, seeker[PermApplyToJobs])
	assert.True(t, seeker[PermSaveJobs])
	assert.False(t, seeker[PermPostJobs])
	assert.Len(t, seeker, 16)

	recruiter := Permissions(types.RoleRecruiter)
	assert.True(t, recruiter[PermPostJobs])
	assert.True(t, recruiter[PermRateApplications])
	assert.False(t, recruiter[PermApplyToJobs])
	assert.False(t, recruiter[PermManageUsers])

	for p, granted := range Permissions(types.RoleAdmin) {
		assert.True(t, granted, p)
	}
	for p, granted := range Permissions(types.Role("guest")) {
		assert.False(t, granted, p)
	}

	assert.True(t, Can(Identity{Role: types.RoleAdmin}, PermModerateContent))
	assert.False(t, Can(Identity{Role: types.RoleJobSeeker}, PermViewAnalytics))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: types.RoleAdmin})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
	assert.True(t, id.IsAdmin())

	_, ok = IdentityFromContext(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok)
}
