// Package auth provides authentication, role permissions and the request identity
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

const tokenIssuer = "lifecompass"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrForbidden          = errors.New("only admins can change user roles")
	ErrNoUserStore        = errors.New("user accounts are not available")
)

// Claims represents JWT claims
type Claims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   types.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the request identity carried by the token
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

// UserStore is the persistence the service needs; *storage.UserRepository satisfies it
type UserStore interface {
	Create(ctx context.Context, user *storage.User) error
	GetByID(ctx context.Context, id string) (*storage.User, error)
	GetByEmail(ctx context.Context, email string) (*storage.User, error)
	UpdateRole(ctx context.Context, id string, role types.Role) error
	TouchLastLogin(ctx context.Context, id string) error
}

// AuthService issues and validates tokens and manages accounts
type AuthService struct {
	config    *types.AuthConfig
	logger    *utils.Logger
	users     UserStore
	jwtSecret []byte
}

// NewAuthService creates the service. users may be nil, in which case only
// token validation is available.
func NewAuthService(config *types.AuthConfig, users UserStore, logger *utils.Logger) *AuthService {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &AuthService{
		config:    config,
		logger:    logger,
		users:     users,
		jwtSecret: []byte(config.JWTSecret),
	}
}

// Register creates a job seeker or recruiter account
func (a *AuthService) Register(ctx context.Context, req *types.RegisterRequest) (*types.UserInfo, error) {
	if a.users == nil {
		return nil, ErrNoUserStore
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := a.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !storage.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	role := req.Role
	if role == "" {
		role = types.RoleJobSeeker
	}
	if role != types.RoleJobSeeker && role != types.RoleRecruiter {
		return nil, ErrInvalidRole
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &storage.User{
		Email:        email,
		PasswordHash: hashed,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		CompanyName:  req.CompanyName,
		IsActive:     true,
	}
	if err := a.users.Create(ctx, user); err != nil {
		if storage.IsDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.WithUserID(user.ID).WithField("role", role).Info("User registered successfully")
	return user.Info(), nil
}

// Login authenticates a user and returns a JWT token
func (a *AuthService) Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error) {
	if a.users == nil {
		return nil, ErrNoUserStore
	}

	user, err := a.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if storage.IsNotFound(err) {
			a.logger.LogAuthFailure(ctx, "user_not_found", "", "")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.IsActive {
		a.logger.LogAuthFailure(ctx, "user_inactive", "", "")
		return nil, ErrAccountInactive
	}

	if err := utils.CheckPassword(req.Password, user.PasswordHash); err != nil {
		a.logger.LogAuthFailure(ctx, "invalid_password", "", "")
		return nil, ErrInvalidCredentials
	}

	token, expiresIn, err := a.IssueToken(Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := a.users.TouchLastLogin(ctx, user.ID); err != nil {
		a.logger.WithError(err).Warn("Failed to update last login timestamp")
	}

	a.logger.WithUserID(user.ID).Info("User logged in successfully")
	return &types.LoginResponse{Token: token, ExpiresIn: expiresIn, User: user.Info()}, nil
}

// IssueToken signs a token for id
func (a *AuthService) IssueToken(id Identity) (string, int64, error) {
	now := time.Now()
	expiration := a.config.JWTExpiration
	if expiration <= 0 {
		expiration = 7 * 24 * time.Hour
	}

	claims := &Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   id.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(expiration.Seconds()), nil
}

// ValidateJWT validates a JWT token and returns the claims
func (a *AuthService) ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshToken reissues a still-valid token with the user's current role
func (a *AuthService) RefreshToken(ctx context.Context, tokenString string) (*types.LoginResponse, error) {
	claims, err := a.ValidateJWT(tokenString)
	if err != nil {
		return nil, err
	}

	id := claims.Identity()
	var info *types.UserInfo
	if a.users != nil {
		user, err := a.users.GetByID(ctx, claims.UserID)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		if !user.IsActive {
			return nil, ErrAccountInactive
		}
		id = Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
		info = user.Info()
	}

	token, expiresIn, err := a.IssueToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &types.LoginResponse{Token: token, ExpiresIn: expiresIn, User: info}, nil
}

// CurrentUser loads the account behind id
func (a *AuthService) CurrentUser(ctx context.Context, id Identity) (*storage.User, error) {
	if a.users == nil {
		return nil, ErrNoUserStore
	}
	user, err := a.users.GetByID(ctx, id.UserID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ChangeRole lets an admin assign a new role to a user
func (a *AuthService) ChangeRole(ctx context.Context, actor Identity, userID string, role types.Role) (*storage.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if a.users == nil {
		return nil, ErrNoUserStore
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	oldRole := user.Role
	if err := a.users.UpdateRole(ctx, userID, role); err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.Role = role

	a.logger.WithUserID(userID).
		WithField("old_role", oldRole).
		WithField("new_role", role).
		WithField("changed_by", actor.UserID).
		Info("User role changed")
	return user, nil
}
