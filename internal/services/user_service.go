package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// AuthClaims is the JWT payload issued on login.
type AuthClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserService handles admin accounts: registration with bcrypt hashing
// and login issuing a signed tenant-scoped token.
type UserService struct {
	db        core.DbClient
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *slog.Logger
}

func NewUserService(db core.DbClient, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *UserService {
	return &UserService{db: db, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL, log: logger}
}

// RegisterInput carries new-account fields.
type RegisterInput struct {
	TenantID string `json:"tenantId"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", core.ErrValidation)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", core.ErrValidation)
	}
	if in.TenantID == "" {
		return nil, fmt.Errorf("%w: tenant id required", core.ErrValidation)
	}

	role := in.Role
	switch role {
	case "":
		role = models.RoleTenantAdmin
	case models.RoleSuperAdmin, models.RoleTenantAdmin, models.RoleTenantUser:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", core.ErrValidation, in.Role)
	}

	existing, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", core.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		TenantID:     in.TenantID,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", "tenant_id", user.TenantID, "email", email, "role", role)
	return user, nil
}

// Login verifies credentials and returns a signed token. Wrong email and
// wrong password produce the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", core.ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", core.ErrForbidden)
	}

	now := time.Now()
	claims := AuthClaims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, user, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *UserService) ParseToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", core.ErrForbidden)
	}
	return claims, nil
}
