package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/mykana/wellness/internal/audit"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must have at least 6 characters")
	ErrPasswordMismatch   = errors.New("new password must differ from the current one")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

const MinPasswordLength = 6

type Claims struct {
	jwt.RegisteredClaims
	PatientID string `json:"patient_id"`
	Email     string `json:"email"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Status       string    `json:"status"`
	LastLogin    time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type Service interface {
	Register(ctx context.Context, name, email, password string) (*User, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
}

type service struct {
	users       UserStore
	audit       audit.Service
	jwtSecret   []byte
	tokenExpiry time.Duration
	bcryptCost  int
	now         func() time.Time
}

type AuthServiceConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func NewService(db *pgxpool.Pool, audit audit.Service, config AuthServiceConfig) Service {
	return NewServiceWithStore(NewPostgresUserStore(db), audit, config)
}

func NewServiceWithStore(users UserStore, audit audit.Service, config AuthServiceConfig) Service {
	cost := config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	expiry := config.TokenExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &service{
		users:       users,
		audit:       audit,
		jwtSecret:   []byte(config.JWTSecret),
		tokenExpiry: expiry,
		bcryptCost:  cost,
		now:         time.Now,
	}
}

func (s *service) Register(ctx context.Context, name, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		UserID:     user.ID,
		Action:     "REGISTER",
		Resource:   "user",
		ResourceID: user.ID,
		Status:     "success",
		Details:    audit.Details(map[string]interface{}{"email": email}),
	})
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Status != "active" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logEvent(ctx, &audit.AuditEvent{
			EventType:  audit.EventLogin,
			UserID:     user.ID,
			Action:     "LOGIN",
			Resource:   "user",
			ResourceID: user.ID,
			Status:     "failure",
			Details:    audit.Details(map[string]interface{}{"reason": "invalid_password"}),
		})
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLogin = now

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventLogin,
		UserID:     user.ID,
		Action:     "LOGIN",
		Resource:   "user",
		ResourceID: user.ID,
		Status:     "success",
	})

	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *service) generateToken(user *User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenExpiry)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
			Subject:   user.ID,
		},
		PatientID: user.ID,
		Email:     user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *service) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PatientID == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.UserByID(ctx, claims.PatientID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if user.Status != "active" {
		return nil, ErrUserNotFound
	}
	return claims, nil
}

func (s *service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		s.logEvent(ctx, &audit.AuditEvent{
			EventType:  audit.EventPasswordChange,
			UserID:     userID,
			Action:     "CHANGE_PASSWORD",
			Resource:   "user",
			ResourceID: userID,
			Status:     "failure",
		})
		return ErrInvalidCredentials
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	if newPassword == oldPassword {
		return ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash), s.now().UTC()); err != nil {
		return err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventPasswordChange,
		UserID:     userID,
		Action:     "CHANGE_PASSWORD",
		Resource:   "user",
		ResourceID: userID,
		Status:     "success",
	})
	return nil
}

func (s *service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	return s.users.UserByID(ctx, userID)
}

func (s *service) logEvent(ctx context.Context, event *audit.AuditEvent) {
	if s.audit == nil {
		return
	}
	event.Sensitivity = "HIGH"
	s.audit.LogEvent(ctx, event)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
