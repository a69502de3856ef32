// Package auth handles credential storage and bearer token issuance.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/careerprep/internal/apperr"
	"github.com/garnizeh/careerprep/pkg/models"
	"github.com/garnizeh/careerprep/pkg/repository"
)

const claimUserID = "user_id"

var (
	// ErrMissingToken is returned when no bearer token was presented.
	ErrMissingToken = errors.New("auth: missing token")
	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
)

var logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// SetLogger installs a logger for the auth package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

type Credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// Session is returned by Register and Login.
type Session struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type Service struct {
	users         repository.UserRepo
	secret        []byte
	tokenDuration time.Duration
	cost          int
	now           func() time.Time
}

type Option func(*Service)

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(users repository.UserRepo, secret string, tokenDuration time.Duration, opts ...Option) *Service {
	s := &Service{
		users:         users,
		secret:        []byte(secret),
		tokenDuration: tokenDuration,
		cost:          bcrypt.DefaultCost,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, c Credentials) (*Session, error) {
	c.Username = strings.TrimSpace(c.Username)
	if err := apperr.Validate(c); err != nil {
		return nil, err
	}
	// The tag counts runes; bcrypt counts bytes.
	if len(c.Password) > maxPasswordBytes {
		return nil, apperr.Validation("Invalid input", apperr.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes),
		})
	}

	existing, err := s.users.GetUserByUsername(ctx, c.Username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("Username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, &models.User{Username: c.Username, PasswordHash: string(hash)})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict("Username already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.session(u)
}

// Login verifies the credentials. Unknown users and wrong passwords produce
// the same error.
func (s *Service) Login(ctx context.Context, c Credentials) (*Session, error) {
	c.Username = strings.TrimSpace(c.Username)
	if err := apperr.Validate(c); err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByUsername(ctx, c.Username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		logger.Info("login: unknown user", slog.String("username", c.Username))
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)) != nil {
		logger.Info("login: password mismatch", slog.String("user_id", u.ID))
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return s.session(u)
}

// Me returns the user behind an authenticated request.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{ID: u.ID, Username: u.Username, Token: token}, nil
}

// IssueToken signs an HS256 token carrying the user id.
func (s *Service) IssueToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		claimUserID: userID,
		"exp":       s.now().Add(s.tokenDuration).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token and returns its user id.
func (s *Service) ParseToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	id, ok := claims[claimUserID].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: no %s claim", ErrInvalidToken, claimUserID)
	}
	return id, nil
}
