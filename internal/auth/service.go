package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/albinfrick/habbit-service/internal/auth/entity"
	"github.com/albinfrick/habbit-service/pkg/utilities"
)

var (
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrUserExists      = errors.New("username or email already taken")
	ErrUnauthenticated = errors.New("not authenticated")
)

// userStore is the slice of the user repo the service needs.
type userStore interface {
	Create(ctx context.Context, u *entity.User) error
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

type Config struct {
	// Secret signs session tokens (HS256).
	Secret string
	// CronSecret authorizes the scheduled trigger surface.
	CronSecret string
	TokenTTL   time.Duration
}

// ConfigFromEnv reads auth config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Secret:     os.Getenv("AUTH_SECRET"),
		CronSecret: os.Getenv("CRON_SECRET"),
		TokenTTL:   24 * time.Hour,
	}
}

// Service is the session provider: it creates accounts, checks passwords
// and issues/verifies the bearer tokens that identify the acting user.
type Service struct {
	store userStore
	cfg   Config
}

func NewService(store userStore, cfg Config) *Service {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Service{store: store, cfg: cfg}
}

// Signup creates a user with a bcrypt-hashed password and returns the new id.
func (s *Service) Signup(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return "", errors.New("username, email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	u := &entity.User{
		ID:           utilities.NewKSUID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.store.Create(ctx, u); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", ErrUserExists
		}
		return "", err
	}
	return u.ID, nil
}

// Authenticate checks a password against the account matched by email or
// username (one identifier, email when it contains '@').
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*entity.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrBadCredentials
	}
	var u *entity.User
	var err error
	if strings.Contains(identifier, "@") {
		u, err = s.store.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		u, err = s.store.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// unknown users look like wrong passwords
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// IssueToken signs a session token carrying the user id in `sub`.
func (s *Service) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.TokenTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(s.cfg.Secret))
}

// VerifyToken parses a session token and returns the user id it names.
func (s *Service) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrUnauthenticated
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrUnauthenticated
	}
	return sub, nil
}

// UserFromRequest resolves the acting user from the Authorization header.
func (s *Service) UserFromRequest(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", ErrUnauthenticated
	}
	return s.VerifyToken(strings.TrimSpace(h[len("bearer "):]))
}

// CronAuthorized reports whether the request carries the scheduler's
// shared secret. Always false when no secret is configured.
func (s *Service) CronAuthorized(r *http.Request) bool {
	if s.cfg.CronSecret == "" {
		return false
	}
	got := r.Header.Get("X-Cron-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.CronSecret)) == 1
}
