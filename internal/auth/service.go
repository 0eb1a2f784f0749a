package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"disclone/internal/models"
	"disclone/internal/repositories"
	"disclone/internal/telemetry"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrMissingUsername    = errors.New("username is required")
	ErrInvalidToken       = errors.New("invalid token")
)

const minPasswordLength = 6

// TokenStore persists the session identifier on the client side.
type TokenStore interface {
	Load() (string, bool)
	Save(token string)
	Clear()
}

// Resolution is the outcome of resolving a stored session.
type Resolution struct {
	Profile       models.Profile
	Authenticated bool
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service signs users up and in, and resolves persisted sessions to profiles.
type Service struct {
	profiles repositories.ProfileRepository
	secret   []byte
	ttl      time.Duration
	admins   map[string]struct{}
	audit    *telemetry.AuditEmitter
	now      func() time.Time
}

// NewService builds a Service. Usernames in admins get is_admin at sign-up.
func NewService(profiles repositories.ProfileRepository, secret string, ttl time.Duration, admins []string, audit *telemetry.AuditEmitter) *Service {
	set := make(map[string]struct{}, len(admins))
	for _, name := range admins {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			set[name] = struct{}{}
		}
	}
	return &Service{profiles: profiles, secret: []byte(secret), ttl: ttl, admins: set, audit: audit, now: time.Now}
}

// SignUp creates a profile and returns it with a fresh token.
func (s *Service) SignUp(ctx context.Context, username, password string) (models.Profile, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Profile{}, "", ErrMissingUsername
	}
	if len(password) < minPasswordLength {
		return models.Profile{}, "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Profile{}, "", err
	}
	_, isAdmin := s.admins[strings.ToLower(username)]
	profile, err := s.profiles.CreateProfile(ctx, username, string(hash), isAdmin)
	if errors.Is(err, repositories.ErrConflict) {
		return models.Profile{}, "", ErrUsernameTaken
	}
	if err != nil {
		return models.Profile{}, "", err
	}
	token, err := s.issue(profile)
	if err != nil {
		return models.Profile{}, "", err
	}
	s.audit.Emit(ctx, telemetry.ActionUserSignedUp, profile.ID, map[string]any{"username": profile.Username, "is_admin": profile.IsAdmin})
	return profile, token, nil
}

// SignIn checks credentials and returns the profile with a fresh token.
func (s *Service) SignIn(ctx context.Context, username, password string) (models.Profile, string, error) {
	creds, err := s.profiles.GetCredentials(ctx, strings.TrimSpace(username))
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Profile{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return models.Profile{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return models.Profile{}, "", ErrInvalidCredentials
	}
	profile, err := s.profiles.GetProfile(ctx, creds.ProfileID)
	if err != nil {
		return models.Profile{}, "", err
	}
	token, err := s.issue(profile)
	if err != nil {
		return models.Profile{}, "", err
	}
	s.audit.Emit(ctx, telemetry.ActionUserLoggedIn, profile.ID, nil)
	return profile, token, nil
}

// Register signs up and persists the session in store.
func (s *Service) Register(ctx context.Context, store TokenStore, username, password string) (models.Profile, error) {
	profile, token, err := s.SignUp(ctx, username, password)
	if err != nil {
		return models.Profile{}, err
	}
	store.Save(token)
	return profile, nil
}

// Login signs in and persists the session in store.
func (s *Service) Login(ctx context.Context, store TokenStore, username, password string) (models.Profile, error) {
	profile, token, err := s.SignIn(ctx, username, password)
	if err != nil {
		return models.Profile{}, err
	}
	store.Save(token)
	return profile, nil
}

// Logout forgets the persisted session.
func (s *Service) Logout(store TokenStore) {
	store.Clear()
}

// Resolve makes a single attempt to turn the stored token into a profile.
// Any failure clears the stored token and yields an unauthenticated result.
func (s *Service) Resolve(ctx context.Context, store TokenStore) Resolution {
	token, ok := store.Load()
	if !ok || token == "" {
		return Resolution{}
	}
	profileID, err := s.ValidateToken(token)
	if err != nil {
		store.Clear()
		return Resolution{}
	}
	profile, err := s.profiles.GetProfile(ctx, profileID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Printf("resolve session profile_id=%s: %v", profileID, err)
		}
		store.Clear()
		return Resolution{}
	}
	return Resolution{Profile: profile, Authenticated: true}
}

// ValidateToken verifies the token signature and expiry and returns the profile id.
func (s *Service) ValidateToken(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *Service) issue(profile models.Profile) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: profile.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "disclone",
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}
