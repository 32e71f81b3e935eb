// Package security implements engineer accounts and bearer token auth.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/datastore"
	"github.com/toolkitvision/toolcheck-go/internal/errors"
	"github.com/toolkitvision/toolcheck-go/internal/logging"
)

const (
	RoleEngineer = "engineer"
	RoleAdmin    = "admin"

	tokenBytes    = 32
	tokenCacheTTL = 5 * time.Minute
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("security")
	if logger == nil {
		logger = slog.Default().With("service", "security")
	}
}

// AuthService issues and validates bearer tokens backed by the datastore.
// Token lookups are cached for a short period to keep the hot path off
// the database.
type AuthService struct {
	store      datastore.Interface
	tokenCache *cache.Cache

	mu           sync.Mutex
	activeTokens map[uint]string // engineer id -> cached token value
}

func NewAuthService(store datastore.Interface) *AuthService {
	return &AuthService{
		store:        store,
		tokenCache:   cache.New(tokenCacheTTL, 10*time.Minute),
		activeTokens: make(map[uint]string),
	}
}

// cacheToken stores a token lookup and evicts the engineer's previously
// cached token, so a token revoked by a new login stops authenticating
// immediately instead of lingering until its cache TTL.
func (s *AuthService) cacheToken(token string, engineer datastore.Engineer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if previous, ok := s.activeTokens[engineer.ID]; ok && previous != token {
		s.tokenCache.Delete(previous)
	}
	s.activeTokens[engineer.ID] = token
	s.tokenCache.Set(token, engineer, cache.DefaultExpiration)
}

// EnsureAdmin creates the bootstrap admin account when no engineers
// exist yet. Credentials come from the security section of the config.
func (s *AuthService) EnsureAdmin(settings *conf.Settings) error {
	count, err := s.store.CountEngineers()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	engineer, err := s.Register(settings.Security.AdminUsername, settings.Security.AdminPassword, RoleAdmin)
	if err != nil {
		return err
	}
	logger.Info("bootstrap admin account created", "username", engineer.Username)
	return nil
}

// Register creates a new engineer account with a bcrypt password hash.
func (s *AuthService) Register(username, password, role string) (datastore.Engineer, error) {
	if username == "" || password == "" {
		return datastore.Engineer{}, errors.ValidationError("username and password are required")
	}
	if role == "" {
		role = RoleEngineer
	}
	if role != RoleEngineer && role != RoleAdmin {
		return datastore.Engineer{}, errors.ValidationError("unknown role %q", role)
	}

	if _, err := s.store.GetEngineerByUsername(username); err == nil {
		return datastore.Engineer{}, errors.ValidationError("username %s is already taken", username)
	} else if !errors.IsNotFound(err) {
		return datastore.Engineer{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return datastore.Engineer{}, errors.New(fmt.Errorf("hashing password: %w", err)).
			Component("security").
			Category(errors.CategoryAuth).
			Build()
	}

	engineer := datastore.Engineer{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.store.SaveEngineer(&engineer); err != nil {
		return datastore.Engineer{}, err
	}
	logger.Info("engineer account created", "username", username, "role", role)
	return engineer, nil
}

// Authenticate checks credentials and issues a fresh bearer token.
// Issuing a token revokes any previous token of the same engineer.
func (s *AuthService) Authenticate(username, password string) (string, datastore.Engineer, error) {
	engineer, err := s.store.GetEngineerByUsername(username)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", datastore.Engineer{}, invalidCredentials()
		}
		return "", datastore.Engineer{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(engineer.PasswordHash), []byte(password)) != nil {
		return "", datastore.Engineer{}, invalidCredentials()
	}

	token, err := generateToken()
	if err != nil {
		return "", datastore.Engineer{}, err
	}
	if err := s.store.IssueToken(&datastore.AccessToken{Token: token, EngineerID: engineer.ID}); err != nil {
		return "", datastore.Engineer{}, err
	}

	s.cacheToken(token, engineer)
	logger.Info("engineer logged in", "username", username)
	return token, engineer, nil
}

// EngineerByToken resolves a bearer token to its engineer account.
func (s *AuthService) EngineerByToken(token string) (datastore.Engineer, error) {
	if token == "" {
		return datastore.Engineer{}, invalidToken()
	}
	if cached, found := s.tokenCache.Get(token); found {
		return cached.(datastore.Engineer), nil
	}

	access, err := s.store.GetTokenWithEngineer(token)
	if err != nil {
		if errors.IsNotFound(err) {
			return datastore.Engineer{}, invalidToken()
		}
		return datastore.Engineer{}, err
	}

	s.cacheToken(token, access.Engineer)
	return access.Engineer, nil
}

// RevokeToken logs a token out. Revoking an unknown token succeeds.
func (s *AuthService) RevokeToken(token string) error {
	s.tokenCache.Delete(token)
	return s.store.DeleteToken(token)
}

func generateToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.New(fmt.Errorf("generating token: %w", err)).
			Component("security").
			Category(errors.CategoryAuth).
			Build()
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func invalidCredentials() error {
	return errors.Newf("invalid username or password").
		Component("security").
		Category(errors.CategoryAuth).
		Build()
}

func invalidToken() error {
	return errors.Newf("invalid or expired token").
		Component("security").
		Category(errors.CategoryAuth).
		Build()
}
