package auth

import (
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sl"
	"strings"
	"sync"
	"time"
)

const issuer = "prism"

type Repository interface {
	CheckApiKey(key string) (string, error)
}

// Claims is the JWT payload of a user token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
	AgencyID string `json:"agency_id,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	jwt.RegisteredClaims
}

// Service authenticates bearer tokens: signed user JWTs, the static master
// key and service API keys stored in the repository.
type Service struct {
	repository Repository
	secret     []byte
	ttl        time.Duration
	masterKey  string
	keys       map[string]string
	mu         sync.RWMutex
	now        func() time.Time
	log        *slog.Logger
}

func NewAuthService(logger *slog.Logger, secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		keys:   make(map[string]string),
		now:    time.Now,
		log:    logger.With(sl.Module("auth-service")),
	}
}

func (s *Service) SetRepository(repository Repository) {
	s.repository = repository
}

// SetMasterKey enables a static service key. An empty key disables it.
func (s *Service) SetMasterKey(key string) {
	s.masterKey = key
}

// IssueToken signs a token for user valid for the configured TTL.
func (s *Service) IssueToken(user entity.UserAuth) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("jwt secret is not configured")
	}
	if err := checkIdentity(&user); err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := &Claims{
		UserID:   user.UserID,
		Username: user.Username,
		Role:     user.Role,
		AgencyID: user.AgencyID,
		ClientID: user.ClientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

func checkIdentity(user *entity.UserAuth) error {
	if user.UserID == "" {
		return fmt.Errorf("%w: user_id is required", entity.ErrInvalidInput)
	}
	switch user.Role {
	case entity.RoleClient:
		if user.AgencyID == "" || user.ClientID == "" {
			return fmt.Errorf("%w: client users need agency_id and client_id", entity.ErrInvalidInput)
		}
	case entity.RoleAopr, entity.RoleAdmin:
		if user.AgencyID == "" {
			return fmt.Errorf("%w: staff users need agency_id", entity.ErrInvalidInput)
		}
	case entity.RoleService:
	default:
		return fmt.Errorf("%w: unknown role %q", entity.ErrInvalidInput, user.Role)
	}
	return nil
}

// AuthenticateByToken resolves a bearer token to its user.
func (s *Service) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	if s.masterKey != "" && token == s.masterKey {
		return serviceUser("master"), nil
	}
	if strings.Count(token, ".") == 2 {
		return s.parse(token)
	}
	return s.apiKey(token)
}

// ValidateToken is AuthenticateByToken under the name the socket handler expects.
func (s *Service) ValidateToken(token string) (*entity.UserAuth, error) {
	return s.AuthenticateByToken(token)
}

func (s *Service) parse(token string) (*entity.UserAuth, error) {
	if len(s.secret) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	user := &entity.UserAuth{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		AgencyID: claims.AgencyID,
		ClientID: claims.ClientID,
	}
	if err := checkIdentity(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) apiKey(key string) (*entity.UserAuth, error) {
	s.mu.RLock()
	username, ok := s.keys[key]
	s.mu.RUnlock()
	if ok {
		return serviceUser(username), nil
	}

	if s.repository == nil {
		return nil, errors.New("unknown key")
	}
	username, err := s.repository.CheckApiKey(key)
	if err != nil {
		s.log.With(sl.Secret("key", key)).Debug("api key rejected")
		return nil, fmt.Errorf("check api key: %w", err)
	}

	s.mu.Lock()
	s.keys[key] = username
	s.mu.Unlock()
	return serviceUser(username), nil
}

func serviceUser(username string) *entity.UserAuth {
	return &entity.UserAuth{
		UserID:   username,
		Username: username,
		Role:     entity.RoleService,
	}
}
