package services

import (
	"strings"
	"time"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/security"
	"github.com/bernice-stories/bernice/pkg/config"
)

// Session is an issued demo identity.
type Session struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService issues and checks demo identity tokens. There is no wallet
// signature check; the token only carries the claimed address.
type AuthService struct {
	secret string
	ttl    time.Duration
	logger *logging.ChanneledLogger
}

// NewAuthService uses secret, or a random per-process secret when empty.
func NewAuthService(secret string, logger *logging.ChanneledLogger) (*AuthService, error) {
	if secret == "" {
		generated, err := security.GenerateSecureKey(64)
		if err != nil {
			return nil, err
		}
		secret = generated
		logger.Auth().Warn("BERNICE_JWT_SECRET not set, using a per-process secret")
	}
	return &AuthService{secret: secret, ttl: config.DemoTokenTTL, logger: logger}, nil
}

func (s *AuthService) IssueSession(address, username string) (*Session, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperrors.Validation("address is required")
	}
	username = strings.TrimSpace(username)

	token, expires, err := security.GenerateSessionToken(address, username, s.secret, s.ttl)
	if err != nil {
		return nil, apperrors.Internal("failed to issue session", err)
	}
	s.logger.Auth().Info("Session issued", "address", address)
	return &Session{Token: token, Address: address, Username: username, ExpiresAt: expires}, nil
}

// Authenticate validates a bearer token.
func (s *AuthService) Authenticate(token string) (*security.SessionClaims, error) {
	claims, err := security.ParseSessionToken(token, s.secret)
	if err != nil {
		s.logger.Auth().Debug("Rejected session token", "error", err.Error())
		return nil, apperrors.Unauthorized("invalid or expired session token")
	}
	return claims, nil
}
