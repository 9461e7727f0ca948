package service

import (
	"context"
	"fmt"
	"time"

	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
)

// operatorSubject is the JWT subject for the single operator identity.
const operatorSubject = "operator"

// AuthServiceImpl implements ports.AuthService. The admin API has a single
// operator identity: a pre-shared API key whose Argon2id hash is held in
// configuration, exchanged for a short-lived JWT session.
type AuthServiceImpl struct {
	apiKeyHash string
	hashSvc    ports.HashService
	tokenSvc   ports.TokenService
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(apiKeyHash string, hashSvc ports.HashService, tokenSvc ports.TokenService, log zerolog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		apiKeyHash: apiKeyHash,
		hashSvc:    hashSvc,
		tokenSvc:   tokenSvc,
		log:        log,
	}
}

// IssueToken verifies the API key against the configured hash and returns a
// signed session token.
func (s *AuthServiceImpl) IssueToken(ctx context.Context, apiKey string) (string, time.Time, error) {
	if apiKey == "" || s.apiKeyHash == "" {
		return "", time.Time{}, apperror.ErrInvalidAPIKey()
	}

	valid, err := s.hashSvc.Verify(apiKey, s.apiKeyHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify api key: %w", err))
	}
	if !valid {
		s.log.Warn().Msg("admin token request with invalid api key")
		return "", time.Time{}, apperror.ErrInvalidAPIKey()
	}

	token, expiry, err := s.tokenSvc.Generate(operatorSubject)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
