// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"bookwise/config"
	"bookwise/internal/domain/entity"
	domainerrors "bookwise/internal/domain/errors"
	"bookwise/internal/domain/repository"
	"bookwise/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const refreshTypeClaim = "refresh"

// tokenClaims is the wire shape of the five claims a token carries.
type tokenClaims struct {
	UserID string `json:"uid"`
	Type   string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// jwtService is the production TokenService. One symmetric key signs both
// token types; every mint persists a token record before the token string is
// released to the caller.
type jwtService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	tokenRepo  repository.TokenRepository
	logger     *slog.Logger
}

// NewJWTService validates the token configuration and builds the service.
// Configuration violations (empty secret, access TTL below the one minute
// floor, refresh TTL not exceeding access TTL) abort startup here.
func NewJWTService(cfg *config.Config, tokenRepo repository.TokenRepository, logger *slog.Logger) (service.TokenService, error) {
	if err := cfg.JWT.Validate(logger); err != nil {
		return nil, errors.Wrap(err, "invalid jwt configuration")
	}

	logger.Info("JWT token service initialized",
		slog.Duration("access_ttl", cfg.JWT.AccessTokenTTL),
		slog.Duration("refresh_ttl", cfg.JWT.RefreshTokenTTL),
	)

	return &jwtService{
		secret:     []byte(cfg.JWT.SecretKey),
		accessTTL:  cfg.JWT.AccessTokenTTL,
		refreshTTL: cfg.JWT.RefreshTokenTTL,
		tokenRepo:  tokenRepo,
		logger:     logger,
	}, nil
}

// GenerateAccessToken mints a short-lived access token for the user.
func (s *jwtService) GenerateAccessToken(ctx context.Context, user *entity.User) (string, error) {
	return s.generateToken(ctx, user, entity.TokenTypeAccess, s.accessTTL)
}

// GenerateRefreshToken mints a long-lived refresh token for the user. The
// refresh token carries an explicit type claim so it can be told apart from
// an access token after decoding.
func (s *jwtService) GenerateRefreshToken(ctx context.Context, user *entity.User) (string, error) {
	return s.generateToken(ctx, user, entity.TokenTypeRefresh, s.refreshTTL)
}

func (s *jwtService) generateToken(ctx context.Context, user *entity.User, tokenType entity.TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	tokenID := uuid.New()

	claims := tokenClaims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        tokenID.String(),
		},
	}
	if tokenType == entity.TokenTypeRefresh {
		claims.Type = refreshTypeClaim
	}

	s.logger.Debug("Minting token",
		slog.String("type", string(tokenType)),
		slog.String("email", user.Email),
	)

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	// The record must exist before the token is observable by the caller.
	record := &entity.UserToken{
		UserID:    user.ID,
		Token:     tokenString,
		Type:      tokenType,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.tokenRepo.Save(ctx, record); err != nil {
		s.logger.Error("Failed to save token record",
			slog.String("type", string(tokenType)),
			slog.Any("error", err),
		)

		return "", errors.Wrap(domainerrors.ErrTokenPersistence, err.Error())
	}

	return tokenString, nil
}

// Validate reports whether the token is structurally sound, carries a valid
// signature and is unexpired. Bad input of any shape yields false.
func (s *jwtService) Validate(tokenString string) bool {
	if strings.TrimSpace(tokenString) == "" || strings.Count(tokenString, ".") != 2 {
		s.logger.Warn("Token rejected: malformed structure")

		return false
	}

	_, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, s.keyFunc)
	switch {
	case err == nil:
		return true
	case errors.Is(err, jwt.ErrTokenExpired):
		s.logger.Warn("Token rejected: expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		s.logger.Warn("Token rejected: invalid signature")
	case errors.Is(err, jwt.ErrTokenMalformed):
		s.logger.Warn("Token rejected: malformed")
	default:
		s.logger.Warn("Token rejected", slog.Any("error", err))
	}

	return false
}

// Claims decodes the token payload. An expired token with a valid signature
// still yields its claims; every other failure is returned to the caller.
func (s *jwtService) Claims(tokenString string) (*service.Claims, error) {
	parsed := &tokenClaims{}

	_, err := jwt.ParseWithClaims(tokenString, parsed, s.keyFunc)
	if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		return nil, errors.Wrap(err, "failed to parse token claims")
	}
	if err != nil {
		s.logger.Debug("Recovered claims from expired token", slog.String("subject", parsed.Subject))
	}

	return toDomainClaims(parsed)
}

// Subject returns the subject (email) claim.
func (s *jwtService) Subject(tokenString string) (string, error) {
	claims, err := s.Claims(tokenString)
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

// UserID returns the user-id claim.
func (s *jwtService) UserID(tokenString string) (uuid.UUID, error) {
	claims, err := s.Claims(tokenString)
	if err != nil {
		return uuid.Nil, err
	}

	return claims.UserID, nil
}

// ExpiresAt returns the expiry claim.
func (s *jwtService) ExpiresAt(tokenString string) (time.Time, error) {
	claims, err := s.Claims(tokenString)
	if err != nil {
		return time.Time{}, err
	}

	return claims.ExpiresAt, nil
}

// keyFunc restricts verification to HMAC and hands the shared secret to the parser.
func (s *jwtService) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrSignatureInvalid
	}

	return s.secret, nil
}

func toDomainClaims(parsed *tokenClaims) (*service.Claims, error) {
	userID, err := uuid.Parse(parsed.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid user id claim")
	}

	tokenID, err := uuid.Parse(parsed.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid token id claim")
	}

	tokenType := entity.TokenTypeAccess
	if parsed.Type == refreshTypeClaim {
		tokenType = entity.TokenTypeRefresh
	}

	claims := &service.Claims{
		Subject:   parsed.Subject,
		UserID:    userID,
		TokenID:   tokenID,
		TokenType: tokenType,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}

	return claims, nil
}
