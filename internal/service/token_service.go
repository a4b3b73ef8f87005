package service

import (
	"fmt"
	"strconv"
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionClaims carries the caller identity inside the JWT.
type sessionClaims struct {
	Username  string `json:"username,omitempty"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type tokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewTokenService creates a JWT token service signing with HMAC-SHA256.
func NewTokenService(secret string, expiry time.Duration, issuer string) ports.TokenService {
	return &tokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate issues a signed session token for the user.
func (s *tokenService) Generate(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := sessionClaims{
		Username:  user.Username,
		SessionID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("sign token: %w", err))
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a session token, returning the caller identity.
func (s *tokenService) Validate(tokenString string) (*ports.AuthContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, apperror.ErrInvalidToken()
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, apperror.ErrInvalidToken()
	}

	return &ports.AuthContext{
		UserID:    userID,
		Username:  claims.Username,
		SessionID: claims.SessionID,
	}, nil
}
