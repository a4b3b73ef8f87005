package service

import (
	"context"

	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

type authCtxKey struct{}

// WithAuthContext attaches the authenticated caller to the request context.
// The auth middleware is the only writer.
func WithAuthContext(ctx context.Context, auth *ports.AuthContext) context.Context {
	return context.WithValue(ctx, authCtxKey{}, auth)
}

// AuthFromContext extracts the authenticated caller, if present.
func AuthFromContext(ctx context.Context) (*ports.AuthContext, bool) {
	auth, ok := ctx.Value(authCtxKey{}).(*ports.AuthContext)
	return auth, ok && auth != nil
}

type guardService struct {
	audit ports.AuditService
	log   zerolog.Logger
}

// NewGuardService creates the authorization choke point. Every cross-user
// check in the system funnels through AssertOwner so attempts are recorded
// in one place.
func NewGuardService(audit ports.AuditService, log zerolog.Logger) ports.Guard {
	return &guardService{audit: audit, log: log}
}

// RequireAuth returns the caller identity established by the auth middleware.
func (s *guardService) RequireAuth(ctx context.Context) (*ports.AuthContext, error) {
	auth, ok := AuthFromContext(ctx)
	if !ok {
		return nil, apperror.ErrInvalidToken()
	}
	return auth, nil
}

// AssertOwner fails closed when the caller targets another user's data. The
// attempt is recorded as a blocked security event before the error returns.
func (s *guardService) AssertOwner(ctx context.Context, caller *ports.AuthContext, targetUserID int64, resource string) error {
	if caller == nil {
		return apperror.ErrInvalidToken()
	}
	if caller.UserID == targetUserID {
		return nil
	}

	s.log.Warn().
		Int64("attempting_user_id", caller.UserID).
		Int64("target_user_id", targetUserID).
		Str("resource", resource).
		Msg("cross-user access attempt blocked")
	s.audit.LogCrossUserAccess(ctx, caller.UserID, targetUserID, resource, true)

	return apperror.ErrUnauthorized()
}
