package app

import (
	"context"
	"strings"

	"propsheet-service/internal/auth"
	"propsheet-service/internal/domain"
)

const maxDisplayName = 120

// UserRepository stores identities keyed by normalized phone number.
type UserRepository interface {
	FindByPhone(ctx context.Context, phone string) (domain.User, error)
	// FindOrCreateByPhone must be idempotent: repeated calls for one phone return one user.
	FindOrCreateByPhone(ctx context.Context, phone, displayName string) (domain.User, error)
}

// IdentityService implements the verify callbacks of both sign-in strategies.
type IdentityService struct {
	users UserRepository
}

func NewIdentityService(users UserRepository) *IdentityService {
	return &IdentityService{users: users}
}

// VerifyMagicLink only looks users up during the pre-check, and creates them once the
// visitor has proven they own the phone by following the link.
func (s *IdentityService) VerifyMagicLink(ctx context.Context, params auth.VerifyParams) (domain.User, error) {
	if !params.MagicLinkVerify {
		return s.users.FindByPhone(ctx, params.Phone)
	}
	return s.users.FindOrCreateByPhone(ctx, params.Phone, displayName(params))
}

// VerifyPhone resolves the identity for the simple phone strategy.
func (s *IdentityService) VerifyPhone(ctx context.Context, params auth.VerifyParams) (domain.User, error) {
	return s.users.FindOrCreateByPhone(ctx, params.Phone, displayName(params))
}

func displayName(params auth.VerifyParams) string {
	name := strings.TrimSpace(params.Form.Get("name"))
	if len(name) > maxDisplayName {
		name = name[:maxDisplayName]
	}
	return name
}
