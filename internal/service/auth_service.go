package service

import (
	"context"
	"fmt"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	creds    ports.CredentialStore
	tokenSvc ports.TokenService
	admins   map[string]struct{}
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl. Identities listed in admins
// receive administrative sessions.
func NewAuthService(
	creds ports.CredentialStore,
	tokenSvc ports.TokenService,
	admins []string,
	log zerolog.Logger,
) *AuthServiceImpl {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		if n := domain.NormalizeIdentity(a); n != "" {
			set[n] = struct{}{}
		}
	}
	return &AuthServiceImpl{
		creds:    creds,
		tokenSvc: tokenSvc,
		admins:   set,
		log:      log,
	}
}

// Login verifies the credentials and issues a session token. A store
// failure is returned as such and never reported as bad credentials.
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, secret string) (*ports.LoginResult, error) {
	rec, err := s.creds.FindByIdentity(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		s.log.Debug().Str("identity", domain.NormalizeIdentity(identifier)).Msg("login rejected")
		return nil, apperror.ErrInvalidCredentials()
	}

	session := ports.Session{
		Identity:      rec.Identifier,
		DisplayName:   rec.DisplayName,
		EnrollmentRef: rec.EnrollmentRef,
		Admin:         s.isAdmin(rec.Identifier),
	}
	token, expiresAt, err := s.tokenSvc.Generate(session)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().
		Str("identity", domain.NormalizeIdentity(rec.Identifier)).
		Bool("admin", session.Admin).
		Msg("representative logged in")

	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, Session: session}, nil
}

// Register creates a representative account.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) error {
	return s.creds.Register(ctx, domain.CredentialRecord{
		Identifier:    req.Identifier,
		Secret:        req.Secret,
		DisplayName:   req.DisplayName,
		EnrollmentRef: req.EnrollmentRef,
	})
}

func (s *AuthServiceImpl) isAdmin(identity string) bool {
	_, ok := s.admins[domain.NormalizeIdentity(identity)]
	return ok
}
