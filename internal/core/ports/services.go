package ports

import (
	"context"
	"time"

	"tuition-ledger/internal/core/domain"
)

// HashService handles secret hashing (Argon2id).
//
//go:generate mockgen -destination=mocks/mock_services.go -package=mocks tuition-ledger/internal/core/ports HashService,TokenService,CredentialStore,AuthService,PaymentLedger,LedgerQueryService,AuditService
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
	// IsHash reports whether stored looks like a hash this service produced.
	IsHash(stored string) bool
}

// Session is what an authenticated request knows about its caller.
type Session struct {
	Identity      string
	DisplayName   string
	EnrollmentRef string
	Admin         bool
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(session Session) (string, time.Time, error)
	Validate(tokenString string) (*Session, error)
}

// CredentialStore looks up and registers representatives.
type CredentialStore interface {
	// FindByIdentity returns the first record whose identifier matches and
	// whose secret equals secret after trimming. No match is (nil, nil).
	FindByIdentity(ctx context.Context, identifier, secret string) (*domain.CredentialRecord, error)
	// Lookup returns the first record whose identifier matches, or (nil, nil).
	Lookup(ctx context.Context, identifier string) (*domain.CredentialRecord, error)
	Register(ctx context.Context, rec domain.CredentialRecord) error
}

// --- Service Ports (Business Logic) ---

// AuthService defines authentication business logic.
type AuthService interface {
	Login(ctx context.Context, identifier, secret string) (*LoginResult, error)
	Register(ctx context.Context, req RegisterRequest) error
}

// LoginResult is a verified session and the token that carries it.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   Session
}

// RegisterRequest holds input for representative registration.
type RegisterRequest struct {
	Identifier    string
	Secret        string
	DisplayName   string
	EnrollmentRef string
}

// PaymentLedger appends and reads payment records.
type PaymentLedger interface {
	Append(ctx context.Context, sub domain.Submission) (*AppendResult, error)
	// Query returns records newest first. An empty identity returns all.
	Query(ctx context.Context, identity string) ([]domain.PaymentRecord, error)
}

// AppendResult is the persisted record plus any fields the store could not hold.
type AppendResult struct {
	Record   domain.PaymentRecord
	Drift    *domain.SchemaDriftWarning
	Replayed bool
}

// LedgerQueryService serves read access to the ledger.
type LedgerQueryService interface {
	ListAll(ctx context.Context) ([]domain.PaymentRecord, error)
	ListForRepresentative(ctx context.Context, identity string) ([]domain.PaymentRecord, error)
	Statement(ctx context.Context, identity string) (*domain.Statement, error)
}

// AuditService records audited actions without blocking the request.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
