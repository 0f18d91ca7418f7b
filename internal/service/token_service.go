package service

import (
	"errors"
	"fmt"
	"time"

	"tuition-ledger/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
	}
}

type sessionClaims struct {
	Name       string `json:"name,omitempty"`
	Enrollment string `json:"enr,omitempty"`
	Admin      bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// Generate creates a signed JWT carrying the session.
func (s *JWTTokenService) Generate(session ports.Session) (string, time.Time, error) {
	if session.Identity == "" {
		return "", time.Time{}, errors.New("session has no identity")
	}
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := sessionClaims{
		Name:       session.DisplayName,
		Enrollment: session.EnrollmentRef,
		Admin:      session.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   session.Identity,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// Validate parses and validates a JWT token, returning the session.
func (s *JWTTokenService) Validate(tokenString string) (*ports.Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject claim")
	}

	return &ports.Session{
		Identity:      claims.Subject,
		DisplayName:   claims.Name,
		EnrollmentRef: claims.Enrollment,
		Admin:         claims.Admin,
	}, nil
}
