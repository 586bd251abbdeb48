// Package magiclink issues and validates the convention-scoped tokens mailed
// to signatories and the establishment tutor. A token entitles its holder to
// act in one role on one convention and nothing else.
package magiclink

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
)

const issuer = "immersion"

// Claims carries the convention scope of a magic link.
type Claims struct {
	ConventionID string `json:"convention_id"`
	Role         string `json:"role"`
	Email        string `json:"email"`
	jwt.RegisteredClaims
}

// Service signs and validates magic-link tokens.
type Service struct {
	signingKey []byte
}

// NewService builds the magic-link signer over an HMAC key.
func NewService(signingKey string) *Service {
	return &Service{signingKey: []byte(signingKey)}
}

// Generate signs a token entitling email to act as role on one convention.
func (s *Service) Generate(conventionID id.ConventionID, role id.Role, email string, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ConventionID: conventionID.String(),
		Role:         string(role),
		Email:        email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses the token and returns its convention scope.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "link has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid link")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid link")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid link claims")
	}
	return claims, nil
}
