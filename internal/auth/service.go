package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/idtoken"
)

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid authentication credentials")

// Identity is the verified subject extracted from a Google ID token
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// ValidateFunc verifies a raw ID token against an audience. Extracted so
// tests can substitute the Google endpoint.
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// Service verifies Google ID tokens for the configured OAuth client
type Service struct {
	clientID string
	validate ValidateFunc
}

// NewService creates an auth service from the GOOGLE_CLIENT_ID environment
func NewService() (*Service, error) {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID environment variable is not set")
	}
	return &Service{clientID: clientID, validate: idtoken.Validate}, nil
}

// NewServiceWithValidator creates an auth service with a custom token
// validator, used by tests
func NewServiceWithValidator(clientID string, validate ValidateFunc) *Service {
	return &Service{clientID: clientID, validate: validate}
}

// Verify checks the token signature, audience, and issuer, and returns the
// verified identity
func (s *Service) Verify(ctx context.Context, token string) (*Identity, error) {
	payload, err := s.validate(ctx, token, s.clientID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, ErrInvalidToken
	}

	identity := &Identity{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		identity.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		identity.Picture = picture
	}

	if identity.Subject == "" || identity.Email == "" {
		return nil, ErrInvalidToken
	}

	return identity, nil
}
