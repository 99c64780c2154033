package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tubedesk/backend/internal/models"
)

var (
	// ErrInvalidExternalCredential indicates the sign-in provider rejected the credential.
	ErrInvalidExternalCredential = errors.New("invalid external credential")
	// ErrMissingEmail indicates the provider identity carried no email address.
	ErrMissingEmail = errors.New("external identity has no email")
)

// CredentialVerifier checks a provider credential and returns the identity it belongs to.
type CredentialVerifier interface {
	VerifyIDToken(ctx context.Context, credential string) (models.ExternalIdentity, error)
	VerifyAccessToken(ctx context.Context, credential string) (models.ExternalIdentity, error)
}

// IdentityStore persists users keyed by their provider identity.
type IdentityStore interface {
	UpsertExternal(ctx context.Context, identity models.ExternalIdentity, accessToken string) (models.User, error)
}

// Resolver exchanges a provider credential for a local user, creating it on first sight.
type Resolver struct {
	verifier CredentialVerifier
	users    IdentityStore
}

// NewResolver constructs a Resolver.
func NewResolver(verifier CredentialVerifier, users IdentityStore) *Resolver {
	return &Resolver{verifier: verifier, users: users}
}

// Resolve verifies credential and upserts the matching user. The credential is
// stored as the user's external access token, replacing any previous one.
func (r *Resolver) Resolve(ctx context.Context, credential string) (models.User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return models.User{}, ErrInvalidExternalCredential
	}
	if r.verifier == nil || r.users == nil {
		return models.User{}, errors.New("auth: identity resolver is not configured")
	}

	identity, err := r.verify(ctx, credential)
	if err != nil {
		return models.User{}, err
	}
	if identity.Email == "" {
		return models.User{}, ErrMissingEmail
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.Email
	}

	user, err := r.users.UpsertExternal(ctx, identity, credential)
	if err != nil {
		return models.User{}, fmt.Errorf("upsert external user: %w", err)
	}
	return user, nil
}

func (r *Resolver) verify(ctx context.Context, credential string) (models.ExternalIdentity, error) {
	first, second := r.verifier.VerifyAccessToken, r.verifier.VerifyIDToken
	if looksLikeJWT(credential) {
		first, second = second, first
	}

	identity, firstErr := attempt(ctx, first, credential)
	if firstErr == nil {
		return identity, nil
	}
	identity, secondErr := attempt(ctx, second, credential)
	if secondErr == nil {
		return identity, nil
	}
	return models.ExternalIdentity{}, fmt.Errorf("%w: %w", ErrInvalidExternalCredential, errors.Join(firstErr, secondErr))
}

func attempt(ctx context.Context, verify func(context.Context, string) (models.ExternalIdentity, error), credential string) (models.ExternalIdentity, error) {
	identity, err := verify(ctx, credential)
	if err != nil {
		return models.ExternalIdentity{}, err
	}
	if identity.ExternalID == "" {
		return models.ExternalIdentity{}, errors.New("identity has no subject")
	}
	return identity, nil
}

// looksLikeJWT reports whether s has the three dot-separated segments of a JWS.
func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
