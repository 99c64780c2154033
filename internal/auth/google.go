package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/tubedesk/backend/internal/logging"
	"github.com/tubedesk/backend/internal/models"
)

// GoogleVerifier checks Google ID tokens and OAuth access tokens.
type GoogleVerifier struct {
	clientID  string
	validator *idtoken.Validator
	opts      []option.ClientOption
}

// NewGoogleVerifier constructs a verifier for ID tokens issued to clientID. An
// empty clientID accepts any audience. opts apply to the userinfo client.
func NewGoogleVerifier(ctx context.Context, clientID string, opts ...option.ClientOption) (*GoogleVerifier, error) {
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}
	return &GoogleVerifier{clientID: clientID, validator: validator, opts: opts}, nil
}

// VerifyIDToken validates a Google ID token signature and audience.
func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, credential string) (models.ExternalIdentity, error) {
	ctx, span := logging.StartSpan(ctx, "google.verify_id_token")
	defer span.End()

	if v.validator == nil {
		err := errors.New("id token validation is not configured")
		span.Fail(err)
		return models.ExternalIdentity{}, err
	}

	payload, err := v.validator.Validate(ctx, credential, v.clientID)
	if err != nil {
		span.Fail(err)
		return models.ExternalIdentity{}, fmt.Errorf("validate id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	return models.ExternalIdentity{ExternalID: payload.Subject, Email: email, DisplayName: name}, nil
}

// VerifyAccessToken resolves an OAuth access token through the userinfo endpoint.
func (v *GoogleVerifier) VerifyAccessToken(ctx context.Context, credential string) (models.ExternalIdentity, error) {
	ctx, span := logging.StartSpan(ctx, "google.userinfo")
	defer span.End()

	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential})),
	}, v.opts...)

	svc, err := googleoauth.NewService(ctx, opts...)
	if err != nil {
		span.Fail(err)
		return models.ExternalIdentity{}, fmt.Errorf("create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		span.Fail(err)
		return models.ExternalIdentity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	return models.ExternalIdentity{ExternalID: info.Id, Email: info.Email, DisplayName: info.Name}, nil
}
