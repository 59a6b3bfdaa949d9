package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrUnverifiedEmail = errors.New("identity provider returned no verified email")

// ExternalIdentity is the subset of a provider profile used to sign a user in.
type ExternalIdentity struct {
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

// IdentityProvider runs the authorization-code flow against an external provider.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (ExternalIdentity, error)
}

type GoogleProvider struct {
	conf *oauth2.Config
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{conf: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{goauth2.UserinfoEmailScope, goauth2.UserinfoProfileScope},
		Endpoint:     google.Endpoint,
	}}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (ExternalIdentity, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("oauth exchange: %w", err)
	}
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(p.conf.TokenSource(ctx, tok)))
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("oauth userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("oauth userinfo: %w", err)
	}
	return identityFrom(info)
}

func identityFrom(info *goauth2.Userinfo) (ExternalIdentity, error) {
	if info == nil || strings.TrimSpace(info.Email) == "" {
		return ExternalIdentity{}, ErrUnverifiedEmail
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return ExternalIdentity{}, ErrUnverifiedEmail
	}
	id := ExternalIdentity{
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		AvatarURL: info.Picture,
	}
	if id.FirstName == "" && id.LastName == "" {
		id.FirstName = info.Name
	}
	return id, nil
}

var _ IdentityProvider = (*GoogleProvider)(nil)
