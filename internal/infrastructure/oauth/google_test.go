package oauth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goauth2 "google.golang.org/api/oauth2/v2"
)

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleProvider("client-1", "secret", "http://localhost:8080/api/auth/google/callback")
	raw := p.AuthCodeURL("state-123")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/api/auth/google/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}

func TestIdentityFrom(t *testing.T) {
	verified, unverified := true, false

	id, err := identityFrom(&goauth2.Userinfo{Email: "ana@example.com", GivenName: "Ana", FamilyName: "Lopez", VerifiedEmail: &verified})
	require.NoError(t, err)
	assert.Equal(t, ExternalIdentity{Email: "ana@example.com", FirstName: "Ana", LastName: "Lopez"}, id)

	id, err = identityFrom(&goauth2.Userinfo{Email: "bo@example.com", Name: "Bo"})
	require.NoError(t, err)
	assert.Equal(t, "Bo", id.FirstName)

	_, err = identityFrom(&goauth2.Userinfo{Email: "x@example.com", VerifiedEmail: &unverified})
	assert.ErrorIs(t, err, ErrUnverifiedEmail)

	_, err = identityFrom(&goauth2.Userinfo{})
	assert.ErrorIs(t, err, ErrUnverifiedEmail)
}
