package templates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBrand = Brand{AppName: "Storefront", CompanyName: "Acme", SupportURL: "https://acme.test/help"}

func TestRender_AllTemplates(t *testing.T) {
	exp := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)
	cases := map[string]map[string]any{
		Welcome:         NewWelcomeData(testBrand, "Ana", "ana@example.com"),
		ForgotPassword:  NewForgotPasswordData(testBrand, "Ana", "ana@example.com", "https://acme.test/reset?token=abc", exp, WithIP("203.0.113.9")),
		PasswordChanged: NewPasswordChangedData(testBrand, "Ana", "ana@example.com", WithTime(exp)),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			require.True(t, Known(name))
			subject, text, html, err := Render(name, data)
			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.NotContains(t, subject, "\n")
			assert.Contains(t, text, "ana@example.com")
			assert.Contains(t, html, "ana@example.com")
		})
	}
}

func TestRender_ForgotPasswordLink(t *testing.T) {
	data := NewForgotPasswordData(testBrand, "", "ana@example.com", "https://acme.test/reset?token=abc", time.Now().Add(15*time.Minute))
	subject, text, _, err := Render(ForgotPassword, data)
	require.NoError(t, err)
	assert.Equal(t, "Reset your Storefront password", subject)
	assert.Contains(t, text, "https://acme.test/reset?token=abc")
	assert.Contains(t, text, "Hi there")
}

func TestRender_UnknownTemplate(t *testing.T) {
	assert.False(t, Known("login_otp"))
	_, _, _, err := Render("login_otp", nil)
	assert.Error(t, err)
}

func TestIPAPIResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","country":"United States","regionName":"California","city":"Mountain View"}`))
	}))
	defer srv.Close()

	r := IPAPIResolver{BaseURL: srv.URL}
	g, err := r.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "Mountain View, California, United States", FormatGeo(g))

	_, err = r.Lookup(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}
