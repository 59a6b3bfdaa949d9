package application

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer/templates"
)

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)

	res, err := env.sessions.Login(ctx, "ANA@example.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	stored, err := env.repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.HashedRefreshToken)
	assert.NotEqual(t, res.Tokens.RefreshToken, *stored.HashedRefreshToken)
	assert.True(t, helpers.CompareTokenHash(*stored.HashedRefreshToken, res.Tokens.RefreshToken))
}

func TestLogin_GenericFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)

	hash, err := helpers.HashPassword("Secret123!")
	require.NoError(t, err)
	require.NoError(t, env.repo.Create(ctx, &entity.User{Email: "off@example.com", Password: hash, Role: entity.RoleUser}))

	for _, tc := range []struct{ email, password string }{
		{"ana@example.com", "wrong"},
		{"nobody@example.com", "Secret123!"},
		{"off@example.com", "Secret123!"},
	} {
		_, err := env.sessions.Login(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, ErrInvalidCredentials, tc.email)
	}
}

func TestLogin_SecondLoginInvalidatesFirstRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)

	first, err := env.sessions.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)
	_, err = env.sessions.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	_, err = env.sessions.Refresh(ctx, first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_RotatesAndRejectsOldToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)

	login, err := env.sessions.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	pair, err := env.sessions.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, pair.RefreshToken)

	_, err = env.sessions.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = env.sessions.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_RejectsWrongKindAndGarbage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)
	login, err := env.sessions.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	_, err = env.sessions.Refresh(ctx, login.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = env.sessions.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// valid signature, unknown user
	orphan, _, err := env.jwt.Issue(helpers.RefreshToken, 999)
	require.NoError(t, err)
	_, err = env.sessions.Refresh(ctx, orphan)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_ConcurrentSameTokenOnlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)
	login, err := env.sessions.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	const n = 8
	var wins, losses int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.sessions.Refresh(ctx, login.Tokens.RefreshToken)
			if err == nil {
				atomic.AddInt32(&wins, 1)
			} else if assert.ErrorIs(t, err, ErrInvalidRefreshToken) {
				atomic.AddInt32(&losses, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(n-1), losses)
}

func TestLogout_ClearsSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)
	login, err := env.sessions.Login(ctx, "ana@example.com", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, env.sessions.Logout(ctx, u.ID))
	stored, _ := env.repo.GetByID(ctx, u.ID)
	assert.Nil(t, stored.HashedRefreshToken)

	_, err = env.sessions.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// idempotent
	assert.NoError(t, env.sessions.Logout(ctx, u.ID))
	assert.ErrorIs(t, env.sessions.Logout(ctx, 999), ErrUnauthorized)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "admin@example.com", "Secret123!", entity.RoleAdmin)
	login, err := env.sessions.Login(ctx, "admin@example.com", "Secret123!")
	require.NoError(t, err)

	p, err := env.sessions.Authenticate(ctx, login.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: u.ID, Role: entity.RoleAdmin}, p)

	_, err = env.sessions.Authenticate(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = env.sessions.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	ghost, _, _ := env.jwt.Issue(helpers.AccessToken, 999)
	_, err = env.sessions.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, ErrUnauthorized)

	env.clock.Advance(15*time.Minute + time.Second)
	_, err = env.sessions.Authenticate(ctx, login.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestProfile_MissingUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.sessions.Profile(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRequestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)

	require.NoError(t, env.sessions.RequestPasswordReset(ctx, "nobody@example.com", RequestMeta{}))
	assert.Empty(t, env.notifier.Jobs())

	require.NoError(t, env.sessions.RequestPasswordReset(ctx, "ana@example.com", RequestMeta{IP: "203.0.113.5"}))
	jobs := env.notifier.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, templates.ForgotPassword, jobs[0].Template)
	assert.Equal(t, "ana@example.com", jobs[0].To)

	link, ok := jobs[0].Data["ResetURL"].(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(link, "https://shop.test/reset-password?token="))
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	id, err := env.jwt.Verify(helpers.ResetToken, parsed.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "ana@example.com", "OldSecret1!", entity.RoleUser)
	login, err := env.sessions.Login(ctx, "ana@example.com", "OldSecret1!")
	require.NoError(t, err)
	before, _ := env.repo.GetByID(ctx, u.ID)

	token, _, err := env.jwt.Issue(helpers.ResetToken, u.ID)
	require.NoError(t, err)
	require.NoError(t, env.sessions.ResetPassword(ctx, token, "NewSecret1!"))

	_, err = env.sessions.Login(ctx, "ana@example.com", "OldSecret1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	after, _ := env.repo.GetByID(ctx, u.ID)
	assert.Equal(t, *before.HashedRefreshToken, *after.HashedRefreshToken)
	_, err = env.sessions.Refresh(ctx, login.Tokens.RefreshToken)
	assert.NoError(t, err)

	jobs := env.notifier.Jobs()
	require.NotEmpty(t, jobs)
	assert.Equal(t, templates.PasswordChanged, jobs[len(jobs)-1].Template)

	_, err = env.sessions.Login(ctx, "ana@example.com", "NewSecret1!")
	assert.NoError(t, err)
}

func TestResetPassword_TokenErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seedUser(t, "ana@example.com", "OldSecret1!", entity.RoleUser)

	access, _, _ := env.jwt.Issue(helpers.AccessToken, u.ID)
	assert.ErrorIs(t, env.sessions.ResetPassword(ctx, access, "NewSecret1!"), ErrInvalidToken)

	reset, _, _ := env.jwt.Issue(helpers.ResetToken, u.ID)
	env.clock.Advance(16 * time.Minute)
	assert.ErrorIs(t, env.sessions.ResetPassword(ctx, reset, "NewSecret1!"), ErrTokenExpired)

	orphan, _, _ := env.jwt.Issue(helpers.ResetToken, 999)
	assert.ErrorIs(t, env.sessions.ResetPassword(ctx, orphan, "NewSecret1!"), ErrUserNotFound)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.sessions.Register(ctx, RegisterInput{
		FirstName: " Ana ", LastName: "Lopez", Email: "Ana@Example.com", Password: "Secret123!", Role: "ADMIN",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, res.User.Role)
	assert.Equal(t, "Ana", res.User.FirstName)
	assert.Equal(t, "ana@example.com", res.User.Email)
	assert.NotEmpty(t, res.Tokens.RefreshToken)

	jobs := env.notifier.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, templates.Welcome, jobs[0].Template)
	assert.Len(t, env.dir.indexed, 1)

	_, err = env.sessions.Register(ctx, RegisterInput{Email: "ANA@example.com", Password: "Secret123!"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 6
	var ok, dup int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.sessions.Register(ctx, RegisterInput{Email: "race@example.com", Password: "Secret123!"})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case assert.ErrorIs(t, err, ErrUserAlreadyExists):
				atomic.AddInt32(&dup, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(n-1), dup)
}

func TestLoginWithIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.sessions.LoginWithIdentity(ctx, ExternalIdentity{Email: "g@example.com", FirstName: "Gia"})
	require.NoError(t, err)
	assert.True(t, res.User.IsOAuthUser)
	assert.Equal(t, entity.RoleUser, res.User.Role)
	require.Len(t, env.notifier.Jobs(), 1)

	again, err := env.sessions.LoginWithIdentity(ctx, ExternalIdentity{Email: "G@example.com"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)
	assert.Len(t, env.notifier.Jobs(), 1)

	// the first session was replaced
	_, err = env.sessions.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLoginWithIdentity_ExistingPasswordAccount(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleAdmin)

	res, err := env.sessions.LoginWithIdentity(context.Background(), ExternalIdentity{Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)
	assert.False(t, res.User.IsOAuthUser)
	assert.Equal(t, entity.RoleAdmin, res.User.Role)
}

func TestResetLink(t *testing.T) {
	assert.Equal(t, "https://a.test/r?token=x", resetLink("https://a.test/r", "x"))
	assert.Equal(t, "https://a.test/r?lang=en&token=x", resetLink("https://a.test/r?lang=en", "x"))
}
