package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-storefront-auth/internal/domain/repository"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer/templates"
)

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

type LoginResult struct {
	User   *entity.User
	Tokens TokenPair
}

// RegisterResult has the same shape as a login.
type RegisterResult = LoginResult

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID int64
	Role   entity.Role
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	// Role is accepted from clients but never honoured.
	Role string
}

// ExternalIdentity is a profile asserted by a third-party identity provider.
type ExternalIdentity struct {
	Email     string
	FirstName string
	LastName  string
}

// SessionService owns credential checks and the token lifecycle.
type SessionService struct {
	Repo      repo.UserRepository
	JWT       *helpers.JWTManager
	Notifier  Notifier
	Directory UserDirectory
	Logger    *logrus.Logger
	Mail      MailSettings
	now       func() time.Time
}

func NewSessionService(r repo.UserRepository, jwt *helpers.JWTManager, n Notifier, dir UserDirectory, logger *logrus.Logger, mail MailSettings) *SessionService {
	if n == nil {
		n = mailer.Discard{}
	}
	return &SessionService{
		Repo:      r,
		JWT:       jwt,
		Notifier:  n,
		Directory: dir,
		Logger:    logger,
		Mail:      mail,
		now:       nowUTC,
	}
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnCompare spends the same bcrypt work as a real check so unknown emails
// are not distinguishable by latency.
func burnCompare(password string) {
	dummyOnce.Do(func() { dummyHash, _ = helpers.HashPassword("not-a-real-password") })
	_ = helpers.CompareHashAndPassword(dummyHash, password)
}

func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			burnCompare(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) || !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	pair, err := s.IssueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Tokens: pair}, nil
}

// IssueSession issues a fresh token pair and makes its refresh token the
// only valid one for u.
func (s *SessionService) IssueSession(ctx context.Context, u *entity.User) (TokenPair, error) {
	pair, hash, err := s.newPair(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Repo.SetRefreshTokenHash(ctx, u.ID, &hash); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	u.HashedRefreshToken = &hash
	return pair, nil
}

func (s *SessionService) newPair(userID int64) (TokenPair, string, error) {
	access, aexp, err := s.JWT.Issue(helpers.AccessToken, userID)
	if err != nil {
		s.logErr(err, userID, "generate access token failed")
		return TokenPair{}, "", err
	}
	refresh, rexp, err := s.JWT.Issue(helpers.RefreshToken, userID)
	if err != nil {
		s.logErr(err, userID, "generate refresh token failed")
		return TokenPair{}, "", err
	}
	hash, err := helpers.HashToken(refresh)
	if err != nil {
		return TokenPair{}, "", err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, hash, nil
}

// Refresh rotates the session. Only the most recently issued refresh token
// is accepted, and of two concurrent calls presenting it only one succeeds.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	id, err := s.JWT.Verify(helpers.RefreshToken, refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	if u.HashedRefreshToken == nil || !helpers.CompareTokenHash(*u.HashedRefreshToken, refreshToken) {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	pair, hash, err := s.newPair(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	swapped, err := s.Repo.SwapRefreshTokenHash(ctx, u.ID, *u.HashedRefreshToken, hash)
	if err != nil {
		return TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	return pair, nil
}

func (s *SessionService) Logout(ctx context.Context, userID int64) error {
	if err := s.Repo.SetRefreshTokenHash(ctx, userID, nil); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// Authenticate resolves an access token to the caller. Every failure is
// reported as ErrUnauthorized.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if accessToken == "" {
		return Principal{}, ErrUnauthorized
	}
	id, err := s.JWT.Verify(helpers.AccessToken, accessToken)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	return Principal{UserID: u.ID, Role: u.Role}, nil
}

func (s *SessionService) Profile(ctx context.Context, userID int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return u, nil
}

// RequestPasswordReset emails a reset link. Unknown emails succeed silently.
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string, meta RequestMeta) error {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	token, exp, err := s.JWT.Issue(helpers.ResetToken, u.ID)
	if err != nil {
		return err
	}
	link := resetLink(s.Mail.ResetPasswordURL, token)
	s.Notifier.Enqueue(mailer.EmailJob{
		To:       u.Email,
		Template: templates.ForgotPassword,
		Data: templates.NewForgotPasswordData(s.Mail.Brand, u.FirstName, u.Email, link, exp,
			templates.WithIP(meta.IP), templates.WithUserAgent(meta.UserAgent), templates.WithTime(s.now())),
	})
	return nil
}

func resetLink(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

// ResetPassword sets a new password from a reset token. It does not sign
// the user in and leaves any refresh session as it was.
func (s *SessionService) ResetPassword(ctx context.Context, token, newPassword string) error {
	id, err := s.JWT.Verify(helpers.ResetToken, token)
	if err != nil {
		return err
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.Notifier.Enqueue(mailer.EmailJob{
		To:       u.Email,
		Template: templates.PasswordChanged,
		Data:     templates.NewPasswordChangedData(s.Mail.Brand, u.FirstName, u.Email, templates.WithTime(s.now())),
	})
	return nil
}

// LoginWithIdentity signs in the account matching an externally verified
// email, creating it on first use.
func (s *SessionService) LoginWithIdentity(ctx context.Context, id ExternalIdentity) (*LoginResult, error) {
	u, err := s.Repo.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		u, err = s.createIdentityUser(ctx, id)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	pair, err := s.IssueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Tokens: pair}, nil
}

func (s *SessionService) createIdentityUser(ctx context.Context, id ExternalIdentity) (*entity.User, error) {
	secret, err := helpers.RandomSecret(32)
	if err != nil {
		return nil, err
	}
	hash, err := helpers.HashPassword(secret)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		FirstName:   id.FirstName,
		LastName:    id.LastName,
		Email:       id.Email,
		Password:    hash,
		Role:        entity.RoleUser,
		IsActive:    true,
		IsOAuthUser: true,
	}
	err = s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		return tx.Create(ctx, u)
	})
	if errors.Is(err, repo.ErrUserAlreadyExists) {
		// a concurrent first login created it
		return s.Repo.GetByEmail(ctx, id.Email)
	}
	if err != nil {
		return nil, err
	}
	s.Notifier.Enqueue(welcomeJob(s.Mail.Brand, u))
	indexUser(ctx, s.Directory, s.Logger, u)
	return u, nil
}

// Register creates a USER account and signs it in.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     in.Email,
		Password:  hash,
		Role:      entity.RoleUser,
		IsActive:  true,
	}
	if err := s.Repo.WithinTx(ctx, func(tx repo.UserRepository) error {
		return tx.Create(ctx, u)
	}); err != nil {
		return nil, err
	}
	s.Notifier.Enqueue(welcomeJob(s.Mail.Brand, u))
	indexUser(ctx, s.Directory, s.Logger, u)

	pair, err := s.IssueSession(ctx, u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Tokens: pair}, nil
}

func (s *SessionService) logErr(err error, userID int64, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Error(msg)
	}
}
