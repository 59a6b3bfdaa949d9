package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/search"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer/templates"
)

// Notifier queues an email for background delivery. Enqueue must not block.
type Notifier interface {
	Enqueue(job mailer.EmailJob)
}

// UserDirectory is the search index kept alongside the credential store.
type UserDirectory interface {
	Index(ctx context.Context, doc search.UserDocument) error
	Search(ctx context.Context, q string, size int) ([]search.UserDocument, error)
}

// RequestMeta describes the client that triggered a flow.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// MailSettings feeds the email templates.
type MailSettings struct {
	Brand            templates.Brand
	ResetPasswordURL string
}

func welcomeJob(b templates.Brand, u *entity.User) mailer.EmailJob {
	return mailer.EmailJob{
		To:       u.Email,
		Template: templates.Welcome,
		Data:     templates.NewWelcomeData(b, u.FirstName, u.Email),
	}
}

// indexTimeout caps how long a request waits on the search index.
var indexTimeout = 500 * time.Millisecond

// indexUser is best effort: a slow or failing index never fails the caller.
func indexUser(ctx context.Context, dir UserDirectory, log *logrus.Logger, u *entity.User) {
	if dir == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
	defer cancel()
	doc := search.UserDocument{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if err := dir.Index(ctx, doc); err != nil && log != nil {
		log.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}

func nowUTC() time.Time { return time.Now().UTC() }
