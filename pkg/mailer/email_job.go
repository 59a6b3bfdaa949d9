package mailer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/go-storefront-auth/pkg/mailer/templates"
)

var ErrBadJob = errors.New("malformed email job")

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (+Data) or Subject with Text/HTML is set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "welcome", "forgot_password", "password_changed"
	Data     map[string]any `json:"data,omitempty"`
}

// Validate reports ErrBadJob when the job cannot produce a message.
func (j EmailJob) Validate() error {
	if strings.TrimSpace(j.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrBadJob)
	}
	if j.Template != "" {
		if !templates.Known(j.Template) {
			return fmt.Errorf("%w: unknown template %q", ErrBadJob, j.Template)
		}
		return nil
	}
	if j.Subject == "" || (j.Text == "" && j.HTML == "") {
		return fmt.Errorf("%w: missing subject or body", ErrBadJob)
	}
	return nil
}
