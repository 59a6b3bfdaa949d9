package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-storefront-auth/internal/application"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer"
	"github.com/oksasatya/go-storefront-auth/pkg/response"
)

// EmailHandler lets an ADMIN queue an ad-hoc email, e.g. to check delivery.
type EmailHandler struct {
	Notifier application.Notifier
	Enabled  bool
}

func NewEmailHandler(n application.Notifier, enabled bool) *EmailHandler {
	return &EmailHandler{Notifier: n, Enabled: enabled}
}

type sendEmailRequest struct {
	To       string         `json:"to" binding:"required,email"`
	Template string         `json:"template"` // optional: welcome, forgot_password, password_changed
	Data     map[string]any `json:"data"`     // optional template data
	Subject  string         `json:"subject"`  // required if no template
	Text     string         `json:"text"`     // optional if html provided
	HTML     string         `json:"html"`     // optional if text provided
}

// Send POST /api/email/send (ADMIN)
func (h *EmailHandler) Send(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	job := mailer.EmailJob{To: req.To}
	if req.Template != "" {
		job.Template = req.Template
		job.Data = req.Data
	} else {
		job.Subject = req.Subject
		job.Text = req.Text
		job.HTML = req.HTML
	}
	if err := job.Validate(); err != nil {
		response.Fail(c, http.StatusBadRequest, "either a known template or subject with text/html is required", err.Error())
		return
	}

	if !h.Enabled {
		response.OK[any](c, http.StatusAccepted, gin.H{"enqueued": false, "disabled": true}, "email sending disabled", nil)
		return
	}
	h.Notifier.Enqueue(job)
	response.OK[any](c, http.StatusAccepted, gin.H{"enqueued": true}, "email enqueued", nil)
}
