package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/pkg/mailer/templates"
)

const sendTimeout = 15 * time.Second

// Worker turns queued jobs into delivered mail. Send failures are retried
// with exponential backoff; anything else fails the job immediately.
type Worker struct {
	Sender          Sender
	Geo             templates.GeoResolver // optional
	Log             *logrus.Logger
	MaxTries        uint
	InitialInterval time.Duration
}

func NewWorker(s Sender, geo templates.GeoResolver, log *logrus.Logger) *Worker {
	return &Worker{Sender: s, Geo: geo, Log: log, MaxTries: 3, InitialInterval: 2 * time.Second}
}

// Handle processes one raw queue message. A nil return means ack.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	subject, text, html, err := w.render(ctx, &job)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.InitialInterval
	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		c, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
			w.Log.WithError(err).WithFields(logrus.Fields{
				"template": job.Template,
				"attempt":  attempt,
			}).Warn("email send failed")
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(w.MaxTries))
	return err
}

func (w *Worker) render(ctx context.Context, job *EmailJob) (string, string, string, error) {
	if err := job.Validate(); err != nil {
		return "", "", "", err
	}
	if job.Template == "" {
		return job.Subject, job.Text, job.HTML, nil
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	w.localize(ctx, job.Data)
	return templates.Render(job.Template, job.Data)
}

// localize fills Location from IP when the producer did not.
func (w *Worker) localize(ctx context.Context, data map[string]any) {
	if w.Geo == nil {
		return
	}
	if loc, _ := data["Location"].(string); strings.TrimSpace(loc) != "" {
		return
	}
	ip, _ := data["IP"].(string)
	if ip == "" {
		return
	}
	if g, err := w.Geo.Lookup(ctx, ip); err == nil {
		data["Location"] = templates.FormatGeo(g)
	}
}
