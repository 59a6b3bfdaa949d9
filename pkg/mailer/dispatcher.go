package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// Publisher puts a job on the broker.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Dispatcher hands jobs to a background goroutine so request handlers never
// wait on the broker. A full buffer drops the job with a warning.
type Dispatcher struct {
	pub    Publisher
	log    *logrus.Logger
	jobs   chan EmailJob
	done   chan struct{}
	closed sync.Once
	mu     sync.RWMutex
	shut   bool
}

func NewDispatcher(pub Publisher, log *logrus.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	d := &Dispatcher{
		pub:  pub,
		log:  log,
		jobs: make(chan EmailJob, buffer),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue never blocks.
func (d *Dispatcher) Enqueue(job EmailJob) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.shut {
		d.log.WithField("template", job.Template).Warn("email dispatcher closed, job dropped")
		return
	}
	select {
	case d.jobs <- job:
	default:
		d.log.WithField("template", job.Template).Warn("email queue full, job dropped")
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for job := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := d.pub.PublishJSON(ctx, job); err != nil {
			d.log.WithError(err).WithField("template", job.Template).Error("publish email job failed")
		}
		cancel()
	}
}

// Close stops accepting jobs and waits until buffered ones are published.
func (d *Dispatcher) Close() {
	d.closed.Do(func() {
		d.mu.Lock()
		d.shut = true
		close(d.jobs)
		d.mu.Unlock()
		<-d.done
	})
}

// Discard drops every job. Used when mail sending is disabled.
type Discard struct{}

func (Discard) Enqueue(EmailJob) {}
