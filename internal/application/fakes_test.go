package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/memory"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/objectstore"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/search"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Now().UTC()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (n *recordingNotifier) Enqueue(job mailer.EmailJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
}

func (n *recordingNotifier) Jobs() []mailer.EmailJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.EmailJob(nil), n.jobs...)
}

type fakeDirectory struct {
	mu      sync.Mutex
	indexed []search.UserDocument
	results []search.UserDocument
	err     error
}

func (d *fakeDirectory) Index(_ context.Context, doc search.UserDocument) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.indexed = append(d.indexed, doc)
	return d.err
}

func (d *fakeDirectory) Search(_ context.Context, _ string, _ int) ([]search.UserDocument, error) {
	return d.results, d.err
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (s failingStore) Put(context.Context, string, string, io.Reader, int64, objectstore.PutOptions) error {
	return s.err
}
func (s failingStore) Get(context.Context, string, string) (*objectstore.Object, error) {
	return nil, s.err
}
func (s failingStore) SignedURL(context.Context, string, string, time.Duration) (string, error) {
	return "", s.err
}
func (s failingStore) PublicURL(bucket, key string) string { return bucket + "/" + key }

var errBackend = errors.New("backend down")

type testEnv struct {
	repo     *memory.UserRepository
	jwt      *helpers.JWTManager
	clock    *fakeClock
	notifier *recordingNotifier
	dir      *fakeDirectory
	sessions *SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock()
	jwt := helpers.NewJWTManager(
		helpers.TokenSettings{Secret: "access-secret", TTL: 15 * time.Minute},
		helpers.TokenSettings{Secret: "refresh-secret", TTL: 7 * 24 * time.Hour},
		helpers.TokenSettings{Secret: "reset-secret", TTL: 15 * time.Minute},
	).WithClock(clock.Now)
	env := &testEnv{
		repo:     memory.NewUserRepository(),
		jwt:      jwt,
		clock:    clock,
		notifier: &recordingNotifier{},
		dir:      &fakeDirectory{},
	}
	env.sessions = NewSessionService(env.repo, jwt, env.notifier, env.dir, helpers.NopLogger(), MailSettings{
		ResetPasswordURL: "https://shop.test/reset-password",
	})
	env.sessions.now = clock.Now
	return env
}

func (e *testEnv) seedUser(t *testing.T, email, password string, role entity.Role) *entity.User {
	t.Helper()
	hash, err := helpers.HashPassword(password)
	require.NoError(t, err)
	u := &entity.User{FirstName: "Test", Email: email, Password: hash, Role: role, IsActive: true}
	require.NoError(t, e.repo.Create(context.Background(), u))
	return u
}
