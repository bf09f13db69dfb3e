package domain_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/repository/memory"
)

type fixture struct {
	store    *memory.Store
	conns    *domain.ConnectionService
	forum    *domain.ForumService
	res      *domain.ResourceService
	files    *fakeFiles
	observed *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	files := &fakeFiles{saved: map[string]string{}}
	obs := &recordingObserver{}
	return &fixture{
		store:    store,
		conns:    domain.NewConnectionService(store, store, store, obs),
		forum:    domain.NewForumService(store, store, store, obs),
		res:      domain.NewResourceService(store, store, files, store, obs),
		files:    files,
		observed: obs,
	}
}

type userOpt func(*domain.CreateUserParams)

func withRole(r domain.Role) userOpt {
	return func(p *domain.CreateUserParams) { p.Role = r }
}

func withIndustry(i string) userOpt {
	return func(p *domain.CreateUserParams) { p.Industry = i }
}

func withChapter(id uuid.UUID) userOpt {
	return func(p *domain.CreateUserParams) { p.ChapterID = &id }
}

func withCompany(c string) userOpt {
	return func(p *domain.CreateUserParams) { p.Company = c }
}

func (f *fixture) member(t *testing.T, name string, opts ...userOpt) domain.Actor {
	t.Helper()
	params := domain.CreateUserParams{Name: name, Email: name + "@example.com", Role: domain.RoleUser}
	for _, o := range opts {
		o(&params)
	}
	u, err := f.store.CreateUser(context.Background(), params)
	require.NoError(t, err)
	return u.Actor()
}

// connect creates an accepted edge between a and b through the public API
func (f *fixture) connect(t *testing.T, a, b domain.Actor) *domain.Connection {
	t.Helper()
	ctx := context.Background()
	c, err := f.conns.SendRequest(ctx, a, b.ID)
	require.NoError(t, err)
	c, err = f.conns.Accept(ctx, c.ID, b)
	require.NoError(t, err)
	return c
}

func assertKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, domain.KindOf(err), "error: %v", err)
}

type fakeFiles struct {
	mu      sync.Mutex
	saved   map[string]string
	deleted []string
	failOn  string
}

func (f *fakeFiles) SaveFile(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	if filename == f.failOn {
		return "", errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	url := "https://files.example/" + uuid.NewString() + "-" + filename
	f.saved[url] = string(data)
	return url, nil
}

func (f *fakeFiles) DeleteFile(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.saved, url)
	f.deleted = append(f.deleted, url)
	return nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.Event
}

func (o *recordingObserver) Observe(e domain.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) count(e domain.Event) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, v := range o.events {
		if v == e {
			n++
		}
	}
	return n
}

func ptr[T any](v T) *T { return &v }

var day = 24 * time.Hour
