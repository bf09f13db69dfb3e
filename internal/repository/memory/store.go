// Package memory is an in-process implementation of every repository port.
// It backs the engine tests and the STORE=memory mode of the server.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

type txKey struct{}

// Store keeps all collections in maps guarded by mu. Units of work are
// serialised by txMu and rolled back from a snapshot when they fail; writes
// outside a unit queue behind txMu as well.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	seq   uint64
	order map[uuid.UUID]uint64

	users       map[uuid.UUID]*domain.User
	chapters    map[uuid.UUID]*domain.Chapter
	connections map[uuid.UUID]*domain.Connection
	categories  map[uuid.UUID]*domain.Category
	topics      map[uuid.UUID]*domain.Topic
	replies     map[uuid.UUID]*domain.Reply
	resources   map[uuid.UUID]*domain.Resource
}

var (
	_ domain.IdentityStore        = (*Store)(nil)
	_ domain.ConnectionRepository = (*Store)(nil)
	_ domain.ForumRepository      = (*Store)(nil)
	_ domain.ResourceRepository   = (*Store)(nil)
	_ domain.Transactor           = (*Store)(nil)
)

func New() *Store {
	return &Store{
		order:       map[uuid.UUID]uint64{},
		users:       map[uuid.UUID]*domain.User{},
		chapters:    map[uuid.UUID]*domain.Chapter{},
		connections: map[uuid.UUID]*domain.Connection{},
		categories:  map[uuid.UUID]*domain.Category{},
		topics:      map[uuid.UUID]*domain.Topic{},
		replies:     map[uuid.UUID]*domain.Reply{},
		resources:   map[uuid.UUID]*domain.Resource{},
	}
}

// Ping always succeeds unless ctx is done
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// lockWrite takes mu for a mutation and returns the release func. Outside a
// unit it also takes txMu, so a failing unit's rollback cannot drop the write.
func (s *Store) lockWrite(ctx context.Context) func() {
	inTx := ctx.Value(txKey{}) != nil
	if !inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !inTx {
			s.txMu.Unlock()
		}
	}
}

// WithinTx runs fn as one unit. Nested calls join the outer unit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	seq         uint64
	order       map[uuid.UUID]uint64
	users       map[uuid.UUID]*domain.User
	chapters    map[uuid.UUID]*domain.Chapter
	connections map[uuid.UUID]*domain.Connection
	categories  map[uuid.UUID]*domain.Category
	topics      map[uuid.UUID]*domain.Topic
	replies     map[uuid.UUID]*domain.Reply
	resources   map[uuid.UUID]*domain.Resource
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		seq:         s.seq,
		order:       copyMap(s.order, func(v uint64) uint64 { return v }),
		users:       copyMap(s.users, cloneUser),
		chapters:    copyMap(s.chapters, cloneChapter),
		connections: copyMap(s.connections, cloneConnection),
		categories:  copyMap(s.categories, cloneCategory),
		topics:      copyMap(s.topics, cloneTopic),
		replies:     copyMap(s.replies, cloneReply),
		resources:   copyMap(s.resources, cloneResource),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.order = snap.order
	s.users = snap.users
	s.chapters = snap.chapters
	s.connections = snap.connections
	s.categories = snap.categories
	s.topics = snap.topics
	s.replies = snap.replies
	s.resources = snap.resources
}

// track records insertion order; callers hold mu.
func (s *Store) track(id uuid.UUID) {
	s.seq++
	s.order[id] = s.seq
}

// byInsertion sorts values of m in insertion order; callers hold mu.
func byInsertion[T any](s *Store, m map[uuid.UUID]T) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.order[ids[i]] < s.order[ids[j]] })
	return ids
}

func copyMap[T any](m map[uuid.UUID]T, clone func(T) T) map[uuid.UUID]T {
	out := make(map[uuid.UUID]T, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
