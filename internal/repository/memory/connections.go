package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

// betweenLocked finds the edge for the unordered pair; callers hold mu.
func (s *Store) betweenLocked(a, b uuid.UUID) *domain.Connection {
	low, high := domain.CanonicalPair(a, b)
	for _, c := range s.connections {
		l, h := c.Pair()
		if l == low && h == high {
			return c
		}
	}
	return nil
}

func (s *Store) CreateConnection(ctx context.Context, c *domain.Connection) error {
	defer s.lockWrite(ctx)()
	if s.betweenLocked(c.RequesterID, c.RecipientID) != nil {
		return domain.ErrDuplicate
	}
	s.connections[c.ID] = cloneConnection(c)
	s.track(c.ID)
	return nil
}

func (s *Store) GetConnection(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneConnection(c), nil
}

// GetConnectionForUpdate relies on WithinTx serialisation for the lock.
func (s *Store) GetConnectionForUpdate(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	return s.GetConnection(ctx, id)
}

func (s *Store) FindConnectionBetween(ctx context.Context, a, b uuid.UUID) (*domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.betweenLocked(a, b)
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return cloneConnection(c), nil
}

func (s *Store) UpdateConnection(ctx context.Context, c *domain.Connection) error {
	defer s.lockWrite(ctx)()
	if _, ok := s.connections[c.ID]; !ok {
		return domain.ErrNotFound
	}
	s.connections[c.ID] = cloneConnection(c)
	return nil
}

func (s *Store) DeleteConnection(ctx context.Context, id uuid.UUID) error {
	defer s.lockWrite(ctx)()
	if _, ok := s.connections[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.connections, id)
	delete(s.order, id)
	return nil
}

func (s *Store) ListConnectionsForUser(ctx context.Context, userID uuid.UUID, q domain.ConnectionQuery) ([]*domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Connection{}
	for _, id := range byInsertion(s, s.connections) {
		if c := s.connections[id]; q.Matches(c, userID) {
			out = append(out, cloneConnection(c))
		}
	}
	return out, nil
}
