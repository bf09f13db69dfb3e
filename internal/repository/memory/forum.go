package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	defer s.lockWrite(ctx)()
	for _, existing := range s.categories {
		if existing.Slug == c.Slug {
			return domain.ErrDuplicate
		}
	}
	s.categories[c.ID] = cloneCategory(c)
	s.track(c.ID)
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCategory(c), nil
}

func (s *Store) GetCategoryForUpdate(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.GetCategory(ctx, id)
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Slug == slug {
			return cloneCategory(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) error {
	defer s.lockWrite(ctx)()
	if _, ok := s.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, existing := range s.categories {
		if id != c.ID && existing.Slug == c.Slug {
			return domain.ErrDuplicate
		}
	}
	s.categories[c.ID] = cloneCategory(c)
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	defer s.lockWrite(ctx)()
	if _, ok := s.categories[id]; !ok {
		return domain.ErrNotFound
	}
	for _, t := range s.topics {
		if t.CategoryID != nil && *t.CategoryID == id {
			return domain.ErrInUse
		}
	}
	delete(s.categories, id)
	delete(s.order, id)
	return nil
}

func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Category{}
	for _, id := range byInsertion(s, s.categories) {
		if c := s.categories[id]; !activeOnly || c.IsActive {
			out = append(out, cloneCategory(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) MaxCategoryOrder(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	highest := 0
	for _, c := range s.categories {
		if c.Order > highest {
			highest = c.Order
		}
	}
	return highest, nil
}

func (s *Store) AdjustTopicsCount(ctx context.Context, categoryID uuid.UUID, delta int) error {
	defer s.lockWrite(ctx)()
	c, ok := s.categories[categoryID]
	if !ok {
		return domain.ErrNotFound
	}
	c.TopicsCount += delta
	if c.TopicsCount < 0 {
		c.TopicsCount = 0
	}
	return nil
}

func (s *Store) SetTopicsCount(ctx context.Context, categoryID uuid.UUID, count int) error {
	defer s.lockWrite(ctx)()
	c, ok := s.categories[categoryID]
	if !ok {
		return domain.ErrNotFound
	}
	c.TopicsCount = count
	return nil
}

func (s *Store) CountTopicsByCategory(ctx context.Context) (map[uuid.UUID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[uuid.UUID]int{}
	for _, t := range s.topics {
		if t.CategoryID != nil {
			out[*t.CategoryID]++
		}
	}
	return out, nil
}

func (s *Store) CreateTopic(ctx context.Context, t *domain.Topic) error {
	defer s.lockWrite(ctx)()
	s.topics[t.ID] = cloneTopic(t)
	s.track(t.ID)
	return nil
}

func (s *Store) GetTopic(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.topics[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTopic(t), nil
}

func (s *Store) GetTopicForUpdate(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	return s.GetTopic(ctx, id)
}

func (s *Store) UpdateTopic(ctx context.Context, t *domain.Topic) error {
	defer s.lockWrite(ctx)()
	if _, ok := s.topics[t.ID]; !ok {
		return domain.ErrNotFound
	}
	s.topics[t.ID] = cloneTopic(t)
	return nil
}

func (s *Store) DeleteTopic(ctx context.Context, id uuid.UUID) error {
	defer s.lockWrite(ctx)()
	if _, ok := s.topics[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.topics, id)
	delete(s.order, id)
	return nil
}

func (s *Store) IncrementTopicViews(ctx context.Context, id uuid.UUID) error {
	defer s.lockWrite(ctx)()
	t, ok := s.topics[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Views++
	return nil
}

func topicMatches(t *domain.Topic, q domain.TopicQuery, needle string) bool {
	if q.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *q.CategoryID) {
		return false
	}
	if q.Filter == domain.FilterUnanswered && len(t.Replies) > 0 {
		return false
	}
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	if q.SearchContent && strings.Contains(strings.ToLower(t.Content), needle) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func (s *Store) ListTopics(ctx context.Context, q domain.TopicQuery) ([]*domain.Topic, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	matched := []*domain.Topic{}
	for _, id := range byInsertion(s, s.topics) {
		if t := s.topics[id]; topicMatches(t, q, needle) {
			matched = append(matched, t)
		}
	}

	less := func(a, b *domain.Topic) bool { return a.LastActivity.After(b.LastActivity) }
	switch q.Filter {
	case domain.FilterPopular:
		less = func(a, b *domain.Topic) bool { return a.Views > b.Views }
	case domain.FilterUnanswered:
		less = func(a, b *domain.Topic) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.PinnedFirst && a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		return less(a, b)
	})

	total := len(matched)
	out := []*domain.Topic{}
	for _, t := range window(matched, q.Offset, q.Limit) {
		out = append(out, cloneTopic(t))
	}
	return out, total, nil
}

func (s *Store) ListTopicTags(ctx context.Context) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := byInsertion(s, s.topics)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.topics[ids[i]].CreatedAt.Before(s.topics[ids[j]].CreatedAt)
	})
	out := make([][]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneSlice(s.topics[id].Tags))
	}
	return out, nil
}

func (s *Store) CreateReply(ctx context.Context, r *domain.Reply) error {
	defer s.lockWrite(ctx)()
	s.replies[r.ID] = cloneReply(r)
	s.track(r.ID)
	return nil
}

func (s *Store) GetReply(ctx context.Context, id uuid.UUID) (*domain.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.replies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneReply(r), nil
}

func (s *Store) GetReplyForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reply, error) {
	return s.GetReply(ctx, id)
}

func (s *Store) UpdateReply(ctx context.Context, r *domain.Reply) error {
	defer s.lockWrite(ctx)()
	if _, ok := s.replies[r.ID]; !ok {
		return domain.ErrNotFound
	}
	s.replies[r.ID] = cloneReply(r)
	return nil
}

func (s *Store) ListReplies(ctx context.Context, topicID uuid.UUID) ([]*domain.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Reply{}
	for _, id := range byInsertion(s, s.replies) {
		if r := s.replies[id]; r.TopicID == topicID {
			out = append(out, cloneReply(r))
		}
	}
	return out, nil
}

func (s *Store) DeleteRepliesByTopic(ctx context.Context, topicID uuid.UUID) error {
	defer s.lockWrite(ctx)()
	for id, r := range s.replies {
		if r.TopicID == topicID {
			delete(s.replies, id)
			delete(s.order, id)
		}
	}
	return nil
}

// window applies offset and limit; a limit of zero keeps everything after offset.
func window[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
