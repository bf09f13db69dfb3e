package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

func (s *Store) CreateResource(ctx context.Context, r *domain.Resource) error {
	defer s.lockWrite(ctx)()
	s.resources[r.ID] = cloneResource(r)
	s.track(r.ID)
	return nil
}

func (s *Store) GetResource(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneResource(r), nil
}

func (s *Store) GetResourceForUpdate(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	return s.GetResource(ctx, id)
}

func (s *Store) UpdateResource(ctx context.Context, r *domain.Resource) error {
	defer s.lockWrite(ctx)()
	if _, ok := s.resources[r.ID]; !ok {
		return domain.ErrNotFound
	}
	s.resources[r.ID] = cloneResource(r)
	return nil
}

func (s *Store) IncrementResourceViews(ctx context.Context, id uuid.UUID) error {
	defer s.lockWrite(ctx)()
	r, ok := s.resources[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Views++
	return nil
}

func resourceMatches(r *domain.Resource, q domain.ResourceQuery, needle string) bool {
	if q.Type != "" && r.ResourceType != q.Type {
		return false
	}
	if q.Level != "" && r.Level != q.Level {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.ExclusiveOnly && !r.IsExclusive {
		return false
	}
	if needle == "" {
		return true
	}
	fields := []string{r.Title, r.Description}
	if q.SearchContent {
		fields = append(fields, r.Content)
	}
	fields = append(fields, r.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (s *Store) ListResources(ctx context.Context, q domain.ResourceQuery) ([]*domain.Resource, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	matched := []*domain.Resource{}
	for _, id := range byInsertion(s, s.resources) {
		if r := s.resources[id]; resourceMatches(r, q, needle) {
			matched = append(matched, r)
		}
	}

	var less func(a, b *domain.Resource) bool
	switch q.Sort {
	case domain.ResourceSortOldest:
		less = func(a, b *domain.Resource) bool { return a.PublishDate.Before(b.PublishDate) }
	case domain.ResourceSortAlphabetical:
		less = func(a, b *domain.Resource) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case domain.ResourceSortPopular:
		less = func(a, b *domain.Resource) bool { return a.Views > b.Views }
	default:
		less = func(a, b *domain.Resource) bool { return a.PublishDate.After(b.PublishDate) }
	}
	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	total := len(matched)
	out := []*domain.Resource{}
	for _, r := range window(matched, q.Offset, q.Limit) {
		out = append(out, cloneResource(r))
	}
	return out, total, nil
}

func (s *Store) ListResourceIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return byInsertion(s, s.resources), nil
}

func (s *Store) ResourceFacets(ctx context.Context) ([]string, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types, categories := map[string]bool{}, map[string]bool{}
	for _, r := range s.resources {
		if r.ResourceType != "" {
			types[string(r.ResourceType)] = true
		}
		if r.Category != "" {
			categories[r.Category] = true
		}
	}
	return sortedKeys(types), sortedKeys(categories), nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
