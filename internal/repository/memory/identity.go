package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

// AddChapter seeds a chapter. Chapters are managed outside the engines.
func (s *Store) AddChapter(name, city, country string) *domain.Chapter {
	defer s.lockWrite(context.Background())()
	ch := &domain.Chapter{
		ID:        uuid.New(),
		Name:      name,
		City:      city,
		Country:   country,
		Status:    "active",
		CreatedAt: nowUTC(),
	}
	s.chapters[ch.ID] = ch
	s.track(ch.ID)
	return cloneChapter(ch)
}

func (s *Store) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	defer s.lockWrite(ctx)()

	email := strings.ToLower(params.Email)
	for _, u := range s.users {
		if u.Email == email {
			return nil, domain.ErrDuplicate
		}
	}
	role := params.Role
	if role == "" {
		role = domain.RoleUser
	}
	now := nowUTC()
	u := &domain.User{
		ID:           uuid.New(),
		Name:         params.Name,
		Email:        email,
		PasswordHash: params.PasswordHash,
		Role:         role,
		Title:        params.Title,
		Company:      params.Company,
		Industry:     params.Industry,
		ChapterID:    clonePtr(params.ChapterID),
		MemberType:   "member",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	s.track(u.ID)
	return cloneUser(u), nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer s.lockWrite(ctx)()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastActive = &at
	return nil
}

// ListUsersByIDs silently skips unknown ids.
func (s *Store) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.User, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Store) FindUsersByIndustryOrChapter(ctx context.Context, industry string, chapterID *uuid.UUID, exclude []uuid.UUID, limit int) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.User{}
	for _, id := range byInsertion(s, s.users) {
		if limit > 0 && len(out) >= limit {
			break
		}
		if containsID(exclude, id) {
			continue
		}
		u := s.users[id]
		if (industry != "" && u.Industry == industry) || u.InChapter(chapterID) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Store) ListChapterMembers(ctx context.Context, chapterID uuid.UUID) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.User{}
	for _, id := range byInsertion(s, s.users) {
		if u := s.users[id]; u.InChapter(&chapterID) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Store) GetChapter(ctx context.Context, id uuid.UUID) (*domain.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.chapters[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneChapter(ch), nil
}

func (s *Store) ListChapters(ctx context.Context) ([]*domain.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Chapter, 0, len(s.chapters))
	for _, ch := range s.chapters {
		out = append(out, cloneChapter(ch))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListIndustries(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	out := []string{}
	for _, u := range s.users {
		if u.Industry != "" && !seen[u.Industry] {
			seen[u.Industry] = true
			out = append(out, u.Industry)
		}
	}
	sort.Strings(out)
	return out, nil
}
