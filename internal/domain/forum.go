package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	minTopicTitleLength   = 3
	maxTopicTitleLength   = 200
	minTopicContentLength = 10
	maxReplyLength        = 5000
	maxTopicTags          = 5
)

// Category groups topics. TopicsCount is a cached count of the topics that
// reference it, maintained on topic create and delete.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Order       int       `json:"order"`
	IsActive    bool      `json:"isActive"`
	TopicsCount int       `json:"topicsCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Topic struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	AuthorID     uuid.UUID   `json:"authorId"`
	CategoryID   *uuid.UUID  `json:"categoryId,omitempty"`
	Tags         []string    `json:"tags"`
	Replies      []uuid.UUID `json:"replies"`
	Views        int         `json:"views"`
	IsPinned     bool        `json:"isPinned"`
	IsPopular    bool        `json:"isPopular"`
	IsLocked     bool        `json:"isLocked"`
	LastActivity time.Time   `json:"lastActivity"`
	LastReplyAt  *time.Time  `json:"lastReplyAt,omitempty"`
	LastReplyBy  *uuid.UUID  `json:"lastReplyBy,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type Reply struct {
	ID            uuid.UUID   `json:"id"`
	Content       string      `json:"content"`
	AuthorID      uuid.UUID   `json:"authorId"`
	TopicID       uuid.UUID   `json:"topicId"`
	Likes         []uuid.UUID `json:"likes"`
	ParentReplyID *uuid.UUID  `json:"parentReplyId,omitempty"`
	IsEdited      bool        `json:"isEdited"`
	IsDeleted     bool        `json:"isDeleted"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Slugify lower-cases name, strips non-word characters and joins words with dashes
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonWordRe.ReplaceAllString(s, "")
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), "-")
}

// NormalizeTags lower-cases and trims tags, drops empties and duplicates,
// and keeps at most five in first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, maxTopicTags)
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTopicTags {
			break
		}
	}
	return out
}

func validateTopic(title, content string) error {
	n := utf8.RuneCountInString(title)
	if n < minTopicTitleLength {
		return Validation("title must be at least %d characters", minTopicTitleLength)
	}
	if n > maxTopicTitleLength {
		return Validation("title must be at most %d characters", maxTopicTitleLength)
	}
	if utf8.RuneCountInString(content) < minTopicContentLength {
		return Validation("content must be at least %d characters", minTopicContentLength)
	}
	return nil
}

func validateReply(content string) error {
	n := utf8.RuneCountInString(content)
	if n < 1 {
		return Validation("reply content is required")
	}
	if n > maxReplyLength {
		return Validation("reply must be at most %d characters", maxReplyLength)
	}
	return nil
}

// AttachReply appends r and moves the activity markers to it
func (t *Topic) AttachReply(r *Reply) {
	t.Replies = append(t.Replies, r.ID)
	t.markLastReply(r)
}

// RefreshLastReply points the activity markers at latest, or back at the
// topic's own creation when no live reply remains.
func (t *Topic) RefreshLastReply(latest *Reply) {
	if latest == nil {
		t.LastActivity = t.CreatedAt
		t.LastReplyAt = nil
		t.LastReplyBy = nil
		return
	}
	t.markLastReply(latest)
}

func (t *Topic) markLastReply(r *Reply) {
	at, by := r.CreatedAt, r.AuthorID
	t.LastActivity = at
	t.LastReplyAt = &at
	t.LastReplyBy = &by
	t.UpdatedAt = at
}

// ToggleLike flips userID's membership in the like set
func (r *Reply) ToggleLike(userID uuid.UUID) bool {
	var liked bool
	r.Likes, liked = toggleID(r.Likes, userID)
	return liked
}

// toggleID removes id from set if present, otherwise appends it. The
// returned flag is true when id is now a member.
func toggleID(set []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	for i, v := range set {
		if v == id {
			return append(set[:i:i], set[i+1:]...), false
		}
	}
	return append(set, id), true
}

// latestLiveReply returns the newest reply not marked deleted
func latestLiveReply(replies []*Reply) *Reply {
	var latest *Reply
	for _, r := range replies {
		if r.IsDeleted {
			continue
		}
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	return latest
}

type TopicFilter string

const (
	FilterRecent     TopicFilter = "recent"
	FilterPopular    TopicFilter = "popular"
	FilterUnanswered TopicFilter = "unanswered"
)

// TopicQuery drives ListTopics. Search matches title and tags, and content
// too when SearchContent is set.
type TopicQuery struct {
	CategoryID    *uuid.UUID
	Filter        TopicFilter
	Search        string
	SearchContent bool
	PinnedFirst   bool
	Offset        int
	Limit         int
}

// ForumRepository persists categories, topics and replies. Create calls
// return ErrDuplicate on a slug clash; lookups return ErrNotFound.
type ForumRepository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	GetCategoryForUpdate(ctx context.Context, id uuid.UUID) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context, activeOnly bool) ([]*Category, error)
	MaxCategoryOrder(ctx context.Context) (int, error)
	// AdjustTopicsCount adds delta to the cached count, never going below zero.
	AdjustTopicsCount(ctx context.Context, categoryID uuid.UUID, delta int) error
	SetTopicsCount(ctx context.Context, categoryID uuid.UUID, count int) error
	CountTopicsByCategory(ctx context.Context) (map[uuid.UUID]int, error)

	CreateTopic(ctx context.Context, t *Topic) error
	GetTopic(ctx context.Context, id uuid.UUID) (*Topic, error)
	GetTopicForUpdate(ctx context.Context, id uuid.UUID) (*Topic, error)
	UpdateTopic(ctx context.Context, t *Topic) error
	DeleteTopic(ctx context.Context, id uuid.UUID) error
	IncrementTopicViews(ctx context.Context, id uuid.UUID) error
	ListTopics(ctx context.Context, q TopicQuery) ([]*Topic, int, error)
	// ListTopicTags returns every topic's tag set, oldest topic first.
	ListTopicTags(ctx context.Context) ([][]string, error)

	CreateReply(ctx context.Context, r *Reply) error
	GetReply(ctx context.Context, id uuid.UUID) (*Reply, error)
	GetReplyForUpdate(ctx context.Context, id uuid.UUID) (*Reply, error)
	UpdateReply(ctx context.Context, r *Reply) error
	ListReplies(ctx context.Context, topicID uuid.UUID) ([]*Reply, error)
	DeleteRepliesByTopic(ctx context.Context, topicID uuid.UUID) error
}
