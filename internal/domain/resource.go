package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxCommentLength  = 1000
	maxReplyToComment = 500
)

type ResourceType string

const (
	ResourceArticle      ResourceType = "article"
	ResourceVideo        ResourceType = "video"
	ResourceWebinar      ResourceType = "webinar"
	ResourceWhitepaper   ResourceType = "whitepaper"
	ResourceGuide        ResourceType = "guide"
	ResourceTemplate     ResourceType = "template"
	ResourceToolkit      ResourceType = "toolkit"
	ResourcePresentation ResourceType = "presentation"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceArticle, ResourceVideo, ResourceWebinar, ResourceWhitepaper,
		ResourceGuide, ResourceTemplate, ResourceToolkit, ResourcePresentation:
		return true
	}
	return false
}

type ResourceLevel string

const (
	LevelBeginner     ResourceLevel = "beginner"
	LevelIntermediate ResourceLevel = "intermediate"
	LevelAdvanced     ResourceLevel = "advanced"
)

func (l ResourceLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

type CommentReply struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   uuid.UUID `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Comment struct {
	ID         uuid.UUID      `json:"id"`
	AuthorID   uuid.UUID      `json:"authorId"`
	AuthorName string         `json:"authorName"`
	Text       string         `json:"text"`
	Likes      []uuid.UUID    `json:"likes"`
	Replies    []CommentReply `json:"replies"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Commenter is the per-author roll-up of comment activity on a resource
type Commenter struct {
	UserID          uuid.UUID `json:"userId"`
	UserName        string    `json:"userName"`
	Count           int       `json:"count"`
	LastCommentDate time.Time `json:"lastCommentDate"`
}

// Resource is a library item. Comments are embedded; CommentCount and
// Commenters are caches derived from them.
type Resource struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Content      string        `json:"content,omitempty"`
	Category     string        `json:"category"`
	AuthorName   string        `json:"authorName,omitempty"`
	ResourceType ResourceType  `json:"resourceType"`
	Level        ResourceLevel `json:"level"`
	IsExclusive  bool          `json:"isExclusive"`
	ReadTime     *int          `json:"readTime,omitempty"`
	Duration     *int          `json:"duration,omitempty"`
	Tags         []string      `json:"tags"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	DownloadURL  string        `json:"downloadUrl,omitempty"`
	VideoURL     string        `json:"videoUrl,omitempty"`
	Views        int           `json:"views"`
	Downloads    int           `json:"downloads"`
	Likes        []uuid.UUID   `json:"likes"`
	Bookmarks    []uuid.UUID   `json:"bookmarks"`
	AccessedBy   []uuid.UUID   `json:"accessedBy"`
	Comments     []Comment     `json:"comments"`
	CommentCount int           `json:"commentCount"`
	Commenters   []Commenter   `json:"commenters"`
	PublishDate  time.Time     `json:"publishDate"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func validateCommentText(text string, max int) error {
	n := utf8.RuneCountInString(text)
	if n < 1 {
		return Validation("comment text is required")
	}
	if n > max {
		return Validation("comment must be at most %d characters", max)
	}
	return nil
}

func (r *Resource) comment(id uuid.UUID) (int, *Comment) {
	for i := range r.Comments {
		if r.Comments[i].ID == id {
			return i, &r.Comments[i]
		}
	}
	return -1, nil
}

func (r *Resource) commenter(userID uuid.UUID) int {
	for i, c := range r.Commenters {
		if c.UserID == userID {
			return i
		}
	}
	return -1
}

// AddComment appends a comment and updates both caches
func (r *Resource) AddComment(actor Actor, authorName, text string, now time.Time) (*Comment, error) {
	text = strings.TrimSpace(text)
	if err := validateCommentText(text, maxCommentLength); err != nil {
		return nil, err
	}
	c := Comment{
		ID:         uuid.New(),
		AuthorID:   actor.ID,
		AuthorName: authorName,
		Text:       text,
		Likes:      []uuid.UUID{},
		Replies:    []CommentReply{},
		CreatedAt:  now,
	}
	r.Comments = append(r.Comments, c)
	r.CommentCount++

	if i := r.commenter(actor.ID); i >= 0 {
		r.Commenters[i].Count++
		r.Commenters[i].LastCommentDate = now
		r.Commenters[i].UserName = authorName
	} else {
		r.Commenters = append(r.Commenters, Commenter{UserID: actor.ID, UserName: authorName, Count: 1, LastCommentDate: now})
	}
	r.UpdatedAt = now
	return &r.Comments[len(r.Comments)-1], nil
}

// DeleteComment removes a comment. Only its author or an admin may do so.
// The author's roll-up entry is dropped when their last comment goes.
func (r *Resource) DeleteComment(actor Actor, commentID uuid.UUID, now time.Time) error {
	i, c := r.comment(commentID)
	if c == nil {
		return NotFound("comment")
	}
	if !actor.Is(c.AuthorID) && !actor.IsAdmin() {
		return Forbidden("not authorized to delete this comment")
	}
	author := c.AuthorID
	r.Comments = append(r.Comments[:i], r.Comments[i+1:]...)
	if r.CommentCount > 0 {
		r.CommentCount--
	}

	if j := r.commenter(author); j >= 0 {
		r.Commenters[j].Count--
		if r.Commenters[j].Count <= 0 {
			r.Commenters = append(r.Commenters[:j], r.Commenters[j+1:]...)
		} else if last, ok := r.lastCommentBy(author); ok {
			r.Commenters[j].LastCommentDate = last
		}
	}
	r.UpdatedAt = now
	return nil
}

func (r *Resource) lastCommentBy(userID uuid.UUID) (time.Time, bool) {
	var last time.Time
	found := false
	for _, c := range r.Comments {
		if c.AuthorID == userID && (!found || c.CreatedAt.After(last)) {
			last, found = c.CreatedAt, true
		}
	}
	return last, found
}

// LikeComment toggles the actor's like on a comment
func (r *Resource) LikeComment(actor Actor, commentID uuid.UUID) (*LikeResult, error) {
	_, c := r.comment(commentID)
	if c == nil {
		return nil, NotFound("comment")
	}
	var liked bool
	c.Likes, liked = toggleID(c.Likes, actor.ID)
	return &LikeResult{Liked: liked, LikesCount: len(c.Likes)}, nil
}

func (r *Resource) ReplyToComment(actor Actor, authorName string, commentID uuid.UUID, text string, now time.Time) (*CommentReply, error) {
	text = strings.TrimSpace(text)
	if err := validateCommentText(text, maxReplyToComment); err != nil {
		return nil, err
	}
	_, c := r.comment(commentID)
	if c == nil {
		return nil, NotFound("comment")
	}
	reply := CommentReply{ID: uuid.New(), AuthorID: actor.ID, AuthorName: authorName, Text: text, CreatedAt: now}
	c.Replies = append(c.Replies, reply)
	r.UpdatedAt = now
	return &reply, nil
}

func (r *Resource) ToggleLike(userID uuid.UUID) bool {
	var liked bool
	r.Likes, liked = toggleID(r.Likes, userID)
	return liked
}

func (r *Resource) ToggleBookmark(userID uuid.UUID) bool {
	var on bool
	r.Bookmarks, on = toggleID(r.Bookmarks, userID)
	return on
}

// MarkAccessed records userID once in AccessedBy
func (r *Resource) MarkAccessed(userID uuid.UUID) bool {
	for _, id := range r.AccessedBy {
		if id == userID {
			return false
		}
	}
	r.AccessedBy = append(r.AccessedBy, userID)
	return true
}

// DerivedCommenters rebuilds the roll-up from the embedded comments,
// ordered by each author's first comment.
func (r *Resource) DerivedCommenters() []Commenter {
	out := []Commenter{}
	index := map[uuid.UUID]int{}
	for _, c := range r.Comments {
		i, ok := index[c.AuthorID]
		if !ok {
			index[c.AuthorID] = len(out)
			out = append(out, Commenter{UserID: c.AuthorID, UserName: c.AuthorName, Count: 1, LastCommentDate: c.CreatedAt})
			continue
		}
		out[i].Count++
		if c.CreatedAt.After(out[i].LastCommentDate) {
			out[i].LastCommentDate = c.CreatedAt
			out[i].UserName = c.AuthorName
		}
	}
	return out
}

func commentersEqual(a, b []Commenter) bool {
	if len(a) != len(b) {
		return false
	}
	byUser := make(map[uuid.UUID]Commenter, len(a))
	for _, c := range a {
		byUser[c.UserID] = c
	}
	for _, c := range b {
		o, ok := byUser[c.UserID]
		if !ok || o.Count != c.Count || !o.LastCommentDate.Equal(c.LastCommentDate) {
			return false
		}
	}
	return true
}

type ResourceSort string

const (
	ResourceSortNewest       ResourceSort = "newest"
	ResourceSortOldest       ResourceSort = "oldest"
	ResourceSortAlphabetical ResourceSort = "alphabetical"
	ResourceSortPopular      ResourceSort = "popular"
)

// ResourceQuery filters ListResources. Limit 0 returns every match.
type ResourceQuery struct {
	Type          ResourceType
	Level         ResourceLevel
	Category      string
	Search        string
	SearchContent bool
	ExclusiveOnly bool
	Sort          ResourceSort
	Offset        int
	Limit         int
}

type ResourceRepository interface {
	CreateResource(ctx context.Context, r *Resource) error
	GetResource(ctx context.Context, id uuid.UUID) (*Resource, error)
	GetResourceForUpdate(ctx context.Context, id uuid.UUID) (*Resource, error)
	UpdateResource(ctx context.Context, r *Resource) error
	IncrementResourceViews(ctx context.Context, id uuid.UUID) error
	ListResources(ctx context.Context, q ResourceQuery) ([]*Resource, int, error)
	ListResourceIDs(ctx context.Context) ([]uuid.UUID, error)
	// ResourceFacets returns the distinct types and categories in use.
	ResourceFacets(ctx context.Context) (types []string, categories []string, err error)
}
