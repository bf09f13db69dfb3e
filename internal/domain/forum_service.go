package domain

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	trendingTagsLimit  = 10
	filterTagsLimit    = 15
	formOptionTagLimit = 20

	defaultTopicsLimit = 10
	maxTopicsLimit     = 50
	minSearchLength    = 2
)

type ForumService struct {
	repo     ForumRepository
	users    IdentityStore
	tx       Transactor
	observer Observer
	now      func() time.Time
}

func NewForumService(repo ForumRepository, users IdentityStore, tx Transactor, observer Observer) *ForumService {
	return &ForumService{
		repo:     repo,
		users:    users,
		tx:       tx,
		observer: observerOrNop(observer),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Categories

func (s *ForumService) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx, true)
}

type CategoryInput struct {
	Name        string
	Description string
	Icon        string
}

func (s *ForumService) AddCategory(ctx context.Context, actor Actor, in CategoryInput) (*Category, error) {
	if !actor.CanModerate() {
		return nil, Forbidden("moderator access required")
	}
	name := strings.TrimSpace(in.Name)
	slug := Slugify(name)
	if slug == "" {
		return nil, Validation("category name is required")
	}

	now := s.now()
	cat := &Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Icon:        in.Icon,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireFreeSlug(ctx, slug, uuid.Nil); err != nil {
			return err
		}
		order, err := s.repo.MaxCategoryOrder(ctx)
		if err != nil {
			return err
		}
		cat.Order = order + 1
		return s.categoryWrite(s.repo.CreateCategory(ctx, cat))
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

type CategoryPatch struct {
	Name        *string
	Description *string
	Icon        *string
	Order       *int
	IsActive    *bool
}

// UpdateCategory applies patch; renaming re-derives the slug
func (s *ForumService) UpdateCategory(ctx context.Context, actor Actor, id uuid.UUID, patch CategoryPatch) (*Category, error) {
	if !actor.CanModerate() {
		return nil, Forbidden("moderator access required")
	}
	var out *Category
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cat, err := s.repo.GetCategoryForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "category")
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			slug := Slugify(name)
			if slug == "" {
				return Validation("category name is required")
			}
			if slug != cat.Slug {
				if err := s.requireFreeSlug(ctx, slug, cat.ID); err != nil {
					return err
				}
			}
			cat.Name, cat.Slug = name, slug
		}
		if patch.Description != nil {
			cat.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Icon != nil {
			cat.Icon = *patch.Icon
		}
		if patch.Order != nil {
			cat.Order = *patch.Order
		}
		if patch.IsActive != nil {
			cat.IsActive = *patch.IsActive
		}
		cat.UpdatedAt = s.now()
		if err := s.categoryWrite(s.repo.UpdateCategory(ctx, cat)); err != nil {
			return err
		}
		out = cat
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCategory refuses while any topic still references the category
func (s *ForumService) DeleteCategory(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.CanModerate() {
		return Forbidden("moderator access required")
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cat, err := s.repo.GetCategoryForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "category")
		}
		if cat.TopicsCount > 0 {
			return Conflict("cannot delete category with %d existing topics", cat.TopicsCount)
		}
		err = s.repo.DeleteCategory(ctx, id)
		if errors.Is(err, ErrInUse) {
			return Conflict("cannot delete category with existing topics")
		}
		return notFoundAs(err, "category")
	})
}

func (s *ForumService) requireFreeSlug(ctx context.Context, slug string, self uuid.UUID) error {
	existing, err := s.repo.GetCategoryBySlug(ctx, slug)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return Conflict("category with slug %q already exists", slug)
	}
	return nil
}

func (s *ForumService) categoryWrite(err error) error {
	if errors.Is(err, ErrDuplicate) {
		return Conflict("category with this name already exists")
	}
	return notFoundAs(err, "category")
}

// Topics

type TopicInput struct {
	Title      string
	Content    string
	CategoryID *uuid.UUID
	Tags       []string
}

// CreateTopic stores the topic and bumps its category's count in the same unit
func (s *ForumService) CreateTopic(ctx context.Context, actor Actor, in TopicInput) (*Topic, error) {
	title, content := strings.TrimSpace(in.Title), strings.TrimSpace(in.Content)
	if err := validateTopic(title, content); err != nil {
		return nil, err
	}

	now := s.now()
	topic := &Topic{
		ID:           uuid.New(),
		Title:        title,
		Content:      content,
		AuthorID:     actor.ID,
		CategoryID:   in.CategoryID,
		Tags:         NormalizeTags(in.Tags),
		Replies:      []uuid.UUID{},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if topic.CategoryID != nil {
			if _, err := s.repo.GetCategoryForUpdate(ctx, *topic.CategoryID); err != nil {
				return notFoundAs(err, "category")
			}
		}
		if err := s.repo.CreateTopic(ctx, topic); err != nil {
			return err
		}
		if topic.CategoryID != nil {
			return s.repo.AdjustTopicsCount(ctx, *topic.CategoryID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observer.Observe(EventTopicCreated)
	return topic, nil
}

// DeleteTopic removes the topic with its replies and decrements the category count
func (s *ForumService) DeleteTopic(ctx context.Context, topicID uuid.UUID, actor Actor) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		topic, err := s.repo.GetTopicForUpdate(ctx, topicID)
		if err != nil {
			return notFoundAs(err, "topic")
		}
		if !actor.Is(topic.AuthorID) && !actor.CanModerate() {
			return Forbidden("not authorized to delete this topic")
		}
		if topic.CategoryID != nil {
			if _, err := s.repo.GetCategoryForUpdate(ctx, *topic.CategoryID); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		if err := s.repo.DeleteRepliesByTopic(ctx, topicID); err != nil {
			return err
		}
		if err := s.repo.DeleteTopic(ctx, topicID); err != nil {
			return notFoundAs(err, "topic")
		}
		if topic.CategoryID != nil {
			err := s.repo.AdjustTopicsCount(ctx, *topic.CategoryID, -1)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		return nil
	})
}

// LockTopic closes the topic to new replies. There is no unlock.
func (s *ForumService) LockTopic(ctx context.Context, topicID uuid.UUID, actor Actor) (*Topic, error) {
	if !actor.CanModerate() {
		return nil, Forbidden("moderator access required")
	}
	return s.mutateTopic(ctx, topicID, func(t *Topic) {
		t.IsLocked = true
	})
}

// PinTopic sets the pinned flag, independent of lock state
func (s *ForumService) PinTopic(ctx context.Context, topicID uuid.UUID, actor Actor, pinned bool) (*Topic, error) {
	if !actor.CanModerate() {
		return nil, Forbidden("moderator access required")
	}
	return s.mutateTopic(ctx, topicID, func(t *Topic) {
		t.IsPinned = pinned
	})
}

func (s *ForumService) mutateTopic(ctx context.Context, topicID uuid.UUID, fn func(*Topic)) (*Topic, error) {
	var out *Topic
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		topic, err := s.repo.GetTopicForUpdate(ctx, topicID)
		if err != nil {
			return notFoundAs(err, "topic")
		}
		fn(topic)
		topic.UpdatedAt = s.now()
		if err := s.repo.UpdateTopic(ctx, topic); err != nil {
			return err
		}
		out = topic
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Views

type AuthorRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Title   string    `json:"title,omitempty"`
	Company string    `json:"company,omitempty"`
}

type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
	Icon string    `json:"icon,omitempty"`
}

type TopicSummary struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	Author       AuthorRef    `json:"author"`
	Category     *CategoryRef `json:"category,omitempty"`
	Tags         []string     `json:"tags"`
	Replies      int          `json:"replies"`
	Views        int          `json:"views"`
	CreatedAt    time.Time    `json:"createdAt"`
	LastActivity time.Time    `json:"lastActivity"`
	IsPinned     bool         `json:"isPinned"`
	IsPopular    bool         `json:"isPopular"`
	IsLocked     bool         `json:"isLocked"`
}

type ReplyView struct {
	ID            uuid.UUID  `json:"id"`
	Content       string     `json:"content"`
	Author        AuthorRef  `json:"author"`
	ParentReplyID *uuid.UUID `json:"parentReplyId,omitempty"`
	Likes         int        `json:"likes"`
	IsEdited      bool       `json:"isEdited"`
	IsDeleted     bool       `json:"isDeleted"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type TopicDetail struct {
	TopicSummary
	Content     string      `json:"content"`
	LastReplyAt *time.Time  `json:"lastReplyAt,omitempty"`
	LastReplyBy *uuid.UUID  `json:"lastReplyBy,omitempty"`
	ReplyList   []ReplyView `json:"replyList"`
}

type TopicList struct {
	Topics     []TopicSummary `json:"topics"`
	Pagination Pagination     `json:"pagination"`
}

// GetTopic returns the topic with its replies. Every fetch counts as a view.
func (s *ForumService) GetTopic(ctx context.Context, topicID uuid.UUID) (*TopicDetail, error) {
	var (
		topic   *Topic
		replies []*Reply
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.IncrementTopicViews(ctx, topicID); err != nil {
			return notFoundAs(err, "topic")
		}
		var err error
		if topic, err = s.repo.GetTopic(ctx, topicID); err != nil {
			return notFoundAs(err, "topic")
		}
		replies, err = s.repo.ListReplies(ctx, topicID)
		return err
	})
	if err != nil {
		return nil, err
	}

	ids := []uuid.UUID{topic.AuthorID}
	for _, r := range replies {
		ids = append(ids, r.AuthorID)
	}
	authors, err := s.authorRefs(ctx, ids)
	if err != nil {
		return nil, err
	}
	cats, err := s.categoryRefs(ctx)
	if err != nil {
		return nil, err
	}

	detail := &TopicDetail{
		TopicSummary: summarize(topic, authors, cats),
		Content:      topic.Content,
		LastReplyAt:  topic.LastReplyAt,
		LastReplyBy:  topic.LastReplyBy,
		ReplyList:    make([]ReplyView, 0, len(replies)),
	}
	for _, r := range replies {
		detail.ReplyList = append(detail.ReplyList, ReplyView{
			ID:            r.ID,
			Content:       r.Content,
			Author:        authors[r.AuthorID],
			ParentReplyID: r.ParentReplyID,
			Likes:         len(r.Likes),
			IsEdited:      r.IsEdited,
			IsDeleted:     r.IsDeleted,
			CreatedAt:     r.CreatedAt,
		})
	}
	return detail, nil
}

type TopicListParams struct {
	CategorySlug string
	Filter       TopicFilter
	Search       string
	Page         int
	Limit        int
}

func (s *ForumService) ListTopics(ctx context.Context, p TopicListParams) (*TopicList, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultTopicsLimit
	}
	if p.Limit > maxTopicsLimit {
		p.Limit = maxTopicsLimit
	}
	switch p.Filter {
	case FilterPopular, FilterUnanswered:
	default:
		p.Filter = FilterRecent
	}

	q := TopicQuery{
		Filter:      p.Filter,
		Search:      strings.TrimSpace(p.Search),
		PinnedFirst: true,
		Offset:      pageOffset(p.Page, p.Limit),
		Limit:       p.Limit,
	}
	if p.CategorySlug != "" {
		cat, err := s.repo.GetCategoryBySlug(ctx, p.CategorySlug)
		if err != nil {
			return nil, notFoundAs(err, "category")
		}
		q.CategoryID = &cat.ID
	}

	topics, total, err := s.repo.ListTopics(ctx, q)
	if err != nil {
		return nil, err
	}
	summaries, err := s.summaries(ctx, topics)
	if err != nil {
		return nil, err
	}
	return &TopicList{Topics: summaries, Pagination: newPagination(total, p.Page, p.Limit)}, nil
}

// SearchTopics matches title, content and tags, most recently active first.
// Queries shorter than two characters return nothing.
func (s *ForumService) SearchTopics(ctx context.Context, query string, categoryID *uuid.UUID, limit int) ([]TopicSummary, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchLength {
		return []TopicSummary{}, nil
	}
	if limit < 1 || limit > maxTopicsLimit {
		limit = defaultTopicsLimit
	}
	topics, _, err := s.repo.ListTopics(ctx, TopicQuery{
		CategoryID:    categoryID,
		Filter:        FilterRecent,
		Search:        query,
		SearchContent: true,
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, topics)
}

func (s *ForumService) summaries(ctx context.Context, topics []*Topic) ([]TopicSummary, error) {
	ids := make([]uuid.UUID, 0, len(topics))
	for _, t := range topics {
		ids = append(ids, t.AuthorID)
	}
	authors, err := s.authorRefs(ctx, ids)
	if err != nil {
		return nil, err
	}
	cats, err := s.categoryRefs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TopicSummary, 0, len(topics))
	for _, t := range topics {
		out = append(out, summarize(t, authors, cats))
	}
	return out, nil
}

func summarize(t *Topic, authors map[uuid.UUID]AuthorRef, cats map[uuid.UUID]CategoryRef) TopicSummary {
	sum := TopicSummary{
		ID:           t.ID,
		Title:        t.Title,
		Author:       authors[t.AuthorID],
		Tags:         t.Tags,
		Replies:      len(t.Replies),
		Views:        t.Views,
		CreatedAt:    t.CreatedAt,
		LastActivity: t.LastActivity,
		IsPinned:     t.IsPinned,
		IsPopular:    t.IsPopular,
		IsLocked:     t.IsLocked,
	}
	if t.CategoryID != nil {
		if ref, ok := cats[*t.CategoryID]; ok {
			sum.Category = &ref
		}
	}
	return sum
}

func (s *ForumService) authorRefs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]AuthorRef, error) {
	users, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	refs := make(map[uuid.UUID]AuthorRef, len(ids))
	for _, id := range ids {
		refs[id] = AuthorRef{ID: id, Name: "Unknown member"}
	}
	for _, u := range users {
		refs[u.ID] = AuthorRef{ID: u.ID, Name: u.Name, Title: u.Title, Company: u.Company}
	}
	return refs, nil
}

func (s *ForumService) categoryRefs(ctx context.Context) (map[uuid.UUID]CategoryRef, error) {
	cats, err := s.repo.ListCategories(ctx, false)
	if err != nil {
		return nil, err
	}
	refs := make(map[uuid.UUID]CategoryRef, len(cats))
	for _, c := range cats {
		refs[c.ID] = CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug, Icon: c.Icon}
	}
	return refs, nil
}

// Replies

// AddReply appends a reply and moves the topic's activity markers in one unit
func (s *ForumService) AddReply(ctx context.Context, topicID uuid.UUID, actor Actor, content string, parentReplyID *uuid.UUID) (*Reply, error) {
	content = strings.TrimSpace(content)
	if err := validateReply(content); err != nil {
		return nil, err
	}

	now := s.now()
	reply := &Reply{
		ID:            uuid.New(),
		Content:       content,
		AuthorID:      actor.ID,
		TopicID:       topicID,
		Likes:         []uuid.UUID{},
		ParentReplyID: parentReplyID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		topic, err := s.repo.GetTopicForUpdate(ctx, topicID)
		if err != nil {
			return notFoundAs(err, "topic")
		}
		if topic.IsLocked {
			return InvalidState("topic is locked")
		}
		if parentReplyID != nil {
			parent, err := s.repo.GetReply(ctx, *parentReplyID)
			if errors.Is(err, ErrNotFound) || (err == nil && parent.TopicID != topicID) {
				return Validation("parent reply does not belong to this topic")
			}
			if err != nil {
				return err
			}
		}
		if err := s.repo.CreateReply(ctx, reply); err != nil {
			return err
		}
		topic.AttachReply(reply)
		return s.repo.UpdateTopic(ctx, topic)
	})
	if err != nil {
		return nil, err
	}

	s.observer.Observe(EventReplyCreated)
	return reply, nil
}

func (s *ForumService) EditReply(ctx context.Context, replyID uuid.UUID, actor Actor, content string) (*Reply, error) {
	content = strings.TrimSpace(content)
	if err := validateReply(content); err != nil {
		return nil, err
	}
	var out *Reply
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		reply, err := s.repo.GetReplyForUpdate(ctx, replyID)
		if err != nil {
			return notFoundAs(err, "reply")
		}
		if !actor.Is(reply.AuthorID) {
			return Forbidden("only the author can edit this reply")
		}
		if reply.IsDeleted {
			return InvalidState("reply has been deleted")
		}
		reply.Content = content
		reply.IsEdited = true
		reply.UpdatedAt = s.now()
		if err := s.repo.UpdateReply(ctx, reply); err != nil {
			return err
		}
		out = reply
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteReply soft-deletes the reply and recomputes the topic's activity
// markers from the newest remaining reply.
func (s *ForumService) DeleteReply(ctx context.Context, replyID uuid.UUID, actor Actor) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		reply, err := s.repo.GetReply(ctx, replyID)
		if err != nil {
			return notFoundAs(err, "reply")
		}
		topic, err := s.repo.GetTopicForUpdate(ctx, reply.TopicID)
		if err != nil {
			return notFoundAs(err, "topic")
		}
		if reply, err = s.repo.GetReplyForUpdate(ctx, replyID); err != nil {
			return notFoundAs(err, "reply")
		}
		if !actor.Is(reply.AuthorID) && !actor.CanModerate() {
			return Forbidden("not authorized to delete this reply")
		}
		if reply.IsDeleted {
			return nil
		}

		reply.IsDeleted = true
		reply.Content = ""
		reply.UpdatedAt = s.now()
		if err := s.repo.UpdateReply(ctx, reply); err != nil {
			return err
		}

		replies, err := s.repo.ListReplies(ctx, topic.ID)
		if err != nil {
			return err
		}
		topic.RefreshLastReply(latestLiveReply(replies))
		return s.repo.UpdateTopic(ctx, topic)
	})
}

type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// LikeReply toggles the actor's like
func (s *ForumService) LikeReply(ctx context.Context, replyID uuid.UUID, actor Actor) (*LikeResult, error) {
	var out LikeResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		reply, err := s.repo.GetReplyForUpdate(ctx, replyID)
		if err != nil {
			return notFoundAs(err, "reply")
		}
		out.Liked = reply.ToggleLike(actor.ID)
		out.LikesCount = len(reply.Likes)
		return s.repo.UpdateReply(ctx, reply)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Tags and filters

func (s *ForumService) topTags(ctx context.Context, n int) ([]TagCount, error) {
	sets, err := s.repo.ListTopicTags(ctx)
	if err != nil {
		return nil, err
	}
	return TopTags(sets, n), nil
}

func (s *ForumService) TrendingTags(ctx context.Context) ([]TagCount, error) {
	return s.topTags(ctx, trendingTagsLimit)
}

type FilterOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TopicFilters struct {
	Categories  []CategoryRef  `json:"categories"`
	Filters     []FilterOption `json:"filters"`
	PopularTags []string       `json:"popularTags"`
}

type TopicFormOptions struct {
	Categories  []CategoryRef `json:"categories"`
	PopularTags []string      `json:"popularTags"`
}

func (s *ForumService) TopicFilters(ctx context.Context) (*TopicFilters, error) {
	cats, err := s.activeCategoryRefs(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.topTags(ctx, filterTagsLimit)
	if err != nil {
		return nil, err
	}
	return &TopicFilters{
		Categories: cats,
		Filters: []FilterOption{
			{ID: string(FilterRecent), Name: "Recent"},
			{ID: string(FilterPopular), Name: "Popular"},
			{ID: string(FilterUnanswered), Name: "Unanswered"},
		},
		PopularTags: tagNames(tags),
	}, nil
}

func (s *ForumService) TopicFormOptions(ctx context.Context) (*TopicFormOptions, error) {
	cats, err := s.activeCategoryRefs(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.topTags(ctx, formOptionTagLimit)
	if err != nil {
		return nil, err
	}
	return &TopicFormOptions{Categories: cats, PopularTags: tagNames(tags)}, nil
}

func (s *ForumService) activeCategoryRefs(ctx context.Context) ([]CategoryRef, error) {
	cats, err := s.repo.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryRef, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug, Icon: c.Icon})
	}
	return out, nil
}

// ReconcileCategoryCounts compares every cached topicsCount with the number of
// topics referencing the category and, unless dryRun, repairs the drift.
// Category rows are locked before counting so a concurrent topic write either
// lands before the count or waits for the repair.
func (s *ForumService) ReconcileCategoryCounts(ctx context.Context, dryRun bool) ([]Drift, error) {
	drifts := []Drift{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		listed, err := s.repo.ListCategories(ctx, false)
		if err != nil {
			return err
		}
		cats := make([]*Category, 0, len(listed))
		for _, c := range listed {
			locked, err := s.repo.GetCategoryForUpdate(ctx, c.ID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			cats = append(cats, locked)
		}
		actual, err := s.repo.CountTopicsByCategory(ctx)
		if err != nil {
			return err
		}
		for _, c := range cats {
			if c.TopicsCount == actual[c.ID] {
				continue
			}
			drifts = append(drifts, Drift{Counter: CounterCategoryTopics, EntityID: c.ID, Stored: c.TopicsCount, Actual: actual[c.ID]})
			if dryRun {
				continue
			}
			if err := s.repo.SetTopicsCount(ctx, c.ID, actual[c.ID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drifts, nil
}
