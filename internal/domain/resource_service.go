package domain

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/storage"
)

const (
	recentResourcesLimit  = 5
	defaultResourcesLimit = 12
	defaultCommentsLimit  = 10
	maxCommentsLimit      = 100
	maxResourcesPageLimit = 100
	newResourceWindowDays = 7
	resourceDateLayout    = "January 2, 2006"
	allTypesOption        = "All types"
	allLevelsOption       = "All levels"
	allCategoriesOption   = "All categories"
)

type ResourceService struct {
	repo     ResourceRepository
	users    IdentityStore
	files    storage.FileStorage
	tx       Transactor
	observer Observer
	now      func() time.Time
}

func NewResourceService(repo ResourceRepository, users IdentityStore, files storage.FileStorage, tx Transactor, observer Observer) *ResourceService {
	return &ResourceService{
		repo:     repo,
		users:    users,
		files:    files,
		tx:       tx,
		observer: observerOrNop(observer),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ResourceCard is the listing view of a resource
type ResourceCard struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Category      string        `json:"category"`
	ResourceType  ResourceType  `json:"resourceType"`
	Level         ResourceLevel `json:"level"`
	IsExclusive   bool          `json:"isExclusive"`
	PublishDate   time.Time     `json:"publishDate"`
	FormattedDate string        `json:"formattedDate"`
	ReadTime      *int          `json:"readTime,omitempty"`
	Duration      *int          `json:"duration,omitempty"`
	Tags          []string      `json:"tags"`
	ImageURL      string        `json:"imageUrl,omitempty"`
	TimeAgo       string        `json:"timeAgo"`
	IsNew         bool          `json:"isNew"`
	Views         int           `json:"views"`
	LikesCount    int           `json:"likesCount"`
	CommentCount  int           `json:"commentCount"`
}

func (s *ResourceService) card(r *Resource) ResourceCard {
	now := s.now()
	return ResourceCard{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Category:      r.Category,
		ResourceType:  r.ResourceType,
		Level:         r.Level,
		IsExclusive:   r.IsExclusive,
		PublishDate:   r.PublishDate,
		FormattedDate: r.PublishDate.Format(resourceDateLayout),
		ReadTime:      r.ReadTime,
		Duration:      r.Duration,
		Tags:          r.Tags,
		ImageURL:      r.ImageURL,
		TimeAgo:       TimeAgo(r.PublishDate, now),
		IsNew:         IsNew(r.PublishDate, now),
		Views:         r.Views,
		LikesCount:    len(r.Likes),
		CommentCount:  r.CommentCount,
	}
}

func (s *ResourceService) cards(rs []*Resource) []ResourceCard {
	out := make([]ResourceCard, 0, len(rs))
	for _, r := range rs {
		out = append(out, s.card(r))
	}
	return out
}

// TimeAgo renders the age of t in days, weeks or months
func TimeAgo(t, now time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	default:
		return fmt.Sprintf("%d months ago", days/30)
	}
}

// IsNew is true for resources published less than a week ago
func IsNew(t, now time.Time) bool {
	return int(now.Sub(t).Hours()/24) < newResourceWindowDays
}

func (s *ResourceService) RecentResources(ctx context.Context) ([]ResourceCard, error) {
	rs, _, err := s.repo.ListResources(ctx, ResourceQuery{Sort: ResourceSortNewest, Limit: recentResourcesLimit})
	if err != nil {
		return nil, err
	}
	return s.cards(rs), nil
}

// ResourceFilter narrows the catalogue. The "All ..." dropdown values match everything.
type ResourceFilter struct {
	Type     string
	Level    string
	Category string
	Search   string
}

func (f ResourceFilter) query() ResourceQuery {
	q := ResourceQuery{Search: strings.TrimSpace(f.Search)}
	if f.Type != "" && f.Type != allTypesOption {
		q.Type = ResourceType(strings.ToLower(f.Type))
	}
	if f.Level != "" && f.Level != allLevelsOption {
		q.Level = ResourceLevel(strings.ToLower(f.Level))
	}
	if f.Category != "" && f.Category != allCategoriesOption {
		q.Category = f.Category
	}
	return q
}

type ResourceList struct {
	Count     int            `json:"count"`
	Resources []ResourceCard `json:"resources"`
}

func (s *ResourceService) ListResources(ctx context.Context, f ResourceFilter) (*ResourceList, error) {
	q := f.query()
	q.Sort = ResourceSortNewest
	rs, total, err := s.repo.ListResources(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ResourceList{Count: total, Resources: s.cards(rs)}, nil
}

type ResourceSearchParams struct {
	ResourceFilter
	ExclusiveOnly bool
	Sort          ResourceSort
	Page          int
	Limit         int
}

type ResourceSearchResult struct {
	Count       int            `json:"count"`
	Pages       int            `json:"pages"`
	CurrentPage int            `json:"currentPage"`
	Resources   []ResourceCard `json:"resources"`
}

// SearchResources also matches body content and supports paging and sorting
func (s *ResourceService) SearchResources(ctx context.Context, p ResourceSearchParams) (*ResourceSearchResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultResourcesLimit
	}
	if p.Limit > maxResourcesPageLimit {
		p.Limit = maxResourcesPageLimit
	}
	switch p.Sort {
	case ResourceSortOldest, ResourceSortAlphabetical, ResourceSortPopular:
	default:
		p.Sort = ResourceSortNewest
	}

	q := p.query()
	q.SearchContent = true
	q.ExclusiveOnly = p.ExclusiveOnly
	q.Sort = p.Sort
	q.Offset = pageOffset(p.Page, p.Limit)
	q.Limit = p.Limit

	rs, total, err := s.repo.ListResources(ctx, q)
	if err != nil {
		return nil, err
	}
	pg := newPagination(total, p.Page, p.Limit)
	return &ResourceSearchResult{Count: total, Pages: pg.Pages, CurrentPage: p.Page, Resources: s.cards(rs)}, nil
}

type ResourceFilterOptions struct {
	Types      []string `json:"types"`
	Levels     []string `json:"levels"`
	Categories []string `json:"categories"`
}

func (s *ResourceService) FilterOptions(ctx context.Context) (*ResourceFilterOptions, error) {
	types, categories, err := s.repo.ResourceFacets(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(types)
	sort.Strings(categories)
	return &ResourceFilterOptions{
		Types:      append([]string{allTypesOption}, types...),
		Levels:     []string{allLevelsOption, string(LevelBeginner), string(LevelIntermediate), string(LevelAdvanced)},
		Categories: append([]string{allCategoriesOption}, categories...),
	}, nil
}

// ResourceDetail is a resource without its embedded comment thread
type ResourceDetail struct {
	ResourceCard
	Content        string `json:"content,omitempty"`
	AuthorName     string `json:"authorName,omitempty"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
	VideoURL       string `json:"videoUrl,omitempty"`
	Downloads      int    `json:"downloads"`
	BookmarksCount int    `json:"bookmarksCount"`
	AccessCount    int    `json:"accessCount"`
}

func (s *ResourceService) GetResource(ctx context.Context, id uuid.UUID) (*ResourceDetail, error) {
	r, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "resource")
	}
	return &ResourceDetail{
		ResourceCard:   s.card(r),
		Content:        r.Content,
		AuthorName:     r.AuthorName,
		DownloadURL:    r.DownloadURL,
		VideoURL:       r.VideoURL,
		Downloads:      r.Downloads,
		BookmarksCount: len(r.Bookmarks),
		AccessCount:    len(r.AccessedBy),
	}, nil
}

// Upload is an optional file attached to a resource write
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

type ResourceInput struct {
	Title        string
	Description  string
	Content      string
	Category     string
	AuthorName   string
	ResourceType ResourceType
	Level        ResourceLevel
	IsExclusive  bool
	ReadTime     *int
	Duration     *int
	Tags         []string
	DownloadURL  string
	VideoURL     string
}

func (in ResourceInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return Validation("title is required")
	case strings.TrimSpace(in.Description) == "":
		return Validation("description is required")
	case strings.TrimSpace(in.Category) == "":
		return Validation("category is required")
	case !in.ResourceType.Valid():
		return Validation("invalid resource type %q", in.ResourceType)
	case in.Level != "" && !in.Level.Valid():
		return Validation("invalid level %q", in.Level)
	}
	return nil
}

// AddResource stores a new resource. The image, when given, goes through
// file storage first and its URL is kept on the resource.
func (s *ResourceService) AddResource(ctx context.Context, actor Actor, in ResourceInput, image *Upload) (*Resource, error) {
	if !actor.CanModerate() {
		return nil, Forbidden("moderator access required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	r := &Resource{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Content:      in.Content,
		Category:     strings.TrimSpace(in.Category),
		AuthorName:   in.AuthorName,
		ResourceType: in.ResourceType,
		Level:        in.Level,
		IsExclusive:  in.IsExclusive,
		ReadTime:     in.ReadTime,
		Duration:     in.Duration,
		Tags:         normalizeConnectionTags(in.Tags),
		DownloadURL:  in.DownloadURL,
		VideoURL:     in.VideoURL,
		Likes:        []uuid.UUID{},
		Bookmarks:    []uuid.UUID{},
		AccessedBy:   []uuid.UUID{},
		Comments:     []Comment{},
		Commenters:   []Commenter{},
		PublishDate:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if r.Level == "" {
		r.Level = LevelIntermediate
	}

	if image != nil {
		url, err := s.files.SaveFile(ctx, image.Reader, image.Filename, image.ContentType)
		if err != nil {
			return nil, err
		}
		r.ImageURL = url
	}

	if err := s.repo.CreateResource(ctx, r); err != nil {
		if r.ImageURL != "" {
			_ = s.files.DeleteFile(ctx, r.ImageURL)
		}
		return nil, err
	}
	return r, nil
}

type ResourcePatch struct {
	Title        *string
	Description  *string
	Content      *string
	Category     *string
	ResourceType *ResourceType
	Level        *ResourceLevel
	IsExclusive  *bool
	ReadTime     *int
	Duration     *int
	Tags         *[]string
	DownloadURL  *string
	VideoURL     *string
}

func (s *ResourceService) UpdateResource(ctx context.Context, actor Actor, id uuid.UUID, patch ResourcePatch, image *Upload) (*Resource, error) {
	if !actor.CanModerate() {
		return nil, Forbidden("moderator access required")
	}
	if patch.ResourceType != nil && !patch.ResourceType.Valid() {
		return nil, Validation("invalid resource type %q", *patch.ResourceType)
	}
	if patch.Level != nil && !patch.Level.Valid() {
		return nil, Validation("invalid level %q", *patch.Level)
	}

	var imageURL string
	if image != nil {
		url, err := s.files.SaveFile(ctx, image.Reader, image.Filename, image.ContentType)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	var (
		out      *Resource
		oldImage string
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetResourceForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "resource")
		}
		if err := applyResourcePatch(r, patch); err != nil {
			return err
		}
		if imageURL != "" {
			oldImage, r.ImageURL = r.ImageURL, imageURL
		}
		r.UpdatedAt = s.now()
		if err := s.repo.UpdateResource(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		if imageURL != "" {
			_ = s.files.DeleteFile(ctx, imageURL)
		}
		return nil, err
	}
	if oldImage != "" {
		_ = s.files.DeleteFile(ctx, oldImage)
	}
	return out, nil
}

func applyResourcePatch(r *Resource, p ResourcePatch) error {
	setText := func(dst *string, v *string, field string) error {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			return Validation("%s cannot be empty", field)
		}
		*dst = t
		return nil
	}
	if err := setText(&r.Title, p.Title, "title"); err != nil {
		return err
	}
	if err := setText(&r.Description, p.Description, "description"); err != nil {
		return err
	}
	if err := setText(&r.Category, p.Category, "category"); err != nil {
		return err
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.ResourceType != nil {
		r.ResourceType = *p.ResourceType
	}
	if p.Level != nil {
		r.Level = *p.Level
	}
	if p.IsExclusive != nil {
		r.IsExclusive = *p.IsExclusive
	}
	if p.ReadTime != nil {
		r.ReadTime = p.ReadTime
	}
	if p.Duration != nil {
		r.Duration = p.Duration
	}
	if p.Tags != nil {
		r.Tags = normalizeConnectionTags(*p.Tags)
	}
	if p.DownloadURL != nil {
		r.DownloadURL = *p.DownloadURL
	}
	if p.VideoURL != nil {
		r.VideoURL = *p.VideoURL
	}
	return nil
}

// mutate loads the resource under lock, applies fn and saves it in one unit
func (s *ResourceService) mutate(ctx context.Context, id uuid.UUID, fn func(*Resource) error) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetResourceForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "resource")
		}
		if err := fn(r); err != nil {
			return err
		}
		return s.repo.UpdateResource(ctx, r)
	})
}

// AccessResource records the actor in AccessedBy once
func (s *ResourceService) AccessResource(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.mutate(ctx, id, func(r *Resource) error {
		r.MarkAccessed(actor.ID)
		return nil
	})
}

func (s *ResourceService) TrackView(ctx context.Context, id uuid.UUID) error {
	return notFoundAs(s.repo.IncrementResourceViews(ctx, id), "resource")
}

func (s *ResourceService) ToggleLike(ctx context.Context, id uuid.UUID, actor Actor) (*LikeResult, error) {
	var out LikeResult
	err := s.mutate(ctx, id, func(r *Resource) error {
		out.Liked = r.ToggleLike(actor.ID)
		out.LikesCount = len(r.Likes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type BookmarkResult struct {
	Bookmarked     bool `json:"bookmarked"`
	BookmarksCount int  `json:"bookmarksCount"`
}

func (s *ResourceService) ToggleBookmark(ctx context.Context, id uuid.UUID, actor Actor) (*BookmarkResult, error) {
	var out BookmarkResult
	err := s.mutate(ctx, id, func(r *Resource) error {
		out.Bookmarked = r.ToggleBookmark(actor.ID)
		out.BookmarksCount = len(r.Bookmarks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Comments

type CommentSort string

const (
	CommentsNewest    CommentSort = "newest"
	CommentsOldest    CommentSort = "oldest"
	CommentsMostLiked CommentSort = "most-liked"
)

type CommentView struct {
	ID         uuid.UUID      `json:"id"`
	AuthorID   uuid.UUID      `json:"authorId"`
	AuthorName string         `json:"authorName"`
	Text       string         `json:"text"`
	LikesCount int            `json:"likesCount"`
	Replies    []CommentReply `json:"replies"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type CommentPage struct {
	Comments   []CommentView `json:"comments"`
	Pagination Pagination    `json:"pagination"`
}

// GetComments sorts the whole embedded thread in memory, then slices one page
func (s *ResourceService) GetComments(ctx context.Context, id uuid.UUID, by CommentSort, page, limit int) (*CommentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultCommentsLimit
	}
	if limit > maxCommentsLimit {
		limit = maxCommentsLimit
	}
	r, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "resource")
	}

	comments := make([]Comment, len(r.Comments))
	copy(comments, r.Comments)
	switch by {
	case CommentsOldest:
		sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	case CommentsMostLiked:
		sort.SliceStable(comments, func(i, j int) bool {
			if len(comments[i].Likes) != len(comments[j].Likes) {
				return len(comments[i].Likes) > len(comments[j].Likes)
			}
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		})
	default:
		sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.After(comments[j].CreatedAt) })
	}

	start, end := pageBounds(len(comments), page, limit)
	views := make([]CommentView, 0, end-start)
	for _, c := range comments[start:end] {
		views = append(views, CommentView{
			ID:         c.ID,
			AuthorID:   c.AuthorID,
			AuthorName: c.AuthorName,
			Text:       c.Text,
			LikesCount: len(c.Likes),
			Replies:    c.Replies,
			CreatedAt:  c.CreatedAt,
		})
	}
	return &CommentPage{Comments: views, Pagination: newPagination(len(comments), page, limit)}, nil
}

// GetCommenters returns the roll-up, most recent commenter first
func (s *ResourceService) GetCommenters(ctx context.Context, id uuid.UUID) ([]Commenter, error) {
	r, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "resource")
	}
	out := make([]Commenter, len(r.Commenters))
	copy(out, r.Commenters)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastCommentDate.After(out[j].LastCommentDate) })
	return out, nil
}

func (s *ResourceService) authorName(ctx context.Context, actor Actor) (string, error) {
	u, err := s.users.GetUser(ctx, actor.ID)
	if err != nil {
		return "", notFoundAs(err, "user")
	}
	return u.Name, nil
}

func (s *ResourceService) AddComment(ctx context.Context, id uuid.UUID, actor Actor, text string) (*Comment, error) {
	name, err := s.authorName(ctx, actor)
	if err != nil {
		return nil, err
	}
	var out Comment
	err = s.mutate(ctx, id, func(r *Resource) error {
		c, err := r.AddComment(actor, name, text, s.now())
		if err != nil {
			return err
		}
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observer.Observe(EventCommentCreated)
	return &out, nil
}

func (s *ResourceService) DeleteComment(ctx context.Context, resourceID, commentID uuid.UUID, actor Actor) error {
	return s.mutate(ctx, resourceID, func(r *Resource) error {
		return r.DeleteComment(actor, commentID, s.now())
	})
}

func (s *ResourceService) LikeComment(ctx context.Context, resourceID, commentID uuid.UUID, actor Actor) (*LikeResult, error) {
	var out *LikeResult
	err := s.mutate(ctx, resourceID, func(r *Resource) error {
		res, err := r.LikeComment(actor, commentID)
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ResourceService) ReplyToComment(ctx context.Context, resourceID, commentID uuid.UUID, actor Actor, text string) (*CommentReply, error) {
	name, err := s.authorName(ctx, actor)
	if err != nil {
		return nil, err
	}
	var out *CommentReply
	err = s.mutate(ctx, resourceID, func(r *Resource) error {
		reply, err := r.ReplyToComment(actor, name, commentID, text, s.now())
		out = reply
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReconcileResources compares commentCount and the commenter roll-up of every
// resource with what its comments imply and, unless dryRun, repairs them.
func (s *ResourceService) ReconcileResources(ctx context.Context, dryRun bool) ([]Drift, error) {
	ids, err := s.repo.ListResourceIDs(ctx)
	if err != nil {
		return nil, err
	}
	drifts := []Drift{}
	for _, id := range ids {
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			r, err := s.repo.GetResourceForUpdate(ctx, id)
			if err != nil {
				return err
			}
			derived := r.DerivedCommenters()
			dirty := false
			if r.CommentCount != len(r.Comments) {
				drifts = append(drifts, Drift{Counter: CounterResourceComments, EntityID: id, Stored: r.CommentCount, Actual: len(r.Comments)})
				r.CommentCount = len(r.Comments)
				dirty = true
			}
			if !commentersEqual(r.Commenters, derived) {
				drifts = append(drifts, Drift{Counter: CounterCommenters, EntityID: id, Stored: len(r.Commenters), Actual: len(derived)})
				r.Commenters = derived
				dirty = true
			}
			if !dirty || dryRun {
				return nil
			}
			return s.repo.UpdateResource(ctx, r)
		})
		if err != nil {
			return nil, fmt.Errorf("reconcile resource %s: %w", id, err)
		}
	}
	return drifts, nil
}
