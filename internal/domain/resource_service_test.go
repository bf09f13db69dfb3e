package domain_test

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

func (f *fixture) resource(t *testing.T, title string, typ domain.ResourceType) *domain.Resource {
	t.Helper()
	admin := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	r, err := f.res.AddResource(context.Background(), admin, domain.ResourceInput{
		Title:        title,
		Description:  title + " description",
		Category:     "Leadership",
		ResourceType: typ,
	}, nil)
	require.NoError(t, err)
	return r
}

func TestTimeAgoAndIsNew(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "3 days ago", domain.TimeAgo(now.AddDate(0, 0, -3), now))
	assert.Equal(t, "2 weeks ago", domain.TimeAgo(now.AddDate(0, 0, -15), now))
	assert.Equal(t, "2 months ago", domain.TimeAgo(now.AddDate(0, 0, -65), now))
	assert.True(t, domain.IsNew(now.AddDate(0, 0, -6), now))
	assert.False(t, domain.IsNew(now.AddDate(0, 0, -7), now))
}

func TestAddResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	ana := f.member(t, "ana")

	in := domain.ResourceInput{Title: "Board decks", Description: "Templates", Category: "Governance", ResourceType: domain.ResourceTemplate}

	_, err := f.res.AddResource(ctx, ana, in, nil)
	assertKind(t, err, domain.KindAuthorization)

	bad := in
	bad.ResourceType = "podcast"
	_, err = f.res.AddResource(ctx, mod, bad, nil)
	assertKind(t, err, domain.KindValidation)

	r, err := f.res.AddResource(ctx, mod, in, &domain.Upload{Reader: strings.NewReader("img"), Filename: "deck.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelIntermediate, r.Level)
	require.NotEmpty(t, r.ImageURL)
	assert.Equal(t, "img", f.files.saved[r.ImageURL])

	f.files.failOn = "broken.png"
	_, err = f.res.AddResource(ctx, mod, in, &domain.Upload{Reader: strings.NewReader("x"), Filename: "broken.png"})
	assert.Error(t, err)

	oldImage := r.ImageURL
	updated, err := f.res.UpdateResource(ctx, mod, r.ID, domain.ResourcePatch{Title: ptr("Board decks v2")},
		&domain.Upload{Reader: strings.NewReader("new"), Filename: "deck2.png"})
	require.NoError(t, err)
	assert.Equal(t, "Board decks v2", updated.Title)
	assert.NotEqual(t, oldImage, updated.ImageURL)
	assert.Contains(t, f.files.deleted, oldImage)

	_, err = f.res.UpdateResource(ctx, mod, r.ID, domain.ResourcePatch{Title: ptr("  ")}, nil)
	assertKind(t, err, domain.KindValidation)
}

func TestResourceEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.member(t, "ana")
	r := f.resource(t, "Negotiation", domain.ResourceGuide)

	like, err := f.res.ToggleLike(ctx, r.ID, ana)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeResult{Liked: true, LikesCount: 1}, *like)
	like, err = f.res.ToggleLike(ctx, r.ID, ana)
	require.NoError(t, err)
	assert.Equal(t, domain.LikeResult{Liked: false, LikesCount: 0}, *like)

	mark, err := f.res.ToggleBookmark(ctx, r.ID, ana)
	require.NoError(t, err)
	assert.True(t, mark.Bookmarked)

	require.NoError(t, f.res.AccessResource(ctx, r.ID, ana))
	require.NoError(t, f.res.AccessResource(ctx, r.ID, ana))
	require.NoError(t, f.res.TrackView(ctx, r.ID))
	require.NoError(t, f.res.TrackView(ctx, r.ID))

	detail, err := f.res.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.AccessCount)
	assert.Equal(t, 1, detail.BookmarksCount)
	assert.Equal(t, 2, detail.Views)
	assert.Equal(t, 0, detail.LikesCount)

	assertKind(t, f.res.TrackView(ctx, uuid.New()), domain.KindNotFound)
	_, err = f.res.GetResource(ctx, uuid.New())
	assertKind(t, err, domain.KindNotFound)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.member(t, "ana")
	ben := f.member(t, "ben")
	admin := f.member(t, "root", withRole(domain.RoleAdmin))
	r := f.resource(t, "Hiring", domain.ResourceArticle)

	_, err := f.res.AddComment(ctx, r.ID, ana, " ")
	assertKind(t, err, domain.KindValidation)
	_, err = f.res.AddComment(ctx, r.ID, ana, strings.Repeat("c", 1001))
	assertKind(t, err, domain.KindValidation)

	c1, err := f.res.AddComment(ctx, r.ID, ana, "Great read")
	require.NoError(t, err)
	assert.Equal(t, "ana", c1.AuthorName)
	c2, err := f.res.AddComment(ctx, r.ID, ana, "Second thought")
	require.NoError(t, err)
	c3, err := f.res.AddComment(ctx, r.ID, ben, "Agree")
	require.NoError(t, err)
	assert.Equal(t, 3, f.observed.count(domain.EventCommentCreated))

	stored, err := f.store.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CommentCount)
	require.Len(t, stored.Commenters, 2)
	assert.Equal(t, 2, stored.Commenters[0].Count)

	liked, err := f.res.LikeComment(ctx, r.ID, c3.ID, ana)
	require.NoError(t, err)
	assert.True(t, liked.Liked)

	reply, err := f.res.ReplyToComment(ctx, r.ID, c1.ID, ben, "Thanks for sharing")
	require.NoError(t, err)
	assert.Equal(t, "ben", reply.AuthorName)
	_, err = f.res.ReplyToComment(ctx, r.ID, c1.ID, ben, strings.Repeat("r", 501))
	assertKind(t, err, domain.KindValidation)
	_, err = f.res.ReplyToComment(ctx, r.ID, uuid.New(), ben, "hello")
	assertKind(t, err, domain.KindNotFound)

	page, err := f.res.GetComments(ctx, r.ID, domain.CommentsMostLiked, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Comments, 2)
	assert.Equal(t, c3.ID, page.Comments[0].ID)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Pages)

	page, err = f.res.GetComments(ctx, r.ID, domain.CommentsOldest, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, page.Comments[0].ID)
	assert.Len(t, page.Comments[0].Replies, 1)

	commenters, err := f.res.GetCommenters(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, commenters, 2)
	assert.Equal(t, ben.ID, commenters[0].UserID)

	t.Run("delete", func(t *testing.T) {
		assertKind(t, f.res.DeleteComment(ctx, r.ID, c1.ID, ben), domain.KindAuthorization)
		assertKind(t, f.res.DeleteComment(ctx, r.ID, uuid.New(), ana), domain.KindNotFound)

		require.NoError(t, f.res.DeleteComment(ctx, r.ID, c2.ID, ana))
		stored, err := f.store.GetResource(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.CommentCount)
		require.Len(t, stored.Commenters, 2)
		assert.Equal(t, 1, stored.Commenters[0].Count)
		assert.Equal(t, c1.CreatedAt, stored.Commenters[0].LastCommentDate)

		require.NoError(t, f.res.DeleteComment(ctx, r.ID, c3.ID, admin))
		stored, err = f.store.GetResource(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.CommentCount)
		require.Len(t, stored.Commenters, 1)
		assert.Equal(t, ana.ID, stored.Commenters[0].UserID)
	})
}

func TestAddComment_MaxLengthInCharacters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.member(t, "ana")
	r := f.resource(t, "Hiring", domain.ResourceArticle)

	c, err := f.res.AddComment(ctx, r.ID, ana, strings.Repeat("é", 1000))
	require.NoError(t, err)
	assert.Equal(t, 1000, utf8.RuneCountInString(c.Text))

	_, err = f.res.AddComment(ctx, r.ID, ana, strings.Repeat("é", 1001))
	assertKind(t, err, domain.KindValidation)
}

func TestGetComments_OutOfRangePaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.member(t, "ana")
	r := f.resource(t, "Hiring", domain.ResourceArticle)
	for i := 0; i < 3; i++ {
		_, err := f.res.AddComment(ctx, r.ID, ana, "comment")
		require.NoError(t, err)
	}

	page, err := f.res.GetComments(ctx, r.ID, domain.CommentsNewest, 2, math.MaxInt)
	require.NoError(t, err)
	assert.Empty(t, page.Comments)
	assert.Equal(t, 100, page.Pagination.Limit)

	page, err = f.res.GetComments(ctx, r.ID, domain.CommentsNewest, math.MaxInt, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Comments)
	assert.Equal(t, 3, page.Pagination.Total)

	result, err := f.res.SearchResources(ctx, domain.ResourceSearchParams{Page: math.MaxInt, Limit: math.MaxInt})
	require.NoError(t, err)
	assert.Empty(t, result.Resources)
	assert.Equal(t, 1, result.Count)
}

func TestCatalogue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.resource(t, "Pitch basics", domain.ResourceVideo)
	guide := f.resource(t, "Growth playbook", domain.ResourceGuide)
	f.resource(t, "Advanced pitch", domain.ResourceVideo)

	recent, err := f.res.RecentResources(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.True(t, recent[0].IsNew)

	list, err := f.res.ListResources(ctx, domain.ResourceFilter{Type: "Video", Level: "All levels", Category: "All categories", Search: "PITCH"})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)

	result, err := f.res.SearchResources(ctx, domain.ResourceSearchParams{Sort: domain.ResourceSortAlphabetical, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 2, result.CurrentPage)
	require.Len(t, result.Resources, 1)
	assert.Equal(t, "Pitch basics", result.Resources[0].Title)

	opts, err := f.res.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"All types", "guide", "video"}, opts.Types)
	assert.Equal(t, []string{"All categories", "Leadership"}, opts.Categories)
	assert.Len(t, opts.Levels, 4)

	detail, err := f.res.GetResource(ctx, guide.ID)
	require.NoError(t, err)
	assert.Equal(t, "Growth playbook", detail.Title)
}

func TestReconcileResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.member(t, "ana")
	r := f.resource(t, "Drifting", domain.ResourceArticle)
	_, err := f.res.AddComment(ctx, r.ID, ana, "one")
	require.NoError(t, err)

	stored, err := f.store.GetResource(ctx, r.ID)
	require.NoError(t, err)
	stored.CommentCount = 5
	stored.Commenters = nil
	require.NoError(t, f.store.UpdateResource(ctx, stored))

	drift, err := f.res.ReconcileResources(ctx, true)
	require.NoError(t, err)
	require.Len(t, drift, 2)
	assert.Equal(t, domain.CounterResourceComments, drift[0].Counter)
	assert.Equal(t, 5, drift[0].Stored)
	assert.Equal(t, 1, drift[0].Actual)
	assert.Equal(t, domain.CounterCommenters, drift[1].Counter)

	_, err = f.res.ReconcileResources(ctx, false)
	require.NoError(t, err)
	drift, err = f.res.ReconcileResources(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, drift)

	stored, err = f.store.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CommentCount)
	require.Len(t, stored.Commenters, 1)
	assert.Equal(t, ana.ID, stored.Commenters[0].UserID)
}
