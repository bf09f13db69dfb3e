package domain_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/repository/memory"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"General Discussion":  "general-discussion",
		"  Tips & Tricks!  ":  "tips-tricks",
		"Funding   / Capital": "funding-capital",
		"snake_case stays":    "snake_case-stays",
		"!!!":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, domain.Slugify(in), in)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := domain.NormalizeTags([]string{" Go ", "go", "", "AI", "ml", "ops", "web", "extra"})
	assert.Equal(t, []string{"go", "ai", "ml", "ops", "web"}, got)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	ana := f.member(t, "ana")

	_, err := f.forum.AddCategory(ctx, ana, domain.CategoryInput{Name: "General"})
	assertKind(t, err, domain.KindAuthorization)

	general, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "General Talk"})
	require.NoError(t, err)
	assert.Equal(t, "general-talk", general.Slug)
	assert.Equal(t, 1, general.Order)

	_, err = f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "general talk!"})
	assertKind(t, err, domain.KindConflict)

	funding, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "Funding"})
	require.NoError(t, err)
	assert.Equal(t, 2, funding.Order)

	renamed, err := f.forum.UpdateCategory(ctx, mod, funding.ID, domain.CategoryPatch{Name: ptr("Raising Capital")})
	require.NoError(t, err)
	assert.Equal(t, "raising-capital", renamed.Slug)

	_, err = f.forum.UpdateCategory(ctx, mod, funding.ID, domain.CategoryPatch{Name: ptr("General Talk")})
	assertKind(t, err, domain.KindConflict)

	_, err = f.forum.UpdateCategory(ctx, mod, funding.ID, domain.CategoryPatch{IsActive: ptr(false)})
	require.NoError(t, err)
	active, err := f.forum.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, general.ID, active[0].ID)

	_, err = f.forum.CreateTopic(ctx, ana, domain.TopicInput{Title: "Hello", Content: "first post here", CategoryID: &general.ID})
	require.NoError(t, err)
	assertKind(t, f.forum.DeleteCategory(ctx, mod, general.ID), domain.KindConflict)
	require.NoError(t, f.forum.DeleteCategory(ctx, mod, funding.ID))
}

func TestCreateTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	ana := f.member(t, "ana")
	cat, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "General"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   domain.TopicInput
		kind domain.ErrorKind
	}{
		{name: "short title", in: domain.TopicInput{Title: "Hi", Content: "long enough content"}, kind: domain.KindValidation},
		{name: "long title", in: domain.TopicInput{Title: strings.Repeat("t", 201), Content: "long enough content"}, kind: domain.KindValidation},
		{name: "short content", in: domain.TopicInput{Title: "Hello", Content: "too short"}, kind: domain.KindValidation},
		{name: "unknown category", in: domain.TopicInput{Title: "Hello", Content: "long enough content", CategoryID: ptr(uuid.New())}, kind: domain.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.forum.CreateTopic(ctx, ana, tt.in)
			assertKind(t, err, tt.kind)
		})
	}

	topic, err := f.forum.CreateTopic(ctx, ana, domain.TopicInput{
		Title:      "Scaling a chapter",
		Content:    "How did you grow past fifty members?",
		CategoryID: &cat.ID,
		Tags:       []string{"Growth", "growth", "Events"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"growth", "events"}, topic.Tags)
	assert.Equal(t, topic.CreatedAt, topic.LastActivity)
	assert.Equal(t, 1, f.observed.count(domain.EventTopicCreated))

	got, err := f.store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TopicsCount)
}

func TestCreateTopic_ConcurrentCountStaysExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	cat, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "Busy"})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.forum.CreateTopic(ctx, mod, domain.TopicInput{
				Title:      fmt.Sprintf("Topic %d", i),
				Content:    "concurrent content body",
				CategoryID: &cat.ID,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.TopicsCount)

	drift, err := f.forum.ReconcileCategoryCounts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	ana := f.member(t, "ana")
	ben := f.member(t, "ben")

	topic, err := f.forum.CreateTopic(ctx, ana, domain.TopicInput{Title: "Pricing", Content: "How do you price retainers?"})
	require.NoError(t, err)

	_, err = f.forum.AddReply(ctx, topic.ID, ben, "   ", nil)
	assertKind(t, err, domain.KindValidation)
	_, err = f.forum.AddReply(ctx, topic.ID, ben, strings.Repeat("x", 5001), nil)
	assertKind(t, err, domain.KindValidation)
	_, err = f.forum.AddReply(ctx, uuid.New(), ben, "hello", nil)
	assertKind(t, err, domain.KindNotFound)

	first, err := f.forum.AddReply(ctx, topic.ID, ben, "Value based", nil)
	require.NoError(t, err)
	second, err := f.forum.AddReply(ctx, topic.ID, ana, "Thanks!", &first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.observed.count(domain.EventReplyCreated))

	other, err := f.forum.CreateTopic(ctx, ana, domain.TopicInput{Title: "Other", Content: "another topic body"})
	require.NoError(t, err)
	_, err = f.forum.AddReply(ctx, other.ID, ana, "cross thread", &first.ID)
	assertKind(t, err, domain.KindValidation)

	stored, err := f.store.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, stored.Replies)
	require.NotNil(t, stored.LastReplyBy)
	assert.Equal(t, ana.ID, *stored.LastReplyBy)
	assert.Equal(t, second.CreatedAt, stored.LastActivity)

	t.Run("edit", func(t *testing.T) {
		_, err := f.forum.EditReply(ctx, first.ID, ana, "hijack")
		assertKind(t, err, domain.KindAuthorization)
		edited, err := f.forum.EditReply(ctx, first.ID, ben, "Value based, always")
		require.NoError(t, err)
		assert.True(t, edited.IsEdited)
	})

	t.Run("like toggles", func(t *testing.T) {
		res, err := f.forum.LikeReply(ctx, first.ID, ana)
		require.NoError(t, err)
		assert.Equal(t, domain.LikeResult{Liked: true, LikesCount: 1}, *res)
		res, err = f.forum.LikeReply(ctx, first.ID, ana)
		require.NoError(t, err)
		assert.Equal(t, domain.LikeResult{Liked: false, LikesCount: 0}, *res)
	})

	t.Run("delete recomputes last reply", func(t *testing.T) {
		assertKind(t, f.forum.DeleteReply(ctx, second.ID, ben), domain.KindAuthorization)
		require.NoError(t, f.forum.DeleteReply(ctx, second.ID, ana))

		stored, err := f.store.GetTopic(ctx, topic.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastReplyBy)
		assert.Equal(t, ben.ID, *stored.LastReplyBy)
		assert.Equal(t, first.CreatedAt, stored.LastActivity)

		require.NoError(t, f.forum.DeleteReply(ctx, first.ID, mod))
		stored, err = f.store.GetTopic(ctx, topic.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.LastReplyAt)
		assert.Nil(t, stored.LastReplyBy)
		assert.Equal(t, stored.CreatedAt, stored.LastActivity)

		_, err = f.forum.EditReply(ctx, first.ID, ben, "resurrect")
		assertKind(t, err, domain.KindState)
	})

	t.Run("locked topic rejects replies", func(t *testing.T) {
		_, err := f.forum.LockTopic(ctx, topic.ID, ana)
		assertKind(t, err, domain.KindAuthorization)
		locked, err := f.forum.LockTopic(ctx, topic.ID, mod)
		require.NoError(t, err)
		assert.True(t, locked.IsLocked)

		_, err = f.forum.AddReply(ctx, topic.ID, ben, "too late", nil)
		assertKind(t, err, domain.KindState)

		pinned, err := f.forum.PinTopic(ctx, topic.ID, mod, true)
		require.NoError(t, err)
		assert.True(t, pinned.IsPinned)
		assert.True(t, pinned.IsLocked)
	})
}

func TestDeleteTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	ana := f.member(t, "ana")
	ben := f.member(t, "ben")
	cat, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "General"})
	require.NoError(t, err)

	topic, err := f.forum.CreateTopic(ctx, ana, domain.TopicInput{Title: "Bye", Content: "soon to be removed", CategoryID: &cat.ID})
	require.NoError(t, err)
	_, err = f.forum.AddReply(ctx, topic.ID, ben, "noted", nil)
	require.NoError(t, err)

	assertKind(t, f.forum.DeleteTopic(ctx, topic.ID, ben), domain.KindAuthorization)
	require.NoError(t, f.forum.DeleteTopic(ctx, topic.ID, ana))

	_, err = f.forum.GetTopic(ctx, topic.ID)
	assertKind(t, err, domain.KindNotFound)
	replies, err := f.store.ListReplies(ctx, topic.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)
	got, err := f.store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TopicsCount)

	require.NoError(t, f.forum.DeleteCategory(ctx, mod, cat.ID))
	_, err = f.store.GetCategory(ctx, cat.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetTopicAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	ana := f.member(t, "ana")
	cat, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "General"})
	require.NoError(t, err)

	quiet, err := f.forum.CreateTopic(ctx, ana, domain.TopicInput{Title: "Quiet one", Content: "nobody answers this", CategoryID: &cat.ID, Tags: []string{"help"}})
	require.NoError(t, err)
	busy, err := f.forum.CreateTopic(ctx, ana, domain.TopicInput{Title: "Busy one", Content: "everyone answers this", CategoryID: &cat.ID, Tags: []string{"help", "events"}})
	require.NoError(t, err)
	_, err = f.forum.AddReply(ctx, busy.ID, mod, "here", nil)
	require.NoError(t, err)

	detail, err := f.forum.GetTopic(ctx, busy.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Views)
	assert.Equal(t, "ana", detail.Author.Name)
	require.NotNil(t, detail.Category)
	assert.Equal(t, "general", detail.Category.Slug)
	require.Len(t, detail.ReplyList, 1)
	assert.Equal(t, "mod", detail.ReplyList[0].Author.Name)

	list, err := f.forum.ListTopics(ctx, domain.TopicListParams{CategorySlug: "general", Filter: domain.FilterUnanswered})
	require.NoError(t, err)
	require.Len(t, list.Topics, 1)
	assert.Equal(t, quiet.ID, list.Topics[0].ID)
	assert.Equal(t, 1, list.Pagination.Total)

	list, err = f.forum.ListTopics(ctx, domain.TopicListParams{Filter: domain.FilterPopular})
	require.NoError(t, err)
	require.Len(t, list.Topics, 2)
	assert.Equal(t, busy.ID, list.Topics[0].ID)

	_, err = f.forum.ListTopics(ctx, domain.TopicListParams{CategorySlug: "missing"})
	assertKind(t, err, domain.KindNotFound)

	found, err := f.forum.SearchTopics(ctx, "EVERYONE", nil, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, busy.ID, found[0].ID)

	found, err = f.forum.SearchTopics(ctx, "e", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, found)

	trending, err := f.forum.TrendingTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.TagCount{{Tag: "help", Count: 2}, {Tag: "events", Count: 1}}, trending)

	filters, err := f.forum.TopicFilters(ctx)
	require.NoError(t, err)
	assert.Len(t, filters.Filters, 3)
	assert.Equal(t, []string{"help", "events"}, filters.PopularTags)
}

func TestReconcileCategoryCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	cat, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "General"})
	require.NoError(t, err)
	_, err = f.forum.CreateTopic(ctx, mod, domain.TopicInput{Title: "One", Content: "first body text", CategoryID: &cat.ID})
	require.NoError(t, err)
	require.NoError(t, f.store.SetTopicsCount(ctx, cat.ID, 7))

	drift, err := f.forum.ReconcileCategoryCounts(ctx, true)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, domain.Drift{Counter: domain.CounterCategoryTopics, EntityID: cat.ID, Stored: 7, Actual: 1}, drift[0])

	got, _ := f.store.GetCategory(ctx, cat.ID)
	assert.Equal(t, 7, got.TopicsCount, "dry run leaves the counter alone")

	_, err = f.forum.ReconcileCategoryCounts(ctx, false)
	require.NoError(t, err)
	got, _ = f.store.GetCategory(ctx, cat.ID)
	assert.Equal(t, 1, got.TopicsCount)
}

func TestDeleteCategory_DriftedCountStillRefuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	cat, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "General"})
	require.NoError(t, err)
	_, err = f.forum.CreateTopic(ctx, mod, domain.TopicInput{Title: "Still here", Content: "topic body text", CategoryID: &cat.ID})
	require.NoError(t, err)
	require.NoError(t, f.store.SetTopicsCount(ctx, cat.ID, 0))

	assertKind(t, f.forum.DeleteCategory(ctx, mod, cat.ID), domain.KindConflict)
	_, err = f.store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
}

// lockRecorder logs the order of category locks and topic counts
type lockRecorder struct {
	*memory.Store
	calls []string
}

func (r *lockRecorder) GetCategoryForUpdate(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := r.Store.GetCategoryForUpdate(ctx, id)
	if err == nil {
		r.calls = append(r.calls, "lock "+c.Slug)
	}
	return c, err
}

func (r *lockRecorder) CountTopicsByCategory(ctx context.Context) (map[uuid.UUID]int, error) {
	r.calls = append(r.calls, "count")
	return r.Store.CountTopicsByCategory(ctx)
}

func TestReconcileCategoryCounts_LocksBeforeCounting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	_, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "General"})
	require.NoError(t, err)
	funding, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "Funding"})
	require.NoError(t, err)
	require.NoError(t, f.store.SetTopicsCount(ctx, funding.ID, 2))

	rec := &lockRecorder{Store: f.store}
	forum := domain.NewForumService(rec, f.store, f.store, nil)
	drift, err := forum.ReconcileCategoryCounts(ctx, false)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, []string{"lock general", "lock funding", "count"}, rec.calls)

	got, err := f.store.GetCategory(ctx, funding.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TopicsCount)
}

func TestTopTags_TiesKeepFirstSeenOrder(t *testing.T) {
	got := domain.TopTags([][]string{{"b", "a"}, {"c"}, {"a", "c"}}, 2)
	assert.Equal(t, []domain.TagCount{{Tag: "a", Count: 2}, {Tag: "c", Count: 2}}, got)
	assert.Equal(t, []domain.TagCount{}, domain.TopTags(nil, 5))
}

func TestListTopics_PageBeyondEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mod := f.member(t, "mod", withRole(domain.RoleModerator))
	cat, err := f.forum.AddCategory(ctx, mod, domain.CategoryInput{Name: "General"})
	require.NoError(t, err)
	_, err = f.forum.CreateTopic(ctx, mod, domain.TopicInput{Title: "Welcome", Content: "say hello here", CategoryID: &cat.ID})
	require.NoError(t, err)

	list, err := f.forum.ListTopics(ctx, domain.TopicListParams{Page: math.MaxInt, Limit: math.MaxInt})
	require.NoError(t, err)
	assert.Empty(t, list.Topics)
	assert.Equal(t, 1, list.Pagination.Total)
}
