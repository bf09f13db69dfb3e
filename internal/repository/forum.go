package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

const categoryColumns = `id, name, slug, description, icon, sort_order, is_active, topics_count, created_at, updated_at`

// Topic.Replies is derived from the replies table, soft-deleted rows included.
const topicColumns = `t.id, t.title, t.content, t.author_id, t.category_id, t.tags,
	COALESCE((SELECT jsonb_agg(r.id ORDER BY r.created_at) FROM replies r WHERE r.topic_id = t.id), '[]'::jsonb),
	t.views, t.is_pinned, t.is_popular, t.is_locked, t.last_activity, t.last_reply_at, t.last_reply_by,
	t.created_at, t.updated_at`

const replyColumns = `id, content, author_id, topic_id, likes, parent_reply_id, is_edited, is_deleted, created_at, updated_at`

// Categories

func (r *PostgresRepository) CreateCategory(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, icon, sort_order, is_active, topics_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		c.ID, c.Name, c.Slug, c.Description, c.Icon, c.Order, c.IsActive, c.TopicsCount, c.CreatedAt, c.UpdatedAt,
	)
	return translateError(err)
}

func (r *PostgresRepository) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

func (r *PostgresRepository) GetCategoryForUpdate(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1 FOR UPDATE`, id)
	return scanCategory(row)
}

func (r *PostgresRepository) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
	return scanCategory(row)
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, c *domain.Category) error {
	query := `
		UPDATE categories SET name = $2, slug = $3, description = $4, icon = $5, sort_order = $6,
			is_active = $7, updated_at = $8
		WHERE id = $1
	`
	return r.execOne(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.Icon, c.Order, c.IsActive, c.UpdatedAt)
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `DELETE FROM categories WHERE id = $1`, id)
}

func (r *PostgresRepository) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	rows, err := r.q(ctx).Query(ctx, query+` ORDER BY sort_order, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MaxCategoryOrder(ctx context.Context) (int, error) {
	var highest int
	err := r.q(ctx).QueryRow(ctx, `SELECT COALESCE(MAX(sort_order), 0) FROM categories`).Scan(&highest)
	return highest, err
}

// AdjustTopicsCount applies delta in one statement, clamped at zero
func (r *PostgresRepository) AdjustTopicsCount(ctx context.Context, categoryID uuid.UUID, delta int) error {
	return r.execOne(ctx,
		`UPDATE categories SET topics_count = GREATEST(topics_count + $2, 0), updated_at = NOW() WHERE id = $1`,
		categoryID, delta)
}

func (r *PostgresRepository) SetTopicsCount(ctx context.Context, categoryID uuid.UUID, count int) error {
	return r.execOne(ctx, `UPDATE categories SET topics_count = $2, updated_at = NOW() WHERE id = $1`, categoryID, count)
}

func (r *PostgresRepository) CountTopicsByCategory(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT category_id, COUNT(*) FROM topics WHERE category_id IS NOT NULL GROUP BY category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			id    uuid.UUID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		out[id] = count
	}
	return out, rows.Err()
}

// Topics

func (r *PostgresRepository) CreateTopic(ctx context.Context, t *domain.Topic) error {
	query := `
		INSERT INTO topics (id, title, content, author_id, category_id, tags, views, is_pinned, is_popular,
			is_locked, last_activity, last_reply_at, last_reply_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		t.ID,
		t.Title,
		t.Content,
		t.AuthorID,
		t.CategoryID,
		nonNil(t.Tags),
		t.Views,
		t.IsPinned,
		t.IsPopular,
		t.IsLocked,
		t.LastActivity,
		t.LastReplyAt,
		t.LastReplyBy,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return translateError(err)
}

func (r *PostgresRepository) GetTopic(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+topicColumns+` FROM topics t WHERE t.id = $1`, id)
	return scanTopic(row)
}

func (r *PostgresRepository) GetTopicForUpdate(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+topicColumns+` FROM topics t WHERE t.id = $1 FOR UPDATE OF t`, id)
	return scanTopic(row)
}

// UpdateTopic writes the topic row. Replies are owned by the replies table.
func (r *PostgresRepository) UpdateTopic(ctx context.Context, t *domain.Topic) error {
	query := `
		UPDATE topics SET title = $2, content = $3, category_id = $4, tags = $5, views = $6,
			is_pinned = $7, is_popular = $8, is_locked = $9, last_activity = $10,
			last_reply_at = $11, last_reply_by = $12, updated_at = $13
		WHERE id = $1
	`
	return r.execOne(ctx, query,
		t.ID,
		t.Title,
		t.Content,
		t.CategoryID,
		nonNil(t.Tags),
		t.Views,
		t.IsPinned,
		t.IsPopular,
		t.IsLocked,
		t.LastActivity,
		t.LastReplyAt,
		t.LastReplyBy,
		t.UpdatedAt,
	)
}

func (r *PostgresRepository) DeleteTopic(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `DELETE FROM topics WHERE id = $1`, id)
}

func (r *PostgresRepository) IncrementTopicViews(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `UPDATE topics SET views = views + 1 WHERE id = $1`, id)
}

func (r *PostgresRepository) ListTopics(ctx context.Context, q domain.TopicQuery) ([]*domain.Topic, int, error) {
	w := topicFilter(q)

	var total int
	if err := r.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM topics t`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + topicColumns + ` FROM topics t` + w.String() + ` ORDER BY ` + topicOrder(q) + w.pageClause(q.Offset, q.Limit)
	rows, err := r.q(ctx).Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.Topic{}
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func topicFilter(q domain.TopicQuery) *whereClause {
	w := &whereClause{}
	if q.CategoryID != nil {
		w.add("t.category_id = " + w.arg(*q.CategoryID))
	}
	if q.Filter == domain.FilterUnanswered {
		w.add("NOT EXISTS (SELECT 1 FROM replies r WHERE r.topic_id = t.id)")
	}
	if needle := strings.TrimSpace(q.Search); needle != "" {
		p := w.arg(containsPattern(needle))
		match := []string{
			"LOWER(t.title) LIKE " + p,
			"EXISTS (SELECT 1 FROM unnest(t.tags) tag WHERE LOWER(tag) LIKE " + p + ")",
		}
		if q.SearchContent {
			match = append(match, "LOWER(t.content) LIKE "+p)
		}
		w.add("(" + strings.Join(match, " OR ") + ")")
	}
	return w
}

func topicOrder(q domain.TopicQuery) string {
	var keys []string
	if q.PinnedFirst {
		keys = append(keys, "t.is_pinned DESC")
	}
	switch q.Filter {
	case domain.FilterPopular:
		keys = append(keys, "t.views DESC")
	case domain.FilterUnanswered:
		keys = append(keys, "t.created_at DESC")
	default:
		keys = append(keys, "t.last_activity DESC")
	}
	return strings.Join(append(keys, "t.id"), ", ")
}

func (r *PostgresRepository) ListTopicTags(ctx context.Context) ([][]string, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT tags FROM topics ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[[]string])
}

// Replies

func (r *PostgresRepository) CreateReply(ctx context.Context, reply *domain.Reply) error {
	query := `
		INSERT INTO replies (id, content, author_id, topic_id, likes, parent_reply_id, is_edited, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		reply.ID,
		reply.Content,
		reply.AuthorID,
		reply.TopicID,
		nonNil(reply.Likes),
		reply.ParentReplyID,
		reply.IsEdited,
		reply.IsDeleted,
		reply.CreatedAt,
		reply.UpdatedAt,
	)
	return translateError(err)
}

func (r *PostgresRepository) GetReply(ctx context.Context, id uuid.UUID) (*domain.Reply, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+replyColumns+` FROM replies WHERE id = $1`, id)
	return scanReply(row)
}

func (r *PostgresRepository) GetReplyForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reply, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+replyColumns+` FROM replies WHERE id = $1 FOR UPDATE`, id)
	return scanReply(row)
}

func (r *PostgresRepository) UpdateReply(ctx context.Context, reply *domain.Reply) error {
	query := `
		UPDATE replies SET content = $2, likes = $3, is_edited = $4, is_deleted = $5, updated_at = $6
		WHERE id = $1
	`
	return r.execOne(ctx, query, reply.ID, reply.Content, nonNil(reply.Likes), reply.IsEdited, reply.IsDeleted, reply.UpdatedAt)
}

func (r *PostgresRepository) ListReplies(ctx context.Context, topicID uuid.UUID) ([]*domain.Reply, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT `+replyColumns+` FROM replies WHERE topic_id = $1 ORDER BY created_at`, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Reply{}
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reply)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DeleteRepliesByTopic(ctx context.Context, topicID uuid.UUID) error {
	_, err := r.q(ctx).Exec(ctx, `DELETE FROM replies WHERE topic_id = $1`, topicID)
	return err
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.Icon,
		&c.Order,
		&c.IsActive,
		&c.TopicsCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

func scanTopic(row pgx.Row) (*domain.Topic, error) {
	var t domain.Topic
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Content,
		&t.AuthorID,
		&t.CategoryID,
		&t.Tags,
		&t.Replies,
		&t.Views,
		&t.IsPinned,
		&t.IsPopular,
		&t.IsLocked,
		&t.LastActivity,
		&t.LastReplyAt,
		&t.LastReplyBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &t, nil
}

func scanReply(row pgx.Row) (*domain.Reply, error) {
	var reply domain.Reply
	err := row.Scan(
		&reply.ID,
		&reply.Content,
		&reply.AuthorID,
		&reply.TopicID,
		&reply.Likes,
		&reply.ParentReplyID,
		&reply.IsEdited,
		&reply.IsDeleted,
		&reply.CreatedAt,
		&reply.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &reply, nil
}
