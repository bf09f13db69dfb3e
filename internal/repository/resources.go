package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

const resourceColumns = `id, title, description, content, category, author_name, resource_type, level, is_exclusive,
	read_time, duration, tags, image_url, download_url, video_url, views, downloads, likes, bookmarks,
	accessed_by, comments, comment_count, commenters, publish_date, created_at, updated_at`

func (r *PostgresRepository) CreateResource(ctx context.Context, res *domain.Resource) error {
	query := `
		INSERT INTO resources (` + resourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		res.ID,
		res.Title,
		res.Description,
		res.Content,
		res.Category,
		res.AuthorName,
		res.ResourceType,
		res.Level,
		res.IsExclusive,
		res.ReadTime,
		res.Duration,
		nonNil(res.Tags),
		res.ImageURL,
		res.DownloadURL,
		res.VideoURL,
		res.Views,
		res.Downloads,
		nonNil(res.Likes),
		nonNil(res.Bookmarks),
		nonNil(res.AccessedBy),
		nonNil(res.Comments),
		res.CommentCount,
		nonNil(res.Commenters),
		res.PublishDate,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return translateError(err)
}

func (r *PostgresRepository) GetResource(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)
	return scanResource(row)
}

func (r *PostgresRepository) GetResourceForUpdate(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1 FOR UPDATE`, id)
	return scanResource(row)
}

// UpdateResource rewrites the whole document except views, which only
// IncrementResourceViews touches.
func (r *PostgresRepository) UpdateResource(ctx context.Context, res *domain.Resource) error {
	query := `
		UPDATE resources SET title = $2, description = $3, content = $4, category = $5, author_name = $6,
			resource_type = $7, level = $8, is_exclusive = $9, read_time = $10, duration = $11, tags = $12,
			image_url = $13, download_url = $14, video_url = $15, downloads = $16, likes = $17,
			bookmarks = $18, accessed_by = $19, comments = $20, comment_count = $21, commenters = $22,
			updated_at = $23
		WHERE id = $1
	`
	return r.execOne(ctx, query,
		res.ID,
		res.Title,
		res.Description,
		res.Content,
		res.Category,
		res.AuthorName,
		res.ResourceType,
		res.Level,
		res.IsExclusive,
		res.ReadTime,
		res.Duration,
		nonNil(res.Tags),
		res.ImageURL,
		res.DownloadURL,
		res.VideoURL,
		res.Downloads,
		nonNil(res.Likes),
		nonNil(res.Bookmarks),
		nonNil(res.AccessedBy),
		nonNil(res.Comments),
		res.CommentCount,
		nonNil(res.Commenters),
		res.UpdatedAt,
	)
}

func (r *PostgresRepository) IncrementResourceViews(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `UPDATE resources SET views = views + 1 WHERE id = $1`, id)
}

func (r *PostgresRepository) ListResources(ctx context.Context, q domain.ResourceQuery) ([]*domain.Resource, int, error) {
	w := resourceFilter(q)

	var total int
	if err := r.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM resources`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + resourceColumns + ` FROM resources` + w.String() + ` ORDER BY ` + resourceOrder(q.Sort) + w.pageClause(q.Offset, q.Limit)
	rows, err := r.q(ctx).Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*domain.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, res)
	}
	return out, total, rows.Err()
}

func resourceFilter(q domain.ResourceQuery) *whereClause {
	w := &whereClause{}
	if q.Type != "" {
		w.add("resource_type = " + w.arg(q.Type))
	}
	if q.Level != "" {
		w.add("level = " + w.arg(q.Level))
	}
	if q.Category != "" {
		w.add("category = " + w.arg(q.Category))
	}
	if q.ExclusiveOnly {
		w.add("is_exclusive")
	}
	if needle := strings.TrimSpace(q.Search); needle != "" {
		p := w.arg(containsPattern(needle))
		match := []string{
			"LOWER(title) LIKE " + p,
			"LOWER(description) LIKE " + p,
			"EXISTS (SELECT 1 FROM unnest(tags) tag WHERE LOWER(tag) LIKE " + p + ")",
		}
		if q.SearchContent {
			match = append(match, "LOWER(content) LIKE "+p)
		}
		w.add("(" + strings.Join(match, " OR ") + ")")
	}
	return w
}

func resourceOrder(s domain.ResourceSort) string {
	switch s {
	case domain.ResourceSortOldest:
		return "publish_date ASC, id"
	case domain.ResourceSortAlphabetical:
		return "LOWER(title) ASC, id"
	case domain.ResourceSortPopular:
		return "views DESC, publish_date DESC"
	default:
		return "publish_date DESC, id"
	}
}

func (r *PostgresRepository) ListResourceIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT id FROM resources ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *PostgresRepository) ResourceFacets(ctx context.Context) ([]string, []string, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT DISTINCT resource_type FROM resources ORDER BY resource_type`)
	if err != nil {
		return nil, nil, err
	}
	types, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, nil, err
	}

	rows, err = r.q(ctx).Query(ctx, `SELECT DISTINCT category FROM resources ORDER BY category`)
	if err != nil {
		return nil, nil, err
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, nil, err
	}
	return types, categories, nil
}

func scanResource(row pgx.Row) (*domain.Resource, error) {
	var res domain.Resource
	err := row.Scan(
		&res.ID,
		&res.Title,
		&res.Description,
		&res.Content,
		&res.Category,
		&res.AuthorName,
		&res.ResourceType,
		&res.Level,
		&res.IsExclusive,
		&res.ReadTime,
		&res.Duration,
		&res.Tags,
		&res.ImageURL,
		&res.DownloadURL,
		&res.VideoURL,
		&res.Views,
		&res.Downloads,
		&res.Likes,
		&res.Bookmarks,
		&res.AccessedBy,
		&res.Comments,
		&res.CommentCount,
		&res.Commenters,
		&res.PublishDate,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &res, nil
}
