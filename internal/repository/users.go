package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, title, company, industry, chapter_id, member_type, last_active, created_at, updated_at`

// CreateUser creates a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	role := params.Role
	if role == "" {
		role = domain.RoleUser
	}
	query := `
		INSERT INTO users (id, name, email, password_hash, role, title, company, industry, chapter_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	row := r.q(ctx).QueryRow(ctx, query,
		uuid.New(),
		params.Name,
		strings.ToLower(params.Email),
		params.PasswordHash,
		role,
		params.Title,
		params.Company,
		params.Industry,
		params.ChapterID,
	)
	return scanUser(row)
}

// GetUser retrieves a user by ID
func (r *PostgresRepository) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (r *PostgresRepository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.q(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_active = $2 WHERE id = $1`, id, at)
}

func (r *PostgresRepository) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[]) ORDER BY created_at`, idStrings(ids))
}

func (r *PostgresRepository) FindUsersByIndustryOrChapter(ctx context.Context, industry string, chapterID *uuid.UUID, exclude []uuid.UUID, limit int) ([]*domain.User, error) {
	w := &whereClause{}
	match := []string{}
	if industry != "" {
		match = append(match, "industry = "+w.arg(industry))
	}
	if chapterID != nil {
		match = append(match, "chapter_id = "+w.arg(*chapterID))
	}
	if len(match) == 0 {
		return []*domain.User{}, nil
	}
	w.add("(" + strings.Join(match, " OR ") + ")")
	if len(exclude) > 0 {
		w.add("NOT (id = ANY(" + w.arg(idStrings(exclude)) + "::uuid[]))")
	}
	query := `SELECT ` + userColumns + ` FROM users` + w.String() + ` ORDER BY created_at` + w.pageClause(0, limit)
	return r.queryUsers(ctx, query, w.args...)
}

func (r *PostgresRepository) ListChapterMembers(ctx context.Context, chapterID uuid.UUID) ([]*domain.User, error) {
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE chapter_id = $1 ORDER BY created_at`, chapterID)
}

func (r *PostgresRepository) GetChapter(ctx context.Context, id uuid.UUID) (*domain.Chapter, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT id, name, city, country, region, status, created_at FROM chapters WHERE id = $1`, id)
	return scanChapter(row)
}

func (r *PostgresRepository) ListChapters(ctx context.Context) ([]*domain.Chapter, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT id, name, city, country, region, status, created_at FROM chapters ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Chapter{}
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListIndustries(ctx context.Context) ([]string, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT DISTINCT industry FROM users WHERE industry <> '' ORDER BY industry`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PostgresRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Helper functions for scanning rows

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Title,
		&user.Company,
		&user.Industry,
		&user.ChapterID,
		&user.MemberType,
		&user.LastActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func scanChapter(row pgx.Row) (*domain.Chapter, error) {
	var c domain.Chapter
	err := row.Scan(&c.ID, &c.Name, &c.City, &c.Country, &c.Region, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}
