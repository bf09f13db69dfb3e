package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

const connectionColumns = `id, requester_id, recipient_id, status, relationship_strength, communication_preference,
	last_contact, last_communication_type, next_follow_up, notes, tags, communication_history,
	last_activity, created_at, updated_at`

// CreateConnection inserts the edge. The pair constraint rejects a second
// edge for the same two members in either direction.
func (r *PostgresRepository) CreateConnection(ctx context.Context, c *domain.Connection) error {
	low, high := domain.CanonicalPair(c.RequesterID, c.RecipientID)
	query := `
		INSERT INTO connections (id, requester_id, recipient_id, user_low, user_high, status,
			relationship_strength, communication_preference, last_contact, last_communication_type,
			next_follow_up, notes, tags, communication_history, last_activity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.q(ctx).Exec(ctx, query,
		c.ID,
		c.RequesterID,
		c.RecipientID,
		low,
		high,
		c.Status,
		c.RelationshipStrength,
		c.CommunicationPreference,
		c.LastContact,
		c.LastCommunicationType,
		c.NextFollowUp,
		nonNil(c.Notes),
		nonNil(c.Tags),
		nonNil(c.CommunicationHistory),
		c.LastActivity,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return translateError(err)
}

func (r *PostgresRepository) GetConnection(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = $1`, id)
	return scanConnection(row)
}

// GetConnectionForUpdate locks the row until the surrounding transaction ends
func (r *PostgresRepository) GetConnectionForUpdate(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = $1 FOR UPDATE`, id)
	return scanConnection(row)
}

func (r *PostgresRepository) FindConnectionBetween(ctx context.Context, a, b uuid.UUID) (*domain.Connection, error) {
	low, high := domain.CanonicalPair(a, b)
	row := r.q(ctx).QueryRow(ctx, `SELECT `+connectionColumns+` FROM connections WHERE user_low = $1 AND user_high = $2`, low, high)
	return scanConnection(row)
}

func (r *PostgresRepository) UpdateConnection(ctx context.Context, c *domain.Connection) error {
	query := `
		UPDATE connections SET
			status = $2,
			relationship_strength = $3,
			communication_preference = $4,
			last_contact = $5,
			last_communication_type = $6,
			next_follow_up = $7,
			notes = $8,
			tags = $9,
			communication_history = $10,
			last_activity = $11,
			updated_at = $12
		WHERE id = $1
	`
	return r.execOne(ctx, query,
		c.ID,
		c.Status,
		c.RelationshipStrength,
		c.CommunicationPreference,
		c.LastContact,
		c.LastCommunicationType,
		c.NextFollowUp,
		nonNil(c.Notes),
		nonNil(c.Tags),
		nonNil(c.CommunicationHistory),
		c.LastActivity,
		c.UpdatedAt,
	)
}

func (r *PostgresRepository) DeleteConnection(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `DELETE FROM connections WHERE id = $1`, id)
}

func (r *PostgresRepository) ListConnectionsForUser(ctx context.Context, userID uuid.UUID, q domain.ConnectionQuery) ([]*domain.Connection, error) {
	w := connectionFilter(userID, q)
	rows, err := r.q(ctx).Query(ctx, `SELECT `+connectionColumns+` FROM connections`+w.String()+` ORDER BY created_at`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func connectionFilter(userID uuid.UUID, q domain.ConnectionQuery) *whereClause {
	w := &whereClause{}
	user := w.arg(userID)
	switch q.Direction {
	case domain.DirectionIncoming:
		w.add("recipient_id = " + user)
	case domain.DirectionOutgoing:
		w.add("requester_id = " + user)
	default:
		w.add("(requester_id = " + user + " OR recipient_id = " + user + ")")
	}
	if q.Status != "" {
		w.add("status = " + w.arg(q.Status))
	}
	return w
}

func scanConnection(row pgx.Row) (*domain.Connection, error) {
	var c domain.Connection
	err := row.Scan(
		&c.ID,
		&c.RequesterID,
		&c.RecipientID,
		&c.Status,
		&c.RelationshipStrength,
		&c.CommunicationPreference,
		&c.LastContact,
		&c.LastCommunicationType,
		&c.NextFollowUp,
		&c.Notes,
		&c.Tags,
		&c.CommunicationHistory,
		&c.LastActivity,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}
