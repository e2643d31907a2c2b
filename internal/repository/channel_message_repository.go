package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ChannelMessageRepository stores the append-only channel activity log.
type ChannelMessageRepository interface {
	Create(ctx context.Context, msg *domain.ChannelMessage) error
	ListByChannel(ctx context.Context, channelID string, limit, offset int) ([]domain.ChannelMessage, error)
	ExistsByExternalID(ctx context.Context, channelID, externalID string) (bool, error)
}

type channelMessageRepository struct {
	pool *pgxpool.Pool
}

// NewChannelMessageRepository returns a Postgres-backed implementation.
func NewChannelMessageRepository(pool *pgxpool.Pool) ChannelMessageRepository {
	return &channelMessageRepository{pool: pool}
}

func (r *channelMessageRepository) Create(ctx context.Context, msg *domain.ChannelMessage) error {
	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO channel_messages (channel_id, external_id, direction, message_type, content, metadata)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.ChannelID,
		msg.ExternalID,
		msg.Direction,
		msg.MessageType,
		msg.Content,
		metadata,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *channelMessageRepository) ListByChannel(ctx context.Context, channelID string, limit, offset int) ([]domain.ChannelMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, channel_id, external_id, direction, message_type, content, metadata, created_at
        FROM channel_messages WHERE channel_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, channelID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChannelMessage
	for rows.Next() {
		var msg domain.ChannelMessage
		var metadata []byte
		if err := rows.Scan(
			&msg.ID,
			&msg.ChannelID,
			&msg.ExternalID,
			&msg.Direction,
			&msg.MessageType,
			&msg.Content,
			&metadata,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &msg.Metadata); err != nil {
				return nil, err
			}
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *channelMessageRepository) ExistsByExternalID(ctx context.Context, channelID, externalID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM channel_messages WHERE channel_id=$1 AND external_id=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, channelID, externalID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
