package sqlite

import (
	"context"
	"fmt"

	"github.com/Wyydra/yacall/internal/core/domain"
)

type ProcessedMessageRepository struct {
	db *DB
}

func NewProcessedMessageRepository(db *DB) *ProcessedMessageRepository {
	return &ProcessedMessageRepository{db: db}
}

func (r *ProcessedMessageRepository) Load(ctx context.Context) ([]domain.MessageID, error) {
	rows, err := r.db.Conn.QueryContext(ctx, `SELECT message_id FROM processed_messages ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load processed messages: %w", err)
	}
	defer rows.Close()

	var ids []domain.MessageID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.MessageID(id))
	}
	return ids, rows.Err()
}

// Save replaces the stored record with ids, keeping their order.
func (r *ProcessedMessageRepository) Save(ctx context.Context, ids []domain.MessageID) error {
	tx, err := r.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM processed_messages`); err != nil {
		return fmt.Errorf("failed to clear processed messages: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO processed_messages (message_id) VALUES (?)`, id.String()); err != nil {
			return fmt.Errorf("failed to save processed message: %w", err)
		}
	}
	return tx.Commit()
}
