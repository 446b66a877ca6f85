package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Wyydra/yacall/internal/core/domain"
)

type HistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Save(ctx context.Context, entry domain.CallHistoryEntry) error {
	var endedAt, duration sql.NullInt64
	if entry.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: entry.EndedAt.UnixNano(), Valid: true}
	}
	if entry.Duration != nil {
		duration = sql.NullInt64{Int64: int64(*entry.Duration), Valid: true}
	}

	_, err := r.db.Conn.ExecContext(ctx, `
		INSERT INTO call_history (id, room_id, peer, direction, kind, status, started_at, ended_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.RoomID.String(), entry.Peer.String(),
		string(entry.Direction), string(entry.Kind), string(entry.Status),
		entry.StartedAt.UnixNano(), endedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("failed to save call history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Trim(ctx context.Context, keep int) error {
	_, err := r.db.Conn.ExecContext(ctx, `
		DELETE FROM call_history
		WHERE seq NOT IN (SELECT seq FROM call_history ORDER BY seq DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("failed to trim call history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context) ([]domain.CallHistoryEntry, error) {
	rows, err := r.db.Conn.QueryContext(ctx, `
		SELECT id, room_id, peer, direction, kind, status, started_at, ended_at, duration_ns
		FROM call_history
		ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list call history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.CallHistoryEntry, 0)
	for rows.Next() {
		var (
			id, roomID, peer, direction, kind, status string
			startedAt                                 int64
			endedAt, duration                         sql.NullInt64
		)
		if err := rows.Scan(&id, &roomID, &peer, &direction, &kind, &status, &startedAt, &endedAt, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan call history: %w", err)
		}

		historyID, err := domain.ParseHistoryID(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt history id %q: %w", id, err)
		}
		entry := domain.CallHistoryEntry{
			ID:        historyID,
			RoomID:    domain.RoomID(roomID),
			Peer:      domain.PeerID(peer),
			Direction: domain.Direction(direction),
			Kind:      domain.MediaKind(kind),
			Status:    domain.CallStatus(status),
			StartedAt: time.Unix(0, startedAt).UTC(),
		}
		if endedAt.Valid {
			t := time.Unix(0, endedAt.Int64).UTC()
			entry.EndedAt = &t
		}
		if duration.Valid {
			d := time.Duration(duration.Int64)
			entry.Duration = &d
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
