package port

import (
	"context"

	"github.com/Wyydra/yacall/internal/core/domain"
)

// HistoryRepository stores terminated calls, most recent first.
type HistoryRepository interface {
	Save(ctx context.Context, entry domain.CallHistoryEntry) error
	// Trim keeps the keep most recent entries.
	Trim(ctx context.Context, keep int) error
	List(ctx context.Context) ([]domain.CallHistoryEntry, error)
}

// ProcessedMessageRepository persists the ids of signals already acted upon,
// oldest first.
type ProcessedMessageRepository interface {
	Load(ctx context.Context) ([]domain.MessageID, error)
	Save(ctx context.Context, ids []domain.MessageID) error
}
