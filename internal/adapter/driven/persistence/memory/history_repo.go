package memory

import (
	"context"
	"sync"

	"github.com/Wyydra/yacall/internal/core/domain"
)

// HistoryRepository keeps entries most recent first.
type HistoryRepository struct {
	mu      sync.Mutex
	entries []domain.CallHistoryEntry
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{
		entries: make([]domain.CallHistoryEntry, 0),
	}
}

func (r *HistoryRepository) Save(ctx context.Context, entry domain.CallHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]domain.CallHistoryEntry{entry}, r.entries...)
	return nil
}

func (r *HistoryRepository) Trim(ctx context.Context, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if keep >= 0 && len(r.entries) > keep {
		r.entries = r.entries[:keep]
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context) ([]domain.CallHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CallHistoryEntry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}
