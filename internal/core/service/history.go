package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
)

const DefaultHistoryLimit = 50

var ErrNotTerminal = errors.New("call status is not terminal")

// HistoryRecorder is the append-only log of terminated calls.
type HistoryRecorder struct {
	mu    sync.Mutex
	repo  port.HistoryRepository
	limit int
}

func NewHistoryRecorder(repo port.HistoryRepository, limit int) *HistoryRecorder {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryRecorder{
		repo:  repo,
		limit: limit,
	}
}

// Append stores entry as the most recent one and drops whatever falls past
// the limit. Only terminated calls are accepted.
func (r *HistoryRecorder) Append(ctx context.Context, entry domain.CallHistoryEntry) error {
	if !entry.Status.Terminal() {
		return fmt.Errorf("%w: %q", ErrNotTerminal, entry.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repo.Save(ctx, entry); err != nil {
		return err
	}
	return r.repo.Trim(ctx, r.limit)
}

// List returns a snapshot, most recent first.
func (r *HistoryRecorder) List(ctx context.Context) ([]domain.CallHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > r.limit {
		entries = entries[:r.limit]
	}
	out := make([]domain.CallHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}
