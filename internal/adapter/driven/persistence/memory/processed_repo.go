package memory

import (
	"context"
	"sync"

	"github.com/Wyydra/yacall/internal/core/domain"
)

type ProcessedMessageRepository struct {
	mu  sync.Mutex
	ids []domain.MessageID
}

func NewProcessedMessageRepository() *ProcessedMessageRepository {
	return &ProcessedMessageRepository{}
}

func (r *ProcessedMessageRepository) Load(ctx context.Context) ([]domain.MessageID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.MessageID, len(r.ids))
	copy(out, r.ids)
	return out, nil
}

func (r *ProcessedMessageRepository) Save(ctx context.Context, ids []domain.MessageID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids[:0:0], ids...)
	return nil
}
