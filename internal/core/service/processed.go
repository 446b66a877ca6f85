package service

import (
	"context"
	"sync"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/rs/zerolog/log"
)

const DefaultProcessedLimit = 100

// ProcessedMessages is the bounded record of signal message ids already
// acted upon. Insertion order is eviction order.
type ProcessedMessages struct {
	mu    sync.Mutex
	repo  port.ProcessedMessageRepository
	limit int
	ids   []domain.MessageID
	index map[domain.MessageID]struct{}
}

func NewProcessedMessages(ctx context.Context, repo port.ProcessedMessageRepository, limit int) (*ProcessedMessages, error) {
	if limit <= 0 {
		limit = DefaultProcessedLimit
	}
	p := &ProcessedMessages{
		repo:  repo,
		limit: limit,
		index: make(map[domain.MessageID]struct{}),
	}

	ids, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p.insert(id)
	}
	return p, nil
}

func (p *ProcessedMessages) Seen(id domain.MessageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.index[id]
	return ok
}

// MarkFirst records id and reports whether it was new. Ids without a value
// cannot be deduplicated and are always reported as new.
func (p *ProcessedMessages) MarkFirst(ctx context.Context, id domain.MessageID) bool {
	if id == "" {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.index[id]; ok {
		return false
	}
	p.insert(id)

	snapshot := make([]domain.MessageID, len(p.ids))
	copy(snapshot, p.ids)
	if err := p.repo.Save(ctx, snapshot); err != nil {
		log.Warn().Err(err).Str("message_id", id.String()).Msg("Failed to persist processed message ids")
	}
	return true
}

func (p *ProcessedMessages) IDs() []domain.MessageID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MessageID, len(p.ids))
	copy(out, p.ids)
	return out
}

func (p *ProcessedMessages) insert(id domain.MessageID) {
	if _, ok := p.index[id]; ok {
		return
	}
	p.ids = append(p.ids, id)
	p.index[id] = struct{}{}
	for len(p.ids) > p.limit {
		delete(p.index, p.ids[0])
		p.ids = p.ids[1:]
	}
}
