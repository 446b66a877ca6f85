// Package memory connects identities inside one process. Each endpoint
// delivers to its handler on its own goroutine, in send order.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

var (
	ErrUnknownPeer    = errors.New("unknown peer")
	ErrEndpointClosed = errors.New("endpoint closed")
)

const queueSize = 256

type Bus struct {
	clock clock.Clock

	mu        sync.Mutex
	endpoints map[domain.PeerID]*Endpoint
}

func NewBus(clk clock.Clock) *Bus {
	if clk == nil {
		clk = clock.New()
	}
	return &Bus{
		clock:     clk,
		endpoints: make(map[domain.PeerID]*Endpoint),
	}
}

// Endpoint returns the endpoint for id, creating it on first use.
func (b *Bus) Endpoint(id domain.PeerID) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ep, ok := b.endpoints[id]; ok {
		return ep
	}
	ep := &Endpoint{
		bus:   b,
		id:    id,
		queue: make(chan domain.Message, queueSize),
		done:  make(chan struct{}),
	}
	b.endpoints[id] = ep
	return ep
}

func (b *Bus) lookup(id domain.PeerID) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endpoints[id]
}

type Endpoint struct {
	bus   *Bus
	id    domain.PeerID
	queue chan domain.Message
	done  chan struct{}

	mu        sync.Mutex
	sendErr   error
	sent      []domain.Message
	closeOnce sync.Once
}

var _ port.MessageTransport = (*Endpoint)(nil)

func (e *Endpoint) ID() domain.PeerID {
	return e.id
}

func (e *Endpoint) SendMessage(ctx context.Context, to domain.PeerID, content string) error {
	e.mu.Lock()
	if err := e.sendErr; err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	target := e.bus.lookup(to)
	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, to)
	}

	msg := domain.Message{
		ID:       domain.MessageID(uuid.New().String()),
		SenderID: e.id,
		Content:  content,
		SentAt:   e.bus.clock.Now(),
	}
	if err := target.Deliver(ctx, msg); err != nil {
		return err
	}

	e.mu.Lock()
	e.sent = append(e.sent, msg)
	e.mu.Unlock()
	return nil
}

// Deliver queues msg for this endpoint's handler as is, so a message can be
// replayed with its original id.
func (e *Endpoint) Deliver(ctx context.Context, msg domain.Message) error {
	select {
	case <-e.done:
		return ErrEndpointClosed
	default:
	}
	select {
	case e.queue <- msg:
		return nil
	case <-e.done:
		return ErrEndpointClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve hands queued messages to handler until ctx is done or the endpoint
// is closed.
func (e *Endpoint) Serve(ctx context.Context, handler port.MessageHandler) {
	for {
		select {
		case msg := <-e.queue:
			handler(ctx, msg)
		case <-e.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// FailSends makes every following send return err. A nil err restores
// delivery.
func (e *Endpoint) FailSends(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendErr = err
}

// Sent returns the messages this endpoint delivered, oldest first.
func (e *Endpoint) Sent() []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Message(nil), e.sent...)
}

func (e *Endpoint) Close() {
	e.closeOnce.Do(func() { close(e.done) })
}
