// Package relay speaks to a message relay over a websocket. The relay
// forwards opaque payloads between identities and stamps each delivery
// with an id and send time.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
)

const (
	frameSend    = "send"
	frameMessage = "message"

	defaultWriteTimeout = 10 * time.Second

	// redial backoff doubles per consecutive failure and resets once a
	// connection is up again
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

var ErrClosed = errors.New("relay connection closed")

type outboundFrame struct {
	Type    string `json:"type"`
	To      string `json:"to"`
	Content string `json:"content"`
}

type inboundFrame struct {
	Type    string    `json:"type"`
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

type Client struct {
	self   domain.PeerID
	url    string
	header http.Header
	clock  clock.Clock

	// writeMu guards conn and serializes writes on it.
	writeMu   sync.Mutex
	conn      *websocket.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

var _ port.MessageTransport = (*Client)(nil)

// Dial connects to the relay at rawURL as self. token, when set, is sent as
// a bearer credential. The first connection must succeed; later drops are
// redialed by Run.
func Dial(ctx context.Context, rawURL string, self domain.PeerID, token string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	q := u.Query()
	q.Set("identity", self.String())
	u.RawQuery = q.Encode()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	c := &Client{
		self:   self,
		url:    u.String(),
		header: header,
		clock:  clock.New(),
		closed: make(chan struct{}),
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	log.Info().Str("relay", u.Host).Str("peer_id", self.String()).Msg("Connected to relay")
	return c, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return nil, fmt.Errorf("%w: dial relay: %w", domain.ErrTransport, err)
	}
	return conn, nil
}

func (c *Client) SendMessage(ctx context.Context, to domain.PeerID, content string) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	if err := c.conn.WriteJSON(outboundFrame{Type: frameSend, To: to.String(), Content: content}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	return nil
}

func (c *Client) current() *websocket.Conn {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn
}

// Run reads deliveries and hands each to handler until ctx is done or the
// client is closed. A dropped connection is redialed with backoff. A clean
// shutdown, including the relay closing normally, returns nil.
func (c *Client) Run(ctx context.Context, handler port.MessageHandler) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.closed:
		}
	}()

	for {
		err := c.read(ctx, c.current(), handler)
		select {
		case <-c.closed:
			return nil
		default:
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil
		}
		log.Warn().Err(err).Msg("Relay connection lost, redialing")
		if err := c.redial(ctx); err != nil {
			return nil
		}
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn, handler port.MessageHandler) error {
	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}

		if frame.Type != frameMessage {
			log.Debug().Str("type", frame.Type).Msg("Relay frame ignored")
			continue
		}
		msg, err := domain.NewMessage(domain.MessageID(frame.ID), domain.PeerID(frame.From), frame.Content, frame.SentAt)
		if err != nil {
			log.Warn().Err(err).Str("message_id", frame.ID).Msg("Invalid relay delivery")
			continue
		}
		handler(ctx, *msg)
	}
}

// redial replaces the connection, retrying until it succeeds or the client
// shuts down. It returns ErrClosed on shutdown.
func (c *Client) redial(ctx context.Context) error {
	backoff := initialBackoff
	for {
		select {
		case <-c.clock.After(backoff):
		case <-c.closed:
			return ErrClosed
		}

		conn, err := c.dial(ctx)
		if err != nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("Relay redial failed")
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.writeMu.Lock()
		select {
		case <-c.closed:
			c.writeMu.Unlock()
			conn.Close()
			return ErrClosed
		default:
		}
		old := c.conn
		c.conn = conn
		c.writeMu.Unlock()
		old.Close()

		log.Info().Str("peer_id", c.self.String()).Msg("Reconnected to relay")
		return nil
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		close(c.closed)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}
