package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"chatsync/internal/retry"
	"chatsync/pkg/feed/types"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// ErrStreamClosed is returned by Next after Close has been called.
var ErrStreamClosed = errors.New("feed stream is closed")

const maxSnapshotBytes = 1 << 20

// Client provides live subscriptions to the feed source.
type Client interface {
	Subscribe(ctx context.Context, conversationKey string) (Stream, error)
}

// Stream is a live, ordered sequence of conversation snapshots. Reconnection
// happens inside the stream; Next only fails terminally.
type Stream interface {
	Next(ctx context.Context) (*types.Snapshot, error)
	Close() error
}

type ClientConfig struct {
	WSURL            string
	AuthToken        string
	HandshakeTimeout time.Duration
	ReconnectEnabled bool
	Backoff          retry.BackoffConfig
}

type WSClient struct {
	config ClientConfig
	logger *logrus.Logger
}

func NewClient(config ClientConfig) Client {
	return NewClientWithLogger(config, nil)
}

func NewClientWithLogger(config ClientConfig, logger *logrus.Logger) Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	config.WSURL = strings.TrimSuffix(config.WSURL, "/")
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.Backoff.MaxAttempts <= 0 {
		config.Backoff = retry.DefaultBackoffConfig()
	}

	return &WSClient{
		config: config,
		logger: logger,
	}
}

func (c *WSClient) Subscribe(ctx context.Context, conversationKey string) (Stream, error) {
	conn, err := c.dial(ctx, conversationKey)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"conversation": conversationKey,
	}).Debug("Feed subscription opened")

	return &wsStream{
		client:          c,
		conversationKey: conversationKey,
		conn:            conn,
	}, nil
}

func (c *WSClient) dial(ctx context.Context, conversationKey string) (*websocket.Conn, error) {
	endpoint := fmt.Sprintf("%s/v1/conversations/%s/feed", c.config.WSURL, url.PathEscape(conversationKey))

	header := http.Header{}
	if c.config.AuthToken != "" {
		header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.config.HandshakeTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, endpoint, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial feed source: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial feed source: %w", err)
	}

	conn.SetReadLimit(maxSnapshotBytes)
	return conn, nil
}

type wsStream struct {
	client          *WSClient
	conversationKey string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Next blocks until the feed source emits the next full snapshot. Malformed
// frames are dropped. If reconnection is enabled, transport failures are
// retried with backoff before Next gives up.
func (s *wsStream) Next(ctx context.Context) (*types.Snapshot, error) {
	for {
		conn, err := s.currentConn()
		if err != nil {
			return nil, err
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if s.isClosed() {
				return nil, ErrStreamClosed
			}
			if !s.client.config.ReconnectEnabled {
				return nil, fmt.Errorf("feed stream read failed: %w", err)
			}
			if rerr := s.reconnect(ctx); rerr != nil {
				return nil, fmt.Errorf("feed stream reconnect failed: %w", rerr)
			}
			continue
		}

		var snapshot types.Snapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			s.client.logger.WithError(err).WithField("conversation", s.conversationKey).
				Warn("Dropping malformed feed frame")
			continue
		}

		return &snapshot, nil
	}
}

func (s *wsStream) reconnect(ctx context.Context) error {
	backoff := retry.NewBackoff(s.client.config.Backoff)

	return backoff.RetryWithPredicate(ctx, func() error {
		conn, err := s.client.dial(ctx, s.conversationKey)
		if err != nil {
			s.client.logger.WithError(err).WithField("conversation", s.conversationKey).
				Warn("Feed reconnect attempt failed")
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			conn.Close(websocket.StatusNormalClosure, "stream closed")
			return ErrStreamClosed
		}
		s.conn = conn
		return nil
	}, func(err error) bool {
		return !errors.Is(err, ErrStreamClosed)
	})
}

func (s *wsStream) currentConn() (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	return s.conn, nil
}

func (s *wsStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears down the subscription. Safe to call more than once.
func (s *wsStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn != nil {
		return s.conn.Close(websocket.StatusNormalClosure, "unsubscribe")
	}
	return nil
}
