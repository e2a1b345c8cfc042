package channel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// StreamSubscriber receives pushed envelopes over a websocket and reconnects
// with exponential backoff until its context ends.
type StreamSubscriber struct {
	url    string
	header func() http.Header
	dialer *websocket.Dialer
	logger *logger.Logger

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// NewStreamSubscriber creates a subscriber for wsURL. header is called on
// every dial so refreshed tokens are picked up; it may be nil.
func NewStreamSubscriber(logger *logger.Logger, wsURL string, header func() http.Header) *StreamSubscriber {
	return &StreamSubscriber{
		url:        wsURL,
		header:     header,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
		MinBackoff: minBackoff,
		MaxBackoff: maxBackoff,
	}
}

// Subscribe dials once synchronously so configuration errors surface to the
// caller, then keeps the stream alive in the background. The returned
// channel is closed when ctx is done.
func (s *StreamSubscriber) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan Envelope, 16)
	go s.run(ctx, conn, out)
	return out, nil
}

func (s *StreamSubscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	var h http.Header
	if s.header != nil {
		h = s.header()
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.url, h)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial failed: %v, status: %s", ErrChannel, err, resp.Status)
		}
		return nil, transportError(err)
	}
	return conn, nil
}

func (s *StreamSubscriber) run(ctx context.Context, conn *websocket.Conn, out chan<- Envelope) {
	defer close(out)

	backoff := s.MinBackoff
	for {
		if conn != nil {
			s.receiveLoop(ctx, conn, out)
			conn = nil
		}
		if ctx.Err() != nil {
			return
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		c, err := s.dial(ctx)
		if err != nil {
			s.logger.Warn("Push stream reconnect failed", "error", err, "retry_in", backoff)
			backoff *= 2
			if backoff > s.MaxBackoff {
				backoff = s.MaxBackoff
			}
			continue
		}
		s.logger.Info("Push stream reconnected", "url", s.url)
		backoff = s.MinBackoff
		conn = c
	}
}

func (s *StreamSubscriber) receiveLoop(ctx context.Context, conn *websocket.Conn, out chan<- Envelope) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	// ReadMessage does not take a context, so closing the conn unblocks it.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("Push stream read failed", "error", err)
			}
			return
		}

		env, err := Unmarshal(msg)
		if err != nil {
			s.logger.Warn("Dropping malformed push message", "error", err)
			continue
		}

		select {
		case out <- env:
		case <-ctx.Done():
			return
		}
	}
}
