package channel

import (
	"context"
	"errors"
	"sync"
)

// ErrInboxFull is returned when a pushed message cannot be buffered.
var ErrInboxFull = errors.New("inbox full")

// Inbox is an in-process Subscriber fed by Publish. The control API pushes
// backend messages through it.
type Inbox struct {
	ch     chan Envelope
	once   sync.Once
	closed chan struct{}
}

// NewInbox creates an inbox buffering up to size messages.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = 64
	}
	return &Inbox{ch: make(chan Envelope, size), closed: make(chan struct{})}
}

// Publish enqueues env without blocking.
func (b *Inbox) Publish(env Envelope) error {
	select {
	case <-b.closed:
		return ErrReceiverMissing
	default:
	}
	select {
	case b.ch <- env:
		return nil
	default:
		return ErrInboxFull
	}
}

// Subscribe returns a channel of published messages that closes with ctx.
func (b *Inbox) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	out := make(chan Envelope)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				b.once.Do(func() { close(b.closed) })
				return
			case env := <-b.ch:
				select {
				case out <- env:
				case <-ctx.Done():
					b.once.Do(func() { close(b.closed) })
					return
				}
			}
		}
	}()
	return out, nil
}

// Merge fans several subscribers into one channel. It fails if any
// subscriber fails to start.
func Merge(ctx context.Context, subs ...Subscriber) (<-chan Envelope, error) {
	out := make(chan Envelope)
	var wg sync.WaitGroup
	for _, sub := range subs {
		ch, err := sub.Subscribe(ctx)
		if err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(ch <-chan Envelope) {
			defer wg.Done()
			for env := range ch {
				select {
				case out <- env:
				case <-ctx.Done():
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// Multi subscribes to several subscribers as one, in order.
type Multi []Subscriber

func (m Multi) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	return Merge(ctx, m...)
}
