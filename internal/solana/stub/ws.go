package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-token-sale/internal/solana"
)

// WSClient implements solana.WSClient for testing. Notifications pushed
// before a matching subscription exists are queued and delivered on
// subscription.
type WSClient struct {
	mu       sync.Mutex
	subs     map[solana.PublicKey]chan solana.AccountNotification
	programs []*programSub
	pending  map[solana.PublicKey][]solana.AccountNotification
	closed   bool
}

type programSub struct {
	program solana.PublicKey
	filters []solana.AccountFilter
	ch      chan solana.AccountNotification
}

func (s *programSub) wants(n solana.AccountNotification) bool {
	return n.Account.Owner == s.program && matches(n.Account.Data, s.filters)
}

// subscriptionBuffer bounds the notifications held per subscription.
const subscriptionBuffer = 64

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{
		subs:    make(map[solana.PublicKey]chan solana.AccountNotification),
		pending: make(map[solana.PublicKey][]solana.AccountNotification),
	}
}

// SubscribeAccount returns the channel for key, preloaded with queued notifications.
func (c *WSClient) SubscribeAccount(_ context.Context, key solana.PublicKey) (<-chan solana.AccountNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("client closed")
	}
	ch := make(chan solana.AccountNotification, subscriptionBuffer)
	for _, n := range c.pending[key] {
		ch <- n
	}
	delete(c.pending, key)
	c.subs[key] = ch
	return ch, nil
}

// SubscribeProgram returns a channel receiving every pushed notification for
// an account owned by program that matches filters. Queued notifications
// that match are handed over.
func (c *WSClient) SubscribeProgram(_ context.Context, program solana.PublicKey, filters ...solana.AccountFilter) (<-chan solana.AccountNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("client closed")
	}
	sub := &programSub{
		program: program,
		filters: filters,
		ch:      make(chan solana.AccountNotification, subscriptionBuffer),
	}
	for key, queued := range c.pending {
		kept := queued[:0]
		for _, n := range queued {
			if sub.wants(n) && len(sub.ch) < subscriptionBuffer {
				sub.ch <- n
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) == 0 {
			delete(c.pending, key)
		} else {
			c.pending[key] = kept
		}
	}
	c.programs = append(c.programs, sub)
	return sub.ch, nil
}

// Push delivers n to the subscriber of n.Key and to every matching program
// subscriber, or queues it when nobody is listening.
func (c *WSClient) Push(n solana.AccountNotification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client closed")
	}
	var targets []chan solana.AccountNotification
	if ch, ok := c.subs[n.Key]; ok {
		targets = append(targets, ch)
	}
	for _, sub := range c.programs {
		if sub.wants(n) {
			targets = append(targets, sub.ch)
		}
	}
	if len(targets) == 0 {
		if len(c.pending[n.Key]) >= subscriptionBuffer {
			return fmt.Errorf("queue full for %s", n.Key)
		}
		c.pending[n.Key] = append(c.pending[n.Key], n)
		return nil
	}
	for _, ch := range targets {
		select {
		case ch <- n:
		default:
			return fmt.Errorf("subscription full for %s", n.Key)
		}
	}
	return nil
}

// Close ends every subscription.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	for _, sub := range c.programs {
		close(sub.ch)
	}
	return nil
}

var _ solana.WSClient = (*WSClient)(nil)
