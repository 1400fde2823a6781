// Package notify carries user-facing notices from the engine to whatever
// presentation layer is subscribed.
package notify

import (
	"sync"

	"edencore/marketrun/internal/i18n"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Notice struct {
	Kind      Kind
	Key       i18n.Key
	Text      string
	ProductID string
}

type Notifier interface {
	Notify(Notice)
}

type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

type Discard struct{}

func (Discard) Notify(Notice) {}

// Channel buffers notices for a single subscriber. Notices that arrive while
// the buffer is full are dropped and counted.
type Channel struct {
	mu      sync.Mutex
	ch      chan Notice
	closed  bool
	dropped int
}

func NewChannel(buffer int) *Channel {
	if buffer < 1 {
		buffer = 16
	}
	return &Channel{ch: make(chan Notice, buffer)}
}

func (c *Channel) Notify(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- n:
	default:
		c.dropped++
	}
}

func (c *Channel) Notices() <-chan Notice {
	return c.ch
}

func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
