// Package signalchan implements a non-blocking byte channel fed from the
// outside. A producer calls Yield whenever it has data; a consumer calls Read
// which never blocks and may return zero bytes. It is the synthetic stdin of
// a simulated process.
package signalchan

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"procsim/pkg/reclaim"
)

// ErrClosed is returned by Yield after Close.
var ErrClosed = errors.New("signalchan: channel closed")

// Channel is safe for one producer and one consumer on different goroutines.
// All state is guarded by a single mutex.
type Channel struct {
	mu     sync.Mutex
	buf    *reclaim.Buffer
	closed bool
}

// New creates an open, empty channel.
func New() *Channel {
	return &Channel{buf: reclaim.New(64)}
}

// Yield appends p for later consumption.
func (c *Channel) Yield(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, err := c.buf.Write(p); err != nil {
		return fmt.Errorf("failed to buffer %d bytes: %w", len(p), err)
	}
	return nil
}

// YieldString is Yield for text.
func (c *Channel) YieldString(s string) error {
	return c.Yield([]byte(s))
}

// Write implements io.Writer on top of Yield.
func (c *Channel) Write(p []byte) (int, error) {
	if err := c.Yield(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read copies up to len(p) available bytes into p. It returns 0, nil when
// nothing is available and the channel is still open, and 0, io.EOF once
// the channel is closed and depleted.
func (c *Channel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf.Len() == 0 {
		if c.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	return c.buf.Read(p)
}

// Available reports the number of bytes Read would return right now. It
// returns io.EOF once the channel is closed and depleted.
func (c *Channel) Available() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed && c.buf.Len() == 0 {
		return 0, io.EOF
	}
	return c.buf.Len(), nil
}

// Close marks the end of production. Buffered bytes stay readable. Close is
// idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		slog.Debug("Signal channel closed", "pending", c.buf.Len())
	}
	c.closed = true
	return nil
}

// IsOpen reports whether more bytes may still be read: the producer has not
// closed the channel, or buffered bytes remain.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed || c.buf.Len() > 0
}
