// Package testutil provides test doubles for the game server.
package testutil

import (
	"io"
	"sync"
	"testing"
	"time"
)

// Sent is one recorded outbound envelope.
type Sent struct {
	Message string
	Payload any
}

// FakeChannel is an in-memory session.Channel: inbound frames are pushed
// by the test, outbound envelopes are recorded. Safe for concurrent use.
type FakeChannel struct {
	inbound chan []byte
	done    chan struct{}

	mu        sync.Mutex
	sent      []Sent
	failed    bool
	closed    bool
	closeCode int
}

// NewFakeChannel creates an open FakeChannel.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

// Push queues one inbound frame for Receive.
//
// Precondition: the channel must not have been failed or closed.
func (c *FakeChannel) Push(frame string) {
	c.inbound <- []byte(frame)
}

// Fail ends the inbound stream: pending frames are still delivered,
// after which Receive returns io.EOF, as a dropped connection would.
// Safe to call more than once.
func (c *FakeChannel) Fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.failed {
		c.failed = true
		close(c.inbound)
	}
}

// Receive returns the next pushed frame, or io.EOF after Fail or Close.
func (c *FakeChannel) Receive() ([]byte, error) {
	select {
	case <-c.done:
		return nil, io.EOF
	case frame, ok := <-c.inbound:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	}
}

// Send records the outbound envelope.
func (c *FakeChannel) Send(message string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.ErrClosedPipe
	}
	c.sent = append(c.sent, Sent{Message: message, Payload: payload})
	return nil
}

// Close marks the channel closed and records the status code. Safe to
// call more than once.
func (c *FakeChannel) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeCode = code
		close(c.done)
	}
	return nil
}

// Closed reports whether Close has been called, and the recorded code.
func (c *FakeChannel) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

// Sent returns a snapshot of every recorded envelope.
func (c *FakeChannel) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sent, len(c.sent))
	copy(out, c.sent)
	return out
}

// Messages returns the recorded envelope tags in send order.
func (c *FakeChannel) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]string, 0, len(c.sent))
	for _, s := range c.sent {
		msgs = append(msgs, s.Message)
	}
	return msgs
}

// LastPayload returns the payload of the most recent envelope with the
// given tag.
//
// Postcondition: Returns (payload, true) if found, or (nil, false) otherwise.
func (c *FakeChannel) LastPayload(message string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].Message == message {
			return c.sent[i].Payload, true
		}
	}
	return nil, false
}

// WaitFor blocks until an envelope with the given tag has been sent, or
// fails the test after two seconds.
func (c *FakeChannel) WaitFor(t *testing.T, message string) Sent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		for _, s := range c.sent {
			if s.Message == message {
				c.mu.Unlock()
				return s
			}
		}
		c.mu.Unlock()

		select {
		case <-deadline:
			t.Fatalf("no %q envelope sent in time; got %v", message, c.Messages())
			return Sent{}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
