// Package transport implements the connection layer for AMS/ADS
// communication over plain TCP and Secure ADS TLS tunnels.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrpasztoradam/goadssec/internal/ads"
	"github.com/mrpasztoradam/goadssec/internal/ams"
)

// Logger is the subset of the client's logger the transport uses.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}

// ErrClosed is reported for operations on a closed connection and is the
// uniform cause used to drain pending requests at teardown.
var ErrClosed = fmt.Errorf("transport: connection closed")

// ErrTimeout is reported when a request's timer fires before its response.
var ErrTimeout = fmt.Errorf("transport: request timeout")

// Conn is an established ADS connection. stream is the cleartext byte pipe:
// the TCP connection itself in plain mode, or the TLS/PSK tunnel in secure
// mode. All writes are serialized; inbound frames are demultiplexed by
// invoke ID.
type Conn struct {
	stream  io.ReadWriteCloser
	raw     net.Conn
	codec   ams.Codec
	timeout time.Duration
	logger  Logger

	mu        sync.Mutex // serializes writes to stream
	closed    atomic.Bool
	invokeID  atomic.Uint32
	responses chan *pendingResponse
	pending   map[uint32]chan *ams.Frame
	pendingMu sync.Mutex
}

type pendingResponse struct {
	frame *ams.Frame
	err   error
}

// newConn wires the read and dispatch loops around an established stream.
func newConn(stream io.ReadWriteCloser, raw net.Conn, includeTCPHeader bool, timeout time.Duration, logger Logger) *Conn {
	if logger == nil {
		logger = nopLogger{}
	}
	c := &Conn{
		stream:    stream,
		raw:       raw,
		codec:     ams.Codec{IncludeTCPHeader: includeTCPHeader},
		timeout:   timeout,
		logger:    logger,
		responses: make(chan *pendingResponse, 16),
		pending:   make(map[uint32]chan *ams.Frame),
	}

	go c.readLoop()
	go c.dispatchLoop()

	return c
}

// Close shuts the connection down and fails every pending request with a
// uniform cause. It is safe to call more than once.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	err := c.stream.Close()
	if c.raw != nil {
		c.raw.Close()
	}

	c.failPending()
	return err
}

// failPending drains the correlation map; every waiter observes ErrClosed.
func (c *Conn) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = nil
}

// PendingCount reports the number of in-flight requests.
func (c *Conn) PendingCount() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

// NextInvokeID returns a fresh invoke ID. The counter wraps; correlation
// only requires uniqueness among in-flight requests.
func (c *Conn) NextInvokeID() uint32 {
	return c.invokeID.Add(1)
}

// SendRequest writes a request frame and blocks until its response arrives,
// the request timeout fires, the context is done, or the connection dies.
func (c *Conn) SendRequest(ctx context.Context, req *ams.Frame) (*ams.Frame, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	respCh := make(chan *ams.Frame, 1)
	invokeID := req.Header.InvokeID

	c.pendingMu.Lock()
	if c.pending == nil {
		c.pendingMu.Unlock()
		return nil, ErrClosed
	}
	c.pending[invokeID] = respCh
	c.pendingMu.Unlock()

	defer c.removePending(invokeID)

	if err := c.writeFrame(req); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-respCh:
		if !ok || resp == nil {
			return nil, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

func (c *Conn) removePending(invokeID uint32) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	delete(c.pending, invokeID)
}

func (c *Conn) writeFrame(f *ams.Frame) error {
	buf, err := c.codec.Encode(f)
	if err != nil {
		return err
	}

	if c.raw != nil && c.timeout > 0 {
		if err := c.raw.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}

	c.mu.Lock()
	_, err = c.stream.Write(buf)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

// readLoop is the only sender on c.responses and closes it on exit.
func (c *Conn) readLoop() {
	defer close(c.responses)

	dec := ams.NewDecoder(c.codec.IncludeTCPHeader)
	buf := make([]byte, 16<<10)

	for {
		for {
			frame, err := dec.Next()
			if err != nil {
				c.responses <- &pendingResponse{err: err}
				return
			}
			if frame == nil {
				break
			}
			c.responses <- &pendingResponse{frame: frame}
		}

		if c.closed.Load() {
			return
		}

		n, err := c.stream.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
		}
		if err != nil && n == 0 {
			if !c.closed.Load() {
				c.responses <- &pendingResponse{err: err}
			}
			return
		}
	}
}

// dispatchLoop routes inbound frames to their waiters. It ends when the
// read loop closes the channel.
func (c *Conn) dispatchLoop() {
	for resp := range c.responses {
		if resp.err != nil {
			if !c.closed.Load() {
				c.logger.Debug("connection read failed", "error", resp.err)
			}
			c.Close()
			continue
		}

		frame := resp.frame

		// Device notifications are consumed and dropped; there is no
		// subscription surface on this client.
		if frame.Header.CommandID == uint16(ads.CmdDeviceNotification) {
			c.logger.Debug("dropping device notification",
				"source", frame.Header.SourceNetID.String(),
				"bytes", len(frame.Data))
			continue
		}

		c.pendingMu.Lock()
		ch := c.pending[frame.Header.InvokeID]
		if ch != nil {
			select {
			case ch <- frame:
			default:
			}
		}
		c.pendingMu.Unlock()

		if ch == nil {
			c.logger.Warn("response for unknown invoke ID",
				"invokeID", frame.Header.InvokeID,
				"command", ads.CommandID(frame.Header.CommandID).String())
		}
	}
}
