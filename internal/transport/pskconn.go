package transport

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/mrpasztoradam/goadssec/internal/tlspsk"
)

// pskConn adapts the non-blocking tlspsk.Engine to the blocking
// io.ReadWriteCloser shape the rest of the pipeline consumes. The engine is
// not concurrency-safe; every engine call happens under mu.
type pskConn struct {
	raw net.Conn

	mu      sync.Mutex
	eng     *tlspsk.Engine
	readBuf []byte
}

func newPSKConn(raw net.Conn, cfg tlspsk.Config) (*pskConn, error) {
	eng, err := tlspsk.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &pskConn{raw: raw, eng: eng}, nil
}

// handshake drives the engine to completion. The caller bounds it with a
// deadline on the raw connection; a deadline expiry maps to the engine's
// timeout taxonomy.
func (c *pskConn) handshake() error {
	c.mu.Lock()
	err := c.eng.Start()
	if err == nil {
		err = c.flushLocked()
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	buf := make([]byte, 16<<10)
	for {
		select {
		case err := <-c.eng.HandshakeDone():
			return err
		default:
		}

		n, readErr := c.raw.Read(buf)

		c.mu.Lock()
		if n > 0 {
			plain, feedErr := c.eng.Feed(buf[:n])
			if len(plain) > 0 {
				c.readBuf = append(c.readBuf, plain...)
			}
			if feedErr == nil {
				feedErr = c.flushLocked()
			}
			if feedErr != nil {
				c.mu.Unlock()
				return feedErr
			}
		}
		established := c.eng.State() == tlspsk.StateEstablished
		if readErr != nil && !established {
			c.eng.TransportClosed()
		}
		c.mu.Unlock()

		if established {
			return nil
		}
		if readErr != nil {
			if os.IsTimeout(readErr) {
				return &tlspsk.HandshakeError{
					Code: tlspsk.CodeHandshakeTimeout,
					Msg:  "handshake deadline expired",
				}
			}
			if hsErr := <-c.eng.HandshakeDone(); hsErr != nil {
				return hsErr
			}
			return fmt.Errorf("transport: PSK handshake: %w", readErr)
		}
	}
}

// flushLocked writes every pending engine record to the socket. mu held.
func (c *pskConn) flushLocked() error {
	out := c.eng.Outbound()
	if len(out) == 0 {
		return nil
	}
	if _, err := c.raw.Write(out); err != nil {
		return fmt.Errorf("transport: write TLS records: %w", err)
	}
	return nil
}

// Read returns decrypted application data, pulling more records from the
// socket as needed.
func (c *pskConn) Read(p []byte) (int, error) {
	buf := make([]byte, 16<<10)
	for {
		c.mu.Lock()
		if len(c.readBuf) > 0 {
			n := copy(p, c.readBuf)
			c.readBuf = c.readBuf[n:]
			c.mu.Unlock()
			return n, nil
		}
		c.mu.Unlock()

		n, err := c.raw.Read(buf)
		if n > 0 {
			c.mu.Lock()
			plain, feedErr := c.eng.Feed(buf[:n])
			if len(plain) > 0 {
				c.readBuf = append(c.readBuf, plain...)
			}
			flushErr := c.flushLocked()
			c.mu.Unlock()
			if feedErr != nil {
				return 0, feedErr
			}
			if flushErr != nil {
				return 0, flushErr
			}
			continue
		}
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
}

// Write encrypts p and pushes the records to the socket in one turn.
func (c *pskConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.eng.Write(p); err != nil {
		return 0, err
	}
	if err := c.flushLocked(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends close_notify when possible and closes the socket.
func (c *pskConn) Close() error {
	c.mu.Lock()
	c.eng.Close()
	flushErr := c.flushLocked()
	c.mu.Unlock()

	err := c.raw.Close()
	if err == nil {
		err = flushErr
	}
	return err
}
