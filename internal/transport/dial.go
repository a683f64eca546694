package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/mrpasztoradam/goadssec/internal/secure"
	"github.com/mrpasztoradam/goadssec/internal/tlspsk"
)

// Options selects the pipeline for a connection. Exactly one of TLSConfig
// and PSKConfig may be set; with neither the connection is plain ADS/TCP.
// ConnectInfo must be set for both secure modes.
type Options struct {
	Address        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	TLSConfig   *tls.Config
	PSKConfig   *tlspsk.Config
	ConnectInfo *secure.ConnectInfo

	Logger Logger
}

// DefaultHandshakeTimeout bounds the TLS and ConnectInfo exchanges when no
// connect timeout is configured.
const DefaultHandshakeTimeout = 5 * time.Second

// Dial opens the TCP connection, runs the configured security layers and the
// ConnectInfo exchange, and returns a ready Conn. On any failure the socket
// is closed and no Conn exists.
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	if opts.TLSConfig != nil && opts.PSKConfig != nil {
		return nil, fmt.Errorf("transport: both TLS and PSK configured")
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", opts.Address, err)
	}

	// Plain ADS/TCP: frame codec with the AMS/TCP preamble, nothing else.
	if opts.TLSConfig == nil && opts.PSKConfig == nil {
		return newConn(netConn, netConn, true, opts.RequestTimeout, opts.Logger), nil
	}

	deadline := handshakeDeadline(ctx, opts.ConnectTimeout)
	if err := netConn.SetDeadline(deadline); err != nil {
		netConn.Close()
		return nil, fmt.Errorf("transport: set handshake deadline: %w", err)
	}

	stream, err := establishTunnel(ctx, netConn, opts)
	if err != nil {
		netConn.Close()
		return nil, err
	}

	// The ConnectInfo exchange gates all AMS traffic; afterwards the frame
	// codec owns the stream.
	if opts.ConnectInfo == nil {
		netConn.Close()
		return nil, fmt.Errorf("transport: secure mode requires a connect info request")
	}
	if _, err := secure.Exchange(stream, opts.ConnectInfo); err != nil {
		netConn.Close()
		return nil, err
	}

	if err := netConn.SetDeadline(time.Time{}); err != nil {
		netConn.Close()
		return nil, fmt.Errorf("transport: clear handshake deadline: %w", err)
	}

	return newConn(stream, netConn, false, opts.RequestTimeout, opts.Logger), nil
}

// establishTunnel runs the TLS layer: crypto/tls for the certificate modes,
// the PSK engine otherwise.
func establishTunnel(ctx context.Context, netConn net.Conn, opts Options) (io.ReadWriteCloser, error) {
	if opts.TLSConfig != nil {
		tlsConn := tls.Client(netConn, opts.TLSConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("transport: TLS handshake: %w", err)
		}
		return tlsConn, nil
	}

	pc, err := newPSKConn(netConn, *opts.PSKConfig)
	if err != nil {
		return nil, err
	}
	if err := pc.handshake(); err != nil {
		return nil, err
	}
	return pc, nil
}

func handshakeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
