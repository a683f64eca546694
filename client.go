// Package goadssec provides a Go client library for Beckhoff ADS/AMS
// communication, including Secure ADS (AMS over TLS 1.2 on TCP port 8016)
// with self-signed certificate, shared-CA, and pre-shared-key authentication.
package goadssec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mrpasztoradam/goadssec/internal/ads"
	"github.com/mrpasztoradam/goadssec/internal/ams"
	"github.com/mrpasztoradam/goadssec/internal/secure"
	"github.com/mrpasztoradam/goadssec/internal/transport"
)

// Client represents an ADS client. A client is built once and may connect,
// disconnect, and connect again; configuration is immutable after New.
type Client struct {
	cfg     clientConfig
	logger  Logger
	metrics Metrics

	mu            sync.Mutex
	conn          *transport.Conn
	disconnecting bool
}

// DeviceInfo represents device information returned by ReadDeviceInfo.
type DeviceInfo struct {
	Name         string
	MajorVersion uint8
	MinorVersion uint8
	VersionBuild uint16
}

// DeviceState represents the state of an ADS device.
type DeviceState struct {
	ADSState    ads.ADSState
	DeviceState uint16
}

// Option is a functional option for configuring a Client.
type Option func(*clientConfig) error

type clientConfig struct {
	address        string
	targetNetID    ams.NetID
	targetPort     ams.Port
	sourceNetID    ams.NetID
	sourcePort     ams.Port
	connectTimeout time.Duration
	requestTimeout time.Duration
	secure         *SecureConfig
	logger         Logger
	metrics        Metrics
}

// WithTarget sets the target TCP address (required), e.g. "10.0.0.5:8016".
func WithTarget(address string) Option {
	return func(c *clientConfig) error {
		if address == "" {
			return fmt.Errorf("goadssec: target address cannot be empty")
		}
		c.address = address
		return nil
	}
}

// WithAMSNetID sets the target AMS NetID (required).
func WithAMSNetID(netID ams.NetID) Option {
	return func(c *clientConfig) error {
		c.targetNetID = netID
		return nil
	}
}

// WithAMSPort sets the target AMS port (optional, defaults to 851).
func WithAMSPort(port ams.Port) Option {
	return func(c *clientConfig) error {
		c.targetPort = port
		return nil
	}
}

// WithSourceNetID sets the source AMS NetID (required for routed targets).
func WithSourceNetID(netID ams.NetID) Option {
	return func(c *clientConfig) error {
		c.sourceNetID = netID
		return nil
	}
}

// WithSourcePort sets the source AMS port (optional).
func WithSourcePort(port ams.Port) Option {
	return func(c *clientConfig) error {
		c.sourcePort = port
		return nil
	}
}

// WithConnectTimeout bounds socket connect plus the TLS and ConnectInfo
// handshakes (optional).
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("goadssec: connect timeout must be positive")
		}
		c.connectTimeout = timeout
		return nil
	}
}

// WithRequestTimeout bounds each command round trip (optional).
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("goadssec: request timeout must be positive")
		}
		c.requestTimeout = timeout
		return nil
	}
}

// WithSecureConfig enables Secure ADS with the given authentication variant.
// Without it the client speaks plain ADS/TCP.
func WithSecureConfig(sc *SecureConfig) Option {
	return func(c *clientConfig) error {
		if sc == nil {
			return fmt.Errorf("goadssec: secure config cannot be nil")
		}
		if err := sc.validate(); err != nil {
			return err
		}
		c.secure = sc
		return nil
	}
}

// New creates a client with the given options. The client is not connected;
// call Connect.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{
		targetPort:     ams.PortPLCRuntime1,
		sourcePort:     32905,
		connectTimeout: 5 * time.Second,
		requestTimeout: 5 * time.Second,
		logger:         DefaultLogger,
		metrics:        DefaultMetrics,
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.address == "" {
		return nil, fmt.Errorf("goadssec: target address is required")
	}

	return &Client{
		cfg:     cfg,
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}, nil
}

// Connect opens the connection: TCP, then for secure modes the TLS (or PSK)
// handshake and the ConnectInfo exchange, all bounded by the connect
// timeout. On failure the client stays disconnected; Connect may be retried.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return NewStateError("connect", "already connected")
	}
	c.disconnecting = false

	opts := transport.Options{
		Address:        c.cfg.address,
		ConnectTimeout: c.cfg.connectTimeout,
		RequestTimeout: c.cfg.requestTimeout,
		Logger:         c.logger,
	}

	if sc := c.cfg.secure; sc != nil {
		switch sc.mode {
		case ModeSelfSigned, ModeSharedCA:
			opts.TLSConfig = sc.tlsConfig()
		case ModePSK:
			opts.PSKConfig = sc.pskConfig()
		}
		opts.ConnectInfo = secure.NewRequest(
			sc.connectInfoFlags(),
			c.cfg.sourceNetID,
			c.hostname(sc),
			sc.username,
			sc.password,
		)
	}

	c.metrics.ConnectionAttempts()
	c.logger.Debug("connecting", "address", c.cfg.address, "secure", c.cfg.secure != nil)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.connectTimeout)
	defer cancel()

	if sc := c.cfg.secure; sc != nil {
		c.metrics.HandshakeStarted(sc.mode.String())
	}

	conn, err := transport.Dial(ctx, opts)
	if sc := c.cfg.secure; sc != nil {
		c.metrics.HandshakeCompleted(sc.mode.String(), err == nil)
	}
	if err != nil {
		c.metrics.ConnectionFailures()
		c.logger.Error("connect failed", "address", c.cfg.address, "error", err)
		return ClassifyError(err, "connect")
	}

	c.conn = conn
	c.metrics.ConnectionSuccesses()
	c.metrics.ConnectionActive(true)
	c.logger.Info("connected", "address", c.cfg.address)
	return nil
}

// Close disconnects and fails every pending request with a uniform cause.
// A closed client may Connect again.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	c.disconnecting = true

	err := c.conn.Close()
	c.conn = nil
	c.metrics.ConnectionActive(false)
	c.logger.Info("disconnected", "address", c.cfg.address)
	return err
}

// Connected reports whether the client currently holds a connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) hostname(sc *SecureConfig) string {
	if sc.hostname != "" {
		return sc.hostname
	}
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}

func (c *Client) connection() (*transport.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		if c.disconnecting {
			return nil, NewStateError("request", "client disconnecting")
		}
		return nil, NewStateError("request", "client not connected")
	}
	return c.conn, nil
}

func (c *Client) sendRequest(ctx context.Context, commandID ads.CommandID, reqData []byte) (*ams.Frame, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	invokeID := conn.NextInvokeID()
	req := ams.NewRequestFrame(
		c.cfg.targetNetID, c.cfg.targetPort,
		c.cfg.sourceNetID, c.cfg.sourcePort,
		uint16(commandID), invokeID, reqData,
	)

	start := time.Now()
	c.metrics.OperationStarted(commandID.String())

	resp, err := conn.SendRequest(ctx, req)
	c.metrics.OperationCompleted(commandID.String(), time.Since(start), err)
	if err != nil {
		if errors.Is(err, transport.ErrClosed) {
			c.dropConnection(conn)
		}
		classified := ClassifyError(err, commandID.String())
		var ce *ClassifiedError
		if errors.As(classified, &ce) {
			c.metrics.ErrorOccurred(ce.Category, commandID.String())
		}
		return nil, classified
	}

	c.metrics.BytesSent(int64(ams.HeaderSize + len(reqData)))
	c.metrics.BytesReceived(int64(ams.HeaderSize + len(resp.Data)))

	if resp.Header.ErrorCode != 0 {
		return nil, NewADSError(commandID.String(), ads.Error(resp.Header.ErrorCode))
	}
	return resp, nil
}

// dropConnection clears the stored connection after a transport death, so a
// later Connect starts from a clean state.
func (c *Client) dropConnection(conn *transport.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
		c.metrics.ConnectionActive(false)
	}
}

// ReadDeviceInfo reads the device name and version.
func (c *Client) ReadDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	req := ads.ReadDeviceInfoRequest{}
	reqData, _ := req.MarshalBinary()

	respFrame, err := c.sendRequest(ctx, ads.CmdReadDeviceInfo, reqData)
	if err != nil {
		return nil, err
	}

	var resp ads.ReadDeviceInfoResponse
	if err := resp.UnmarshalBinary(respFrame.Data); err != nil {
		return nil, ClassifyError(err, "ReadDeviceInfo")
	}
	if resp.Result.IsError() {
		return nil, NewADSError("ReadDeviceInfo", resp.Result)
	}

	return &DeviceInfo{
		Name:         resp.DeviceName,
		MajorVersion: resp.MajorVersion,
		MinorVersion: resp.MinorVersion,
		VersionBuild: resp.VersionBuild,
	}, nil
}

// ReadState reads the ADS and device state.
func (c *Client) ReadState(ctx context.Context) (*DeviceState, error) {
	req := ads.ReadStateRequest{}
	reqData, _ := req.MarshalBinary()

	respFrame, err := c.sendRequest(ctx, ads.CmdReadState, reqData)
	if err != nil {
		return nil, err
	}

	var resp ads.ReadStateResponse
	if err := resp.UnmarshalBinary(respFrame.Data); err != nil {
		return nil, ClassifyError(err, "ReadState")
	}
	if resp.Result.IsError() {
		return nil, NewADSError("ReadState", resp.Result)
	}

	return &DeviceState{
		ADSState:    resp.ADSState,
		DeviceState: resp.DeviceState,
	}, nil
}
