package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/mrpasztoradam/goadssec"
)

// Middleware provides JSON-based operations over a Secure ADS client
type Middleware struct {
	client    *goadssec.Client
	config    *Config
	startTime time.Time
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(client *goadssec.Client, config *Config) *Middleware {
	return &Middleware{
		client:    client,
		config:    config,
		startTime: time.Now(),
	}
}

// Connect establishes the ADS connection.
func (m *Middleware) Connect(ctx context.Context) error {
	return m.client.Connect(ctx)
}

// Close tears the ADS connection down.
func (m *Middleware) Close() error {
	return m.client.Close()
}

// GetHealth returns the health status
func (m *Middleware) GetHealth() *HealthResponse {
	connected := m.client.Connected()
	status := "ok"
	if !connected {
		status = "degraded"
	}
	return &HealthResponse{
		Status:    status,
		Connected: connected,
		Timestamp: time.Now(),
	}
}

// GetInfo returns server and PLC connection information
func (m *Middleware) GetInfo() *InfoResponse {
	return &InfoResponse{
		Target:       m.config.PLC.Target,
		AMSNetID:     m.config.PLC.AMSNetID,
		SourceNetID:  m.config.PLC.SourceNetID,
		AMSPort:      m.config.PLC.AMSPort,
		SecureMode:   m.config.PLC.Secure.Mode,
		Connected:    m.client.Connected(),
		ServerUptime: time.Since(m.startTime).String(),
	}
}

// GetDeviceInfo reads the target's device name and version
func (m *Middleware) GetDeviceInfo(ctx context.Context) *DeviceInfoResponse {
	info, err := m.client.ReadDeviceInfo(ctx)
	if err != nil {
		return &DeviceInfoResponse{
			Success: false,
			Error:   err.Error(),
		}
	}

	version := fmt.Sprintf("%d.%d.%d", info.MajorVersion, info.MinorVersion, info.VersionBuild)
	return &DeviceInfoResponse{
		Success:      true,
		Name:         info.Name,
		MajorVersion: info.MajorVersion,
		MinorVersion: info.MinorVersion,
		VersionBuild: info.VersionBuild,
		Version:      version,
	}
}

// GetState retrieves the current PLC state
func (m *Middleware) GetState(ctx context.Context) *StateResponse {
	state, err := m.client.ReadState(ctx)
	if err != nil {
		return &StateResponse{
			Success: false,
			Error:   err.Error(),
		}
	}

	return &StateResponse{
		Success:      true,
		ADSState:     uint16(state.ADSState),
		ADSStateName: state.ADSState.String(),
		DeviceState:  state.DeviceState,
	}
}

// GetVersion returns the library version information
func (m *Middleware) GetVersion() *VersionResponse {
	info := goadssec.GetBuildInfo()
	return &VersionResponse{
		Success: true,
		Library: info.String(),
		Version: info.Version,
	}
}
