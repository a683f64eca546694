package ams

// State flag bits for the StateFlags field in AMS Header.
const (
	// StateFlagResponse indicates a response packet (bit 0).
	// 0 = Request, 1 = Response
	StateFlagResponse uint16 = 0x0001

	// StateFlagADS must be set for ADS commands (bit 2).
	StateFlagADS uint16 = 0x0004

	// StateFlagUDP indicates UDP protocol (bit 7).
	// 0 = TCP, 1 = UDP
	StateFlagUDP uint16 = 0x0080
)

// Predefined state flag combinations for common use cases.
const (
	// StateFlagsRequest represents an ADS request (0x0004).
	StateFlagsRequest = StateFlagADS

	// StateFlagsResponse represents an ADS response (0x0005).
	StateFlagsResponse = StateFlagADS | StateFlagResponse
)

// Common AMS port numbers used by TwinCAT runtime.
const (
	PortLogger        Port = 100   // Logger
	PortEventLogger   Port = 110   // EventLogger
	PortRouter        Port = 1     // AMS Router
	PortSystemService Port = 10000 // System Service
	PortPLCRuntime1   Port = 851   // First PLC runtime
	PortPLCRuntime2   Port = 852   // Second PLC runtime
	PortPLCRuntime3   Port = 853   // Third PLC runtime
	PortPLCRuntime4   Port = 854   // Fourth PLC runtime
)

// TCP ports used by the ADS transports.
const (
	// DefaultTCPPort is the plain ADS/TCP port.
	DefaultTCPPort = 48898

	// DefaultSecurePort is the Secure ADS (TLS tunnel) port.
	DefaultSecurePort = 8016
)
