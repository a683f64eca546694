package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/mrpasztoradam/goadssec/internal/ads"
	"github.com/mrpasztoradam/goadssec/internal/ams"
	"github.com/mrpasztoradam/goadssec/internal/transport"
)

// BenchmarkConnectionCreation measures connection establishment overhead
func BenchmarkConnectionCreation(b *testing.B) {
	// Always skipped: needs a real PLC at the address below
	b.Skip("Requires PLC connection - run manually with real PLC")

	opts := transport.Options{
		Address:        "192.168.1.100:48898",
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 5 * time.Second,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		conn, err := transport.Dial(context.Background(), opts)
		if err != nil {
			b.Fatalf("Failed to dial: %v", err)
		}
		conn.Close()
	}
}

// BenchmarkRequestLatency measures round-trip request latency
func BenchmarkRequestLatency(b *testing.B) {
	// Always skipped: needs a real PLC at the address below
	b.Skip("Requires PLC connection - run manually with real PLC")

	opts := transport.Options{
		Address:        "192.168.1.100:48898",
		ConnectTimeout: 5 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
	ctx := context.Background()

	conn, err := transport.Dial(ctx, opts)
	if err != nil {
		b.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	targetNetID := ams.NetID{192, 168, 1, 100, 1, 1}
	sourceNetID := ams.NetID{192, 168, 1, 10, 1, 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := ams.NewRequestFrame(
			targetNetID, ams.PortPLCRuntime1,
			sourceNetID, 32905,
			uint16(ads.CmdReadState), conn.NextInvokeID(), nil,
		)
		if _, err := conn.SendRequest(ctx, req); err != nil {
			b.Fatalf("Request failed: %v", err)
		}
	}
}

// BenchmarkFrameEncode measures encoder throughput without a network.
func BenchmarkFrameEncode(b *testing.B) {
	codec := ams.Codec{IncludeTCPHeader: true}
	frame := ams.NewRequestFrame(
		ams.NetID{10, 0, 10, 20, 1, 1}, ams.PortPLCRuntime1,
		ams.NetID{10, 10, 0, 10, 1, 1}, 32905,
		uint16(ads.CmdReadState), 1, make([]byte, 256),
	)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Encode(frame); err != nil {
			b.Fatal(err)
		}
	}
}
