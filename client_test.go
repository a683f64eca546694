package goadssec

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/mrpasztoradam/goadssec/internal/ads"
	"github.com/mrpasztoradam/goadssec/internal/ams"
)

// fakePLC is a minimal plain-ADS server answering ReadDeviceInfo and
// ReadState on the AMS/TCP framing.
type fakePLC struct {
	t  *testing.T
	ln net.Listener

	mu          sync.Mutex
	headerError uint32 // injected into every response header when non-zero
}

func newFakePLC(t *testing.T) *fakePLC {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	p := &fakePLC{t: t, ln: ln}
	go p.acceptLoop()
	t.Cleanup(func() { ln.Close() })
	return p
}

func (p *fakePLC) addr() string {
	return p.ln.Addr().String()
}

func (p *fakePLC) setHeaderError(code uint32) {
	p.mu.Lock()
	p.headerError = code
	p.mu.Unlock()
}

func (p *fakePLC) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		go p.serve(conn)
	}
}

func (p *fakePLC) serve(conn net.Conn) {
	defer conn.Close()

	codec := ams.Codec{IncludeTCPHeader: true}
	dec := ams.NewDecoder(true)
	buf := make([]byte, 16<<10)

	for {
		frame, err := dec.Next()
		if err != nil {
			return
		}
		if frame == nil {
			n, err := conn.Read(buf)
			if n > 0 {
				dec.Feed(buf[:n])
			}
			if err != nil && n == 0 {
				return
			}
			continue
		}

		resp := p.respond(frame)
		out, err := codec.Encode(resp)
		if err != nil {
			return
		}
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func (p *fakePLC) respond(req *ams.Frame) *ams.Frame {
	var data []byte
	switch ads.CommandID(req.Header.CommandID) {
	case ads.CmdReadDeviceInfo:
		data = make([]byte, 24)
		data[4] = 3
		data[5] = 1
		binary.LittleEndian.PutUint16(data[6:8], 4024)
		copy(data[8:24], "TestPLC")
	case ads.CmdReadState:
		data = make([]byte, 8)
		binary.LittleEndian.PutUint16(data[4:6], uint16(ads.StateRun))
		binary.LittleEndian.PutUint16(data[6:8], 9)
	}

	p.mu.Lock()
	headerError := p.headerError
	p.mu.Unlock()

	return &ams.Frame{
		Header: ams.Header{
			TargetNetID: req.Header.SourceNetID,
			TargetPort:  req.Header.SourcePort,
			SourceNetID: req.Header.TargetNetID,
			SourcePort:  req.Header.TargetPort,
			CommandID:   req.Header.CommandID,
			StateFlags:  ams.StateFlagsResponse,
			ErrorCode:   headerError,
			InvokeID:    req.Header.InvokeID,
		},
		Data: data,
	}
}

func newTestClient(t *testing.T, plc *fakePLC) *Client {
	t.Helper()
	client, err := New(
		WithTarget(plc.addr()),
		WithAMSNetID(ams.NetID{10, 0, 10, 20, 1, 1}),
		WithSourceNetID(ams.NetID{10, 10, 0, 10, 1, 1}),
		WithConnectTimeout(2*time.Second),
		WithRequestTimeout(2*time.Second),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewValidation(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("New accepted missing target")
	}
	if _, err := New(WithTarget("")); err == nil {
		t.Error("New accepted empty target")
	}
	if _, err := New(WithTarget("host:1"), WithRequestTimeout(0)); err == nil {
		t.Error("New accepted zero request timeout")
	}
	if _, err := New(WithTarget("host:1"), WithSecureConfig(nil)); err == nil {
		t.Error("New accepted nil secure config")
	}
	if _, err := New(WithTarget("host:1"), WithSecureConfig(&SecureConfig{})); err == nil {
		t.Error("New accepted invalid secure config")
	}
}

func TestClientReadDeviceInfoAndState(t *testing.T) {
	plc := newFakePLC(t)
	client := newTestClient(t, plc)

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	info, err := client.ReadDeviceInfo(ctx)
	if err != nil {
		t.Fatalf("ReadDeviceInfo: %v", err)
	}
	if info.Name != "TestPLC" || info.MajorVersion != 3 || info.MinorVersion != 1 || info.VersionBuild != 4024 {
		t.Errorf("device info = %+v", info)
	}

	state, err := client.ReadState(ctx)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if state.ADSState != ads.StateRun || state.DeviceState != 9 {
		t.Errorf("state = %+v", state)
	}
}

func TestClientNotConnected(t *testing.T) {
	plc := newFakePLC(t)
	client := newTestClient(t, plc)

	_, err := client.ReadState(context.Background())
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Category != ErrorCategoryState {
		t.Fatalf("ReadState before Connect = %v, want state error", err)
	}
}

func TestClientDoubleConnect(t *testing.T) {
	plc := newFakePLC(t)
	client := newTestClient(t, plc)

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := client.Connect(ctx); err == nil {
		t.Error("second Connect succeeded")
	}
}

func TestClientReconnectAfterClose(t *testing.T) {
	plc := newFakePLC(t)
	client := newTestClient(t, plc)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := client.Connect(ctx); err != nil {
			t.Fatalf("Connect %d: %v", i, err)
		}
		if _, err := client.ReadState(ctx); err != nil {
			t.Fatalf("ReadState %d: %v", i, err)
		}
		if err := client.Close(); err != nil {
			t.Fatalf("Close %d: %v", i, err)
		}
		if client.Connected() {
			t.Fatalf("still connected after Close %d", i)
		}
	}
}

func TestClientHeaderErrorSurfacedAsADSError(t *testing.T) {
	plc := newFakePLC(t)
	client := newTestClient(t, plc)

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	plc.setHeaderError(uint32(ads.ErrTargetPortNotFound))

	_, err := client.ReadState(ctx)
	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T", err)
	}
	if ce.Category != ErrorCategoryADS {
		t.Errorf("category = %v, want ads", ce.Category)
	}
	var adsErr ads.Error
	if !errors.As(err, &adsErr) || adsErr != ads.ErrTargetPortNotFound {
		t.Errorf("unwrapped = %v, want target port not found", err)
	}

	// Application errors do not close the connection.
	plc.setHeaderError(0)
	if _, err := client.ReadState(ctx); err != nil {
		t.Errorf("ReadState after ADS error: %v", err)
	}
}

func TestClientConcurrentOperations(t *testing.T) {
	plc := newFakePLC(t)
	client := newTestClient(t, plc)

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, 2*n)

	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			state, err := client.ReadState(ctx)
			if err == nil && state.ADSState != ads.StateRun {
				err = errors.New("wrong state payload")
			}
			errs[2*i] = err
		}(i)
		go func(i int) {
			defer wg.Done()
			info, err := client.ReadDeviceInfo(ctx)
			if err == nil && info.Name != "TestPLC" {
				err = errors.New("wrong device info payload")
			}
			errs[2*i+1] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("operation %d: %v", i, err)
		}
	}
}

func TestClientConnectFailure(t *testing.T) {
	client, err := New(
		WithTarget("127.0.0.1:1"), // nothing listens here
		WithAMSNetID(ams.NetID{1, 2, 3, 4, 1, 1}),
		WithConnectTimeout(500*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("Connect succeeded against a closed port")
	}
	if client.Connected() {
		t.Error("client claims connected after failed Connect")
	}

	// The failure leaves the client reusable: a retry dials again instead of
	// being refused as already connected.
	err = client.Connect(context.Background())
	var ce *ClassifiedError
	if err == nil || (errors.As(err, &ce) && ce.Category == ErrorCategoryState) {
		t.Errorf("retry after failed Connect = %v, want a fresh dial failure", err)
	}

	// A live server still accepts a new client afterwards.
	plc := newFakePLC(t)
	client2 := newTestClient(t, plc)
	if err := client2.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}
