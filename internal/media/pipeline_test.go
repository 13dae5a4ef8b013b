// ABOUTME: Tests for the media relay pipeline
// ABOUTME: Timestamp math, packet framing, init contract, and backpressure drops
package media

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestBytesToDuration(t *testing.T) {
	tests := []struct {
		name     string
		n        int64
		byteRate int64
		want     time.Duration
	}{
		{"one second at cd rate", 176400, 176400, time.Second},
		{"four bytes rounds up", 4, 176400, 22676},
		{"zero bytes", 0, 176400, 0},
		{"no rate", 100, 0, 0},
		{"one hour", 176400 * 3600, 176400, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bytesToDuration(tt.n, tt.byteRate); got != tt.want {
				t.Errorf("bytesToDuration(%d, %d) = %d, want %d", tt.n, tt.byteRate, got, tt.want)
			}
		})
	}
}

func TestStreamInfoPacket(t *testing.T) {
	info := StreamInfo{SampleRate: 44100, Channels: 2, BitsPerSample: 16, SizeHint: 176400 * 3}

	pr, pw := io.Pipe()
	go func() {
		pw.Write(AppendPacket(nil, FormatPacket(info)))
		pw.Close()
	}()

	pkt, err := ReadPacket(pr)
	if err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}
	got, err := ParseStreamInfo(pkt)
	if err != nil {
		t.Fatalf("ParseStreamInfo failed: %v", err)
	}
	if got != info {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestReadPacketRejectsUnknownKind(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		pw.Write(AppendPacket(nil, Packet{Kind: 9}))
		pw.Close()
	}()
	if _, err := ReadPacket(pr); !errors.Is(err, ErrBadPacket) {
		t.Errorf("expected ErrBadPacket, got %v", err)
	}
}

func TestSourceSignals(t *testing.T) {
	var needs, enoughs int
	s := newSource(100, 20, func() { needs++ }, func() { enoughs++ })

	if err := s.push(Packet{Payload: make([]byte, 60)}); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if enoughs != 0 {
		t.Fatalf("enough fired below bound")
	}
	s.push(Packet{Payload: make([]byte, 60)})
	if enoughs != 1 {
		t.Fatalf("expected 1 enough signal, got %d", enoughs)
	}

	// first pull asks for data, and draining to 60 bytes is not low enough
	s.pull()
	if needs != 1 {
		t.Fatalf("expected first pull to signal need, got %d", needs)
	}
	s.pull()
	if needs != 2 {
		t.Errorf("expected need after draining, got %d", needs)
	}

	s.endOfStream()
	if _, ok := s.pull(); ok {
		t.Error("pull after drained end of stream returned a packet")
	}
	if err := s.push(Packet{}); err == nil {
		t.Error("push after end of stream succeeded")
	}
}

// pipeDial hands the pipeline one end of a net.Pipe
func pipeDial(conn net.Conn) DialFunc {
	return func(context.Context, string, string) (net.Conn, error) {
		return conn, nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func readAll(t *testing.T, r io.Reader) <-chan []Packet {
	out := make(chan []Packet, 1)
	go func() {
		var pkts []Packet
		for {
			p, err := ReadPacket(r)
			if err != nil {
				out <- pkts
				return
			}
			pkts = append(pkts, p)
			if p.Kind == PacketEOS {
				out <- pkts
				return
			}
		}
	}()
	return out
}

func TestPipelineStampsChunks(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	p := New(Config{
		Port:             4000,
		ExpectedDuration: 2 * time.Second,
		MaxQueueBytes:    1 << 20,
		Dial:             pipeDial(client),
		Logger:           zaptest.NewLogger(t),
	})
	defer p.Close()

	packets := readAll(t, server)

	if err := p.Init(44100, 2); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	waitFor(t, "sink to ask for data", p.IsAcceptingData)

	if _, err := p.Position(); err != nil {
		t.Fatalf("Position after Init: %v", err)
	}

	p.WriteData(make([]byte, 176400))
	p.WriteData([]byte{1, 2, 3, 4})
	p.EndStream()

	if pos, _ := p.Position(); pos != time.Second+22676 {
		t.Errorf("Position() = %d, want %d", pos, time.Second+22676)
	}

	var pkts []Packet
	select {
	case pkts = <-packets:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out reading packets")
	}

	if len(pkts) != 4 {
		t.Fatalf("expected 4 packets, got %d", len(pkts))
	}

	info, err := ParseStreamInfo(pkts[0])
	if err != nil {
		t.Fatalf("first packet: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 2 || info.BitsPerSample != 16 {
		t.Errorf("unexpected stream info %+v", info)
	}
	if info.SizeHint != 176400*2 {
		t.Errorf("SizeHint = %d, want %d", info.SizeHint, 176400*2)
	}

	first, second := pkts[1], pkts[2]
	if first.Timestamp != 0 || first.Duration != time.Second {
		t.Errorf("first chunk ts=%d dur=%d", first.Timestamp, first.Duration)
	}
	if second.Timestamp != 1_000_000_000 {
		t.Errorf("second chunk ts = %d, want 1000000000", second.Timestamp)
	}
	if second.Duration != 22676 {
		t.Errorf("second chunk duration = %d, want 22676", second.Duration)
	}
	if string(second.Payload) != "\x01\x02\x03\x04" {
		t.Errorf("second chunk payload = %v", second.Payload)
	}
	if pkts[3].Kind != PacketEOS {
		t.Errorf("last packet kind = %d, want EOS", pkts[3].Kind)
	}
}

func TestPipelineInitOnce(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	go io.Copy(io.Discard, server)

	p := New(Config{Dial: pipeDial(client), Logger: zaptest.NewLogger(t)})
	defer p.Close()

	if err := p.Init(44100, 2); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := p.Init(44100, 2); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init = %v, want ErrAlreadyInitialized", err)
	}
}

func TestPipelineInitDialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	p := New(Config{
		Dial: func(context.Context, string, string) (net.Conn, error) {
			return nil, dialErr
		},
		Logger: zaptest.NewLogger(t),
	})

	if err := p.Init(44100, 2); !errors.Is(err, dialErr) {
		t.Fatalf("Init = %v, want dial error", err)
	}
	if p.IsInitialized() {
		t.Error("pipeline reports initialized after failed Init")
	}
	if _, err := p.Position(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Position() = %v, want ErrNotInitialized", err)
	}

	// uninitialized pipelines ignore writes and close cleanly
	p.WriteData([]byte{1, 2})
	p.EndStream()
	p.Close()
}

func TestPipelineRejectsBadFormat(t *testing.T) {
	p := New(Config{Logger: zaptest.NewLogger(t)})
	if err := p.Init(0, 2); err == nil {
		t.Error("Init accepted a zero sample rate")
	}
}

func TestPipelineBackpressureDrop(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	p := New(Config{
		MaxQueueBytes: 100,
		Dial:          pipeDial(client),
		Logger:        zaptest.NewLogger(t),
	})
	defer p.Close()

	if err := p.Init(44100, 2); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// take the format packet so the sink reaches its first pull
	if pkt, err := ReadPacket(server); err != nil || pkt.Kind != PacketFormat {
		t.Fatalf("expected format packet, got %+v, %v", pkt, err)
	}
	waitFor(t, "first need-data", p.IsAcceptingData)

	// the sink pulls this one and then blocks writing it
	p.WriteData(make([]byte, 100))
	waitFor(t, "sink to drain the first chunk", p.IsAcceptingData)

	// this fills the queue while the sink is stuck
	p.WriteData(make([]byte, 100))
	if p.IsAcceptingData() {
		t.Fatal("pipeline still accepting with a full queue")
	}

	p.WriteData(make([]byte, 100))
	p.WriteData(make([]byte, 100))
	if got := p.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}

	p.EndStream()

	audio := 0
	for {
		pkt, err := ReadPacket(server)
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		if pkt.Kind == PacketEOS {
			break
		}
		audio++
	}
	if audio != 2 {
		t.Errorf("sink received %d audio chunks, want 2", audio)
	}
}

func TestPipelineInitAfterClose(t *testing.T) {
	dialed := false
	p := New(Config{
		Dial: func(context.Context, string, string) (net.Conn, error) {
			dialed = true
			return nil, errors.New("unreachable")
		},
		Logger: zaptest.NewLogger(t),
	})
	p.Close()

	if err := p.Init(44100, 2); !errors.Is(err, ErrClosed) {
		t.Errorf("Init after Close = %v, want ErrClosed", err)
	}
	if dialed {
		t.Error("closed pipeline dialed its sink")
	}
}

func TestPipelineCloseDuringDial(t *testing.T) {
	dialing := make(chan struct{})
	p := New(Config{
		DialTimeout: time.Minute,
		Dial: func(ctx context.Context, _, _ string) (net.Conn, error) {
			close(dialing)
			<-ctx.Done()
			return nil, ctx.Err()
		},
		Logger: zaptest.NewLogger(t),
	})

	initErr := make(chan error, 1)
	go func() { initErr <- p.Init(44100, 2) }()
	<-dialing

	// the lock is free while the sink connects
	if p.IsInitialized() {
		t.Fatal("pipeline initialized mid-dial")
	}
	p.WriteData([]byte{1, 2})

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on an in-flight dial")
	}

	select {
	case err := <-initErr:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Init = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Init did not return after Close")
	}
	if p.IsInitialized() {
		t.Error("closed pipeline reports initialized")
	}
}

func TestPipelineDropsConnAfterClose(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	dialing := make(chan struct{})
	release := make(chan struct{})
	p := New(Config{
		// ignores ctx so the connection arrives after Close
		Dial: func(context.Context, string, string) (net.Conn, error) {
			close(dialing)
			<-release
			return client, nil
		},
		Logger: zaptest.NewLogger(t),
	})

	initErr := make(chan error, 1)
	go func() { initErr <- p.Init(44100, 2) }()
	<-dialing
	p.Close()
	close(release)

	if err := <-initErr; !errors.Is(err, ErrClosed) {
		t.Fatalf("Init = %v, want ErrClosed", err)
	}
	// the late connection was closed, not handed to a sink
	server.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := server.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("server read = %v, want EOF from a closed pipe", err)
	}
}
