// ABOUTME: Media relay pipeline for one track's PCM stream
// ABOUTME: Push source, packet framing, and a TCP sink to a local player port
// Package media forwards PCM delivered by the streaming SDK to a local
// player over a dedicated TCP connection.
//
// A Pipeline is created per track and initialized on the first audio
// delivery, once the sample format is known. Each chunk is framed with
// its presentation timestamp and duration derived from the running byte
// offset.
package media

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// BytesPerSample is fixed: delivered audio is 16-bit
	BytesPerSample = 2

	DefaultHost        = "127.0.0.1"
	DefaultMinPercent  = 20
	DefaultDialTimeout = 2 * time.Second
)

var (
	ErrAlreadyInitialized = errors.New("media: pipeline already initialized")
	ErrNotInitialized     = errors.New("media: pipeline not initialized")
	ErrClosed             = errors.New("media: pipeline closed")
)

// DialFunc opens the sink connection
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config holds pipeline configuration
type Config struct {
	Host string
	Port int

	// ExpectedDuration sizes the stream hint sent to the sink
	ExpectedDuration time.Duration

	// MaxQueueBytes bounds buffered audio; 0 means one second at the
	// stream's byte rate
	MaxQueueBytes int
	MinPercent    int
	DialTimeout   time.Duration

	Dial   DialFunc
	Logger *zap.Logger
}

// Pipeline relays one PCM stream to a sink
type Pipeline struct {
	config Config
	id     string
	log    *zap.Logger

	mu           sync.Mutex
	initialized  bool
	initializing bool
	closed       bool
	byteRate     int64
	offset       int64
	src          *source
	conn         net.Conn
	cancelDial   context.CancelFunc

	accepting atomic.Bool
	dropped   atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// New creates an uninitialized pipeline
func New(config Config) *Pipeline {
	if config.Host == "" {
		config.Host = DefaultHost
	}
	if config.MinPercent <= 0 || config.MinPercent >= 100 {
		config.MinPercent = DefaultMinPercent
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.Dial == nil {
		var d net.Dialer
		config.Dial = d.DialContext
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	id := uuid.New().String()
	return &Pipeline{
		config: config,
		id:     id,
		log:    log.Named("media").With(zap.String("stream", id), zap.Int("port", config.Port)),
		done:   make(chan struct{}),
	}
}

// Init builds the source and connects the sink. It may succeed once.
// On failure everything partially built is torn down. The dial runs
// without holding the pipeline lock; Close cancels it.
func (p *Pipeline) Init(sampleRate, channels int) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.initialized || p.initializing {
		p.mu.Unlock()
		return ErrAlreadyInitialized
	}
	if sampleRate <= 0 || channels <= 0 {
		p.mu.Unlock()
		return fmt.Errorf("media: invalid format %d Hz x %d channels", sampleRate, channels)
	}

	byteRate := int64(sampleRate) * int64(channels) * BytesPerSample
	ctx, cancel := context.WithTimeout(context.Background(), p.config.DialTimeout)
	defer cancel()
	p.initializing = true
	p.cancelDial = cancel
	p.mu.Unlock()

	maxBytes := p.config.MaxQueueBytes
	if maxBytes <= 0 {
		maxBytes = int(byteRate)
	}
	src := newSource(maxBytes, p.config.MinPercent,
		func() { p.accepting.Store(true) },
		func() { p.accepting.Store(false) },
	)

	addr := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))
	conn, err := p.config.Dial(ctx, "tcp", addr)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.initializing = false
	p.cancelDial = nil

	if p.closed {
		if conn != nil {
			conn.Close()
		}
		src.close()
		return ErrClosed
	}
	if err != nil {
		src.close()
		return fmt.Errorf("media: connect sink %s: %w", addr, err)
	}

	info := StreamInfo{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: BytesPerSample * 8,
		SizeHint:      uint64(byteRate * p.config.ExpectedDuration.Milliseconds() / 1000),
	}

	p.byteRate = byteRate
	p.src = src
	p.conn = conn
	p.initialized = true

	go p.run(conn, src, info)

	p.log.Info("media pipeline initialized",
		zap.Int("sample_rate", sampleRate),
		zap.Int("channels", channels),
		zap.Int64("byte_rate", p.byteRate),
		zap.Uint64("size_hint", info.SizeHint))
	return nil
}

// WriteData stamps data with its position in the stream and queues it.
// It is a no-op before Init, after Close, and while the sink has asked
// for no more data.
func (p *Pipeline) WriteData(data []byte) {
	if len(data) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	if !p.accepting.Load() {
		p.dropped.Add(1)
		return
	}

	chunk := make([]byte, len(data))
	copy(chunk, data)

	pkt := Packet{
		Kind:      PacketAudio,
		Timestamp: bytesToDuration(p.offset, p.byteRate),
		Duration:  bytesToDuration(int64(len(chunk)), p.byteRate),
		Payload:   chunk,
	}
	if err := p.src.push(pkt); err != nil {
		return
	}
	p.offset += int64(len(chunk))
}

// EndStream signals end of stream; queued audio is still delivered
func (p *Pipeline) EndStream() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	p.src.endOfStream()
}

// IsAcceptingData reports the sink's backpressure state
func (p *Pipeline) IsAcceptingData() bool {
	return p.accepting.Load()
}

func (p *Pipeline) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Position returns the stream time written so far
func (p *Pipeline) Position() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return 0, ErrNotInitialized
	}
	return bytesToDuration(p.offset, p.byteRate), nil
}

// Dropped returns how many writes were refused under backpressure
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

// Done is closed once the sink connection has finished
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Close stops the pipeline immediately, discarding queued audio
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		initialized := p.initialized
		src := p.src
		conn := p.conn
		if p.cancelDial != nil {
			p.cancelDial()
		}
		p.mu.Unlock()

		p.accepting.Store(false)
		if !initialized {
			close(p.done)
			return
		}
		src.close()
		conn.Close()
		<-p.done
		p.log.Debug("media pipeline closed")
	})
}

// run is the sink: it writes the format header then every queued packet
func (p *Pipeline) run(conn net.Conn, src *source, info StreamInfo) {
	defer close(p.done)
	defer conn.Close()

	buf := AppendPacket(nil, FormatPacket(info))
	if _, err := conn.Write(buf); err != nil {
		p.log.Warn("sink write failed", zap.Error(err))
		src.close()
		p.accepting.Store(false)
		return
	}

	packets := 0
	for {
		pkt, ok := src.pull()
		if !ok {
			break
		}
		buf = AppendPacket(buf[:0], pkt)
		if _, err := conn.Write(buf); err != nil {
			p.log.Warn("sink write failed", zap.Error(err), zap.Int("packets", packets))
			src.close()
			p.accepting.Store(false)
			return
		}
		packets++
	}

	if src.reachedEOS() {
		p.mu.Lock()
		end := bytesToDuration(p.offset, p.byteRate)
		p.mu.Unlock()

		buf = AppendPacket(buf[:0], Packet{Kind: PacketEOS, Timestamp: end})
		if _, err := conn.Write(buf); err != nil {
			p.log.Debug("eos write failed", zap.Error(err))
		}
		p.log.Info("media stream finished", zap.Int("packets", packets), zap.Duration("length", end))
	}
}
