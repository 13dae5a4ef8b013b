// ABOUTME: Playback state machine from URI to streaming audio
// ABOUTME: Defers until track metadata loads, then swaps in a fresh media pipeline
// Package playback drives a playback request through link resolution,
// metadata loading, and the SDK player, and relays delivered audio into
// the active media pipeline.
//
// Every method except MusicDelivery runs on the bridge's event loop.
// MusicDelivery runs on the SDK's audio goroutine and only touches the
// active pipeline.
package playback

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/sdk"
	"github.com/spotblob/spotblob/pkg/protocol"
)

// State is the playback lifecycle position
type State int

const (
	Idle State = iota
	LinkResolving
	TrackResolved
	AwaitingMetadata
	Loaded
	MediaInitializing
	Playing
	EndOfTrack
	StreamingError
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LinkResolving:
		return "link-resolving"
	case TrackResolved:
		return "track-resolved"
	case AwaitingMetadata:
		return "awaiting-metadata"
	case Loaded:
		return "loaded"
	case MediaInitializing:
		return "media-initializing"
	case Playing:
		return "playing"
	case EndOfTrack:
		return "end-of-track"
	case StreamingError:
		return "streaming-error"
	default:
		return "unknown"
	}
}

// Pipeline is the media relay for one track
type Pipeline interface {
	Init(sampleRate, channels int) error
	WriteData(data []byte)
	EndStream()
	IsAcceptingData() bool
	IsInitialized() bool
	Close()
}

// PipelineFactory builds a pipeline streaming to a local port
type PipelineFactory func(port int, duration time.Duration) Pipeline

// request is a playback request waiting for its track to load.
// Two requests are the same if URI and port match.
type request struct {
	uri   string
	port  int
	link  *sdk.Ref[sdk.Link]
	track sdk.Track
}

func (r *request) same(uri string, port int) bool {
	return r.uri == uri && r.port == port
}

// Machine is the playback state machine
type Machine struct {
	session     sdk.Session
	out         protocol.Sender
	newPipeline PipelineFactory
	post        func(func())
	log         *zap.Logger

	state   State
	pending []*request

	// mu guards active, which the audio goroutine reads
	mu     sync.Mutex
	active Pipeline

	// draining finished its track and is flushing queued audio
	draining Pipeline
}

// New creates a machine. post schedules work on the event loop; it is
// used to report pipeline failures seen on the audio goroutine.
func New(session sdk.Session, out protocol.Sender, newPipeline PipelineFactory, post func(func()), log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		session:     session,
		out:         out,
		newPipeline: newPipeline,
		post:        post,
		log:         log.Named("playback"),
	}
}

// State returns the current lifecycle state
func (m *Machine) State() State {
	return m.state
}

// PendingCount returns how many requests wait for metadata
func (m *Machine) PendingCount() int {
	return len(m.pending)
}

// HasPipeline reports whether a media pipeline is active
func (m *Machine) HasPipeline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

func (m *Machine) sendError(msg string) {
	m.log.Warn("playback error", zap.String("error", msg))
	err := m.out.Send(&protocol.Message{PlaybackError: &protocol.PlaybackError{Error: msg}})
	if err != nil {
		m.log.Error("failed to send playback error", zap.Error(err))
	}
}

// Start begins a playback request
func (m *Machine) Start(req *protocol.PlaybackRequest) {
	uri, port := req.TrackURI, int(req.MediaPort)
	m.log.Info("playback requested", zap.String("uri", uri), zap.Int("port", port))

	m.state = LinkResolving
	link := m.session.LinkFromString(uri)
	if link == nil {
		m.state = Idle
		m.sendError(fmt.Sprintf("Invalid Spotify URI: %s", uri))
		return
	}

	track := link.AsTrack()
	if track == nil {
		link.Release()
		m.state = Idle
		m.sendError(fmt.Sprintf("Spotify URI was not a track: %s", uri))
		return
	}
	m.state = TrackResolved

	for _, r := range m.pending {
		if r.same(uri, port) {
			// a retry of something already waiting; keep the first
			link.Release()
			m.state = AwaitingMetadata
			m.tryPlay(r)
			return
		}
	}

	r := &request{uri: uri, port: port, link: sdk.Own(link), track: track}
	m.pending = append(m.pending, r)
	m.state = AwaitingMetadata
	m.tryPlay(r)
}

// MetadataUpdated retries every request still waiting for its track
func (m *Machine) MetadataUpdated() {
	for _, r := range slices.Clone(m.pending) {
		m.tryPlay(r)
	}
}

func (m *Machine) remove(r *request) {
	m.pending = slices.DeleteFunc(m.pending, func(p *request) bool { return p == r })
	r.link.Release()
}

func (m *Machine) tryPlay(r *request) {
	if !r.track.IsLoaded() {
		return
	}
	m.state = Loaded

	if err := m.session.PlayerLoad(r.track); err != nil {
		m.remove(r)
		m.state = Idle
		m.sendError(fmt.Sprintf("Spotify playback error: %s", err.Error()))
		return
	}

	m.state = MediaInitializing
	m.teardown()

	pipeline := m.newPipeline(r.port, r.track.Duration())
	m.mu.Lock()
	m.active = pipeline
	m.mu.Unlock()

	if err := m.session.PlayerPlay(true); err != nil {
		m.log.Warn("player refused to start", zap.Error(err))
	}
	m.remove(r)
	m.state = Playing

	m.log.Info("playback started",
		zap.String("uri", r.uri),
		zap.Duration("duration", r.track.Duration()))
}

// teardown closes the active pipeline and any still draining
func (m *Machine) teardown() {
	m.mu.Lock()
	p := m.active
	m.active = nil
	m.mu.Unlock()

	if p != nil {
		p.Close()
	}
	if m.draining != nil {
		m.draining.Close()
		m.draining = nil
	}
}

// MusicDelivery relays PCM into the active pipeline. It returns the
// frames consumed; 0 makes the SDK deliver the same audio again.
func (m *Machine) MusicDelivery(format sdk.AudioFormat, frames []byte, numFrames int) int {
	if numFrames == 0 {
		return 0
	}

	m.mu.Lock()
	p := m.active
	m.mu.Unlock()
	if p == nil {
		return 0
	}

	if !p.IsInitialized() {
		if err := p.Init(format.SampleRate, format.Channels); err != nil {
			m.post(func() { m.pipelineFailed(p, err) })
			return 0
		}
	}

	if !p.IsAcceptingData() {
		return 0
	}

	p.WriteData(frames[:numFrames*format.FrameSize()])
	return numFrames
}

// pipelineFailed stops playback if p is still the active pipeline
func (m *Machine) pipelineFailed(p Pipeline, err error) {
	m.mu.Lock()
	current := m.active == p
	m.mu.Unlock()
	if !current {
		return
	}

	m.teardown()
	m.session.PlayerUnload()
	m.state = Idle
	m.sendError(fmt.Sprintf("Media pipeline error: %v", err))
}

// EndOfTrack lets the pipeline flush its queued audio, then retires it
func (m *Machine) EndOfTrack() {
	m.state = EndOfTrack

	m.mu.Lock()
	p := m.active
	m.active = nil
	m.mu.Unlock()

	if p != nil {
		p.EndStream()
		if m.draining != nil {
			m.draining.Close()
		}
		m.draining = p
	}
	m.session.PlayerUnload()
	m.state = Idle
	m.log.Info("end of track")
}

// StreamingError aborts the current track
func (m *Machine) StreamingError(err error) {
	m.state = StreamingError
	m.teardown()
	m.session.PlayerUnload()
	m.state = Idle
	m.sendError(err.Error())
}

// Pause pauses or resumes the SDK player
func (m *Machine) Pause(paused bool) {
	if err := m.session.PlayerPlay(!paused); err != nil {
		m.log.Warn("pause failed", zap.Bool("paused", paused), zap.Error(err))
	}
}

// Seek is accepted but not acted on yet
func (m *Machine) Seek(req *protocol.SeekRequest) {
	m.log.Info("seek requested, ignoring", zap.Duration("offset", time.Duration(req.OffsetNsec)))
}

// Close stops playback and drops every waiting request
func (m *Machine) Close() {
	m.teardown()
	for _, r := range m.pending {
		r.link.Release()
	}
	m.pending = nil
	m.state = Idle
}
