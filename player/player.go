package player

import (
	"sync"

	"github.com/darkhz/vidbridge/bridge"
)

// Engine describes a native playback engine. Implementations are
// opaque to the rest of the system; all coordination happens through
// commands and the Events stream.
type Engine interface {
	Load(uri string, headers map[string]string, autoplay bool) error

	Play() error
	Pause() error
	Stop() error
	SeekTo(milliseconds int64) error

	SetVolume(volume float64) error
	SetSpeed(speed float64) error

	// SwitchURL switches playback to another variant URL of the same
	// media, resuming from the given position.
	SwitchURL(uri string, position int64) error

	SetAudioTrack(id string) error
	SetSubtitleTrack(id string) error
	AudioTracks() []bridge.Track
	SubtitleTracks() []bridge.Track

	Position() int64
	Duration() int64
	Buffered() int64

	Events() <-chan Notification
	Close()
}

// NotificationType tags a playback notification fanned out to every
// surface sharing a handle.
type NotificationType int

const (
	NoticeNone NotificationType = iota
	NoticeLoading
	NoticeReady
	NoticePlay
	NoticePause
	NoticeBuffering
	NoticeEnded
	NoticeFailed
	NoticeSeek
	NoticeSpeed
	NoticeVolume
	NoticeQuality
	NoticeAudioTrack
	NoticeSubtitleTrack
	NoticeProgress
	NoticeFullscreen
	NoticePiPStart
	NoticePiPStop
	NoticeStopped
)

// Notification carries one playback state change. Engines emit the
// readiness/progress subset; view controllers inject the rest when
// executing commands so that every sharing surface observes them.
type Notification struct {
	Type NotificationType

	Position int64
	Duration int64
	Buffered int64

	Speed  float64
	Volume float64

	Message    string
	Fullscreen bool

	Quality   *bridge.Quality
	Qualities []bridge.Quality

	Track  *bridge.Track
	Tracks []bridge.Track
}

// Snapshot is the last-known playback state of a handle, used to
// synthesize current state for surfaces joining an existing player.
type Snapshot struct {
	URL     string
	Loaded  bool
	Loading bool
	Playing bool

	Position int64
	Duration int64
	Buffered int64

	Speed  float64
	Volume float64

	Qualities      []bridge.Quality
	CurrentQuality *bridge.Quality

	AudioTracks    []bridge.Track
	SubtitleTracks []bridge.Track
}

// Handle wraps an Engine shared by one or more surfaces. It owns the
// engine's notification pump, fans notifications out to per-surface
// observers and tracks the engine's last-known snapshot.
type Handle struct {
	engine Engine

	mu        sync.Mutex
	snap      Snapshot
	observers map[int]func(Notification)
	ready     bool
	closed    bool
}

// NewHandle wraps an engine and starts its notification pump.
func NewHandle(engine Engine) *Handle {
	h := &Handle{
		engine:    engine,
		observers: make(map[int]func(Notification)),
		snap:      Snapshot{Speed: 1, Volume: 1},
	}

	go h.pump()

	return h
}

// Engine returns the wrapped engine.
func (h *Handle) Engine() Engine {
	return h.engine
}

// Snapshot returns a copy of the last-known playback state.
func (h *Handle) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.snap
}

// Update mutates the snapshot under the handle's lock.
func (h *Handle) Update(apply func(*Snapshot)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	apply(&h.snap)
}

// Observe registers a per-surface notification observer.
func (h *Handle) Observe(surfaceID int, fn func(Notification)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.observers[surfaceID] = fn
}

// Unobserve removes a surface's observer. Notifications arriving
// afterwards are no longer delivered to that surface.
func (h *Handle) Unobserve(surfaceID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.observers, surfaceID)
}

// Notify applies the notification to the snapshot and fans it out to
// every observer.
func (h *Handle) Notify(n Notification) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}

	h.apply(&n)
	if n.Type == NoticeNone {
		h.mu.Unlock()
		return
	}

	observers := make([]func(Notification), 0, len(h.observers))
	for _, fn := range h.observers {
		observers = append(observers, fn)
	}
	h.mu.Unlock()

	for _, fn := range observers {
		fn(n)
	}
}

// Close stops the pump and shuts the engine down.
func (h *Handle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.observers = make(map[int]func(Notification))
	h.mu.Unlock()

	h.engine.Close()
}

// apply reconciles a notification into the snapshot. Duplicate
// readiness notifications for the same load are squashed here so that
// load completion is reported exactly once.
func (h *Handle) apply(n *Notification) {
	switch n.Type {
	case NoticeLoading:
		h.snap.Loading = true
		h.snap.Loaded = false
		h.ready = false

	case NoticeReady:
		if h.ready {
			n.Type = NoticeNone
			return
		}
		h.ready = true
		h.snap.Loading = false
		h.snap.Loaded = true
		h.snap.Duration = n.Duration

	case NoticeFailed:
		h.snap.Loading = false

	case NoticePlay:
		h.snap.Playing = true

	case NoticePause:
		h.snap.Playing = false

	case NoticeEnded:
		h.snap.Playing = false
		h.snap.Position = h.snap.Duration

	case NoticeStopped:
		h.snap.Playing = false
		h.snap.Loaded = false
		h.snap.Position = 0

	case NoticeSeek:
		h.snap.Position = n.Position

	case NoticeSpeed:
		h.snap.Speed = n.Speed

	case NoticeVolume:
		h.snap.Volume = n.Volume

	case NoticeQuality:
		h.snap.CurrentQuality = n.Quality
		if n.Qualities != nil {
			h.snap.Qualities = n.Qualities
		}

	case NoticeAudioTrack:
		if n.Tracks != nil {
			h.snap.AudioTracks = n.Tracks
		}

	case NoticeSubtitleTrack:
		if n.Tracks != nil {
			h.snap.SubtitleTracks = n.Tracks
		}

	case NoticeProgress:
		h.snap.Position = n.Position
		if n.Duration > 0 {
			h.snap.Duration = n.Duration
		}
		h.snap.Buffered = n.Buffered
	}
}

// pump forwards engine notifications to observers until the engine's
// event stream closes.
func (h *Handle) pump() {
	for n := range h.engine.Events() {
		h.Notify(n)
	}
}
