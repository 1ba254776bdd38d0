// Package mediasession integrates playback with the OS media session
// ("Now Playing"). A session is shared per logical player; its active
// sink is swapped whenever a different surface becomes primary so that
// transport controls keep routing to a live controller.
package mediasession

import (
	"sync"

	"github.com/darkhz/vidbridge/registry"
)

// Metadata carries the displayed "Now Playing" information.
type Metadata struct {
	Title    string
	Author   string
	ImageURL string

	// Duration of the media, in milliseconds.
	Duration int64
}

// Session is a shared media-session handler. It implements
// registry.Service.
type Session struct {
	identity string

	mu       sync.Mutex
	sink     registry.Sink
	meta     Metadata
	playing  bool
	position int64

	stop func() error
}

// New creates a session and starts the platform server, when one is
// available. Creation never fails; a platform without a media session
// yields an inert session.
func New(identity string) *Session {
	s := &Session{identity: identity}
	s.stop = startServer(s)

	return s
}

// SetSink swaps the active transport-control sink.
func (s *Session) SetSink(sink registry.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sink = sink
}

// SetMetadata updates the displayed media information.
func (s *Session) SetMetadata(meta Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meta = meta
}

// SetPlaybackState updates the transport state shown by the OS.
func (s *Session) SetPlaybackState(playing bool, position int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing = playing
	s.position = position
}

// Close stops the platform server.
func (s *Session) Close() error {
	if s.stop == nil {
		return nil
	}

	return s.stop()
}

// currentSink returns the active sink, if any.
func (s *Session) currentSink() (registry.Sink, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sink, s.sink != nil
}

// snapshot returns the current metadata and transport state.
func (s *Session) snapshot() (Metadata, bool, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.meta, s.playing, s.position
}
