package controller

import (
	"errors"

	"github.com/darkhz/vidbridge/bridge"
)

// Errors reported synchronously by controller commands.
var (
	ErrNotInitialized     = errors.New("controller: not initialized")
	ErrChannelUnavailable = errors.New("controller: command channel unavailable")
	ErrInvalidURL         = errors.New("controller: invalid URL")
	ErrNoHostContext      = errors.New("controller: no host context")
	ErrPiPNotSupported    = errors.New("controller: picture-in-picture not supported")
	ErrPiPFailed          = errors.New("controller: picture-in-picture failed")
	ErrDisposed           = errors.New("controller: disposed")
)

// ActivityState is the application-visible playback activity.
type ActivityState int

const (
	ActivityIdle ActivityState = iota
	ActivityLoading
	ActivityBuffering
	ActivityPlaying
	ActivityPaused
	ActivityCompleted
	ActivityError
)

// String returns the activity's name.
func (a ActivityState) String() string {
	switch a {
	case ActivityLoading:
		return "loading"
	case ActivityBuffering:
		return "buffering"
	case ActivityPlaying:
		return "playing"
	case ActivityPaused:
		return "paused"
	case ActivityCompleted:
		return "completed"
	case ActivityError:
		return "error"
	}

	return "idle"
}

// PlaybackState is the single logical playback state reconciled from
// the events of every registered surface. It is mutated only by the
// controller's reconciliation routine.
type PlaybackState struct {
	Position         int64
	Duration         int64
	BufferedPosition int64

	Volume float64
	Speed  float64

	Qualities      []bridge.Quality
	CurrentQuality *bridge.Quality

	AudioTracks          []bridge.Track
	SubtitleTracks       []bridge.Track
	CurrentAudioTrack    *bridge.Track
	CurrentSubtitleTrack *bridge.Track

	IsFullscreen       bool
	IsPictureInPicture bool

	Activity     ActivityState
	ErrorMessage string

	Initialized bool
	Loaded      bool
}

// Listener receives every event delivered to the controller, after
// the shared state has been reconciled.
type Listener func(event bridge.Event)
