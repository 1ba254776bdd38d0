package bridge

// EventType tags an event crossing the native-to-application channel.
type EventType string

const (
	EventInitialized         EventType = "isInitialized"
	EventLoading             EventType = "loading"
	EventVideoLoaded         EventType = "videoLoaded"
	EventPlay                EventType = "play"
	EventPause               EventType = "pause"
	EventBuffering           EventType = "buffering"
	EventCompleted           EventType = "completed"
	EventError               EventType = "error"
	EventSeek                EventType = "seek"
	EventSpeedChange         EventType = "speedChange"
	EventVolumeChange        EventType = "volumeChange"
	EventQualityChange       EventType = "qualityChange"
	EventAudioTrackChange    EventType = "audioTrackChange"
	EventSubtitleTrackChange EventType = "subtitleTrackChange"
	EventTimeUpdate          EventType = "timeUpdate"
	EventFullscreenChange    EventType = "fullscreenChange"
	EventPiPStart            EventType = "pipStart"
	EventPiPStop             EventType = "pipStop"
	EventStopped             EventType = "stopped"
)

// Quality describes one selectable quality variant of a stream.
type Quality struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Bitrate int64  `json:"bitrate,omitempty"`
}

// Track describes one selectable audio or subtitle track.
type Track struct {
	ID       string `json:"id"`
	Label    string `json:"label,omitempty"`
	Language string `json:"language,omitempty"`
}

// Event is the tagged union of all notifications emitted by the
// native layer. The Event field selects which payload fields apply.
type Event struct {
	Event EventType `json:"event"`

	Position         int64   `json:"position,omitempty"`
	Duration         int64   `json:"duration,omitempty"`
	BufferedPosition int64   `json:"bufferedPosition,omitempty"`
	Speed            float64 `json:"speed,omitempty"`
	Volume           float64 `json:"volume,omitempty"`
	Message          string  `json:"message,omitempty"`
	IsFullscreen     bool    `json:"isFullscreen,omitempty"`

	Quality   *Quality  `json:"quality,omitempty"`
	Qualities []Quality `json:"qualities,omitempty"`

	Track  *Track  `json:"track,omitempty"`
	Tracks []Track `json:"tracks,omitempty"`
}

var knownEvents = map[EventType]struct{}{
	EventInitialized:         {},
	EventLoading:             {},
	EventVideoLoaded:         {},
	EventPlay:                {},
	EventPause:               {},
	EventBuffering:           {},
	EventCompleted:           {},
	EventError:               {},
	EventSeek:                {},
	EventSpeedChange:         {},
	EventVolumeChange:        {},
	EventQualityChange:       {},
	EventAudioTrackChange:    {},
	EventSubtitleTrackChange: {},
	EventTimeUpdate:          {},
	EventFullscreenChange:    {},
	EventPiPStart:            {},
	EventPiPStop:             {},
	EventStopped:             {},
}

// Valid validates the event's schema. Malformed payloads are rejected
// at the channel boundary instead of trusting field presence downstream.
func (e Event) Valid() bool {
	if _, ok := knownEvents[e.Event]; !ok {
		return false
	}

	switch e.Event {
	case EventVideoLoaded:
		return e.Duration >= 0

	case EventSeek, EventTimeUpdate:
		return e.Position >= 0

	case EventSpeedChange:
		return e.Speed > 0

	case EventQualityChange:
		return e.Quality != nil

	case EventAudioTrackChange, EventSubtitleTrackChange:
		return e.Track != nil

	case EventError:
		return e.Message != ""
	}

	return true
}
