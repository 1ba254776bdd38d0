package player

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/darkhz/mpvipc"
	"github.com/darkhz/vidbridge/bridge"
	"github.com/darkhz/vidbridge/resolver"
)

// MPV is an Engine backed by an mpv process controlled over its
// JSON IPC socket.
type MPV struct {
	socket string
	notes  chan Notification

	*mpvipc.Connection
}

// MPVOptions describes how to launch and connect to mpv.
type MPVOptions struct {
	ExecPath   string
	Socket     string
	NumRetries int
	UserAgent  string
}

// NewMPV launches mpv and connects to its IPC socket.
func NewMPV(options MPVOptions) (*MPV, error) {
	m := &MPV{
		notes: make(chan Notification, 100),
	}

	if err := m.connect(options); err != nil {
		return nil, err
	}

	go m.eventListener()

	m.Call("keybind", "q", "")
	m.Call("keybind", "Ctrl+q", "")
	m.Call("keybind", "Shift+q", "")

	return m, nil
}

// Load loads the provided URI into mpv.
func (m *MPV) Load(uri string, headers map[string]string, autoplay bool) error {
	options := "pause=" + map[bool]string{true: "no", false: "yes"}[autoplay]

	if len(headers) > 0 {
		var fields []string
		for k, v := range headers {
			fields = append(fields, k+": "+v)
		}

		options += ",http-header-fields=" + strings.Join(fields, ",")
	}

	_, err := m.Call("loadfile", uri, "replace", options)
	if err != nil {
		return fmt.Errorf("MPV: Unable to load %s", uri)
	}

	return nil
}

// Play resumes the playback.
func (m *MPV) Play() error {
	return m.Set("pause", "no")
}

// Pause pauses the playback.
func (m *MPV) Pause() error {
	return m.Set("pause", "yes")
}

// Stop stops the playback.
func (m *MPV) Stop() error {
	_, err := m.Call("stop")

	return err
}

// SeekTo seeks to an absolute position.
func (m *MPV) SeekTo(milliseconds int64) error {
	_, err := m.Call("seek", float64(milliseconds)/1000, "absolute")

	return err
}

// SetVolume sets the volume, where volume ranges from 0.0 to 1.0.
func (m *MPV) SetVolume(volume float64) error {
	return m.Set("volume", volume*100)
}

// SetSpeed sets the playback speed.
func (m *MPV) SetSpeed(speed float64) error {
	return m.Set("speed", speed)
}

// SwitchURL switches playback to another variant URL of the same
// media and resumes from the given position.
func (m *MPV) SwitchURL(uri string, position int64) error {
	options := "start=+" + strconv.FormatFloat(float64(position)/1000, 'f', 3, 64)

	_, err := m.Call("loadfile", uri, "replace", options)
	if err != nil {
		return fmt.Errorf("MPV: Unable to switch to %s", uri)
	}

	return nil
}

// SetAudioTrack selects the audio track with the given id.
func (m *MPV) SetAudioTrack(id string) error {
	return m.Set("aid", id)
}

// SetSubtitleTrack selects the subtitle track with the given id.
func (m *MPV) SetSubtitleTrack(id string) error {
	return m.Set("sid", id)
}

// AudioTracks returns the available audio tracks.
func (m *MPV) AudioTracks() []bridge.Track {
	return m.tracks("audio")
}

// SubtitleTracks returns the available subtitle tracks.
func (m *MPV) SubtitleTracks() []bridge.Track {
	return m.tracks("sub")
}

// Position returns the playback position in milliseconds.
func (m *MPV) Position() int64 {
	return m.seconds("playback-time")
}

// Duration returns the total duration in milliseconds.
func (m *MPV) Duration() int64 {
	return m.seconds("duration")
}

// Buffered returns the buffered position in milliseconds.
func (m *MPV) Buffered() int64 {
	return m.seconds("demuxer-cache-time")
}

// Events returns the engine's notification stream.
func (m *MPV) Events() <-chan Notification {
	return m.notes
}

// Close quits mpv and removes its socket.
func (m *MPV) Close() {
	m.Call("quit")
	os.Remove(m.socket)
}

// Exited returns whether mpv has exited or not.
func (m *MPV) Exited() bool {
	return m.Connection == nil || m.Connection.IsClosed()
}

// Call sends a command to mpv.
func (m *MPV) Call(args ...interface{}) (interface{}, error) {
	if m.Exited() {
		return nil, fmt.Errorf("MPV: Connection closed")
	}

	return m.Connection.Call(args...)
}

// Get gets a property from the mpv instance.
func (m *MPV) Get(prop string) (interface{}, error) {
	if m.Exited() {
		return nil, fmt.Errorf("MPV: Connection closed")
	}

	return m.Connection.Get(prop)
}

// Set sets a property in the mpv instance.
func (m *MPV) Set(prop string, value interface{}) error {
	if m.Exited() {
		return fmt.Errorf("MPV: Connection closed")
	}

	return m.Connection.Set(prop, value)
}

// connect launches mpv and opens a connection via the provided socket.
func (m *MPV) connect(options MPVOptions) error {
	command := exec.Command(
		options.ExecPath,
		"--idle",
		"--keep-open",
		"--no-terminal",
		"--really-quiet",
		"--no-input-terminal",
		"--user-agent="+options.UserAgent,
		"--input-ipc-server="+options.Socket,
	)

	if err := command.Start(); err != nil {
		return fmt.Errorf("MPV: Could not start")
	}

	conn := mpvipc.NewConnection(options.Socket)
	for i := 0; i <= options.NumRetries; i++ {
		err := conn.Open()
		if err != nil {
			time.Sleep(1 * time.Second)
			continue
		}

		m.socket = options.Socket
		m.Connection = conn

		return nil
	}

	return fmt.Errorf("MPV: Could not connect to socket")
}

// mpvTrack describes one entry of mpv's track-list property.
type mpvTrack struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Lang  string `json:"lang"`
}

// tracks returns the tracks of the given type from mpv's track list.
func (m *MPV) tracks(trackType string) []bridge.Track {
	var list []mpvTrack
	var tracks []bridge.Track

	data, err := m.Get("track-list")
	if err != nil {
		return nil
	}

	m.store(data, &list)

	for _, t := range list {
		if t.Type != trackType {
			continue
		}

		tracks = append(tracks, bridge.Track{
			ID:       strconv.FormatInt(t.ID, 10),
			Label:    t.Title,
			Language: t.Lang,
		})
	}

	return tracks
}

// seconds reads a float property holding seconds and returns milliseconds.
func (m *MPV) seconds(prop string) int64 {
	var value float64

	data, err := m.Get(prop)
	if err != nil {
		return 0
	}

	m.store(data, &value)

	return int64(value * 1000)
}

// store applies the property value into the given data container.
func (m *MPV) store(prop, apply interface{}) {
	var data []byte

	err := resolver.Encode(&data, prop)
	if err == nil {
		resolver.Decode(data, apply)
	}
}

// notify queues a notification without blocking the event listener.
func (m *MPV) notify(n Notification) {
	select {
	case m.notes <- n:
	default:
	}
}

// eventListener listens for mpv events and translates them into
// playback notifications.
func (m *MPV) eventListener() {
	events, stopListening := m.Connection.NewEventListener()

	defer close(m.notes)
	defer m.Connection.Close()
	defer func() { stopListening <- struct{}{} }()

	m.Call("observe_property", 1, "time-pos")
	m.Call("observe_property", 2, "paused-for-cache")
	m.Call("observe_property", 3, "eof-reached")

	for event := range events {
		switch event.ID {
		case 1:
			var position float64

			m.store(event.Data, &position)
			m.notify(Notification{
				Type:     NoticeProgress,
				Position: int64(position * 1000),
				Duration: m.Duration(),
				Buffered: m.Buffered(),
			})

			continue

		case 2:
			var buffering bool

			m.store(event.Data, &buffering)
			if buffering {
				m.notify(Notification{
					Type:     NoticeBuffering,
					Buffered: m.Buffered(),
				})
			}

			continue

		case 3:
			var eof bool

			m.store(event.Data, &eof)
			if eof {
				m.notify(Notification{Type: NoticeEnded})
			}

			continue
		}

		switch event.Name {
		case "file-loaded":
			m.notify(Notification{
				Type:     NoticeReady,
				Duration: m.Duration(),
			})

		case "end-file":
			if len(event.ExtraData) > 0 {
				var errorText string

				m.store(event.ExtraData["file_error"], &errorText)
				if errorText != "" {
					m.notify(Notification{
						Type:    NoticeFailed,
						Message: errorText,
					})
				}
			}
		}
	}
}
