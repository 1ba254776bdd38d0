//go:build linux

package mediasession

import (
	"fmt"
	"hash/fnv"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
)

// startServer exposes the session over MPRIS on D-Bus.
func startServer(s *Session) func() error {
	srv := server.NewServer(
		s.identity,
		&rootAdapter{identity: s.identity},
		&playerAdapter{session: s},
	)

	go func() {
		_ = srv.Listen()
	}()

	return srv.Stop
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct {
	identity string
}

func (r *rootAdapter) Raise() error {
	return nil
}

func (r *rootAdapter) Quit() error {
	return nil
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return r.identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https", "file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"video/mp4", "application/x-mpegurl"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter,
// delegating transport commands to the session's active sink.
type playerAdapter struct {
	session *Session
}

func (p *playerAdapter) Next() error {
	return nil
}

func (p *playerAdapter) Previous() error {
	return nil
}

func (p *playerAdapter) Pause() error {
	if sink, ok := p.session.currentSink(); ok {
		sink.Pause()
	}

	return nil
}

func (p *playerAdapter) PlayPause() error {
	sink, ok := p.session.currentSink()
	if !ok {
		return nil
	}

	_, playing, _ := p.session.snapshot()
	if playing {
		sink.Pause()
	} else {
		sink.Play()
	}

	return nil
}

func (p *playerAdapter) Stop() error {
	if sink, ok := p.session.currentSink(); ok {
		sink.Stop()
	}

	return nil
}

func (p *playerAdapter) Play() error {
	if sink, ok := p.session.currentSink(); ok {
		sink.Play()
	}

	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	sink, ok := p.session.currentSink()
	if !ok {
		return nil
	}

	_, _, position := p.session.snapshot()
	sink.SeekTo(position + int64(offset)/1000)

	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	if sink, ok := p.session.currentSink(); ok {
		sink.SeekTo(int64(position) / 1000)
	}

	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	_, playing, _ := p.session.snapshot()
	if playing {
		return types.PlaybackStatusPlaying, nil
	}

	return types.PlaybackStatusPaused, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	meta, _, _ := p.session.snapshot()

	data := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(meta.Title)),
		Length:  types.Microseconds(meta.Duration * 1000),
		Title:   meta.Title,
		Artist:  []string{meta.Author},
	}

	if meta.ImageURL != "" {
		data.ArtUrl = meta.ImageURL
	}

	return data, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	_, _, position := p.session.snapshot()

	return position * 1000, nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(title string) string {
	h := fnv.New64a()
	h.Write([]byte(title))

	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
