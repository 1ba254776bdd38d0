package mediasession

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	plays, pauses, stops int
	seeks                []int64
}

func (s *recordingSink) Play()  { s.plays++ }
func (s *recordingSink) Pause() { s.pauses++ }
func (s *recordingSink) Stop()  { s.stops++ }

func (s *recordingSink) SeekTo(milliseconds int64) {
	s.seeks = append(s.seeks, milliseconds)
}

func TestSessionSinkSwap(t *testing.T) {
	s := &Session{}

	_, ok := s.currentSink()
	require.False(t, ok)

	first := &recordingSink{}
	s.SetSink(first)

	sink, ok := s.currentSink()
	require.True(t, ok)
	sink.Play()
	require.Equal(t, 1, first.plays)

	second := &recordingSink{}
	s.SetSink(second)

	sink, ok = s.currentSink()
	require.True(t, ok)
	sink.Pause()
	require.Equal(t, 0, first.pauses)
	require.Equal(t, 1, second.pauses)
}

func TestSessionState(t *testing.T) {
	s := &Session{}

	s.SetMetadata(Metadata{Title: "Big Buck Bunny", Author: "Blender", Duration: 596000})
	s.SetPlaybackState(true, 1500)

	meta, playing, position := s.snapshot()
	require.Equal(t, "Big Buck Bunny", meta.Title)
	require.Equal(t, int64(596000), meta.Duration)
	require.True(t, playing)
	require.Equal(t, int64(1500), position)
}

func TestSessionCloseWithoutServer(t *testing.T) {
	s := &Session{}
	require.NoError(t, s.Close())
}
