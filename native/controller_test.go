package native

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/darkhz/vidbridge/bridge"
	"github.com/darkhz/vidbridge/fullscreen"
	"github.com/darkhz/vidbridge/mediasession"
	"github.com/darkhz/vidbridge/player"
	"github.com/darkhz/vidbridge/registry"
	"github.com/stretchr/testify/require"
)

type switchCall struct {
	uri      string
	position int64
}

// fakeEngine records every engine call and lets the test drive the
// notification stream.
type fakeEngine struct {
	mu sync.Mutex

	events chan player.Notification

	loadErr error
	loaded  []string

	switched []switchCall

	audio, subs []bridge.Track
	audioSet    []string
	subsSet     []string

	closed bool
}

func newTestEngine() *fakeEngine {
	return &fakeEngine{events: make(chan player.Notification, 16)}
}

func (e *fakeEngine) Load(uri string, _ map[string]string, _ bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loadErr != nil {
		return e.loadErr
	}
	e.loaded = append(e.loaded, uri)

	return nil
}

func (e *fakeEngine) Play() error  { return nil }
func (e *fakeEngine) Pause() error { return nil }
func (e *fakeEngine) Stop() error  { return nil }

func (e *fakeEngine) SeekTo(int64) error      { return nil }
func (e *fakeEngine) SetVolume(float64) error { return nil }
func (e *fakeEngine) SetSpeed(float64) error  { return nil }

func (e *fakeEngine) SwitchURL(uri string, position int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.switched = append(e.switched, switchCall{uri: uri, position: position})

	return nil
}

func (e *fakeEngine) SetAudioTrack(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.audioSet = append(e.audioSet, id)

	return nil
}

func (e *fakeEngine) SetSubtitleTrack(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subsSet = append(e.subsSet, id)

	return nil
}

func (e *fakeEngine) AudioTracks() []bridge.Track {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.audio
}

func (e *fakeEngine) SubtitleTracks() []bridge.Track {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.subs
}

func (e *fakeEngine) Position() int64 { return 0 }
func (e *fakeEngine) Duration() int64 { return 0 }
func (e *fakeEngine) Buffered() int64 { return 0 }

func (e *fakeEngine) Events() <-chan player.Notification {
	return e.events
}

func (e *fakeEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.events)
	}
}

func (e *fakeEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.closed
}

func (e *fakeEngine) loadedURLs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]string(nil), e.loaded...)
}

func (e *fakeEngine) switchCalls() []switchCall {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]switchCall(nil), e.switched...)
}

type fakeHost struct {
	mu sync.Mutex

	presentErr error
	pipErr     error
	pipOK      bool

	presents  int
	dismisses int
	pips      int
}

func (h *fakeHost) Present(fullscreen.ViewToken) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.presentErr != nil {
		return h.presentErr
	}
	h.presents++

	return nil
}

func (h *fakeHost) Dismiss(fullscreen.ViewToken) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dismisses++
}

func (h *fakeHost) EnterPictureInPicture() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pipErr != nil {
		return h.pipErr
	}
	h.pips++

	return nil
}

func (h *fakeHost) PictureInPictureSupported() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.pipOK
}

type fakeContainer struct {
	mu sync.Mutex

	attaches, detaches int
}

func (c *fakeContainer) Attach(fullscreen.ViewToken) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attaches++
}

func (c *fakeContainer) Detach(fullscreen.ViewToken) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.detaches++
}

func (c *fakeContainer) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attaches, c.detaches
}

// harness wires one view controller against fakes.
type harness struct {
	channel  *bridge.Channel
	registry *registry.Registry
	engine   *fakeEngine
	host     *fakeHost
	inline   *fakeContainer
	vc       *ViewController
	sub      *bridge.Subscription
}

func newHarness(t *testing.T, params bridge.CreationParams) *harness {
	t.Helper()

	h := &harness{
		channel:  bridge.NewChannel(),
		registry: registry.New(),
		engine:   newTestEngine(),
		host:     &fakeHost{pipOK: true},
		inline:   &fakeContainer{},
	}

	h.vc = NewViewController(Config{
		SurfaceID: 1,
		Params:    params,
		Channel:   h.channel,
		Registry:  h.registry,
		NewEngine: func() player.Engine {
			return h.engine
		},
		Hosts: fullscreen.HostProviderFunc(func() (fullscreen.Host, bool) {
			return h.host, true
		}),
		Inline:      h.inline,
		Coordinator: fullscreen.NewCoordinator(fullscreen.NoChrome{}),
	})

	h.sub = h.channel.Subscribe(1)

	event := h.next(t)
	require.Equal(t, bridge.EventInitialized, event.Event)

	t.Cleanup(func() {
		h.channel.Close()
		h.registry.Close()
	})

	return h
}

func (h *harness) next(t *testing.T) bridge.Event {
	t.Helper()

	select {
	case event, ok := <-h.sub.Events():
		require.True(t, ok, "subscription closed early")
		return event

	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	return bridge.Event{}
}

// expect asserts the next event type, skipping nothing.
func (h *harness) expect(t *testing.T, et bridge.EventType) bridge.Event {
	t.Helper()

	event := h.next(t)
	require.Equal(t, et, event.Event)

	return event
}

func defaultParams() bridge.CreationParams {
	return bridge.CreationParams{
		ShowNativeControls:     true,
		AllowsPictureInPicture: true,
	}
}

func TestLoadRejectsInvalidURL(t *testing.T) {
	h := newHarness(t, defaultParams())

	res := h.channel.Call(1, bridge.Command{Command: bridge.CommandLoad, URL: "notaurl"})
	require.False(t, res.OK)
	require.Equal(t, bridge.CodeInvalidURL, res.Code)
	require.Empty(t, h.engine.loadedURLs())
}

func TestLoadReportsReadinessOnce(t *testing.T) {
	h := newHarness(t, defaultParams())

	res := h.channel.Call(1, bridge.Command{
		Command: bridge.CommandLoad,
		URL:     "https://example.com/video.mp4",
	})
	require.True(t, res.OK)
	require.Equal(t, []string{"https://example.com/video.mp4"}, h.engine.loadedURLs())

	h.expect(t, bridge.EventLoading)

	// A second readiness notification for the same load must not
	// produce a second videoLoaded event.
	h.engine.events <- player.Notification{Type: player.NoticeReady, Duration: 5000}
	h.engine.events <- player.Notification{Type: player.NoticeReady, Duration: 5000}
	h.engine.events <- player.Notification{Type: player.NoticeSeek, Position: 1}

	loaded := h.expect(t, bridge.EventVideoLoaded)
	require.Equal(t, int64(5000), loaded.Duration)

	h.expect(t, bridge.EventSeek)
}

func TestLoadFailure(t *testing.T) {
	h := newHarness(t, defaultParams())
	h.engine.loadErr = errors.New("network unreachable")

	res := h.channel.Call(1, bridge.Command{
		Command: bridge.CommandLoad,
		URL:     "https://example.com/video.mp4",
	})
	require.False(t, res.OK)
	require.Equal(t, bridge.CodeLoadError, res.Code)

	h.expect(t, bridge.EventLoading)
	failed := h.expect(t, bridge.EventError)
	require.Equal(t, "network unreachable", failed.Message)
}

func TestLoadAutoplayStartsPlayback(t *testing.T) {
	h := newHarness(t, defaultParams())

	res := h.channel.Call(1, bridge.Command{
		Command:  bridge.CommandLoad,
		URL:      "https://example.com/video.mp4",
		AutoPlay: true,
	})
	require.True(t, res.OK)

	h.expect(t, bridge.EventLoading)

	h.engine.events <- player.Notification{Type: player.NoticeReady, Duration: 5000}

	h.expect(t, bridge.EventVideoLoaded)
	h.expect(t, bridge.EventPlay)
}

func TestCommandConfirmationsBroadcast(t *testing.T) {
	h := newHarness(t, defaultParams())

	res := h.channel.Call(1, bridge.Command{Command: bridge.CommandPlay})
	require.True(t, res.OK)
	h.expect(t, bridge.EventPlay)

	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandSeekTo, Milliseconds: 3000})
	require.True(t, res.OK)
	seek := h.expect(t, bridge.EventSeek)
	require.Equal(t, int64(3000), seek.Position)

	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandSetSpeed, Speed: 1.5})
	require.True(t, res.OK)
	speed := h.expect(t, bridge.EventSpeedChange)
	require.Equal(t, 1.5, speed.Speed)

	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandSetVolume, Volume: 0.5})
	require.True(t, res.OK)
	volume := h.expect(t, bridge.EventVolumeChange)
	require.Equal(t, 0.5, volume.Volume)
}

func TestSetQualitySwitchesVariant(t *testing.T) {
	h := newHarness(t, defaultParams())

	h.vc.Handle().Notify(player.Notification{Type: player.NoticeSeek, Position: 7000})
	h.expect(t, bridge.EventSeek)

	res := h.channel.Call(1, bridge.Command{
		Command: bridge.CommandSetQuality,
		Quality: &bridge.Quality{Label: "720p", URL: "https://example.com/720p.m3u8"},
	})
	require.True(t, res.OK)

	calls := h.engine.switchCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "https://example.com/720p.m3u8", calls[0].uri)
	require.Equal(t, int64(7000), calls[0].position)

	quality := h.expect(t, bridge.EventQualityChange)
	require.Equal(t, "720p", quality.Quality.Label)
}

func TestSetQualityAutoEnablesLadder(t *testing.T) {
	h := newHarness(t, defaultParams())

	res := h.channel.Call(1, bridge.Command{
		Command: bridge.CommandSetQuality,
		Quality: &bridge.Quality{Label: QualityAuto},
	})
	require.True(t, res.OK)
	require.Empty(t, h.engine.switchCalls())

	quality := h.expect(t, bridge.EventQualityChange)
	require.Equal(t, QualityAuto, quality.Quality.Label)

	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandSetQuality})
	require.False(t, res.OK)
	require.Equal(t, bridge.CodeNotSupported, res.Code)
}

func TestSetAudioTrackMatchesLanguage(t *testing.T) {
	h := newHarness(t, defaultParams())
	h.engine.audio = []bridge.Track{
		{ID: "1", Label: "English", Language: "en"},
		{ID: "2", Label: "Français", Language: "fr"},
	}

	res := h.channel.Call(1, bridge.Command{
		Command:  bridge.CommandSetAudioTrack,
		Language: "fr-CA",
	})
	require.True(t, res.OK)

	h.engine.mu.Lock()
	set := append([]string(nil), h.engine.audioSet...)
	h.engine.mu.Unlock()
	require.Equal(t, []string{"2"}, set)

	event := h.expect(t, bridge.EventAudioTrackChange)
	require.Equal(t, "2", event.Track.ID)
	require.Len(t, event.Tracks, 2)
}

func TestSetTrackUnknownSelector(t *testing.T) {
	h := newHarness(t, defaultParams())
	h.engine.subs = []bridge.Track{{ID: "1", Language: "en"}}

	res := h.channel.Call(1, bridge.Command{
		Command:  bridge.CommandSetSubtitleTrack,
		Language: "zz-not-a-tag-!",
	})
	require.False(t, res.OK)
	require.Equal(t, bridge.CodeNotSupported, res.Code)
}

func TestPiPAvailability(t *testing.T) {
	h := newHarness(t, defaultParams())

	res := h.channel.Call(1, bridge.Command{Command: bridge.CommandIsPiPAvailable})
	require.True(t, res.OK)
	require.True(t, res.Value)

	h.host.mu.Lock()
	h.host.pipOK = false
	h.host.mu.Unlock()

	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandIsPiPAvailable})
	require.True(t, res.OK)
	require.False(t, res.Value)
}

func TestPiPDisallowedBySurface(t *testing.T) {
	params := defaultParams()
	params.AllowsPictureInPicture = false
	h := newHarness(t, params)

	res := h.channel.Call(1, bridge.Command{Command: bridge.CommandIsPiPAvailable})
	require.True(t, res.OK)
	require.False(t, res.Value)

	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandEnterPiP})
	require.False(t, res.OK)
	require.Equal(t, bridge.CodeNotSupported, res.Code)
}

func TestEnterPiPHidesControls(t *testing.T) {
	h := newHarness(t, defaultParams())

	res := h.channel.Call(1, bridge.Command{Command: bridge.CommandEnterPiP})
	require.True(t, res.OK)
	require.True(t, res.Value)
	require.False(t, h.vc.ControlsVisible())

	h.expect(t, bridge.EventPiPStart)

	h.vc.ExitPictureInPicture()
	h.expect(t, bridge.EventPiPStop)
	require.True(t, h.vc.ControlsVisible())
}

func TestEnterPiPFailureRestoresControls(t *testing.T) {
	h := newHarness(t, defaultParams())
	h.host.pipErr = errors.New("activity not in foreground")

	res := h.channel.Call(1, bridge.Command{Command: bridge.CommandEnterPiP})
	require.False(t, res.OK)
	require.Equal(t, bridge.CodePiPFailed, res.Code)
	require.True(t, h.vc.ControlsVisible())
}

func TestDisposeExclusiveClosesEngine(t *testing.T) {
	h := newHarness(t, defaultParams())

	res := h.channel.Call(1, bridge.Command{Command: bridge.CommandDispose})
	require.True(t, res.OK)
	require.True(t, h.engine.isClosed())

	// Commands after disposal fail: the handler is detached.
	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandPlay})
	require.False(t, res.OK)
	require.Equal(t, bridge.CodeChannelUnavailable, res.Code)

	// Disposing twice is a no-op.
	h.vc.Dispose()
}

func TestDisposeSharedKeepsEngine(t *testing.T) {
	channel := bridge.NewChannel()
	defer channel.Close()

	reg := registry.New()
	defer reg.Close()

	engine := newTestEngine()

	cfg := Config{
		SurfaceID: 1,
		LogicalID: "p1",
		Params:    bridge.CreationParams{ShowNativeControls: true},
		Channel:   channel,
		Registry:  reg,
		NewEngine: func() player.Engine {
			return engine
		},
		Hosts: fullscreen.HostProviderFunc(func() (fullscreen.Host, bool) {
			return nil, false
		}),
	}

	first := NewViewController(cfg)
	require.True(t, first.Shared())

	cfg.SurfaceID = 2
	second := NewViewController(cfg)

	require.Same(t, first.Handle(), second.Handle())

	first.Dispose()
	require.False(t, engine.isClosed())

	second.Dispose()
	require.False(t, engine.isClosed())

	// The registry keeps the shared player until released.
	reg.Release("p1")
	require.True(t, engine.isClosed())
}

func TestSharedSurfacesSeeConfirmations(t *testing.T) {
	channel := bridge.NewChannel()
	defer channel.Close()

	reg := registry.New()
	defer reg.Close()

	engine := newTestEngine()

	cfg := Config{
		SurfaceID: 1,
		LogicalID: "p1",
		Params:    bridge.CreationParams{ShowNativeControls: true},
		Channel:   channel,
		Registry:  reg,
		NewEngine: func() player.Engine {
			return engine
		},
		Hosts: fullscreen.HostProviderFunc(func() (fullscreen.Host, bool) {
			return nil, false
		}),
	}

	NewViewController(cfg)
	cfg.SurfaceID = 2
	NewViewController(cfg)

	firstSub := channel.Subscribe(1)
	secondSub := channel.Subscribe(2)

	recv := func(sub *bridge.Subscription) bridge.Event {
		select {
		case event := <-sub.Events():
			return event

		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}

		return bridge.Event{}
	}

	require.Equal(t, bridge.EventInitialized, recv(firstSub).Event)
	require.Equal(t, bridge.EventInitialized, recv(secondSub).Event)

	// A command issued against surface 1 is confirmed on both streams.
	res := channel.Call(1, bridge.Command{Command: bridge.CommandPlay})
	require.True(t, res.OK)

	require.Equal(t, bridge.EventPlay, recv(firstSub).Event)
	require.Equal(t, bridge.EventPlay, recv(secondSub).Event)
}

func TestJoinSynthesizesCurrentState(t *testing.T) {
	channel := bridge.NewChannel()
	defer channel.Close()

	reg := registry.New()
	defer reg.Close()

	engine := newTestEngine()

	cfg := Config{
		SurfaceID: 1,
		LogicalID: "p1",
		Params:    bridge.CreationParams{ShowNativeControls: true},
		Channel:   channel,
		Registry:  reg,
		NewEngine: func() player.Engine {
			return engine
		},
		Hosts: fullscreen.HostProviderFunc(func() (fullscreen.Host, bool) {
			return nil, false
		}),
	}

	first := NewViewController(cfg)

	first.Handle().Notify(player.Notification{Type: player.NoticeReady, Duration: 9000})
	first.Handle().Notify(player.Notification{
		Type:    player.NoticeQuality,
		Quality: &bridge.Quality{Label: "720p", URL: "https://example.com/720p.m3u8"},
	})
	first.Handle().Notify(player.Notification{Type: player.NoticePlay})

	cfg.SurfaceID = 2
	NewViewController(cfg)

	sub := channel.Subscribe(2)

	recv := func() bridge.Event {
		select {
		case event := <-sub.Events():
			return event

		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}

		return bridge.Event{}
	}

	require.Equal(t, bridge.EventInitialized, recv().Event)

	loaded := recv()
	require.Equal(t, bridge.EventVideoLoaded, loaded.Event)
	require.Equal(t, int64(9000), loaded.Duration)

	quality := recv()
	require.Equal(t, bridge.EventQualityChange, quality.Event)
	require.Equal(t, "720p", quality.Quality.Label)

	require.Equal(t, bridge.EventPlay, recv().Event)
}

// fakeSession records metadata and transport-state updates routed
// through the shared service.
type fakeSession struct {
	mu sync.Mutex

	sink registry.Sink
	meta []mediasession.Metadata

	playing   []bool
	positions []int64
}

func (s *fakeSession) SetSink(sink registry.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sink = sink
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) SetMetadata(meta mediasession.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meta = append(s.meta, meta)
}

func (s *fakeSession) SetPlaybackState(playing bool, position int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing = append(s.playing, playing)
	s.positions = append(s.positions, position)
}

func (s *fakeSession) lastMetadata() (mediasession.Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.meta) == 0 {
		return mediasession.Metadata{}, false
	}

	return s.meta[len(s.meta)-1], true
}

func (s *fakeSession) lastState() (bool, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.playing) == 0 {
		return false, 0, false
	}

	return s.playing[len(s.playing)-1], s.positions[len(s.positions)-1], true
}

func TestNowPlayingFollowsPlayback(t *testing.T) {
	session := &fakeSession{}

	params := defaultParams()
	params.MediaInfo = &bridge.MediaInfo{
		Title:    "Big Buck Bunny",
		Author:   "Blender Foundation",
		ImageURL: "https://example.com/cover.jpg",
	}

	h := &harness{
		channel:  bridge.NewChannel(),
		registry: registry.New(),
		engine:   newTestEngine(),
		host:     &fakeHost{pipOK: true},
		inline:   &fakeContainer{},
	}

	h.vc = NewViewController(Config{
		SurfaceID: 1,
		LogicalID: "np1",
		Params:    params,
		Channel:   h.channel,
		Registry:  h.registry,
		NewEngine: func() player.Engine {
			return h.engine
		},
		ServiceFactory: func() registry.Service {
			return session
		},
		Hosts: fullscreen.HostProviderFunc(func() (fullscreen.Host, bool) {
			return h.host, true
		}),
	})

	h.sub = h.channel.Subscribe(1)
	h.expect(t, bridge.EventInitialized)

	t.Cleanup(func() {
		h.channel.Close()
		h.registry.Close()
	})

	// Creation-time media information reaches the session immediately.
	meta, ok := session.lastMetadata()
	require.True(t, ok)
	require.Equal(t, "Big Buck Bunny", meta.Title)
	require.Equal(t, "Blender Foundation", meta.Author)
	require.Equal(t, "https://example.com/cover.jpg", meta.ImageURL)
	require.Zero(t, meta.Duration)

	res := h.channel.Call(1, bridge.Command{
		Command: bridge.CommandLoad,
		URL:     "https://example.com/video.mp4",
	})
	require.True(t, res.OK)
	h.expect(t, bridge.EventLoading)

	// Readiness merges the duration into the displayed metadata.
	h.engine.events <- player.Notification{Type: player.NoticeReady, Duration: 5000}
	h.expect(t, bridge.EventVideoLoaded)

	meta, ok = session.lastMetadata()
	require.True(t, ok)
	require.Equal(t, "Big Buck Bunny", meta.Title)
	require.Equal(t, int64(5000), meta.Duration)

	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandPlay})
	require.True(t, res.OK)
	h.expect(t, bridge.EventPlay)

	playing, _, ok := session.lastState()
	require.True(t, ok)
	require.True(t, playing)

	h.engine.events <- player.Notification{Type: player.NoticeProgress, Position: 1500}
	h.expect(t, bridge.EventTimeUpdate)

	playing, position, ok := session.lastState()
	require.True(t, ok)
	require.True(t, playing)
	require.Equal(t, int64(1500), position)

	res = h.channel.Call(1, bridge.Command{Command: bridge.CommandPause})
	require.True(t, res.OK)
	h.expect(t, bridge.EventPause)

	playing, _, ok = session.lastState()
	require.True(t, ok)
	require.False(t, playing)
}
