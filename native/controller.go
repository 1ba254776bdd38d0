// Package native implements the per-surface view controller that
// bridges channel commands to a playback engine and relays playback
// notifications back as events.
package native

import (
	"context"
	"sync"

	"github.com/darkhz/vidbridge/bridge"
	"github.com/darkhz/vidbridge/fullscreen"
	"github.com/darkhz/vidbridge/mediasession"
	"github.com/darkhz/vidbridge/player"
	"github.com/darkhz/vidbridge/registry"
	"github.com/darkhz/vidbridge/utils"
	"golang.org/x/sync/semaphore"
)

// nowPlaying is the optional metadata surface of a shared service.
// Services implementing it receive media information and transport
// state alongside the sink callbacks.
type nowPlaying interface {
	SetMetadata(meta mediasession.Metadata)
	SetPlaybackState(playing bool, position int64)
}

// Config describes everything a view controller needs at creation.
type Config struct {
	// SurfaceID is the identifier assigned to the realized view by
	// the UI-hosting layer.
	SurfaceID int

	// LogicalID selects a shared player from the registry. When
	// empty, the surface owns an exclusive player.
	LogicalID string

	Params bridge.CreationParams

	Channel  *bridge.Channel
	Registry *registry.Registry

	// NewEngine creates the playback engine when no shared handle
	// exists yet.
	NewEngine func() player.Engine

	// ServiceFactory creates the shared media-session service for a
	// logical id. Optional.
	ServiceFactory func() registry.Service

	// Hosts resolves the host context for fullscreen and PiP.
	Hosts fullscreen.HostProvider

	// Inline is the view's normal parent container.
	Inline fullscreen.Container

	Coordinator   *fullscreen.Coordinator
	Orientations  []fullscreen.Orientation
	LockLandscape bool

	// Auto drives the automatic quality ladder. Zero value disables
	// automatic switching until a ladder is configured.
	Auto AutoQuality
}

// ViewController mediates all commands and events for one surface.
// Commands arrive serialized on the channel's native loop.
type ViewController struct {
	surfaceID int
	logicalID string
	shared    bool

	handle  *player.Handle
	existed bool
	service registry.Service

	nowPlaying nowPlaying
	meta       mediasession.Metadata

	channel     *bridge.Channel
	registry    *registry.Registry
	hosts       fullscreen.HostProvider
	inline      fullscreen.Container
	coordinator *fullscreen.Coordinator

	orientations  []fullscreen.Orientation
	lockLandscape bool

	params bridge.CreationParams
	auto   AutoQuality

	listenOnce sync.Once

	mu              sync.Mutex
	fsState         FullscreenState
	fsCtx           *transitionContext
	controlsVisible bool
	pipActive       bool
	disposed        bool
	pendingAutoplay bool
	autoEnabled     bool
	autoIndex       int

	qualitySem *semaphore.Weighted
}

// NewViewController creates the controller for one surface, acquiring
// or creating its player, and attaches it to the channel.
func NewViewController(cfg Config) *ViewController {
	v := &ViewController{
		surfaceID:       cfg.SurfaceID,
		logicalID:       cfg.LogicalID,
		channel:         cfg.Channel,
		registry:        cfg.Registry,
		hosts:           cfg.Hosts,
		inline:          cfg.Inline,
		coordinator:     cfg.Coordinator,
		orientations:    cfg.Orientations,
		lockLandscape:   cfg.LockLandscape,
		params:          cfg.Params,
		auto:            cfg.Auto,
		controlsVisible: cfg.Params.ShowNativeControls,
		qualitySem:      semaphore.NewWeighted(4),
	}

	if v.logicalID == "" {
		v.logicalID = cfg.Params.ControllerID
	}

	if v.logicalID != "" {
		v.shared = true
		v.handle, v.existed = cfg.Registry.Acquire(v.logicalID, func() *player.Handle {
			return player.NewHandle(cfg.NewEngine())
		})

		if cfg.ServiceFactory != nil {
			v.service = cfg.Registry.AcquireService(v.logicalID, cfg.ServiceFactory)
		}

		if np, ok := v.service.(nowPlaying); ok {
			v.nowPlaying = np

			if info := cfg.Params.MediaInfo; info != nil {
				v.meta = mediasession.Metadata{
					Title:    info.Title,
					Author:   info.Author,
					ImageURL: info.ImageURL,
				}
				np.SetMetadata(v.meta)
			}
		}
	} else {
		v.handle = player.NewHandle(cfg.NewEngine())
	}

	v.handle.Observe(v.surfaceID, v.observe)
	v.channel.Attach(v.surfaceID, v)
	v.channel.OnListen(v.surfaceID, v.onListen)

	if cfg.Params.IsFullScreen {
		v.toggleFullscreen(true, false)
	}

	return v
}

// SurfaceID returns the surface this controller serves.
func (v *ViewController) SurfaceID() int {
	return v.surfaceID
}

// Handle returns the underlying player handle.
func (v *ViewController) Handle() *player.Handle {
	return v.handle
}

// Service returns the shared media-session service, if any.
func (v *ViewController) Service() registry.Service {
	return v.service
}

// Shared returns whether the surface references a shared player.
func (v *ViewController) Shared() bool {
	return v.shared
}

// ControlsVisible reports whether native playback controls are shown.
func (v *ViewController) ControlsVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.controlsVisible
}

// HandleCommand routes one decoded command. It runs on the channel's
// native loop, one command at a time.
func (v *ViewController) HandleCommand(cmd bridge.Command) bridge.Result {
	if cmd.Command == bridge.CommandDispose {
		v.Dispose()
		return bridge.Success()
	}

	v.mu.Lock()
	disposed := v.disposed
	v.mu.Unlock()

	if disposed {
		return bridge.Failure(bridge.CodeDisposed, "surface disposed")
	}

	switch cmd.Command {
	case bridge.CommandLoad:
		return v.load(cmd)

	case bridge.CommandPlay:
		if err := v.handle.Engine().Play(); err != nil {
			return bridge.Failure(bridge.CodeLoadError, err.Error())
		}
		v.handle.Notify(player.Notification{Type: player.NoticePlay})
		return bridge.Success()

	case bridge.CommandPause:
		if err := v.handle.Engine().Pause(); err != nil {
			return bridge.Failure(bridge.CodeLoadError, err.Error())
		}
		v.handle.Notify(player.Notification{Type: player.NoticePause})
		return bridge.Success()

	case bridge.CommandSeekTo:
		if err := v.handle.Engine().SeekTo(cmd.Milliseconds); err != nil {
			return bridge.Failure(bridge.CodeLoadError, err.Error())
		}
		v.handle.Notify(player.Notification{
			Type:     player.NoticeSeek,
			Position: cmd.Milliseconds,
		})
		return bridge.Success()

	case bridge.CommandSetVolume:
		if err := v.handle.Engine().SetVolume(cmd.Volume); err != nil {
			return bridge.Failure(bridge.CodeLoadError, err.Error())
		}
		v.handle.Notify(player.Notification{
			Type:   player.NoticeVolume,
			Volume: cmd.Volume,
		})
		return bridge.Success()

	case bridge.CommandSetSpeed:
		if err := v.handle.Engine().SetSpeed(cmd.Speed); err != nil {
			return bridge.Failure(bridge.CodeLoadError, err.Error())
		}
		v.handle.Notify(player.Notification{
			Type:  player.NoticeSpeed,
			Speed: cmd.Speed,
		})
		return bridge.Success()

	case bridge.CommandSetQuality:
		return v.setQuality(cmd.Quality)

	case bridge.CommandSetAudioTrack:
		return v.setTrack(cmd.Language, true)

	case bridge.CommandSetSubtitleTrack:
		return v.setTrack(cmd.Language, false)

	case bridge.CommandIsPiPAvailable:
		return v.pipAvailable()

	case bridge.CommandEnterPiP:
		return v.enterPictureInPicture()

	case bridge.CommandEnterFullscreen:
		return v.toggleFullscreen(true, cmd.UserInitiated)

	case bridge.CommandExitFullscreen:
		return v.toggleFullscreen(false, cmd.UserInitiated)

	case bridge.CommandSetShowNativeControls:
		v.mu.Lock()
		v.controlsVisible = cmd.Show
		v.mu.Unlock()
		return bridge.Success()
	}

	return bridge.Failure(bridge.CodeNotSupported, "unknown command "+string(cmd.Command))
}

// load validates and starts loading a URL. Readiness is reported
// asynchronously through videoLoaded or error events.
func (v *ViewController) load(cmd bridge.Command) bridge.Result {
	if _, err := utils.IsValidURL(cmd.URL); err != nil {
		return bridge.Failure(bridge.CodeInvalidURL, err.Error())
	}

	autoplay := cmd.AutoPlay || v.params.AutoPlay

	v.mu.Lock()
	v.pendingAutoplay = autoplay
	v.mu.Unlock()

	v.handle.Update(func(s *player.Snapshot) {
		s.URL = cmd.URL
	})
	v.handle.Notify(player.Notification{Type: player.NoticeLoading})

	if err := v.handle.Engine().Load(cmd.URL, cmd.Headers, autoplay); err != nil {
		v.handle.Notify(player.Notification{
			Type:    player.NoticeFailed,
			Message: err.Error(),
		})

		return bridge.Failure(bridge.CodeLoadError, err.Error())
	}

	go v.resolveQualities(cmd.URL)

	return bridge.Success()
}

// setQuality switches to the requested quality variant. The "auto"
// label enables the buffer-health ladder instead of a fixed variant.
func (v *ViewController) setQuality(quality *bridge.Quality) bridge.Result {
	if quality == nil || (quality.Label != QualityAuto && quality.URL == "") {
		return bridge.Failure(bridge.CodeNotSupported, "malformed quality selector")
	}

	snap := v.handle.Snapshot()

	if quality.Label == QualityAuto {
		v.mu.Lock()
		v.autoEnabled = true
		v.autoIndex = qualityIndex(snap.Qualities, snap.CurrentQuality)
		if v.autoIndex < 0 {
			v.autoIndex = len(snap.Qualities) - 1
		}
		v.mu.Unlock()

		v.handle.Notify(player.Notification{
			Type:      player.NoticeQuality,
			Quality:   &bridge.Quality{Label: QualityAuto, URL: snap.URL},
			Qualities: snap.Qualities,
		})

		return bridge.Success()
	}

	v.mu.Lock()
	v.autoEnabled = false
	v.mu.Unlock()

	if err := v.handle.Engine().SwitchURL(quality.URL, snap.Position); err != nil {
		return bridge.Failure(bridge.CodeLoadError, err.Error())
	}

	v.handle.Notify(player.Notification{
		Type:      player.NoticeQuality,
		Quality:   quality,
		Qualities: snap.Qualities,
	})

	return bridge.Success()
}

// pipAvailable reports whether Picture-in-Picture can be entered.
func (v *ViewController) pipAvailable() bridge.Result {
	if !v.params.AllowsPictureInPicture {
		return bridge.Result{OK: true, Value: false}
	}

	host, ok := v.hosts.CurrentHost()

	return bridge.Result{
		OK:    true,
		Value: ok && host.PictureInPictureSupported(),
	}
}

// enterPictureInPicture hides the native controls and hands the view
// to the system PiP chrome. Controls are restored if entry fails.
func (v *ViewController) enterPictureInPicture() bridge.Result {
	if !v.params.AllowsPictureInPicture {
		return bridge.Failure(bridge.CodeNotSupported, "PiP not allowed for this surface")
	}

	host, ok := v.hosts.CurrentHost()
	if !ok {
		return bridge.Failure(bridge.CodeNoActivity, "no host context")
	}
	if !host.PictureInPictureSupported() {
		return bridge.Failure(bridge.CodeNotSupported, "PiP not supported by host")
	}

	v.mu.Lock()
	prior := v.controlsVisible
	v.controlsVisible = false
	v.mu.Unlock()

	if err := host.EnterPictureInPicture(); err != nil {
		v.mu.Lock()
		v.controlsVisible = prior
		v.mu.Unlock()

		return bridge.Failure(bridge.CodePiPFailed, err.Error())
	}

	v.mu.Lock()
	v.pipActive = true
	v.mu.Unlock()

	v.handle.Notify(player.Notification{Type: player.NoticePiPStart})

	return bridge.Result{OK: true, Value: true}
}

// ExitPictureInPicture reports PiP teardown from the host side.
func (v *ViewController) ExitPictureInPicture() {
	v.mu.Lock()
	if v.disposed || !v.pipActive {
		v.mu.Unlock()
		return
	}
	v.pipActive = false
	v.controlsVisible = v.params.ShowNativeControls
	v.mu.Unlock()

	v.handle.Notify(player.Notification{Type: player.NoticePiPStop})
}

// Dispose marks the surface disposed, force-dismisses any fullscreen
// presentation and releases the player when it is surface-exclusive.
// Disposing twice is a no-op.
func (v *ViewController) Dispose() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.disposed = true

	fsCtx := v.fsCtx
	v.fsCtx = nil
	v.fsState = FullscreenInline
	v.mu.Unlock()

	// Abandon any in-flight relocation without emitting further
	// transition events for this surface.
	if fsCtx != nil {
		fsCtx.host.Dismiss(fullscreen.ViewToken(v.surfaceID))
		if v.coordinator != nil {
			v.coordinator.Exit()
		}
	}

	v.handle.Unobserve(v.surfaceID)
	v.channel.Detach(v.surfaceID)

	if !v.shared {
		v.handle.Close()
	}
}

// onListen emits the initialization event once the application side
// starts listening, and synthesizes the current playback state when
// the surface joined an already existing player.
func (v *ViewController) onListen() {
	v.listenOnce.Do(func() {
		v.mu.Lock()
		disposed := v.disposed
		v.mu.Unlock()

		if disposed {
			return
		}

		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventInitialized})

		if !v.existed {
			return
		}

		snap := v.handle.Snapshot()

		if snap.Loading {
			v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventLoading})
			return
		}
		if !snap.Loaded {
			return
		}

		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:    bridge.EventVideoLoaded,
			Duration: snap.Duration,
		})

		if snap.CurrentQuality != nil {
			v.channel.Broadcast(v.surfaceID, bridge.Event{
				Event:     bridge.EventQualityChange,
				Quality:   snap.CurrentQuality,
				Qualities: snap.Qualities,
			})
		}

		state := bridge.EventPause
		if snap.Playing {
			state = bridge.EventPlay
		}
		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: state})
	})
}

// observe relays one playback notification to this surface's event
// stream. Notifications arriving after disposal are dropped.
func (v *ViewController) observe(n player.Notification) {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	pendingAutoplay := v.pendingAutoplay
	v.mu.Unlock()

	v.updateNowPlaying(n)

	switch n.Type {
	case player.NoticeLoading:
		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventLoading})

	case player.NoticeReady:
		v.handle.Update(func(s *player.Snapshot) {
			s.AudioTracks = v.handle.Engine().AudioTracks()
			s.SubtitleTracks = v.handle.Engine().SubtitleTracks()
		})

		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:    bridge.EventVideoLoaded,
			Duration: n.Duration,
		})

		if pendingAutoplay {
			v.mu.Lock()
			v.pendingAutoplay = false
			v.mu.Unlock()

			v.handle.Notify(player.Notification{Type: player.NoticePlay})
		}

	case player.NoticeFailed:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:   bridge.EventError,
			Message: n.Message,
		})

	case player.NoticePlay:
		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventPlay})

	case player.NoticePause:
		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventPause})

	case player.NoticeBuffering:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:            bridge.EventBuffering,
			BufferedPosition: n.Buffered,
		})

	case player.NoticeEnded:
		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventCompleted})

	case player.NoticeStopped:
		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventStopped})

	case player.NoticeSeek:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:    bridge.EventSeek,
			Position: n.Position,
		})

	case player.NoticeSpeed:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event: bridge.EventSpeedChange,
			Speed: n.Speed,
		})

	case player.NoticeVolume:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:  bridge.EventVolumeChange,
			Volume: n.Volume,
		})

	case player.NoticeQuality:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:     bridge.EventQualityChange,
			Quality:   n.Quality,
			Qualities: n.Qualities,
		})

	case player.NoticeAudioTrack:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:  bridge.EventAudioTrackChange,
			Track:  n.Track,
			Tracks: n.Tracks,
		})

	case player.NoticeSubtitleTrack:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:  bridge.EventSubtitleTrackChange,
			Track:  n.Track,
			Tracks: n.Tracks,
		})

	case player.NoticeProgress:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:            bridge.EventTimeUpdate,
			Position:         n.Position,
			Duration:         n.Duration,
			BufferedPosition: n.Buffered,
		})

		v.adjustAutoQuality(n)

	case player.NoticeFullscreen:
		v.channel.Broadcast(v.surfaceID, bridge.Event{
			Event:        bridge.EventFullscreenChange,
			IsFullscreen: n.Fullscreen,
		})

	case player.NoticePiPStart:
		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventPiPStart})

	case player.NoticePiPStop:
		v.channel.Broadcast(v.surfaceID, bridge.Event{Event: bridge.EventPiPStop})
	}
}

// updateNowPlaying mirrors playback notifications to the shared media
// session so OS transport surfaces stay current. The snapshot already
// reflects the notification when this runs.
func (v *ViewController) updateNowPlaying(n player.Notification) {
	if v.nowPlaying == nil {
		return
	}

	switch n.Type {
	case player.NoticeReady:
		v.mu.Lock()
		v.meta.Duration = n.Duration
		meta := v.meta
		v.mu.Unlock()

		v.nowPlaying.SetMetadata(meta)

	case player.NoticePlay:
		v.nowPlaying.SetPlaybackState(true, v.handle.Snapshot().Position)

	case player.NoticePause, player.NoticeEnded, player.NoticeStopped:
		v.nowPlaying.SetPlaybackState(false, v.handle.Snapshot().Position)

	case player.NoticeSeek, player.NoticeProgress:
		v.nowPlaying.SetPlaybackState(v.handle.Snapshot().Playing, n.Position)
	}
}

// resolveQualities fetches the quality variants of an HLS stream.
// Resolution is best-effort; failures never fail the load.
func (v *ViewController) resolveQualities(uri string) {
	if !utils.IsHLSURL(uri) {
		return
	}

	if err := v.qualitySem.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer v.qualitySem.Release(1)

	qualities, err := ResolveHLSVariants(context.Background(), uri)
	if err != nil || len(qualities) == 0 {
		return
	}

	v.mu.Lock()
	disposed := v.disposed
	v.mu.Unlock()
	if disposed {
		return
	}

	snap := v.handle.Snapshot()

	current := snap.CurrentQuality
	if current == nil {
		current = &bridge.Quality{Label: QualityAuto, URL: snap.URL}
	}

	v.handle.Notify(player.Notification{
		Type:      player.NoticeQuality,
		Quality:   current,
		Qualities: qualities,
	})
}

// adjustAutoQuality applies the buffer-health ladder when automatic
// quality selection is enabled on this surface.
func (v *ViewController) adjustAutoQuality(n player.Notification) {
	v.mu.Lock()
	enabled := v.autoEnabled
	index := v.autoIndex
	v.mu.Unlock()

	if !enabled || !v.auto.Enabled() {
		return
	}

	snap := v.handle.Snapshot()
	if len(snap.Qualities) < 2 {
		return
	}
	if index < 0 || index >= len(snap.Qualities) {
		index = len(snap.Qualities) - 1
	}

	next := v.auto.Next(n.Position, n.Buffered, index, len(snap.Qualities))
	if next == index {
		return
	}

	quality := snap.Qualities[next]
	if err := v.handle.Engine().SwitchURL(quality.URL, n.Position); err != nil {
		return
	}

	v.mu.Lock()
	v.autoIndex = next
	v.mu.Unlock()

	v.handle.Notify(player.Notification{
		Type:      player.NoticeQuality,
		Quality:   &quality,
		Qualities: snap.Qualities,
	})
}

// qualityIndex locates a quality in the ladder by label.
func qualityIndex(qualities []bridge.Quality, quality *bridge.Quality) int {
	if quality == nil {
		return -1
	}

	for i, q := range qualities {
		if q.Label == quality.Label {
			return i
		}
	}

	return -1
}
