// Package controller implements the application-facing playback
// controller: it reconciles events from one or more native surfaces
// into one logical playback state and exposes the command API.
package controller

import (
	"context"
	"sync"

	"github.com/darkhz/vidbridge/bridge"
	"github.com/darkhz/vidbridge/registry"
)

// surfaceEvent tags an event with the surface that delivered it.
type surfaceEvent struct {
	surfaceID int
	event     bridge.Event
}

type listenerEntry struct {
	id int
	fn Listener
}

// Controller is the application-side playback controller for one
// logical player. The first registered surface becomes primary and
// owns the command channel; every registered surface feeds events into
// the shared state.
type Controller struct {
	channel *bridge.Channel

	mu sync.Mutex

	state PlaybackState

	listeners    []listenerEntry
	nextListener int

	surfaces   map[int]*bridge.Subscription
	primary    int
	hasPrimary bool

	// everInitialized re-arms the command channel when a replacement
	// surface is promoted after the primary was disposed.
	everInitialized bool

	initCh   chan struct{}
	initDone bool

	loading  bool
	loadWait chan error

	seekInFlight bool

	service registry.Service

	events   chan surfaceEvent
	done     chan struct{}
	disposed bool
}

// New creates a controller over the given channel.
func New(channel *bridge.Channel) *Controller {
	c := &Controller{
		channel:  channel,
		surfaces: make(map[int]*bridge.Subscription),
		initCh:   make(chan struct{}),
		events:   make(chan surfaceEvent, 64),
		done:     make(chan struct{}),
		state: PlaybackState{
			Volume: 1,
			Speed:  1,
		},
	}

	go c.reconcileLoop()

	return c
}

// Initialize suspends until the first surface's event channel delivers
// the initialization signal, establishing the command channel.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	initCh := c.initCh
	c.mu.Unlock()

	select {
	case <-initCh:
		return nil

	case <-ctx.Done():
		return ctx.Err()

	case <-c.done:
		return ErrDisposed
	}
}

// OnSurfaceCreated attaches an event subscription for the surface.
// Every surface gets one; the first to register becomes primary.
func (c *Controller) OnSurfaceCreated(surfaceID int) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	if _, ok := c.surfaces[surfaceID]; ok {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	sub := c.channel.Subscribe(surfaceID)

	c.mu.Lock()
	c.surfaces[surfaceID] = sub

	promoted := false
	if !c.hasPrimary {
		c.primary = surfaceID
		c.hasPrimary = true
		promoted = true

		// A replacement surface re-establishes a previously
		// initialized command channel immediately.
		if c.everInitialized {
			c.state.Initialized = true
			c.initDone = true
		}
	}
	service := c.service
	c.mu.Unlock()

	if promoted && service != nil {
		service.SetSink(TransportSink{Controller: c})
	}

	go c.forward(surfaceID, sub)
}

// OnSurfaceDisposed cancels the surface's subscription. Disposing the
// primary surface tears down the command channel until another surface
// registers.
func (c *Controller) OnSurfaceDisposed(surfaceID int) {
	c.mu.Lock()
	sub, ok := c.surfaces[surfaceID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.surfaces, surfaceID)

	if c.hasPrimary && c.primary == surfaceID {
		c.hasPrimary = false
		c.state.Initialized = false
		c.state.Loaded = false
		c.initDone = false
		c.loading = false
	}
	c.mu.Unlock()

	c.channel.Unsubscribe(sub)
}

// AddListener registers a listener, returning its registration id.
// Listeners are invoked in registration order.
func (c *Controller) AddListener(fn Listener) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextListener++
	c.listeners = append(c.listeners, listenerEntry{id: c.nextListener, fn: fn})

	return c.nextListener
}

// RemoveListener removes a listener by registration id.
func (c *Controller) RemoveListener(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, entry := range c.listeners {
		if entry.id == id {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// AttachService connects the shared media-session service so that
// OS transport controls route to this controller. The sink is
// re-pointed on every primary promotion.
func (c *Controller) AttachService(service registry.Service) {
	c.mu.Lock()
	c.service = service
	attach := c.hasPrimary
	c.mu.Unlock()

	if service != nil && attach {
		service.SetSink(TransportSink{Controller: c})
	}
}

// State returns a copy of the reconciled playback state.
func (c *Controller) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Load loads a URL into the player and suspends until the native
// layer reports readiness or failure. Loading while already loaded or
// loading is a no-op.
func (c *Controller) Load(ctx context.Context, url string, headers map[string]string) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initDone && !c.everInitialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if !c.hasPrimary {
		c.mu.Unlock()
		return ErrChannelUnavailable
	}
	if c.state.Loaded || c.loading {
		c.mu.Unlock()
		return nil
	}

	c.loading = true
	c.loadWait = make(chan error, 1)
	wait := c.loadWait
	primary := c.primary
	c.mu.Unlock()

	res := c.channel.Call(primary, bridge.Command{
		Command: bridge.CommandLoad,
		URL:     url,
		Headers: headers,
	})
	if !res.OK {
		c.mu.Lock()
		c.loading = false
		c.loadWait = nil
		c.mu.Unlock()

		return commandError(res)
	}

	select {
	case err := <-wait:
		return err

	case <-ctx.Done():
		return ctx.Err()

	case <-c.done:
		return ErrDisposed
	}
}

// Play resumes playback.
func (c *Controller) Play() error {
	return c.command(bridge.Command{Command: bridge.CommandPlay})
}

// Pause pauses playback.
func (c *Controller) Pause() error {
	return c.command(bridge.Command{Command: bridge.CommandPause})
}

// SeekTo seeks to an absolute position in milliseconds. Time updates
// are suppressed until the seek confirmation arrives so that an
// in-progress scrub is not visually overwritten.
func (c *Controller) SeekTo(milliseconds int64) error {
	c.mu.Lock()
	c.seekInFlight = true
	c.mu.Unlock()

	err := c.command(bridge.Command{
		Command:      bridge.CommandSeekTo,
		Milliseconds: milliseconds,
	})
	if err != nil {
		c.mu.Lock()
		c.seekInFlight = false
		c.mu.Unlock()
	}

	return err
}

// SetVolume sets the volume, from 0.0 to 1.0.
func (c *Controller) SetVolume(volume float64) error {
	return c.command(bridge.Command{Command: bridge.CommandSetVolume, Volume: volume})
}

// SetSpeed sets the playback speed.
func (c *Controller) SetSpeed(speed float64) error {
	return c.command(bridge.Command{Command: bridge.CommandSetSpeed, Speed: speed})
}

// SetQuality switches to a quality variant.
func (c *Controller) SetQuality(quality bridge.Quality) error {
	return c.command(bridge.Command{Command: bridge.CommandSetQuality, Quality: &quality})
}

// SetAudioTrack selects an audio track by language, id or label.
func (c *Controller) SetAudioTrack(selector string) error {
	return c.command(bridge.Command{Command: bridge.CommandSetAudioTrack, Language: selector})
}

// SetSubtitleTrack selects a subtitle track by language, id or label.
func (c *Controller) SetSubtitleTrack(selector string) error {
	return c.command(bridge.Command{Command: bridge.CommandSetSubtitleTrack, Language: selector})
}

// SetShowNativeControls toggles the native playback controls.
func (c *Controller) SetShowNativeControls(show bool) error {
	return c.command(bridge.Command{Command: bridge.CommandSetShowNativeControls, Show: show})
}

// EnterFullScreen requests the fullscreen presentation. The local
// flag is set optimistically; the fullscreenChange event remains
// authoritative and overwrites it.
func (c *Controller) EnterFullScreen() error {
	return c.fullscreenCommand(true)
}

// ExitFullScreen requests leaving the fullscreen presentation.
func (c *Controller) ExitFullScreen() error {
	return c.fullscreenCommand(false)
}

// ToggleFullScreen flips the fullscreen presentation.
func (c *Controller) ToggleFullScreen() error {
	c.mu.Lock()
	entering := !c.state.IsFullscreen
	c.mu.Unlock()

	return c.fullscreenCommand(entering)
}

// IsPictureInPictureAvailable reports whether PiP can be entered.
func (c *Controller) IsPictureInPictureAvailable() (bool, error) {
	c.mu.Lock()
	if !c.hasPrimary {
		c.mu.Unlock()
		return false, ErrChannelUnavailable
	}
	primary := c.primary
	c.mu.Unlock()

	res := c.channel.Call(primary, bridge.Command{Command: bridge.CommandIsPiPAvailable})
	if !res.OK {
		return false, commandError(res)
	}

	return res.Value, nil
}

// EnterPictureInPicture enters Picture-in-Picture mode.
func (c *Controller) EnterPictureInPicture() (bool, error) {
	c.mu.Lock()
	if !c.hasPrimary {
		c.mu.Unlock()
		return false, ErrChannelUnavailable
	}
	primary := c.primary
	c.mu.Unlock()

	res := c.channel.Call(primary, bridge.Command{Command: bridge.CommandEnterPiP})
	if !res.OK {
		return false, commandError(res)
	}

	return res.Value, nil
}

// Dispose exits fullscreen if active, cancels every surface
// subscription and clears listener registrations. Disposing twice is
// a no-op.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true

	fullscreenActive := c.state.IsFullscreen && c.hasPrimary
	primary := c.primary

	subs := make([]*bridge.Subscription, 0, len(c.surfaces))
	for _, sub := range c.surfaces {
		subs = append(subs, sub)
	}
	c.surfaces = make(map[int]*bridge.Subscription)
	c.hasPrimary = false
	c.listeners = nil
	c.mu.Unlock()

	if fullscreenActive {
		c.channel.Call(primary, bridge.Command{Command: bridge.CommandExitFullscreen})
	}

	for _, sub := range subs {
		c.channel.Unsubscribe(sub)
	}

	close(c.done)
}

// command issues a fire-and-forget command on the primary surface.
func (c *Controller) command(cmd bridge.Command) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initDone && !c.everInitialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if !c.hasPrimary {
		c.mu.Unlock()
		return ErrChannelUnavailable
	}
	primary := c.primary
	c.mu.Unlock()

	res := c.channel.Call(primary, cmd)
	if !res.OK {
		return commandError(res)
	}

	return nil
}

// fullscreenCommand sets the optimistic flag and round-trips the
// request to the native layer.
func (c *Controller) fullscreenCommand(entering bool) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.hasPrimary {
		c.mu.Unlock()
		return ErrChannelUnavailable
	}
	primary := c.primary
	previous := c.state.IsFullscreen
	c.state.IsFullscreen = entering
	c.mu.Unlock()

	command := bridge.CommandExitFullscreen
	if entering {
		command = bridge.CommandEnterFullscreen
	}

	res := c.channel.Call(primary, bridge.Command{Command: command})
	if !res.OK {
		c.mu.Lock()
		c.state.IsFullscreen = previous
		c.mu.Unlock()

		return commandError(res)
	}

	return nil
}

// forward feeds a subscription's events into the reconciliation loop
// until the subscription closes.
func (c *Controller) forward(surfaceID int, sub *bridge.Subscription) {
	for event := range sub.Events() {
		select {
		case c.events <- surfaceEvent{surfaceID: surfaceID, event: event}:
		case <-c.done:
			return
		}
	}
}

// reconcileLoop is the single routine mutating the shared playback
// state. Events from any surface update the state last-write-wins per
// field, then fan out to every listener.
func (c *Controller) reconcileLoop() {
	for {
		select {
		case se := <-c.events:
			c.reconcile(se)

		case <-c.done:
			return
		}
	}
}

// reconcile applies one event to the shared state and notifies
// listeners. Events from surfaces that are no longer registered are
// dropped.
func (c *Controller) reconcile(se surfaceEvent) {
	event := se.event

	c.mu.Lock()

	if _, ok := c.surfaces[se.surfaceID]; !ok || c.disposed {
		c.mu.Unlock()
		return
	}

	var loadResult chan error
	var loadErr error
	signalInit := false

	switch event.Event {
	case bridge.EventInitialized:
		c.state.Initialized = true
		c.initDone = true
		if !c.everInitialized {
			c.everInitialized = true
			signalInit = true
		}

	case bridge.EventLoading:
		c.state.Activity = ActivityLoading

	case bridge.EventVideoLoaded:
		c.state.Duration = event.Duration
		c.state.Loaded = true
		c.state.Activity = ActivityPaused
		c.loading = false
		if c.loadWait != nil {
			loadResult = c.loadWait
			c.loadWait = nil
		}

	case bridge.EventPlay:
		c.state.Activity = ActivityPlaying

	case bridge.EventPause:
		c.state.Activity = ActivityPaused

	case bridge.EventBuffering:
		c.state.Activity = ActivityBuffering
		c.state.BufferedPosition = event.BufferedPosition

	case bridge.EventCompleted:
		c.state.Activity = ActivityCompleted
		c.state.Position = c.state.Duration

	case bridge.EventError:
		c.state.Activity = ActivityError
		c.state.ErrorMessage = event.Message
		if c.loading {
			c.loading = false
			if c.loadWait != nil {
				loadResult = c.loadWait
				c.loadWait = nil
				loadErr = &LoadError{Message: event.Message}
			}
		}

	case bridge.EventSeek:
		c.state.Position = event.Position
		c.seekInFlight = false

	case bridge.EventSpeedChange:
		c.state.Speed = event.Speed

	case bridge.EventVolumeChange:
		c.state.Volume = event.Volume

	case bridge.EventQualityChange:
		c.state.CurrentQuality = event.Quality
		if event.Qualities != nil {
			c.state.Qualities = event.Qualities
		}

	case bridge.EventAudioTrackChange:
		c.state.CurrentAudioTrack = event.Track
		if event.Tracks != nil {
			c.state.AudioTracks = event.Tracks
		}

	case bridge.EventSubtitleTrackChange:
		c.state.CurrentSubtitleTrack = event.Track
		if event.Tracks != nil {
			c.state.SubtitleTracks = event.Tracks
		}

	case bridge.EventTimeUpdate:
		if !c.seekInFlight {
			c.state.Position = event.Position
			if event.Duration > 0 {
				c.state.Duration = event.Duration
			}
			c.state.BufferedPosition = event.BufferedPosition
		}

	case bridge.EventFullscreenChange:
		c.state.IsFullscreen = event.IsFullscreen

	case bridge.EventPiPStart:
		c.state.IsPictureInPicture = true

	case bridge.EventPiPStop:
		c.state.IsPictureInPicture = false

	case bridge.EventStopped:
		c.state.Activity = ActivityIdle
		c.state.Loaded = false
		c.state.Position = 0
	}

	listeners := make([]Listener, 0, len(c.listeners))
	for _, entry := range c.listeners {
		listeners = append(listeners, entry.fn)
	}
	c.mu.Unlock()

	if signalInit {
		close(c.initCh)
	}
	if loadResult != nil {
		loadResult <- loadErr
	}

	for _, fn := range listeners {
		invoke(fn, event)
	}
}

// invoke calls a listener, isolating panics so one failing listener
// cannot prevent delivery to the rest.
func invoke(fn Listener, event bridge.Event) {
	defer func() {
		recover()
	}()

	fn(event)
}

// LoadError reports a native load failure surfaced via an error event.
type LoadError struct {
	Message string
}

// Error implements error.
func (e *LoadError) Error() string {
	return "controller: load failed: " + e.Message
}

// commandError maps a failed command result to a controller error.
func commandError(res bridge.Result) error {
	switch res.Code {
	case bridge.CodeInvalidURL:
		return ErrInvalidURL

	case bridge.CodeNoActivity:
		return ErrNoHostContext

	case bridge.CodeNotSupported:
		return ErrPiPNotSupported

	case bridge.CodePiPFailed:
		return ErrPiPFailed

	case bridge.CodeChannelUnavailable, bridge.CodeDisposed:
		return ErrChannelUnavailable
	}

	return &LoadError{Message: res.Message}
}
