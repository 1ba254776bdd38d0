package controller

// TransportSink adapts a controller to the shared-service sink so
// that OS-level transport controls (play/pause/seek from a system
// media notification) route to a live controller.
type TransportSink struct {
	Controller *Controller
}

// Play implements registry.Sink.
func (s TransportSink) Play() {
	s.Controller.Play()
}

// Pause implements registry.Sink.
func (s TransportSink) Pause() {
	s.Controller.Pause()
}

// SeekTo implements registry.Sink.
func (s TransportSink) SeekTo(milliseconds int64) {
	s.Controller.SeekTo(milliseconds)
}

// Stop implements registry.Sink. Stop is mapped to pause; the bridge
// has no standalone stop command.
func (s TransportSink) Stop() {
	s.Controller.Pause()
}
