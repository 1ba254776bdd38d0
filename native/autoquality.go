package native

import "time"

// AutoQuality is the buffer-health ladder driving automatic quality
// switching: the rung steps down when buffered media ahead of the
// playhead drops below Low, and up when it exceeds High.
type AutoQuality struct {
	Low  time.Duration
	High time.Duration
}

// DefaultAutoQuality returns the default ladder thresholds.
func DefaultAutoQuality() AutoQuality {
	return AutoQuality{
		Low:  5 * time.Second,
		High: 30 * time.Second,
	}
}

// Enabled reports whether the ladder has usable thresholds.
func (a AutoQuality) Enabled() bool {
	return a.Low > 0 && a.High > a.Low
}

// Next returns the next rung for the given playback position and
// buffered position, both in milliseconds. The result is monotonic in
// buffer health and never leaves the ladder's bounds.
func (a AutoQuality) Next(position, buffered int64, current, count int) int {
	if count == 0 {
		return current
	}

	health := time.Duration(buffered-position) * time.Millisecond

	switch {
	case health < a.Low && current > 0:
		return current - 1

	case health > a.High && current < count-1:
		return current + 1
	}

	return current
}
