// Package fullscreen manages the system-level side effects of
// fullscreen transitions and resolves the host context that fullscreen
// and Picture-in-Picture presentations attach to.
package fullscreen

import "sync"

// Orientation is a device orientation a fullscreen presentation can
// be locked to.
type Orientation string

const (
	OrientationPortraitUp     Orientation = "portraitUp"
	OrientationPortraitDown   Orientation = "portraitDown"
	OrientationLandscapeLeft  Orientation = "landscapeLeft"
	OrientationLandscapeRight Orientation = "landscapeRight"
)

// SystemChrome manipulates system bars and orientation constraints on
// the host platform.
type SystemChrome interface {
	HideSystemBars() error
	ShowSystemBars() error
	LockOrientations(orientations []Orientation) error
	ReleaseOrientations() error
}

// Coordinator applies and restores system chrome around fullscreen
// transitions. Exit is idempotent; a second exit before any enter is
// a no-op.
type Coordinator struct {
	chrome SystemChrome

	mu     sync.Mutex
	active bool
}

// NewCoordinator creates a coordinator over the given system chrome.
func NewCoordinator(chrome SystemChrome) *Coordinator {
	return &Coordinator{chrome: chrome}
}

// Enter hides the system bars and applies orientation constraints.
// An explicit orientation list takes precedence; otherwise the
// lockLandscape flag selects landscape-only against all orientations.
func (c *Coordinator) Enter(orientations []Orientation, lockLandscape bool) error {
	c.mu.Lock()
	c.active = true
	c.mu.Unlock()

	if err := c.chrome.HideSystemBars(); err != nil {
		return err
	}

	if len(orientations) == 0 && lockLandscape {
		orientations = []Orientation{
			OrientationLandscapeLeft,
			OrientationLandscapeRight,
		}
	}
	if len(orientations) == 0 {
		return nil
	}

	return c.chrome.LockOrientations(orientations)
}

// Exit restores the system bars and releases orientation constraints
// back to the host application's defaults.
func (c *Coordinator) Exit() error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = false
	c.mu.Unlock()

	if err := c.chrome.ShowSystemBars(); err != nil {
		return err
	}

	return c.chrome.ReleaseOrientations()
}

// Active reports whether a coordinator-managed fullscreen is in effect.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.active
}
