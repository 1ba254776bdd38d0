package native

import (
	"github.com/darkhz/vidbridge/bridge"
	"github.com/darkhz/vidbridge/fullscreen"
	"github.com/darkhz/vidbridge/player"
)

// FullscreenState is one of the four states of the fullscreen
// transition machine.
type FullscreenState int

const (
	FullscreenInline FullscreenState = iota
	FullscreenEntering
	FullscreenActive
	FullscreenExiting
)

// transitionContext captures what a transition needs for restoration:
// the pre-transition parent container, the host presenting the view
// and whether the transition came from an on-screen affordance.
type transitionContext struct {
	parent        fullscreen.Container
	host          fullscreen.Host
	userInitiated bool
}

// FullscreenState returns the current transition state.
func (v *ViewController) FullscreenState() FullscreenState {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.fsState
}

// toggleFullscreen runs the transition machine.
//
// An on-screen affordance only communicates the direction it believes
// it should move toward; when that belief contradicts the controller's
// authoritative state, the requested direction is inverted instead of
// trusted. Command-initiated requests that match the current state are
// no-ops. Requests during an in-flight transition are dropped.
func (v *ViewController) toggleFullscreen(entering, userInitiated bool) bridge.Result {
	v.mu.Lock()

	if v.disposed {
		v.mu.Unlock()
		return bridge.Success()
	}

	switch v.fsState {
	case FullscreenEntering, FullscreenExiting:
		v.mu.Unlock()
		return bridge.Success()

	case FullscreenActive:
		if entering {
			if !userInitiated {
				v.mu.Unlock()
				return bridge.Success()
			}

			entering = false
		}

	case FullscreenInline:
		if !entering {
			if !userInitiated {
				v.mu.Unlock()
				return bridge.Success()
			}

			entering = true
		}
	}
	v.mu.Unlock()

	if entering {
		return v.enterFullscreen(userInitiated)
	}

	return v.exitFullscreen()
}

// enterFullscreen relocates the view from its inline container to the
// host's fullscreen presentation.
func (v *ViewController) enterFullscreen(userInitiated bool) bridge.Result {
	host, ok := v.hosts.CurrentHost()
	if !ok {
		return bridge.Failure(bridge.CodeNoActivity, "no host context")
	}

	ctx := &transitionContext{
		parent:        v.inline,
		host:          host,
		userInitiated: userInitiated,
	}

	v.mu.Lock()
	v.fsState = FullscreenEntering
	v.fsCtx = ctx
	v.mu.Unlock()

	token := fullscreen.ViewToken(v.surfaceID)

	if ctx.parent != nil {
		ctx.parent.Detach(token)
	}

	if err := host.Present(token); err != nil {
		if ctx.parent != nil {
			ctx.parent.Attach(token)
		}

		v.mu.Lock()
		v.fsState = FullscreenInline
		v.fsCtx = nil
		v.mu.Unlock()

		return bridge.Failure(bridge.CodeNoActivity, err.Error())
	}

	if v.coordinator != nil {
		v.coordinator.Enter(v.orientations, v.lockLandscape)
	}

	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return bridge.Success()
	}
	v.fsState = FullscreenActive
	v.mu.Unlock()

	v.handle.Notify(player.Notification{
		Type:       player.NoticeFullscreen,
		Fullscreen: true,
	})

	return bridge.Success()
}

// exitFullscreen dismisses the presentation and reattaches the view
// to its original inline container.
func (v *ViewController) exitFullscreen() bridge.Result {
	v.mu.Lock()
	ctx := v.fsCtx
	if ctx == nil {
		v.fsState = FullscreenInline
		v.mu.Unlock()
		return bridge.Success()
	}
	v.fsState = FullscreenExiting
	v.mu.Unlock()

	token := fullscreen.ViewToken(v.surfaceID)

	ctx.host.Dismiss(token)
	if ctx.parent != nil {
		ctx.parent.Attach(token)
	}

	if v.coordinator != nil {
		v.coordinator.Exit()
	}

	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return bridge.Success()
	}
	v.fsState = FullscreenInline
	v.fsCtx = nil
	v.mu.Unlock()

	v.handle.Notify(player.Notification{
		Type:       player.NoticeFullscreen,
		Fullscreen: false,
	})

	return bridge.Success()
}
