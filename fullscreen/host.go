package fullscreen

// ViewToken identifies a relocatable platform view by its surface id.
type ViewToken int

// Container is a parent a view attaches to. The inline parent of a
// view is a Container; so is a fullscreen presentation.
type Container interface {
	Attach(view ViewToken)
	Detach(view ViewToken)
}

// Host is a window-level context that fullscreen and
// Picture-in-Picture presentations attach to.
type Host interface {
	// Present attaches the view to a fullscreen presentation.
	Present(view ViewToken) error

	// Dismiss tears down the fullscreen presentation, detaching the
	// view. It tolerates being called with no presentation active.
	Dismiss(view ViewToken)

	EnterPictureInPicture() error
	PictureInPictureSupported() bool
}

// HostProvider resolves the host context for a view. Providers are
// injected explicitly instead of being read from process-wide state.
type HostProvider interface {
	CurrentHost() (Host, bool)
}

// HostProviderFunc adapts a function to a HostProvider.
type HostProviderFunc func() (Host, bool)

// CurrentHost calls the function.
func (f HostProviderFunc) CurrentHost() (Host, bool) {
	return f()
}

// ChainProvider resolves hosts through a fallback chain: the first
// provider that yields a host wins. Typical order is an explicit
// foreground-host tracker followed by the view's own ambient context.
type ChainProvider struct {
	Providers []HostProvider
}

// CurrentHost walks the chain.
func (c ChainProvider) CurrentHost() (Host, bool) {
	for _, p := range c.Providers {
		if p == nil {
			continue
		}

		if host, ok := p.CurrentHost(); ok {
			return host, true
		}
	}

	return nil, false
}

// NoChrome is a SystemChrome that performs no system calls, for hosts
// without manipulable chrome.
type NoChrome struct{}

// HideSystemBars implements SystemChrome.
func (NoChrome) HideSystemBars() error { return nil }

// ShowSystemBars implements SystemChrome.
func (NoChrome) ShowSystemBars() error { return nil }

// LockOrientations implements SystemChrome.
func (NoChrome) LockOrientations([]Orientation) error { return nil }

// ReleaseOrientations implements SystemChrome.
func (NoChrome) ReleaseOrientations() error { return nil }
