//go:build !linux

package mediasession

// startServer is a no-op on platforms without a media-session server.
func startServer(_ *Session) func() error {
	return func() error {
		return nil
	}
}
