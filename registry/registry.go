// Package registry maps logical player identifiers to shared native
// player handles and their secondary services. A registry is an
// explicitly constructed object owned by the embedding application;
// there is no process-wide instance.
package registry

import (
	"sync"

	"github.com/darkhz/vidbridge/player"
	"golang.org/x/sync/singleflight"
)

// Sink receives OS-level transport-control callbacks routed through a
// shared service.
type Sink interface {
	Play()
	Pause()
	SeekTo(milliseconds int64)
	Stop()
}

// Service is a shared per-logical-id helper, such as a media-session
// handler, whose active event sink is swapped whenever a different
// surface becomes primary for the logical id.
type Service interface {
	SetSink(sink Sink)
	Close() error
}

// Registry owns one player handle and one service set per logical
// player id. Handles are created lazily on first acquisition and
// retained across individual surface disposals.
type Registry struct {
	mu    sync.Mutex
	group singleflight.Group

	players  map[string]*player.Handle
	services map[string]Service
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		players:  make(map[string]*player.Handle),
		services: make(map[string]Service),
	}
}

// Acquire returns the handle for the logical id, creating it with the
// given factory when absent. Concurrent acquisitions of the same id
// serialize so that exactly one handle is ever created; the boolean
// reports whether the handle already existed.
func (r *Registry) Acquire(logicalID string, create func() *player.Handle) (*player.Handle, bool) {
	var created bool

	v, _, _ := r.group.Do(logicalID, func() (interface{}, error) {
		r.mu.Lock()
		if handle, ok := r.players[logicalID]; ok {
			r.mu.Unlock()
			return handle, nil
		}
		r.mu.Unlock()

		handle := create()

		r.mu.Lock()
		r.players[logicalID] = handle
		r.mu.Unlock()

		created = true

		return handle, nil
	})

	return v.(*player.Handle), !created
}

// Release tears down the handle and service for the logical id.
// Callers only release an id when no surface references it anymore;
// releasing an unknown id is a silent no-op.
func (r *Registry) Release(logicalID string) {
	r.mu.Lock()
	handle := r.players[logicalID]
	service := r.services[logicalID]
	delete(r.players, logicalID)
	delete(r.services, logicalID)
	r.mu.Unlock()

	if handle != nil {
		handle.Close()
	}
	if service != nil {
		service.Close()
	}
}

// AcquireService returns the shared service for the logical id,
// creating it with the given factory when absent.
func (r *Registry) AcquireService(logicalID string, create func() Service) Service {
	r.mu.Lock()
	defer r.mu.Unlock()

	if service, ok := r.services[logicalID]; ok {
		return service
	}

	service := create()
	r.services[logicalID] = service

	return service
}

// Handle returns the handle for the logical id, if present.
func (r *Registry) Handle(logicalID string) (*player.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.players[logicalID]

	return handle, ok
}

// Close releases every registered handle and service.
func (r *Registry) Close() {
	r.mu.Lock()
	players := r.players
	services := r.services
	r.players = make(map[string]*player.Handle)
	r.services = make(map[string]Service)
	r.mu.Unlock()

	for _, handle := range players {
		handle.Close()
	}
	for _, service := range services {
		service.Close()
	}
}
