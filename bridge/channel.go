package bridge

import (
	"sync"

	"github.com/darkhz/vidbridge/resolver"
	"github.com/gammazero/deque"
)

// Handler handles commands for one surface on the native side.
// HandleCommand runs on the channel's native loop, one command at a time.
type Handler interface {
	HandleCommand(cmd Command) Result
}

// Channel is the bidirectional message boundary between the
// application layer and the native layer. Commands are delivered to
// per-surface handlers on a single native loop; events are broadcast
// to every subscription of the emitting surface in FIFO order.
//
// Payloads cross the boundary serialized, mirroring a real platform
// channel; malformed payloads are dropped at decode.
type Channel struct {
	mu sync.Mutex

	handlers map[int]Handler
	subs     map[int][]*Subscription
	hooks    map[int]func()

	commands chan envelope
	done     chan struct{}
	closed   bool
}

type envelope struct {
	surfaceID int
	payload   []byte
	reply     chan Result
}

// NewChannel creates a channel and starts its native loop.
func NewChannel() *Channel {
	c := &Channel{
		handlers: make(map[int]Handler),
		subs:     make(map[int][]*Subscription),
		hooks:    make(map[int]func()),
		commands: make(chan envelope, 64),
		done:     make(chan struct{}),
	}

	go c.nativeLoop()

	return c
}

// Attach registers the command handler for a surface.
func (c *Channel) Attach(surfaceID int, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[surfaceID] = handler
}

// Detach removes the command handler for a surface.
// Commands for a detached surface fail with CHANNEL_UNAVAILABLE.
func (c *Channel) Detach(surfaceID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.handlers, surfaceID)
	delete(c.hooks, surfaceID)
}

// OnListen registers a hook invoked when a subscription for the
// surface activates. The native layer uses this to synthesize the
// current state for a newly attached surface.
func (c *Channel) OnListen(surfaceID int, hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hooks[surfaceID] = hook
}

// Invoke sends a command to a surface's handler and returns a channel
// that yields the result once the native loop has processed it.
func (c *Channel) Invoke(surfaceID int, cmd Command) <-chan Result {
	reply := make(chan Result, 1)

	var payload []byte
	if err := resolver.Encode(&payload, cmd); err != nil {
		reply <- Failure(CodeChannelUnavailable, err.Error())
		return reply
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		reply <- Failure(CodeChannelUnavailable, "channel closed")
		return reply
	}

	select {
	case c.commands <- envelope{surfaceID: surfaceID, payload: payload, reply: reply}:
	case <-c.done:
		reply <- Failure(CodeChannelUnavailable, "channel closed")
	}

	return reply
}

// Call sends a command and waits for its result.
func (c *Channel) Call(surfaceID int, cmd Command) Result {
	return <-c.Invoke(surfaceID, cmd)
}

// Subscribe attaches an event subscription for a surface and fires
// the surface's listen hook, if any.
func (c *Channel) Subscribe(surfaceID int) *Subscription {
	sub := newSubscription(surfaceID)

	c.mu.Lock()
	c.subs[surfaceID] = append(c.subs[surfaceID], sub)
	hook := c.hooks[surfaceID]
	c.mu.Unlock()

	if hook != nil {
		hook()
	}

	return sub
}

// Broadcast delivers an event to every subscription of the surface.
// The event round-trips through the codec so that schema validation
// applies at the receiving side; invalid events are dropped.
func (c *Channel) Broadcast(surfaceID int, event Event) {
	var payload []byte
	if err := resolver.Encode(&payload, event); err != nil {
		return
	}

	var decoded Event
	if err := resolver.Decode(payload, &decoded); err != nil {
		return
	}
	if !decoded.Valid() {
		return
	}

	c.mu.Lock()
	subs := append([]*Subscription(nil), c.subs[surfaceID]...)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.push(decoded)
	}
}

// Unsubscribe cancels a subscription and removes it from the channel.
func (c *Channel) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	subs := c.subs[sub.surfaceID]
	for i, s := range subs {
		if s == sub {
			c.subs[sub.surfaceID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	sub.cancel()
}

// Close tears down the channel. Pending commands fail with
// CHANNEL_UNAVAILABLE and all subscriptions are cancelled.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	var all []*Subscription
	for _, subs := range c.subs {
		all = append(all, subs...)
	}
	c.subs = make(map[int][]*Subscription)
	c.mu.Unlock()

	close(c.done)

	for _, sub := range all {
		sub.cancel()
	}
}

// nativeLoop processes commands serially, which keeps every handler
// single-threaded without locks.
func (c *Channel) nativeLoop() {
	for {
		select {
		case env := <-c.commands:
			env.reply <- c.dispatch(env)

		case <-c.done:
			for {
				select {
				case env := <-c.commands:
					env.reply <- Failure(CodeChannelUnavailable, "channel closed")

				default:
					return
				}
			}
		}
	}
}

// dispatch decodes and routes one command envelope.
func (c *Channel) dispatch(env envelope) Result {
	var cmd Command
	if err := resolver.Decode(env.payload, &cmd); err != nil {
		return Failure(CodeChannelUnavailable, err.Error())
	}

	c.mu.Lock()
	handler := c.handlers[env.surfaceID]
	c.mu.Unlock()

	if handler == nil {
		return Failure(CodeChannelUnavailable, "no handler for surface")
	}

	return handler.HandleCommand(cmd)
}

// decode decodes a serialized payload.
func decode(data []byte, apply interface{}) error {
	return resolver.Decode(data, apply)
}

// Subscription is one surface's FIFO event stream. Events are
// buffered so that the native layer never blocks on a slow consumer.
type Subscription struct {
	surfaceID int

	mu        sync.Mutex
	pending   *deque.Deque[Event]
	cancelled bool

	kick   chan struct{}
	events chan Event
	done   chan struct{}
}

func newSubscription(surfaceID int) *Subscription {
	s := &Subscription{
		surfaceID: surfaceID,
		pending:   deque.New[Event](16),
		kick:      make(chan struct{}, 1),
		events:    make(chan Event),
		done:      make(chan struct{}),
	}

	go s.pump()

	return s
}

// SurfaceID returns the surface this subscription listens to.
func (s *Subscription) SurfaceID() int {
	return s.surfaceID
}

// Events returns the subscription's event stream. The stream closes
// when the subscription is cancelled.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// push enqueues an event. Events pushed after cancellation are dropped.
func (s *Subscription) push(event Event) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.pending.PushBack(event)
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// cancel stops delivery. Buffered events are discarded.
func (s *Subscription) cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.pending.Clear()
	s.mu.Unlock()

	close(s.done)
}

// pump moves events from the pending queue to the consumer in order.
func (s *Subscription) pump() {
	defer close(s.events)

	for {
		select {
		case <-s.kick:
		case <-s.done:
			return
		}

		for {
			s.mu.Lock()
			if s.cancelled || s.pending.Len() == 0 {
				s.mu.Unlock()
				break
			}
			event := s.pending.PopFront()
			s.mu.Unlock()

			select {
			case s.events <- event:
			case <-s.done:
				return
			}
		}
	}
}
