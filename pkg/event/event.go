// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	WallCollision     Type = "wall_collision"
	ParticleCollision Type = "particle_collision"
	FrameAdvanced     Type = "frame_advanced"
	SimulationStarted Type = "simulation_started"
	SimulationStopped Type = "simulation_stopped"
	StateSaved        Type = "state_saved"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed later
type Subscription struct {
	ID        uint64
	EventType Type
	Cancel    func()
}

type registeredHandler struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]registeredHandler
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registeredHandler),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registeredHandler{id: id, handler: handler})

	sub := &Subscription{ID: id, EventType: eventType}
	sub.Cancel = func() { b.Unsubscribe(sub) }
	return sub
}

// Unsubscribe removes a previously registered handler. It reports whether the
// subscription was found.
func (b *Bus) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[sub.EventType]
	for i, h := range handlers {
		if h.id == sub.ID {
			b.handlers[sub.EventType] = append(handlers[:i:i], handlers[i+1:]...)
			return true
		}
	}
	return false
}

// HasSubscribers reports whether any handler listens for eventType. Publishers
// on hot paths use it to skip building events nobody reads.
func (b *Bus) HasSubscribers(eventType Type) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) > 0
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, h := range handlers {
		h.handler(event)
	}
}

// WallCollisionEvent is published when a particle reflects off a wall
type WallCollisionEvent struct {
	BaseEvent
	Frame    uint64
	Particle int
}

// NewWallCollisionEvent creates a new wall collision event
func NewWallCollisionEvent(source interface{}, frame uint64, particle int) *WallCollisionEvent {
	return &WallCollisionEvent{
		BaseEvent: BaseEvent{
			EventType: WallCollision,
			Source:    source,
		},
		Frame:    frame,
		Particle: particle,
	}
}

// ParticleCollisionEvent contains the indices of two colliding particles
type ParticleCollisionEvent struct {
	BaseEvent
	Frame     uint64
	ParticleA int
	ParticleB int
}

// NewParticleCollisionEvent creates a new particle collision event
func NewParticleCollisionEvent(source interface{}, frame uint64, a, b int) *ParticleCollisionEvent {
	return &ParticleCollisionEvent{
		BaseEvent: BaseEvent{
			EventType: ParticleCollision,
			Source:    source,
		},
		Frame:     frame,
		ParticleA: a,
		ParticleB: b,
	}
}

// FrameEvent is published after a frame completes and for lifecycle changes
type FrameEvent struct {
	BaseEvent
	Frame              uint64
	WallCollisions     int
	ParticleCollisions int
}

// NewFrameEvent creates a new frame event
func NewFrameEvent(eventType Type, source interface{}, frame uint64, wallHits, particleHits int) *FrameEvent {
	return &FrameEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Frame:              frame,
		WallCollisions:     wallHits,
		ParticleCollisions: particleHits,
	}
}
