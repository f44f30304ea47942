// pkg/event/event_test.go
package event

import (
	"sync"
	"testing"
)

func TestNewEventBus_Creation_ReturnsInitializedBus(t *testing.T) {
	bus := NewEventBus()

	if bus == nil {
		t.Fatal("NewEventBus() returned nil")
	}
	if bus.handlers == nil {
		t.Error("handlers map not initialized")
	}
	if bus.nextID != 1 {
		t.Errorf("expected nextID to be 1, got %d", bus.nextID)
	}
}

func TestBaseEvent_GetType_ReturnsCorrectType(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		source    interface{}
	}{
		{"WallCollision event", WallCollision, "container"},
		{"FrameAdvanced event", FrameAdvanced, 123},
		{"Empty source", SimulationStarted, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &BaseEvent{EventType: tt.eventType, Source: tt.source}

			if event.GetType() != tt.eventType {
				t.Errorf("GetType() = %v, want %v", event.GetType(), tt.eventType)
			}
			if event.GetSource() != tt.source {
				t.Errorf("GetSource() = %v, want %v", event.GetSource(), tt.source)
			}
		})
	}
}

func TestBusSubscribe_MultipleHandlers_AllRegistered(t *testing.T) {
	bus := NewEventBus()

	sub1 := bus.Subscribe(ParticleCollision, func(Event) {})
	sub2 := bus.Subscribe(ParticleCollision, func(Event) {})
	_ = bus.Subscribe(WallCollision, func(Event) {})

	if sub1.ID == sub2.ID {
		t.Error("subscriptions should have unique IDs")
	}
	if sub1.Cancel == nil {
		t.Error("subscription should carry a Cancel function")
	}
	if !bus.HasSubscribers(ParticleCollision) || !bus.HasSubscribers(WallCollision) {
		t.Error("HasSubscribers() should report registered types")
	}
	if bus.HasSubscribers(StateSaved) {
		t.Error("HasSubscribers() should be false for unused types")
	}

	bus.mu.RLock()
	defer bus.mu.RUnlock()
	if len(bus.handlers[ParticleCollision]) != 2 {
		t.Errorf("expected 2 particle collision handlers, got %d", len(bus.handlers[ParticleCollision]))
	}
}

func TestBusPublish_WithSubscribers_CallsMatchingHandlers(t *testing.T) {
	bus := NewEventBus()

	var wallCalls, frameCalls int
	bus.Subscribe(WallCollision, func(e Event) {
		wallCalls++
		if ev, ok := e.(*WallCollisionEvent); !ok || ev.Particle != 3 {
			t.Errorf("unexpected event payload %#v", e)
		}
	})
	bus.Subscribe(FrameAdvanced, func(Event) { frameCalls++ })

	bus.Publish(NewWallCollisionEvent(nil, 7, 3))
	bus.Publish(NewWallCollisionEvent(nil, 8, 3))
	bus.Publish(NewParticleCollisionEvent(nil, 8, 0, 1))

	if wallCalls != 2 {
		t.Errorf("expected 2 wall handler calls, got %d", wallCalls)
	}
	if frameCalls != 0 {
		t.Errorf("frame handler should not be called, got %d", frameCalls)
	}
}

func TestSubscriptionCancel_ValidSubscription_RemovesHandler(t *testing.T) {
	bus := NewEventBus()

	var first, second int
	sub := bus.Subscribe(FrameAdvanced, func(Event) { first++ })
	bus.Subscribe(FrameAdvanced, func(Event) { second++ })

	sub.Cancel()
	bus.Publish(NewFrameEvent(FrameAdvanced, nil, 1, 0, 0))

	if first != 0 {
		t.Error("cancelled handler should not be called")
	}
	if second != 1 {
		t.Errorf("remaining handler should be called once, got %d", second)
	}
	if bus.Unsubscribe(sub) {
		t.Error("second Unsubscribe should report the subscription as missing")
	}
	if bus.Unsubscribe(nil) {
		t.Error("Unsubscribe(nil) should return false")
	}
}

func TestBusSubscribe_ConcurrentAccess_ThreadSafe(t *testing.T) {
	bus := NewEventBus()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe(ParticleCollision, func(Event) {})
		}()
		go func() {
			defer wg.Done()
			bus.Publish(NewParticleCollisionEvent(nil, 0, 1, 2))
		}()
	}
	wg.Wait()

	bus.mu.RLock()
	defer bus.mu.RUnlock()
	if len(bus.handlers[ParticleCollision]) != 50 {
		t.Errorf("expected 50 handlers, got %d", len(bus.handlers[ParticleCollision]))
	}
}

func TestNewFrameEvent_ValidParameters_ReturnsCorrectEvent(t *testing.T) {
	ev := NewFrameEvent(FrameAdvanced, "engine", 42, 3, 5)

	if ev.GetType() != FrameAdvanced {
		t.Errorf("GetType() = %v, want %v", ev.GetType(), FrameAdvanced)
	}
	if ev.Frame != 42 || ev.WallCollisions != 3 || ev.ParticleCollisions != 5 {
		t.Errorf("unexpected frame event %+v", ev)
	}

	pc := NewParticleCollisionEvent("engine", 42, 1, 4)
	if pc.GetType() != ParticleCollision || pc.ParticleA != 1 || pc.ParticleB != 4 {
		t.Errorf("unexpected particle collision event %+v", pc)
	}
}
