package events

import (
	"sync"

	"github.com/textspot/textspot/pkg/world"
)

// Subscriber receives events from the bus.
type Subscriber interface {
	Receive(ev Event)
	Closed() bool
}

// Bus is a per-player pub/sub event bus with support for global subscribers.
// Game code emits structured events; each subscriber (Descriptor, history
// writer, test capture) encodes them per-transport. It doubles as the
// delivery collaborator: send, send-to-room and send-to-all go through it.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber // keyed by display name
	global      []Subscriber
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]Subscriber),
	}
}

// Subscribe registers a subscriber for a specific player's events.
func (b *Bus) Subscribe(player string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[player] = append(b.subscribers[player], sub)
}

// Unsubscribe removes a subscriber for a specific player.
func (b *Bus) Unsubscribe(player string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[player]
	for i, s := range subs {
		if s == sub {
			b.subscribers[player] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[player]) == 0 {
		delete(b.subscribers, player)
	}
}

// SubscribeGlobal registers a subscriber that receives all events.
func (b *Bus) SubscribeGlobal(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, sub)
}

// Emit sends an event to the player named in ev.Player and all global
// subscribers.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	subs := b.subscribers[ev.Player]
	globals := b.global
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
	for _, s := range globals {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// EmitToPlayer sends an event to a specific player (overriding ev.Player).
func (b *Bus) EmitToPlayer(player string, ev Event) {
	ev.Player = player
	b.Emit(ev)
}

// EmitToRoom sends an event to every occupant of a room. The occupant
// snapshot comes from the world under its own lock.
func (b *Bus) EmitToRoom(w *world.World, roomID string, ev Event) {
	b.emitToRoom(w, roomID, "", ev)
}

// EmitToRoomExcept sends an event to every occupant of a room except one.
func (b *Bus) EmitToRoomExcept(w *world.World, roomID, except string, ev Event) {
	b.emitToRoom(w, roomID, except, ev)
}

func (b *Bus) emitToRoom(w *world.World, roomID, except string, ev Event) {
	occupants := w.Occupants(roomID)
	ev.Room = roomID

	b.mu.RLock()
	globals := b.global
	b.mu.RUnlock()

	for _, name := range occupants {
		if name == except {
			continue
		}
		playerEv := ev
		playerEv.Player = name

		b.mu.RLock()
		subs := b.subscribers[name]
		b.mu.RUnlock()

		for _, s := range subs {
			if !s.Closed() {
				s.Receive(playerEv)
			}
		}
	}

	// Global subscribers get the event once, with Room set.
	for _, s := range globals {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// EmitToAll sends an event to every subscribed player and all globals.
func (b *Bus) EmitToAll(ev Event) {
	b.mu.RLock()
	names := make([]string, 0, len(b.subscribers))
	for name := range b.subscribers {
		names = append(names, name)
	}
	globals := b.global
	b.mu.RUnlock()

	for _, name := range names {
		playerEv := ev
		playerEv.Player = name

		b.mu.RLock()
		subs := b.subscribers[name]
		b.mu.RUnlock()

		for _, s := range subs {
			if !s.Closed() {
				s.Receive(playerEv)
			}
		}
	}
	for _, s := range globals {
		if !s.Closed() {
			s.Receive(ev)
		}
	}
}

// PlayerSubscribers returns the number of subscribers for a player.
func (b *Bus) PlayerSubscribers(player string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[player])
}

// Cleanup removes closed subscribers from all lists.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for player, subs := range b.subscribers {
		var active []Subscriber
		for _, s := range subs {
			if !s.Closed() {
				active = append(active, s)
			}
		}
		if len(active) == 0 {
			delete(b.subscribers, player)
		} else {
			b.subscribers[player] = active
		}
	}

	var activeGlobal []Subscriber
	for _, s := range b.global {
		if !s.Closed() {
			activeGlobal = append(activeGlobal, s)
		}
	}
	b.global = activeGlobal
}
