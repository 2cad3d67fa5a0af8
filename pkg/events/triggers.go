package events

import "sync"

// Trigger binds a movement event, optionally filtered to one room, to a
// named script run by a bot. Triggers are declared in the world's script
// tables and indexed by event type at load time.
type Trigger struct {
	Name   string    // script name
	Event  EventType // EvEnter or EvLeave
	Room   string    // optional room filter, "" = any room
	BotID  string    // the bot whose program runs
	Script string    // script source
}

// TriggerIndex maps event types to registered triggers. The whole index can
// be swapped atomically, which is how script hot-reload works.
type TriggerIndex struct {
	mu     sync.RWMutex
	byType map[EventType][]Trigger
}

// NewTriggerIndex creates an empty index.
func NewTriggerIndex() *TriggerIndex {
	return &TriggerIndex{byType: make(map[EventType][]Trigger)}
}

// Register adds a trigger under its event type.
func (ti *TriggerIndex) Register(t Trigger) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.byType[t.Event] = append(ti.byType[t.Event], t)
}

// Match returns the triggers registered for an event type whose room filter
// is absent or equals the event's room, in registration order.
func (ti *TriggerIndex) Match(t EventType, room string) []Trigger {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	var out []Trigger
	for _, tr := range ti.byType[t] {
		if tr.Room == "" || tr.Room == room {
			out = append(out, tr)
		}
	}
	return out
}

// Replace swaps in a new trigger set, atomically.
func (ti *TriggerIndex) Replace(triggers []Trigger) {
	byType := make(map[EventType][]Trigger)
	for _, t := range triggers {
		byType[t.Event] = append(byType[t.Event], t)
	}
	ti.mu.Lock()
	ti.byType = byType
	ti.mu.Unlock()
}

// Len returns the total number of registered triggers.
func (ti *TriggerIndex) Len() int {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	n := 0
	for _, ts := range ti.byType {
		n += len(ts)
	}
	return n
}
