package events

import (
	"sync"
	"testing"

	"github.com/textspot/textspot/pkg/world"
)

// mockSubscriber implements Subscriber for testing.
type mockSubscriber struct {
	mu       sync.Mutex
	events   []Event
	isClosed bool
}

func (m *mockSubscriber) Receive(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Event, len(m.events))
	copy(cp, m.events)
	return cp
}

func roomWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.New()
	w.AddRoom(&world.Room{ID: "lobby"})
	for _, name := range []string{"Alice", "Bob"} {
		if err := w.AddUser(world.UserRecord{Name: name, Room: "lobby"}); err != nil {
			t.Fatalf("AddUser(%s): %v", name, err)
		}
	}
	return w
}

func TestBusEmitToPlayer(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}
	bus.Subscribe("Alice", sub)

	bus.Emit(Event{Type: EvSay, Player: "Alice", Source: "Alice", Text: "Hello world"})

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Text != "Hello world" {
		t.Errorf("expected text %q, got %q", "Hello world", events[0].Text)
	}
	if events[0].Type != EvSay {
		t.Errorf("expected type EvSay, got %v", events[0].Type)
	}
}

func TestBusGlobalSubscriber(t *testing.T) {
	bus := NewBus()
	global := &mockSubscriber{}
	bus.SubscribeGlobal(global)

	bus.Emit(Event{Type: EvBroadcast, Player: "Bob", Text: "test msg"})

	events := global.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 global event, got %d", len(events))
	}
	if events[0].Text != "test msg" {
		t.Errorf("expected text %q, got %q", "test msg", events[0].Text)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}

	bus.Subscribe("Alice", sub)
	bus.Unsubscribe("Alice", sub)

	bus.Emit(Event{Type: EvText, Player: "Alice", Text: "should not arrive"})

	if len(sub.Events()) != 0 {
		t.Error("expected no events after unsubscribe")
	}
}

func TestBusClosedSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{isClosed: true}

	bus.Subscribe("Alice", sub)
	bus.Emit(Event{Type: EvText, Player: "Alice", Text: "no delivery"})

	if len(sub.Events()) != 0 {
		t.Error("closed subscriber should not receive events")
	}
}

func TestBusEmitToRoom(t *testing.T) {
	w := roomWorld(t)
	bus := NewBus()
	sub1 := &mockSubscriber{}
	sub2 := &mockSubscriber{}
	bus.Subscribe("Alice", sub1)
	bus.Subscribe("Bob", sub2)

	bus.EmitToRoom(w, "lobby", Event{Type: EvSay, Source: "Alice", Text: "Hello room"})

	if len(sub1.Events()) != 1 {
		t.Errorf("Alice: expected 1 event, got %d", len(sub1.Events()))
	}
	if len(sub2.Events()) != 1 {
		t.Errorf("Bob: expected 1 event, got %d", len(sub2.Events()))
	}
	if ev := sub2.Events()[0]; ev.Room != "lobby" || ev.Player != "Bob" {
		t.Errorf("event = %+v", ev)
	}
}

func TestBusEmitToRoomExcept(t *testing.T) {
	w := roomWorld(t)
	bus := NewBus()
	sub1 := &mockSubscriber{}
	sub2 := &mockSubscriber{}
	bus.Subscribe("Alice", sub1)
	bus.Subscribe("Bob", sub2)

	bus.EmitToRoomExcept(w, "lobby", "Alice", Event{Type: EvSay, Source: "Alice", Text: "Hello others"})

	if len(sub1.Events()) != 0 {
		t.Errorf("Alice (excluded): expected 0 events, got %d", len(sub1.Events()))
	}
	if len(sub2.Events()) != 1 {
		t.Errorf("Bob: expected 1 event, got %d", len(sub2.Events()))
	}
}

func TestBusEmitToAll(t *testing.T) {
	bus := NewBus()
	sub1 := &mockSubscriber{}
	sub2 := &mockSubscriber{}
	bus.Subscribe("Alice", sub1)
	bus.Subscribe("Bob", sub2)

	bus.EmitToAll(Event{Type: EvBroadcast, Text: "[Admin] maintenance soon"})

	if len(sub1.Events()) != 1 || len(sub2.Events()) != 1 {
		t.Errorf("got %d/%d events, want 1/1", len(sub1.Events()), len(sub2.Events()))
	}
}

func TestBusCleanup(t *testing.T) {
	bus := NewBus()
	active := &mockSubscriber{}
	closed := &mockSubscriber{isClosed: true}

	bus.Subscribe("Alice", active)
	bus.Subscribe("Alice", closed)
	bus.SubscribeGlobal(&mockSubscriber{isClosed: true})

	bus.Cleanup()

	if bus.PlayerSubscribers("Alice") != 1 {
		t.Errorf("expected 1 active subscriber, got %d", bus.PlayerSubscribers("Alice"))
	}
}

func TestTriggerIndex(t *testing.T) {
	ti := NewTriggerIndex()
	ti.Register(Trigger{Name: "welcome", Event: EvEnter, Room: "lobby", BotID: "guard"})
	ti.Register(Trigger{Name: "watch", Event: EvEnter, BotID: "cat"})
	ti.Register(Trigger{Name: "farewell", Event: EvLeave, Room: "lobby", BotID: "guard"})

	got := ti.Match(EvEnter, "lobby")
	if len(got) != 2 {
		t.Fatalf("Match(enter, lobby) = %v", got)
	}
	if got[0].Name != "welcome" || got[1].Name != "watch" {
		t.Errorf("order = %v, %v", got[0].Name, got[1].Name)
	}
	if got := ti.Match(EvEnter, "garden"); len(got) != 1 || got[0].Name != "watch" {
		t.Errorf("Match(enter, garden) = %v", got)
	}
	if got := ti.Match(EvLeave, "garden"); len(got) != 0 {
		t.Errorf("Match(leave, garden) = %v", got)
	}

	ti.Replace([]Trigger{{Name: "only", Event: EvLeave, Room: "garden"}})
	if ti.Len() != 1 {
		t.Errorf("Len after Replace = %d", ti.Len())
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EvText, "text"},
		{EvSay, "say"},
		{EvEnter, "enter"},
		{EvLeave, "leave"},
		{EvBroadcast, "broadcast"},
		{EventType(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
