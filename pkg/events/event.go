package events

// EventType classifies events for transport-specific encoding.
type EventType int

const (
	EvText      EventType = iota // Raw text (universal fallback)
	EvSay                        // Speech in a room
	EvWhisper                    // Private message
	EvEnter                      // Someone entered a room
	EvLeave                      // Someone left a room
	EvBroadcast                  // Server-wide announcement
	EvSystem                     // Login/logout and operational notices
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvSay:
		return "say"
	case EvWhisper:
		return "whisper"
	case EvEnter:
		return "enter"
	case EvLeave:
		return "leave"
	case EvBroadcast:
		return "broadcast"
	case EvSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Event is a structured game event that flows through the event bus.
// Transports decide how to encode each one: the TCP front-end sends Text,
// the WebSocket front-end sends the structured form as JSON.
type Event struct {
	Type   EventType
	Player string         // Recipient display name ("" for broadcast)
	Source string         // Display name of whoever generated the event
	Room   string         // Room context
	Text   string         // Pre-formatted text (TCP uses this)
	Data   map[string]any // Structured data for JSON clients
}
