package world

// Room is a node in the navigable world graph. Exits map direction names to
// room ids; a target room need not exist (dangling exits are checked at move
// time, not load time).
type Room struct {
	ID          string
	Name        string
	Description string
	Exits       map[string]string
	Items       []string            // item ids directly in the room
	Occupants   map[string]struct{} // display names of users present
}

// Item is a world object. A container item holds an ordered list of item ids
// and toggles between open and closed.
type Item struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	IsContainer bool
	Open        bool
	Contents    []string // item ids, container only
	Script      string   // optional script body, run by "use"
}

// HasTag reports whether the item carries the given tag.
func (it *Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Response is one entry in a bot's keyword-response table.
type Response struct {
	Keywords []string
	Reply    string
}

// Bot is a scripted non-player actor with a fixed home room.
type Bot struct {
	ID          string
	Name        string
	Room        string
	Description string
	Visible     bool
	Inventory   []string // item ids
	Responses   []Response
}

// User is an active session's world-side state. Users are keyed by display
// name; the name is unique among active sessions.
type User struct {
	Name      string
	Room      string
	Inventory []string // item ids
	Admin     bool
}

// UserRecord is the persistable subset of a user, handed to the persistence
// collaborator on disconnect and movement.
type UserRecord struct {
	Name      string
	Room      string
	Inventory []string
	Admin     bool
}

// Record returns the user's persistable fields.
func (u *User) Record() UserRecord {
	inv := make([]string, len(u.Inventory))
	copy(inv, u.Inventory)
	return UserRecord{Name: u.Name, Room: u.Room, Inventory: inv, Admin: u.Admin}
}
