package world

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// World is the in-memory world state. All mutation goes through its exported
// methods under a single mutex, so the TCP and WebSocket front-ends never
// race each other. Read helpers return copies; no reference into the maps
// escapes the lock.
type World struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	items map[string]*Item
	bots  map[string]*Bot
	users map[string]*User // keyed by lowercased display name

	StartRoom string
}

// New creates an empty world.
func New() *World {
	return &World{
		rooms: make(map[string]*Room),
		items: make(map[string]*Item),
		bots:  make(map[string]*Bot),
		users: make(map[string]*User),
	}
}

// --- Construction (loader and tests) ---

// AddRoom inserts a room. The first room added becomes the start room unless
// one was set explicitly.
func (w *World) AddRoom(r *Room) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r.Exits == nil {
		r.Exits = make(map[string]string)
	}
	if r.Occupants == nil {
		r.Occupants = make(map[string]struct{})
	}
	w.rooms[r.ID] = r
	if w.StartRoom == "" {
		w.StartRoom = r.ID
	}
}

// AddItem inserts an item. Placement (room, inventory, container) is whatever
// the referencing collections say; Validate checks it is consistent.
func (w *World) AddItem(it *Item) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items[it.ID] = it
}

// AddBot inserts a bot.
func (w *World) AddBot(b *Bot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bots[b.ID] = b
}

// Validate checks referential integrity after loading: every referenced item
// id exists, and no item id is owned by more than one collection. Dangling
// exits are tolerated. Items owned by nothing are reported too; the loader
// treats that as a definition error.
func (w *World) Validate() error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	owners := make(map[string]string)
	claim := func(itemID, owner string) error {
		if _, ok := w.items[itemID]; !ok {
			return fmt.Errorf("%s references unknown item %q", owner, itemID)
		}
		if prev, ok := owners[itemID]; ok {
			return fmt.Errorf("item %q owned by both %s and %s", itemID, prev, owner)
		}
		owners[itemID] = owner
		return nil
	}

	for _, r := range w.rooms {
		for _, id := range r.Items {
			if err := claim(id, "room "+r.ID); err != nil {
				return err
			}
		}
	}
	for _, b := range w.bots {
		for _, id := range b.Inventory {
			if err := claim(id, "bot "+b.ID); err != nil {
				return err
			}
		}
	}
	for _, it := range w.items {
		for _, id := range it.Contents {
			if err := claim(id, "container "+it.ID); err != nil {
				return err
			}
		}
	}
	for id := range w.items {
		if _, ok := owners[id]; !ok {
			return fmt.Errorf("item %q is not placed anywhere", id)
		}
	}
	return nil
}

// CheckOwnership verifies the runtime ownership invariant: every item id is a
// member of exactly one of {a room's item set, an inventory, a container's
// contents}. Used by tests after mutation sequences.
func (w *World) CheckOwnership() error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	count := make(map[string]int)
	for _, r := range w.rooms {
		for _, id := range r.Items {
			count[id]++
		}
	}
	for _, b := range w.bots {
		for _, id := range b.Inventory {
			count[id]++
		}
	}
	for _, u := range w.users {
		for _, id := range u.Inventory {
			count[id]++
		}
	}
	for _, it := range w.items {
		for _, id := range it.Contents {
			count[id]++
		}
	}
	for id := range w.items {
		if count[id] != 1 {
			return fmt.Errorf("item %q has %d owners", id, count[id])
		}
	}
	return nil
}

// --- Users and sessions ---

// AddUser activates a user from its persisted record. It fails with
// NameTakenError if the display name is already active; the check and the
// insert happen under one lock so two racing claims can never both succeed.
// A record pointing at a missing room falls back to the start room.
func (w *World) AddUser(rec UserRecord) error {
	if strings.TrimSpace(rec.Name) == "" {
		return &InvalidStateError{Reason: "empty display name"}
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	key := strings.ToLower(rec.Name)
	if _, ok := w.users[key]; ok {
		return &NameTakenError{Name: rec.Name}
	}
	room := rec.Room
	if _, ok := w.rooms[room]; !ok {
		room = w.StartRoom
	}
	u := &User{
		Name:      rec.Name,
		Room:      room,
		Inventory: append([]string(nil), rec.Inventory...),
		Admin:     rec.Admin,
	}
	w.users[key] = u
	if r, ok := w.rooms[room]; ok {
		r.Occupants[rec.Name] = struct{}{}
	}
	return nil
}

// RemoveUser deactivates a user, removes it from its room's occupant set and
// returns the final record for persistence.
func (w *World) RemoveUser(name string) (UserRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := strings.ToLower(name)
	u, ok := w.users[key]
	if !ok {
		return UserRecord{}, false
	}
	if r, ok := w.rooms[u.Room]; ok {
		delete(r.Occupants, u.Name)
	}
	delete(w.users, key)
	return u.Record(), true
}

// UserSnapshot returns a copy of the user's state.
func (w *World) UserSnapshot(name string) (UserRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(name)]
	if !ok {
		return UserRecord{}, false
	}
	return u.Record(), true
}

// IsAdmin reports whether the named active user has the admin flag.
func (w *World) IsAdmin(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(name)]
	return ok && u.Admin
}

// SetAdmin changes the admin flag on an active user.
func (w *World) SetAdmin(name string, admin bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.users[strings.ToLower(name)]
	if !ok {
		return false
	}
	u.Admin = admin
	return true
}

// UserRoom returns the room id the named user is in.
func (w *World) UserRoom(name string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return u.Room, true
}

// CanonicalUserName resolves a case-insensitive name to the active user's
// display name.
func (w *World) CanonicalUserName(name string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return u.Name, true
}

// UserNames returns all active display names, sorted.
func (w *World) UserNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.users))
	for _, u := range w.users {
		names = append(names, u.Name)
	}
	sort.Strings(names)
	return names
}

// --- Movement ---

// RemoveOccupant takes the user out of its current room's occupant set and
// returns that room's id. The user's room assignment is left untouched; the
// caller fires the leave event and then calls PlaceOccupant. This split is
// what fixes the leave/enter ordering in one place.
func (w *World) RemoveOccupant(name string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.users[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	if r, ok := w.rooms[u.Room]; ok {
		delete(r.Occupants, u.Name)
	}
	return u.Room, true
}

// PlaceOccupant assigns the user to a room and adds it to the occupant set.
func (w *World) PlaceOccupant(name, roomID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.users[strings.ToLower(name)]
	if !ok {
		return &NotFoundError{Kind: "user", Name: name}
	}
	r, ok := w.rooms[roomID]
	if !ok {
		return &NotFoundError{Kind: "room", Name: roomID}
	}
	u.Room = roomID
	r.Occupants[u.Name] = struct{}{}
	return nil
}

// MoveBot relocates a bot if the destination room exists. Returns the old
// room id.
func (w *World) MoveBot(botID, roomID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bots[botID]
	if !ok {
		return "", &NotFoundError{Kind: "bot", Name: botID}
	}
	if _, ok := w.rooms[roomID]; !ok {
		return "", &NotFoundError{Kind: "room", Name: roomID}
	}
	old := b.Room
	b.Room = roomID
	return old, nil
}

// --- Room queries ---

// RoomExists reports whether a room id is defined.
func (w *World) RoomExists(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.rooms[id]
	return ok
}

// RoomIDs returns all room ids, sorted.
func (w *World) RoomIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.rooms))
	for id := range w.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RoomView is a display snapshot of a room for the look command.
type RoomView struct {
	ID          string
	Name        string
	Description string
	Exits       []string // sorted
	ItemNames   []string // in placement order
	Occupants   []string // sorted
	BotNames    []string // sorted, visibility-gated
}

// RoomSnapshot builds a display snapshot. Invisible bots are included only
// for admin viewers.
func (w *World) RoomSnapshot(roomID, viewer string, admin bool) (RoomView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.rooms[roomID]
	if !ok {
		return RoomView{}, false
	}
	v := RoomView{ID: r.ID, Name: r.Name, Description: r.Description}
	for dir := range r.Exits {
		v.Exits = append(v.Exits, dir)
	}
	sort.Strings(v.Exits)
	for _, id := range r.Items {
		if it, ok := w.items[id]; ok {
			v.ItemNames = append(v.ItemNames, it.Name)
		}
	}
	for name := range r.Occupants {
		if name != viewer {
			v.Occupants = append(v.Occupants, name)
		}
	}
	sort.Strings(v.Occupants)
	for _, b := range w.bots {
		if b.Room == roomID && (b.Visible || admin) {
			v.BotNames = append(v.BotNames, b.Name)
		}
	}
	sort.Strings(v.BotNames)
	return v, true
}

// ExitNames returns the room's exit names, sorted.
func (w *World) ExitNames(roomID string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.rooms[roomID]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(r.Exits))
	for dir := range r.Exits {
		names = append(names, dir)
	}
	sort.Strings(names)
	return names
}

// ExitTarget returns the destination room id for an exact exit name.
func (w *World) ExitTarget(roomID, exit string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.rooms[roomID]
	if !ok {
		return "", false
	}
	dest, ok := r.Exits[exit]
	return dest, ok
}

// Occupants returns the sorted display names of users in a room.
func (w *World) Occupants(roomID string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.rooms[roomID]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(r.Occupants))
	for name := range r.Occupants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Bot queries ---

// BotSnapshot returns a copy of a bot.
func (w *World) BotSnapshot(id string) (Bot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.bots[id]
	if !ok {
		return Bot{}, false
	}
	cp := *b
	cp.Inventory = append([]string(nil), b.Inventory...)
	cp.Responses = append([]Response(nil), b.Responses...)
	return cp, true
}

// BotIDs returns all bot ids, sorted.
func (w *World) BotIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.bots))
	for id := range w.bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BotsInRoom returns copies of the bots in a room, invisible ones only for
// admin viewers, sorted by name.
func (w *World) BotsInRoom(roomID string, admin bool) []Bot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []Bot
	for _, b := range w.bots {
		if b.Room == roomID && (b.Visible || admin) {
			cp := *b
			cp.Inventory = append([]string(nil), b.Inventory...)
			cp.Responses = append([]Response(nil), b.Responses...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GiveTargetNames returns the valid recipients for a user's give: the other
// occupants of their room plus its bots, invisible bots only for admins.
// Sorted.
func (w *World) GiveTargetNames(actor string, admin bool) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(actor)]
	if !ok {
		return nil
	}
	r, ok := w.rooms[u.Room]
	if !ok {
		return nil
	}
	var names []string
	for name := range r.Occupants {
		if name != u.Name {
			names = append(names, name)
		}
	}
	for _, b := range w.bots {
		if b.Room == u.Room && (b.Visible || admin) {
			names = append(names, b.Name)
		}
	}
	sort.Strings(names)
	return names
}

// RoomBotByName finds a bot in the user's room by display name. Invisible
// bots resolve only for admins.
func (w *World) RoomBotByName(actor, name string, admin bool) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(actor)]
	if !ok {
		return "", false
	}
	for id, b := range w.bots {
		if b.Room == u.Room && (b.Visible || admin) && strings.EqualFold(b.Name, name) {
			return id, true
		}
	}
	return "", false
}

// Dump returns deep copies of every room, item, and bot, sorted by id. The
// persistence layer uses it to snapshot world state.
func (w *World) Dump() (rooms []*Room, items []*Item, bots []*Bot) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, r := range w.rooms {
		cp := *r
		cp.Exits = make(map[string]string, len(r.Exits))
		for k, v := range r.Exits {
			cp.Exits[k] = v
		}
		cp.Items = append([]string(nil), r.Items...)
		cp.Occupants = nil
		rooms = append(rooms, &cp)
	}
	for _, it := range w.items {
		cp := *it
		cp.Tags = append([]string(nil), it.Tags...)
		cp.Contents = append([]string(nil), it.Contents...)
		items = append(items, &cp)
	}
	for _, b := range w.bots {
		cp := *b
		cp.Inventory = append([]string(nil), b.Inventory...)
		cp.Responses = append([]Response(nil), b.Responses...)
		bots = append(bots, &cp)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	sort.Slice(bots, func(i, j int) bool { return bots[i].ID < bots[j].ID })
	return rooms, items, bots
}

// --- Internal helpers (callers hold w.mu) ---

func (w *World) userLocked(name string) (*User, *Room, error) {
	u, ok := w.users[strings.ToLower(name)]
	if !ok {
		return nil, nil, &NotFoundError{Kind: "user", Name: name}
	}
	r, ok := w.rooms[u.Room]
	if !ok {
		return nil, nil, &NotFoundError{Kind: "room", Name: u.Room}
	}
	return u, r, nil
}

// matchItem finds an item by case-insensitive exact name within an id list.
func (w *World) matchItem(ids []string, name string) (int, *Item) {
	for i, id := range ids {
		if it, ok := w.items[id]; ok && strings.EqualFold(it.Name, name) {
			return i, it
		}
	}
	return -1, nil
}

func removeAt(ids []string, i int) []string {
	return append(ids[:i], ids[i+1:]...)
}
