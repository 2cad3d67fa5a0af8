package world

import (
	"sort"
	"strings"
)

// TagImmovable marks an item that refuses to be picked up.
const TagImmovable = "immovable"

// ItemName returns the display name for an item id.
func (w *World) ItemName(id string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	it, ok := w.items[id]
	if !ok {
		return "", false
	}
	return it.Name, true
}

// InventoryNames returns the names of the items a user carries, in order.
func (w *World) InventoryNames(user string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(user)]
	if !ok {
		return nil
	}
	return w.namesLocked(u.Inventory)
}

// RoomItemNames returns the names of items directly in the room plus the
// names of items inside any open container in the room.
func (w *World) RoomItemNames(roomID string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.rooms[roomID]
	if !ok {
		return nil
	}
	var names []string
	for _, id := range r.Items {
		it, ok := w.items[id]
		if !ok {
			continue
		}
		names = append(names, it.Name)
		if it.IsContainer && it.Open {
			names = append(names, w.namesLocked(it.Contents)...)
		}
	}
	return names
}

// OpenContainerNames returns the names of open containers in the room.
func (w *World) OpenContainerNames(roomID string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.rooms[roomID]
	if !ok {
		return nil
	}
	var names []string
	for _, id := range r.Items {
		if it, ok := w.items[id]; ok && it.IsContainer && it.Open {
			names = append(names, it.Name)
		}
	}
	return names
}

// ContainerNames returns the names of all containers in the room, open or not.
func (w *World) ContainerNames(roomID string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.rooms[roomID]
	if !ok {
		return nil
	}
	var names []string
	for _, id := range r.Items {
		if it, ok := w.items[id]; ok && it.IsContainer {
			names = append(names, it.Name)
		}
	}
	return names
}

// ExaminableNames returns everything the user can examine: own inventory,
// room items (with open-container contents), other occupants, and room bots
// gated by visibility.
func (w *World) ExaminableNames(user string, admin bool) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(user)]
	if !ok {
		return nil
	}
	names := w.namesLocked(u.Inventory)
	if r, ok := w.rooms[u.Room]; ok {
		for _, id := range r.Items {
			it, ok := w.items[id]
			if !ok {
				continue
			}
			names = append(names, it.Name)
			if it.IsContainer && it.Open {
				names = append(names, w.namesLocked(it.Contents)...)
			}
		}
		var occ []string
		for name := range r.Occupants {
			if name != u.Name {
				occ = append(occ, name)
			}
		}
		sort.Strings(occ)
		names = append(names, occ...)
	}
	for _, b := range w.bots {
		if b.Room == u.Room && (b.Visible || admin) {
			names = append(names, b.Name)
		}
	}
	return names
}

func (w *World) namesLocked(ids []string) []string {
	var names []string
	for _, id := range ids {
		if it, ok := w.items[id]; ok {
			names = append(names, it.Name)
		}
	}
	return names
}

// --- Item transfer mutators ---
//
// Each mutator removes an item id from exactly one owning collection and
// inserts it into exactly one destination, under one lock acquisition.

// PickUp moves a named item into the user's inventory. Open containers in
// the room are searched before the room floor. Returns the name of the
// container the item came from, or "" for the floor.
func (w *World) PickUp(user, itemName string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, r, err := w.userLocked(user)
	if err != nil {
		return "", err
	}

	for _, id := range r.Items {
		c, ok := w.items[id]
		if !ok || !c.IsContainer || !c.Open {
			continue
		}
		if i, it := w.matchItem(c.Contents, itemName); it != nil {
			c.Contents = removeAt(c.Contents, i)
			u.Inventory = append(u.Inventory, it.ID)
			return c.Name, nil
		}
	}

	if i, it := w.matchItem(r.Items, itemName); it != nil {
		if it.HasTag(TagImmovable) {
			return "", &InvalidStateError{Reason: "The " + it.Name + " is too heavy to move."}
		}
		r.Items = removeAt(r.Items, i)
		u.Inventory = append(u.Inventory, it.ID)
		return "", nil
	}
	return "", &NotFoundError{Kind: "item", Name: itemName}
}

// Drop moves a named item from the user's inventory to the room floor.
func (w *World) Drop(user, itemName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, r, err := w.userLocked(user)
	if err != nil {
		return err
	}
	i, it := w.matchItem(u.Inventory, itemName)
	if it == nil {
		return &NotFoundError{Kind: "item", Name: itemName}
	}
	u.Inventory = removeAt(u.Inventory, i)
	r.Items = append(r.Items, it.ID)
	return nil
}

// PutIn moves a named inventory item into a named open container in the room.
func (w *World) PutIn(user, itemName, containerName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, r, err := w.userLocked(user)
	if err != nil {
		return err
	}
	_, c := w.matchItem(r.Items, containerName)
	if c == nil || !c.IsContainer {
		return &NotFoundError{Kind: "container", Name: containerName}
	}
	if !c.Open {
		return &InvalidStateError{Reason: "The " + c.Name + " is closed."}
	}
	i, it := w.matchItem(u.Inventory, itemName)
	if it == nil {
		return &NotFoundError{Kind: "item", Name: itemName}
	}
	u.Inventory = removeAt(u.Inventory, i)
	c.Contents = append(c.Contents, it.ID)
	return nil
}

// Give moves a named inventory item from one active user to another.
func (w *World) Give(giver, itemName, target string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	g, ok := w.users[strings.ToLower(giver)]
	if !ok {
		return &NotFoundError{Kind: "user", Name: giver}
	}
	t, ok := w.users[strings.ToLower(target)]
	if !ok {
		return &NotFoundError{Kind: "user", Name: target}
	}
	i, it := w.matchItem(g.Inventory, itemName)
	if it == nil {
		return &NotFoundError{Kind: "item", Name: itemName}
	}
	g.Inventory = removeAt(g.Inventory, i)
	t.Inventory = append(t.Inventory, it.ID)
	return nil
}

// BotGive moves a named item from a bot's inventory to an active user's.
func (w *World) BotGive(botID, itemName, user string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bots[botID]
	if !ok {
		return "", &NotFoundError{Kind: "bot", Name: botID}
	}
	u, ok := w.users[strings.ToLower(user)]
	if !ok {
		return "", &NotFoundError{Kind: "user", Name: user}
	}
	i, it := w.matchItem(b.Inventory, itemName)
	if it == nil {
		return "", &NotFoundError{Kind: "item", Name: itemName}
	}
	b.Inventory = removeAt(b.Inventory, i)
	u.Inventory = append(u.Inventory, it.ID)
	return it.Name, nil
}

// BotTake moves a named item from an active user's inventory to a bot's.
func (w *World) BotTake(botID, itemName, user string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bots[botID]
	if !ok {
		return "", &NotFoundError{Kind: "bot", Name: botID}
	}
	u, ok := w.users[strings.ToLower(user)]
	if !ok {
		return "", &NotFoundError{Kind: "user", Name: user}
	}
	i, it := w.matchItem(u.Inventory, itemName)
	if it == nil {
		return "", &NotFoundError{Kind: "item", Name: itemName}
	}
	u.Inventory = removeAt(u.Inventory, i)
	b.Inventory = append(b.Inventory, it.ID)
	return it.Name, nil
}

// --- Containers ---

// SetContainerOpen opens or closes a named container in the user's room.
// Opening returns the names of the current contents.
func (w *World) SetContainerOpen(user, containerName string, open bool) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, r, err := w.userLocked(user)
	if err != nil {
		return nil, err
	}
	_, c := w.matchItem(r.Items, containerName)
	if c == nil {
		return nil, &NotFoundError{Kind: "item", Name: containerName}
	}
	if !c.IsContainer {
		return nil, &InvalidStateError{Reason: "You can't open " + c.Name + "."}
	}
	if c.Open == open {
		if open {
			return nil, &InvalidStateError{Reason: "The " + c.Name + " is already open."}
		}
		return nil, &InvalidStateError{Reason: "The " + c.Name + " is already closed."}
	}
	c.Open = open
	if open {
		return w.namesLocked(c.Contents), nil
	}
	return nil, nil
}

// --- Examination and use ---

// Examined describes what examine resolved to.
type Examined struct {
	Name        string
	Description string
	Tags        []string
	IsItem      bool
	IsContainer bool
	Open        bool
	Contents    []string // names, open container only
	IsUser      bool
	IsBot       bool
}

// FindExaminable resolves a name against inventory, room items (including
// open-container contents), other occupants, and room bots, in that order.
func (w *World) FindExaminable(user, name string, admin bool) (Examined, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(user)]
	if !ok {
		return Examined{}, &NotFoundError{Kind: "user", Name: user}
	}

	if _, it := w.matchItem(u.Inventory, name); it != nil {
		return w.examinedItemLocked(it), nil
	}
	if r, ok := w.rooms[u.Room]; ok {
		if _, it := w.matchItem(r.Items, name); it != nil {
			return w.examinedItemLocked(it), nil
		}
		for _, id := range r.Items {
			c, ok := w.items[id]
			if !ok || !c.IsContainer || !c.Open {
				continue
			}
			if _, it := w.matchItem(c.Contents, name); it != nil {
				return w.examinedItemLocked(it), nil
			}
		}
		for occ := range r.Occupants {
			if occ != u.Name && strings.EqualFold(occ, name) {
				return Examined{Name: occ, Description: occ + " is here.", IsUser: true}, nil
			}
		}
	}
	for _, b := range w.bots {
		if b.Room == u.Room && (b.Visible || admin) && strings.EqualFold(b.Name, name) {
			return Examined{Name: b.Name, Description: b.Description, IsBot: true}, nil
		}
	}
	return Examined{}, &NotFoundError{Kind: "item", Name: name}
}

func (w *World) examinedItemLocked(it *Item) Examined {
	e := Examined{
		Name:        it.Name,
		Description: it.Description,
		Tags:        append([]string(nil), it.Tags...),
		IsItem:      true,
		IsContainer: it.IsContainer,
		Open:        it.Open,
	}
	if it.IsContainer && it.Open {
		e.Contents = w.namesLocked(it.Contents)
	}
	return e
}

// UseItem resolves a named inventory item and returns its script body, which
// may be empty.
func (w *World) UseItem(user, itemName string) (itemID, script string, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[strings.ToLower(user)]
	if !ok {
		return "", "", &NotFoundError{Kind: "user", Name: user}
	}
	_, it := w.matchItem(u.Inventory, itemName)
	if it == nil {
		return "", "", &NotFoundError{Kind: "item", Name: itemName}
	}
	return it.ID, it.Script, nil
}
