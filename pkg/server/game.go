package server

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/textspot/textspot/pkg/boltstore"
	"github.com/textspot/textspot/pkg/command"
	"github.com/textspot/textspot/pkg/events"
	"github.com/textspot/textspot/pkg/script"
	"github.com/textspot/textspot/pkg/world"
)

// Game holds the shared state of a running server: the world, connections,
// the command registry, the script interpreter, and persistence collaborators.
type Game struct {
	World    *world.World
	Conns    *ConnManager
	EventBus *events.Bus
	Registry *command.Registry
	Handlers map[string]CommandHandler
	Interp   *script.Interp
	Sched    *script.Scheduler
	Triggers *events.TriggerIndex
	Store    *boltstore.Store // nil = persistence disabled
	History  *HistoryStore    // nil = chat history disabled
	Conf     *GameConf
	ConfPath string

	scriptMu sync.RWMutex
	scripts  map[string]ScriptEntry // by name, for the admin script command

	stopCh   chan struct{}
	stopOnce sync.Once

	// Counters exported through the metrics endpoint.
	CommandCount atomic.Int64
	ScriptRuns   atomic.Int64
	ScriptFaults atomic.Int64
}

// ScriptEntry is a named bot script, optionally bound to a movement event.
type ScriptEntry struct {
	Name   string
	BotID  string
	Script string
}

// NewGame wires a Game around a loaded world.
func NewGame(w *world.World, conf *GameConf) *Game {
	if conf == nil {
		conf = DefaultGameConf()
	}
	g := &Game{
		World:    w,
		Conns:    NewConnManager(),
		EventBus: events.NewBus(),
		Registry: command.NewRegistry(),
		Sched:    script.NewScheduler(),
		Triggers: events.NewTriggerIndex(),
		Conf:     conf,
		scripts:  make(map[string]ScriptEntry),
		stopCh:   make(chan struct{}),
	}
	g.Conns.EventBus = g.EventBus
	g.Interp = script.New(g)
	if conf.StepLimit > 0 {
		g.Interp.StepLimit = conf.StepLimit
	}
	g.Handlers = make(map[string]CommandHandler)
	InitCommands(g)
	return g
}

// Stop shuts down the background loops.
func (g *Game) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

// --- Script table ---

// SetScripts replaces the script table and rebuilds the trigger index.
// Called at startup and on scripts.yaml hot reload.
func (g *Game) SetScripts(entries []ScriptEntry, triggers []events.Trigger) {
	g.scriptMu.Lock()
	table := make(map[string]ScriptEntry, len(entries))
	for _, e := range entries {
		table[e.Name] = e
	}
	g.scripts = table
	g.scriptMu.Unlock()
	g.Triggers.Replace(triggers)
}

// ScriptByName looks up a named script.
func (g *Game) ScriptByName(name string) (ScriptEntry, bool) {
	g.scriptMu.RLock()
	defer g.scriptMu.RUnlock()
	e, ok := g.scripts[name]
	return e, ok
}

// --- script.Host implementation ---

var _ script.Host = (*Game)(nil)

// SayToRoom delivers scripted speech to every occupant of a room.
func (g *Game) SayToRoom(roomID, text string) {
	g.EventBus.EmitToRoom(g.World, roomID, events.Event{
		Type: events.EvSay,
		Room: roomID,
		Text: text,
	})
}

// Broadcast delivers a scripted announcement to every connected user.
func (g *Game) Broadcast(text string) {
	g.EventBus.EmitToAll(events.Event{
		Type: events.EvBroadcast,
		Text: text,
	})
}

// ActorRoom returns the current room of a script actor. Item actors have no
// room of their own.
func (g *Game) ActorRoom(a script.Actor) (string, bool) {
	if a.Kind != script.ActorBot {
		return "", false
	}
	bot, ok := g.World.BotSnapshot(a.ID)
	if !ok {
		return "", false
	}
	return bot.Room, true
}

// MoveActor relocates a bot. The move is announced in both rooms.
func (g *Game) MoveActor(a script.Actor, roomID string) error {
	if a.Kind != script.ActorBot {
		return fmt.Errorf("actor %q cannot move", a.ID)
	}
	oldRoom, err := g.World.MoveBot(a.ID, roomID)
	if err != nil {
		return err
	}
	if oldRoom == roomID {
		return nil
	}
	bot, ok := g.World.BotSnapshot(a.ID)
	if ok && bot.Visible {
		g.EventBus.EmitToRoom(g.World, oldRoom, events.Event{
			Type: events.EvLeave, Source: bot.Name, Room: oldRoom,
			Text: fmt.Sprintf("%s leaves the room.", bot.Name),
		})
		g.EventBus.EmitToRoom(g.World, roomID, events.Event{
			Type: events.EvEnter, Source: bot.Name, Room: roomID,
			Text: fmt.Sprintf("%s enters the room.", bot.Name),
		})
	}
	return nil
}

// GiveItem hands an item from a bot's inventory to a user.
func (g *Game) GiveItem(a script.Actor, itemName, userName string) (string, error) {
	if a.Kind != script.ActorBot {
		return "", fmt.Errorf("actor %q has no inventory", a.ID)
	}
	canonical, ok := g.World.CanonicalUserName(userName)
	if !ok {
		return "", &world.NotFoundError{Kind: "user", Name: userName}
	}
	return g.World.BotGive(a.ID, itemName, canonical)
}

// TakeItem moves an item from a user's inventory into a bot's.
func (g *Game) TakeItem(a script.Actor, itemName, userName string) (string, error) {
	if a.Kind != script.ActorBot {
		return "", fmt.Errorf("actor %q has no inventory", a.ID)
	}
	canonical, ok := g.World.CanonicalUserName(userName)
	if !ok {
		return "", &world.NotFoundError{Kind: "user", Name: userName}
	}
	return g.World.BotTake(a.ID, itemName, canonical)
}

// --- Script execution ---

// RunBotScript parses and runs a bot script. A suspended run is parked on the
// scheduler for the tick loop to resume.
func (g *Game) RunBotScript(entry ScriptEntry, inv script.Invocation) error {
	bot, ok := g.World.BotSnapshot(entry.BotID)
	if !ok {
		return &world.NotFoundError{Kind: "bot", Name: entry.BotID}
	}
	stmts := script.Parse(entry.Script)
	actor := script.Actor{ID: entry.BotID, Kind: script.ActorBot, Name: bot.Name}
	g.ScriptRuns.Add(1)
	pending, err := g.Interp.Run(actor, inv, stmts)
	if err != nil {
		g.ScriptFaults.Add(1)
		return err
	}
	if pending != nil {
		g.Sched.Add(pending)
	}
	return nil
}

// RunItemScript runs an item's use script on behalf of the invoking user.
func (g *Game) RunItemScript(itemID, code, userName, roomID string) error {
	itemName, _ := g.World.ItemName(itemID)
	stmts := script.Parse(code)
	actor := script.Actor{ID: itemID, Kind: script.ActorItem, Name: itemName}
	inv := script.Invocation{Invoker: userName, Room: roomID}
	g.ScriptRuns.Add(1)
	pending, err := g.Interp.Run(actor, inv, stmts)
	if err != nil {
		g.ScriptFaults.Add(1)
		return err
	}
	if pending != nil {
		g.Sched.Add(pending)
	}
	return nil
}

// StartScheduler runs the tick loop that resumes suspended scripts.
func (g *Game) StartScheduler() {
	tick := 100 * time.Millisecond
	if g.Conf.TickMillis > 0 {
		tick = time.Duration(g.Conf.TickMillis) * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-g.stopCh:
				return
			case now := <-ticker.C:
				for _, p := range g.Sched.Due(now) {
					next, err := g.Interp.Resume(p)
					if err != nil {
						g.ScriptFaults.Add(1)
						log.Printf("Script fault on resume for %s: %v", p.Actor.ID, err)
						continue
					}
					if next != nil {
						g.Sched.Add(next)
					}
				}
			}
		}
	}()
}

// StartAutoSave snapshots the world to bolt at the configured interval.
func (g *Game) StartAutoSave() {
	if g.Store == nil || g.Conf.SaveInterval <= 0 {
		return
	}
	interval := time.Duration(g.Conf.SaveInterval) * time.Minute
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stopCh:
				return
			case <-ticker.C:
				if err := g.Store.SaveWorld(g.World); err != nil {
					log.Printf("Auto-save failed: %v", err)
				}
			}
		}
	}()
	log.Printf("Auto-save every %d minutes", g.Conf.SaveInterval)
}

// --- Movement and presence ---

// fireTriggers runs every bot script bound to a movement event in a room.
func (g *Game) fireTriggers(evType events.EventType, roomID, userName string) {
	for _, t := range g.Triggers.Match(evType, roomID) {
		entry := ScriptEntry{Name: t.Name, BotID: t.BotID, Script: t.Script}
		inv := script.Invocation{Invoker: userName, Room: roomID}
		if err := g.RunBotScript(entry, inv); err != nil {
			log.Printf("Trigger script %q failed: %v", t.Name, err)
		}
	}
}

// MoveUser relocates a user through a resolved exit or teleport target.
// The leave announcement and triggers fire before the user is placed in the
// destination; the enter side fires after.
func (g *Game) MoveUser(d *Descriptor, targetRoom string) {
	name := d.Player
	oldRoom, ok := g.World.RemoveOccupant(name)
	if !ok {
		d.Send("You are in an unknown location.")
		return
	}
	g.EventBus.EmitToRoomExcept(g.World, oldRoom, name, events.Event{
		Type: events.EvLeave, Source: name, Room: oldRoom,
		Text: fmt.Sprintf("📤 %s leaves the room.", name),
	})
	g.fireTriggers(events.EvLeave, oldRoom, name)

	if err := g.World.PlaceOccupant(name, targetRoom); err != nil {
		// Destination vanished between resolution and placement. Put the
		// user back where they came from.
		g.World.PlaceOccupant(name, oldRoom)
		d.Send("You are in an unknown location.")
		return
	}
	g.EventBus.EmitToRoomExcept(g.World, targetRoom, name, events.Event{
		Type: events.EvEnter, Source: name, Room: targetRoom,
		Text: fmt.Sprintf("📥 %s enters the room.", name),
	})
	g.ShowRoom(d)
	g.fireTriggers(events.EvEnter, targetRoom, name)
	g.saveUser(name)
}

// ShowRoom sends the current room description to a user.
func (g *Game) ShowRoom(d *Descriptor) {
	roomID, ok := g.World.UserRoom(d.Player)
	if !ok {
		d.Send("You are in an unknown location.")
		return
	}
	view, ok := g.World.RoomSnapshot(roomID, d.Player, g.World.IsAdmin(d.Player))
	if !ok {
		d.Send("You are in an unknown location.")
		return
	}
	var lines []string
	lines = append(lines, view.Name, view.Description)
	if len(view.Exits) > 0 {
		lines = append(lines, fmt.Sprintf("Exits: %s", strings.Join(view.Exits, ", ")))
	}
	if len(view.Occupants) > 0 {
		lines = append(lines, fmt.Sprintf("Users here: %s", strings.Join(view.Occupants, ", ")))
	}
	if len(view.BotNames) > 0 {
		lines = append(lines, fmt.Sprintf("Bots here: %s", strings.Join(view.BotNames, ", ")))
	}
	if len(view.ItemNames) > 0 {
		lines = append(lines, fmt.Sprintf("Items here: %s", strings.Join(view.ItemNames, ", ")))
	}
	d.Send(strings.Join(lines, "\n"))
}

// LoginUser places an authenticated descriptor's user into the world and
// announces the arrival. The caller has already verified name uniqueness.
func (g *Game) LoginUser(d *Descriptor, name string) error {
	rec := world.UserRecord{Name: name, Room: g.World.StartRoom}
	if g.Store != nil {
		if stored, ok, err := g.Store.GetUser(name); err != nil {
			log.Printf("Loading user %q: %v", name, err)
		} else if ok {
			rec = stored
		}
	}
	rec.Admin = rec.Admin || g.Conf.IsAdminName(name)
	if err := g.World.AddUser(rec); err != nil {
		return err
	}
	g.Conns.Login(d, name)

	roomID, _ := g.World.UserRoom(name)
	g.EventBus.EmitToRoomExcept(g.World, roomID, name, events.Event{
		Type: events.EvEnter, Source: name, Room: roomID,
		Text: fmt.Sprintf("📥 %s enters the room.", name),
	})
	g.saveUser(name)
	log.Printf("User %q logged in (admin: %v)", name, g.World.IsAdmin(name))
	return nil
}

// DisconnectUser removes a user from the world, persisting their record.
func (g *Game) DisconnectUser(d *Descriptor) {
	name := d.Player
	if name == "" {
		return
	}
	if roomID, ok := g.World.UserRoom(name); ok {
		g.EventBus.EmitToRoomExcept(g.World, roomID, name, events.Event{
			Type: events.EvLeave, Source: name, Room: roomID,
			Text: fmt.Sprintf("📤 %s leaves the room.", name),
		})
	}
	rec, ok := g.World.RemoveUser(name)
	if ok && g.Store != nil {
		if err := g.Store.PutUser(rec); err != nil {
			log.Printf("Saving user %q on disconnect: %v", name, err)
		}
	}
	log.Printf("User %q disconnected", name)
}

// saveUser write-through persists a user's current record.
func (g *Game) saveUser(name string) {
	if g.Store == nil {
		return
	}
	rec, ok := g.World.UserSnapshot(name)
	if !ok {
		return
	}
	if err := g.Store.PutUser(rec); err != nil {
		log.Printf("Saving user %q: %v", name, err)
	}
}

// --- Bot responses ---

// checkBotResponses lets bots in the room react to an utterance. Each bot
// replies at most once, with its first matching response.
func (g *Game) checkBotResponses(roomID, utterance string) {
	lower := strings.ToLower(utterance)
	for _, bot := range g.World.BotsInRoom(roomID, true) {
		for _, resp := range bot.Responses {
			matched := false
			for _, kw := range resp.Keywords {
				if strings.Contains(lower, strings.ToLower(kw)) {
					matched = true
					break
				}
			}
			if matched {
				g.SayToRoom(roomID, fmt.Sprintf("%s says: %s", bot.Name, resp.Reply))
				break
			}
		}
	}
}

// --- command.ContextProvider implementation ---

// worldContext adapts the world to argument resolution: given an actor and an
// argument type, it returns the candidate names in scope.
type worldContext struct {
	g *Game
}

func (wc worldContext) Candidates(actor string, t command.ArgType) []string {
	w := wc.g.World
	roomID, ok := w.UserRoom(actor)
	if !ok {
		return nil
	}
	switch t {
	case command.ArgUser:
		return wc.g.Conns.ConnectedPlayers()
	case command.ArgRoomItem:
		return w.RoomItemNames(roomID)
	case command.ArgInventoryItem:
		return w.InventoryNames(actor)
	case command.ArgExaminable:
		return w.ExaminableNames(actor, w.IsAdmin(actor))
	case command.ArgExit:
		return w.ExitNames(roomID)
	case command.ArgRoom:
		return w.RoomIDs()
	case command.ArgContainer:
		return w.ContainerNames(roomID)
	case command.ArgGiveTarget:
		return w.GiveTargetNames(actor, w.IsAdmin(actor))
	default:
		return nil
	}
}
