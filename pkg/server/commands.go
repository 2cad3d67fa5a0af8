package server

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/textspot/textspot/pkg/command"
	"github.com/textspot/textspot/pkg/events"
	"github.com/textspot/textspot/pkg/script"
	"github.com/textspot/textspot/pkg/world"
)

// CommandHandler is the signature for game command implementations. The
// argument text arrives verbatim after the verb, already trimmed.
type CommandHandler func(g *Game, d *Descriptor, args string)

// InitCommands registers every command's metadata in the registry and its
// handler in the game's handler table.
func InitCommands(g *Game) {
	register := func(c *command.Command, h CommandHandler) {
		g.Registry.Register(c)
		g.Handlers[strings.ToLower(c.Name)] = h
	}

	// Information
	register(&command.Command{Name: "help"}, cmdHelp)
	register(&command.Command{Name: "version"}, cmdVersion)
	register(&command.Command{Name: "whoami"}, cmdWhoami)
	register(&command.Command{Name: "look", Args: []command.ArgType{command.ArgExaminable}}, cmdLook)
	register(&command.Command{Name: "who"}, cmdWho)
	register(&command.Command{Name: "inventory", Aliases: []string{"inv"}}, cmdInventory)

	// Communication
	register(&command.Command{Name: "say", MinArgs: 1, Usage: "say <message>",
		Args: []command.ArgType{command.ArgMessage}}, cmdSay)
	register(&command.Command{Name: "whisper", MinArgs: 2, Usage: "whisper <user> <message>",
		Args: []command.ArgType{command.ArgUser, command.ArgMessage}}, cmdWhisper)

	// Items
	register(&command.Command{Name: "get", Aliases: []string{"take"}, MinArgs: 1, Usage: "get <item>",
		Args: []command.ArgType{command.ArgRoomItem}}, cmdGet)
	register(&command.Command{Name: "drop", MinArgs: 1, Usage: "drop <item>",
		Args: []command.ArgType{command.ArgInventoryItem}}, cmdDrop)
	register(&command.Command{Name: "put", MinArgs: 1, Usage: "put <item> [in <container>]",
		Args: []command.ArgType{command.ArgInventoryItem, command.ArgContainer}}, cmdPut)
	register(&command.Command{Name: "give", MinArgs: 1, Usage: "give <item> to <user>",
		Args: []command.ArgType{command.ArgInventoryItem, command.ArgGiveTarget}}, cmdGive)
	register(&command.Command{Name: "examine", MinArgs: 1, Usage: "examine <item>",
		Args: []command.ArgType{command.ArgExaminable}}, cmdExamine)
	register(&command.Command{Name: "use", MinArgs: 1, Usage: "use <item>",
		Args: []command.ArgType{command.ArgInventoryItem}}, cmdUse)
	register(&command.Command{Name: "open", MinArgs: 1, Usage: "open <container>",
		Args: []command.ArgType{command.ArgContainer}}, cmdOpen)
	register(&command.Command{Name: "close", MinArgs: 1, Usage: "close <container>",
		Args: []command.ArgType{command.ArgContainer}}, cmdClose)

	// Movement
	register(&command.Command{Name: "go", MinArgs: 1, Usage: "go <exit>",
		Args: []command.ArgType{command.ArgExit}}, cmdGo)
	register(&command.Command{Name: "north"}, makeDirection("north"))
	register(&command.Command{Name: "south"}, makeDirection("south"))
	register(&command.Command{Name: "east"}, makeDirection("east"))
	register(&command.Command{Name: "west"}, makeDirection("west"))

	// Session
	register(&command.Command{Name: "quit", Aliases: []string{"exit"}}, cmdQuit)

	// Admin
	register(&command.Command{Name: "teleport", AdminOnly: true,
		Args: []command.ArgType{command.ArgRoom}}, cmdTeleport)
	register(&command.Command{Name: "broadcast", AdminOnly: true, MinArgs: 1, Usage: "broadcast <message>",
		Args: []command.ArgType{command.ArgMessage}}, cmdBroadcast)
	register(&command.Command{Name: "kick", AdminOnly: true, MinArgs: 1, Usage: "kick <user>",
		Args: []command.ArgType{command.ArgUser}}, cmdKick)
	register(&command.Command{Name: "script", AdminOnly: true, MinArgs: 1, Usage: "script <name>",
		Args: []command.ArgType{command.ArgString}}, cmdScript)
	register(&command.Command{Name: "history", AdminOnly: true}, cmdHistory)
	register(&command.Command{Name: "stats", AdminOnly: true}, cmdStats)
	register(&command.Command{Name: "backup", AdminOnly: true}, cmdBackup)
}

// DispatchCommand resolves one input line and runs its handler. Handler
// panics are recovered so a bad command never takes the session down.
func DispatchCommand(g *Game, d *Descriptor, input string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Command panic for %q (input %q): %v", d.Player, input, r)
			d.Send("Something went wrong with that command.")
		}
	}()

	input = strings.TrimSpace(input)
	if input == "" {
		d.Send("Please enter a command. Type 'help' for available commands.")
		return
	}
	g.CommandCount.Add(1)
	d.CmdCount++

	if input[0] == '"' {
		cmdSay(g, d, strings.TrimSpace(input[1:]))
		return
	}

	var verb, args string
	if i := strings.IndexByte(input, ' '); i >= 0 {
		verb, args = input[:i], strings.TrimSpace(input[i+1:])
	} else {
		verb = input
	}

	admin := g.World.IsAdmin(d.Player)
	name, err := g.Registry.Resolve(strings.ToLower(verb), admin)
	if err != nil {
		var unknown *command.UnknownCommandError
		if errors.As(err, &unknown) && args == "" {
			// A bare exit name moves, like "go <exit>" would.
			if tryMoveByExit(g, d, input) {
				return
			}
		}
		d.Send(err.Error())
		return
	}

	cmd, _ := g.Registry.Lookup(name)
	if err := g.Registry.Validate(cmd, admin, len(strings.Fields(args))); err != nil {
		d.Send(err.Error())
		return
	}

	handler, ok := g.Handlers[name]
	if !ok {
		d.Send((&command.UnknownCommandError{Input: verb}).Error())
		return
	}
	DebugLog("dispatch %s: %s %q", d.Player, name, args)
	handler(g, d, args)
}

// tryMoveByExit treats a bare input as an exit name. Returns false when the
// input matches no exit, so the dispatcher can report unknown command.
func tryMoveByExit(g *Game, d *Descriptor, input string) bool {
	roomID, ok := g.World.UserRoom(d.Player)
	if !ok {
		return false
	}
	exit, err := command.MatchName(input, g.World.ExitNames(roomID))
	if err != nil {
		return false
	}
	moveThroughExit(g, d, roomID, exit)
	return true
}

// moveThroughExit follows a resolved exit name out of a room.
func moveThroughExit(g *Game, d *Descriptor, roomID, exit string) {
	target, ok := g.World.ExitTarget(roomID, exit)
	if !ok {
		d.Send(fmt.Sprintf("You can't go %s from here.", exit))
		return
	}
	if !g.World.RoomExists(target) {
		d.Send(fmt.Sprintf("The %s exit leads nowhere.", exit))
		return
	}
	g.MoveUser(d, target)
}

// --- Information commands ---

func cmdHelp(g *Game, d *Descriptor, _ string) {
	text := `Available commands:
  look - See room description and contents
  go <exit> - Move to another room (or just type the exit name)
  say <message> - Speak to everyone in the room
  whisper <user> <message> - Send private message
  who - List all online users
  inventory - Show your items
  get <item> - Pick up an item
  drop <item> - Drop an item
  put <item> in <container> - Put an item in a container
  give <item> to <user> - Give an item to another user
  examine <item> - Look at an item closely
  use <item> - Use an item
  open <container> - Open a container
  close <container> - Close a container
  help - Show this help
  quit - Disconnect`

	if g.World.IsAdmin(d.Player) {
		text += `

Admin commands:
  teleport [room] - Jump to room (no args lists rooms)
  broadcast <message> - Send message to all users
  kick <user> - Disconnect a user
  script <name> - Execute a bot script
  history [count] - Show recent room chat
  stats - Show server statistics
  backup [path] - Back up the world database`
	}
	d.Send(text)
}

func cmdVersion(g *Game, d *Descriptor, _ string) {
	d.Send(VersionString())
}

func cmdWhoami(g *Game, d *Descriptor, _ string) {
	reply := fmt.Sprintf("You are: %s", d.Player)
	if g.World.IsAdmin(d.Player) {
		reply += " (admin)"
	}
	d.Send(reply)
}

func cmdLook(g *Game, d *Descriptor, args string) {
	if args == "" {
		g.ShowRoom(d)
		return
	}
	cmdExamine(g, d, args)
}

func cmdWho(g *Game, d *Descriptor, _ string) {
	players := g.Conns.ConnectedPlayers()
	if len(players) == 0 {
		d.Send("No users online.")
		return
	}
	sort.Strings(players)
	d.Send(fmt.Sprintf("Online users (%d): %s", len(players), strings.Join(players, ", ")))
}

func cmdInventory(g *Game, d *Descriptor, _ string) {
	names := g.World.InventoryNames(d.Player)
	if len(names) == 0 {
		d.Send("You are not carrying anything.")
		return
	}
	d.Send(fmt.Sprintf("You are carrying: %s", strings.Join(names, ", ")))
}

// --- Communication commands ---

func cmdSay(g *Game, d *Descriptor, args string) {
	if args == "" {
		d.Send("Usage: say <message>")
		return
	}
	roomID, ok := g.World.UserRoom(d.Player)
	if !ok {
		d.Send("You are in an unknown location.")
		return
	}
	g.EventBus.EmitToRoomExcept(g.World, roomID, d.Player, events.Event{
		Type: events.EvSay, Source: d.Player, Room: roomID,
		Text: fmt.Sprintf("%s says: %s", d.Player, args),
	})
	d.Send(fmt.Sprintf("You say: %s", args))
	g.checkBotResponses(roomID, args)
}

func cmdWhisper(g *Game, d *Descriptor, args string) {
	target, msg := command.SplitFirstWord(args)
	if target == "" || msg == "" {
		d.Send("Usage: whisper <user> <message>")
		return
	}
	resolved, err := command.MatchName(target, g.Conns.ConnectedPlayers())
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("User '%s' not found.", target))
		return
	}
	g.EventBus.EmitToPlayer(resolved, events.Event{
		Type: events.EvWhisper, Player: resolved, Source: d.Player,
		Text: fmt.Sprintf("%s whispers: %s", d.Player, msg),
	})
	d.Send(fmt.Sprintf("You whisper to %s: %s", resolved, msg))
}

// --- Item commands ---

func cmdGet(g *Game, d *Descriptor, args string) {
	roomID, ok := g.World.UserRoom(d.Player)
	if !ok {
		d.Send("You are in an unknown location.")
		return
	}
	item, err := command.MatchName(args, g.World.RoomItemNames(roomID))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("There is no '%s' here.", args))
		return
	}
	from, err := g.World.PickUp(d.Player, item)
	if err != nil {
		var inv *world.InvalidStateError
		if errors.As(err, &inv) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("There is no '%s' here.", args))
		return
	}
	g.saveUser(d.Player)
	if from != "" {
		d.Send(fmt.Sprintf("You take %s from %s.", item, from))
		g.EventBus.EmitToRoomExcept(g.World, roomID, d.Player, events.Event{
			Type: events.EvText, Source: d.Player, Room: roomID,
			Text: fmt.Sprintf("%s takes %s from %s.", d.Player, item, from),
		})
		return
	}
	d.Send(fmt.Sprintf("You pick up %s.", item))
	g.EventBus.EmitToRoomExcept(g.World, roomID, d.Player, events.Event{
		Type: events.EvText, Source: d.Player, Room: roomID,
		Text: fmt.Sprintf("%s picks up %s.", d.Player, item),
	})
}

func cmdDrop(g *Game, d *Descriptor, args string) {
	name, err := command.MatchName(args, g.World.InventoryNames(d.Player))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("You don't have '%s'.", args))
		return
	}
	if err := g.World.Drop(d.Player, name); err != nil {
		d.Send(fmt.Sprintf("You don't have '%s'.", args))
		return
	}
	g.saveUser(d.Player)
	d.Send(fmt.Sprintf("You drop %s.", name))
	if roomID, ok := g.World.UserRoom(d.Player); ok {
		g.EventBus.EmitToRoomExcept(g.World, roomID, d.Player, events.Event{
			Type: events.EvText, Source: d.Player, Room: roomID,
			Text: fmt.Sprintf("%s drops %s.", d.Player, name),
		})
	}
}

func cmdPut(g *Game, d *Descriptor, args string) {
	slots := command.SplitSeparator(args, "in", "into")
	if !slots.Found {
		// "put X" with no container degrades to drop.
		cmdDrop(g, d, slots.First)
		return
	}
	item, err := command.MatchName(slots.First, g.World.InventoryNames(d.Player))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("You don't have '%s'.", slots.First))
		return
	}
	roomID, _ := g.World.UserRoom(d.Player)
	container, err := command.MatchName(slots.Second, g.World.ContainerNames(roomID))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("There is no '%s' here.", slots.Second))
		return
	}
	if err := g.World.PutIn(d.Player, item, container); err != nil {
		var inv *world.InvalidStateError
		if errors.As(err, &inv) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("You can't put %s in %s.", item, container))
		return
	}
	g.saveUser(d.Player)
	d.Send(fmt.Sprintf("You put %s in %s.", item, container))
	g.EventBus.EmitToRoomExcept(g.World, roomID, d.Player, events.Event{
		Type: events.EvText, Source: d.Player, Room: roomID,
		Text: fmt.Sprintf("%s puts %s in %s.", d.Player, item, container),
	})
}

func cmdGive(g *Game, d *Descriptor, args string) {
	slots := command.SplitSeparator(args, "to")
	if !slots.Found {
		d.Send("Usage: give <item> to <user>")
		return
	}
	item, err := command.MatchName(slots.First, g.World.InventoryNames(d.Player))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("You don't have '%s'.", slots.First))
		return
	}
	admin := g.World.IsAdmin(d.Player)
	target, err := command.MatchName(slots.Second, g.World.GiveTargetNames(d.Player, admin))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		if self, err := command.MatchName(slots.Second, []string{d.Player}); err == nil && self == d.Player {
			d.Send("You already have that.")
			return
		}
		d.Send(fmt.Sprintf("User '%s' not found.", slots.Second))
		return
	}
	if botID, ok := g.World.RoomBotByName(d.Player, target, admin); ok {
		if _, err := g.World.BotTake(botID, item, d.Player); err != nil {
			d.Send(fmt.Sprintf("You can't give %s to %s.", item, target))
			return
		}
		d.Send(fmt.Sprintf("You give %s to %s.", item, target))
		g.saveUser(d.Player)
		return
	}
	if err := g.World.Give(d.Player, item, target); err != nil {
		d.Send(fmt.Sprintf("You can't give %s to %s.", item, target))
		return
	}
	d.Send(fmt.Sprintf("You give %s to %s.", item, target))
	g.Conns.SendToPlayer(target, fmt.Sprintf("%s gives you %s.", d.Player, item))
	g.saveUser(d.Player)
	g.saveUser(target)
}

func cmdExamine(g *Game, d *Descriptor, args string) {
	admin := g.World.IsAdmin(d.Player)
	name, err := command.MatchName(args, g.World.ExaminableNames(d.Player, admin))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("You don't see '%s' here.", args))
		return
	}
	ex, err := g.World.FindExaminable(d.Player, name, admin)
	if err != nil {
		d.Send(fmt.Sprintf("You don't see '%s' here.", args))
		return
	}
	text := fmt.Sprintf("%s: %s", ex.Name, ex.Description)
	if len(ex.Tags) > 0 {
		text += fmt.Sprintf("\nTags: %s", strings.Join(ex.Tags, ", "))
	}
	if ex.IsContainer {
		if !ex.Open {
			text += "\nIt is closed."
		} else if len(ex.Contents) > 0 {
			text += fmt.Sprintf("\nContains: %s", strings.Join(ex.Contents, ", "))
		}
	}
	d.Send(text)
}

func cmdUse(g *Game, d *Descriptor, args string) {
	name, err := command.MatchName(args, g.World.InventoryNames(d.Player))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("You don't have '%s'.", args))
		return
	}
	itemID, code, err := g.World.UseItem(d.Player, name)
	if err != nil {
		d.Send(fmt.Sprintf("You don't have '%s'.", args))
		return
	}
	d.Send(fmt.Sprintf("You use %s.", name))
	if code == "" {
		return
	}
	roomID, _ := g.World.UserRoom(d.Player)
	if err := g.RunItemScript(itemID, code, d.Player, roomID); err != nil {
		log.Printf("Item script for %s failed: %v", itemID, err)
	}
}

func cmdOpen(g *Game, d *Descriptor, args string) {
	setOpenState(g, d, args, true)
}

func cmdClose(g *Game, d *Descriptor, args string) {
	setOpenState(g, d, args, false)
}

func setOpenState(g *Game, d *Descriptor, args string, open bool) {
	roomID, ok := g.World.UserRoom(d.Player)
	if !ok {
		d.Send("You are in an unknown location.")
		return
	}
	name, err := command.MatchName(args, g.World.ContainerNames(roomID))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		verb := "open"
		if !open {
			verb = "close"
		}
		d.Send(fmt.Sprintf("You can't %s %s.", verb, args))
		return
	}
	contents, err := g.World.SetContainerOpen(d.Player, name, open)
	if err != nil {
		var inv *world.InvalidStateError
		if errors.As(err, &inv) {
			d.Send(err.Error())
			return
		}
		verb := "open"
		if !open {
			verb = "close"
		}
		d.Send(fmt.Sprintf("You can't %s %s.", verb, args))
		return
	}
	if open {
		if len(contents) > 0 {
			d.Send(fmt.Sprintf("You open %s. Inside you see: %s.", name, strings.Join(contents, ", ")))
		} else {
			d.Send(fmt.Sprintf("You open %s. It is empty.", name))
		}
		g.EventBus.EmitToRoomExcept(g.World, roomID, d.Player, events.Event{
			Type: events.EvText, Source: d.Player, Room: roomID,
			Text: fmt.Sprintf("%s opens %s.", d.Player, name),
		})
		return
	}
	d.Send(fmt.Sprintf("You close %s.", name))
	g.EventBus.EmitToRoomExcept(g.World, roomID, d.Player, events.Event{
		Type: events.EvText, Source: d.Player, Room: roomID,
		Text: fmt.Sprintf("%s closes %s.", d.Player, name),
	})
}

// --- Movement commands ---

func cmdGo(g *Game, d *Descriptor, args string) {
	roomID, ok := g.World.UserRoom(d.Player)
	if !ok {
		d.Send("You are in an unknown location.")
		return
	}
	exit, err := command.MatchName(args, g.World.ExitNames(roomID))
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(fmt.Sprintf("Ambiguous direction '%s'. Options: %s", args, strings.Join(amb.Candidates, ", ")))
			return
		}
		d.Send(fmt.Sprintf("You can't go %s from here.", args))
		return
	}
	moveThroughExit(g, d, roomID, exit)
}

func makeDirection(dir string) CommandHandler {
	return func(g *Game, d *Descriptor, _ string) {
		cmdGo(g, d, dir)
	}
}

// --- Session commands ---

func cmdQuit(g *Game, d *Descriptor, _ string) {
	d.Send("Goodbye!")
	d.Close()
}

// --- Admin commands ---

func cmdTeleport(g *Game, d *Descriptor, args string) {
	if args == "" {
		ids := g.World.RoomIDs()
		d.Send("Available rooms: " + strings.Join(ids, ", "))
		return
	}
	target, err := command.MatchName(args, g.World.RoomIDs())
	if err != nil {
		var amb *command.AmbiguousError
		if errors.As(err, &amb) {
			d.Send(err.Error())
			return
		}
		d.Send(fmt.Sprintf("Room '%s' not found.", args))
		return
	}
	g.MoveUser(d, target)
}

func cmdBroadcast(g *Game, d *Descriptor, args string) {
	g.EventBus.EmitToAll(events.Event{
		Type: events.EvBroadcast, Source: d.Player,
		Text: fmt.Sprintf("📢 %s broadcasts: %s", d.Player, args),
	})
	d.Send(fmt.Sprintf("Broadcast sent: %s", args))
}

func cmdKick(g *Game, d *Descriptor, args string) {
	target, err := command.MatchName(args, g.Conns.ConnectedPlayers())
	if err != nil {
		d.Send(fmt.Sprintf("User '%s' not found.", args))
		return
	}
	if target == d.Player {
		d.Send("You cannot kick yourself.")
		return
	}
	victim := g.Conns.GetByPlayer(target)
	if victim == nil {
		d.Send(fmt.Sprintf("User '%s' not found.", args))
		return
	}
	victim.Send("You have been disconnected by an administrator.")
	victim.Close()
	d.Send(fmt.Sprintf("Kicked user: %s", target))
	log.Printf("Admin %q kicked %q", d.Player, target)
}

func cmdScript(g *Game, d *Descriptor, args string) {
	entry, ok := g.ScriptByName(args)
	if !ok {
		d.Send(fmt.Sprintf("Script '%s' not found.", args))
		return
	}
	roomID, _ := g.World.UserRoom(d.Player)
	inv := script.Invocation{Invoker: d.Player, Room: roomID}
	if err := g.RunBotScript(entry, inv); err != nil {
		d.Send(fmt.Sprintf("Error executing script '%s': %v", args, err))
		return
	}
	d.Send(fmt.Sprintf("Script '%s' executed.", args))
}

func cmdHistory(g *Game, d *Descriptor, args string) {
	if g.History == nil {
		d.Send("Chat history is not enabled.")
		return
	}
	limit := 20
	if args != "" {
		if n, err := strconv.Atoi(strings.Fields(args)[0]); err == nil && n > 0 {
			limit = n
		}
	}
	roomID, ok := g.World.UserRoom(d.Player)
	if !ok {
		d.Send("You are in an unknown location.")
		return
	}
	lines, err := g.History.Recent(roomID, limit)
	if err != nil {
		log.Printf("History query failed: %v", err)
		d.Send("Chat history is unavailable.")
		return
	}
	if len(lines) == 0 {
		d.Send("No history for this room.")
		return
	}
	var out []string
	for _, ln := range lines {
		out = append(out, fmt.Sprintf("[%s] %s", ln.At.Format("15:04:05"), ln.Text))
	}
	d.Send(strings.Join(out, "\n"))
}

func cmdStats(g *Game, d *Descriptor, _ string) {
	conns := g.ConnectionStats()
	mem := g.MemoryStats()
	wld := g.WorldStats()

	d.Send(fmt.Sprintf(`Server statistics:
  Connections: %d (%d tcp, %d websocket, %d at login)
  Traffic: %d bytes out, %d bytes in, %d commands this session
  World: %d rooms, %d items, %d bots, %d triggers
  Scripts: %d executed, %d faults, %d sleeping
  Memory: %.1f MB heap, %d goroutines, %d GC cycles`,
		conns["total"], conns["tcp"], conns["websocket"], conns["login_screen"],
		conns["bytes_sent"], conns["bytes_recv"], g.CommandCount.Load(),
		wld["rooms"], wld["items"], wld["bots"], wld["triggers"],
		wld["scripts_executed"], wld["script_faults"], wld["pending_scripts"],
		mem["heap_alloc_mb"], mem["goroutines"], mem["gc_cycles"]))
}

func cmdBackup(g *Game, d *Descriptor, args string) {
	if g.Store == nil {
		d.Send("Persistence is not enabled.")
		return
	}
	path := strings.TrimSpace(args)
	if path == "" {
		path = g.Store.Path() + ".bak"
	}
	if err := g.Store.Backup(path); err != nil {
		log.Printf("Backup to %s failed: %v", path, err)
		d.Send(fmt.Sprintf("Backup failed: %v", err))
		return
	}
	d.Send(fmt.Sprintf("World backed up to %s", path))
}
