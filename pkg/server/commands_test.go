package server

import (
	"strings"
	"testing"
)

func TestDispatchEmptyInput(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")

	DispatchCommand(g, d, "   ")
	if got := out.last(); got != "Please enter a command. Type 'help' for available commands." {
		t.Errorf("got %q", got)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")

	DispatchCommand(g, d, "xyzzy")
	if got := out.last(); got != "Unknown command: xyzzy. Type 'help' for available commands." {
		t.Errorf("got %q", got)
	}
}

func TestDispatchPrefixResolves(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "inven")
	if got := out.last(); got != "You are not carrying anything." {
		t.Errorf("got %q", got)
	}
}

func TestDispatchAliasResolves(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "inv")
	if got := out.last(); got != "You are not carrying anything." {
		t.Errorf("got %q", got)
	}
}

func TestDispatchLetterAlias(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")
	out.reset()

	DispatchCommand(g, d, "l")
	if !strings.Contains(out.all(), "The Lobby") {
		t.Errorf("got %q, want room description", out.all())
	}
}

func TestDispatchQuotedSay(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")
	out.reset()

	DispatchCommand(g, d, `"good morning`)
	if !strings.Contains(out.all(), "You say: good morning") {
		t.Errorf("got %q", out.all())
	}
}

func TestDispatchBareExitNameMoves(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")
	out.reset()

	DispatchCommand(g, d, "north")
	if room, _ := g.World.UserRoom("Bob"); room != "garden" {
		t.Fatalf("Bob in %q, want garden", room)
	}
	if !strings.Contains(out.all(), "The Garden") {
		t.Errorf("got %q, want garden description", out.all())
	}
}

func TestDispatchAdminDenied(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "broadcast hi all")
	if got := out.last(); got != "Access denied. Admin privileges required." {
		t.Errorf("got %q", got)
	}
}

func TestDispatchMissingArgs(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "whisper")
	if got := out.last(); got != "Usage: whisper <user> <message>" {
		t.Errorf("got %q", got)
	}
}

func TestWhoami(t *testing.T) {
	g := newTestGame(t)
	ada, adaOut := login(t, g, "Ada")
	bob, bobOut := login(t, g, "Bob")

	DispatchCommand(g, ada, "whoami")
	if got := adaOut.last(); got != "You are: Ada (admin)" {
		t.Errorf("got %q", got)
	}
	DispatchCommand(g, bob, "whoami")
	if got := bobOut.last(); got != "You are: Bob" {
		t.Errorf("got %q", got)
	}
}

func TestWhoListsOnlineUsers(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")
	login(t, g, "Ada")

	DispatchCommand(g, d, "who")
	if got := out.last(); got != "Online users (2): Ada, Bob" {
		t.Errorf("got %q", got)
	}
}

func TestSayReachesRoomOnly(t *testing.T) {
	g := newTestGame(t)
	ada, _ := login(t, g, "Ada")
	bob, bobOut := login(t, g, "Bob")
	g.MoveUser(bob, "garden")
	bobOut.reset()

	DispatchCommand(g, ada, "say anyone here")
	if strings.Contains(bobOut.all(), "Ada says:") {
		t.Errorf("Bob in another room heard %q", bobOut.all())
	}
}

func TestWhisperByPrefix(t *testing.T) {
	g := newTestGame(t)
	ada, adaOut := login(t, g, "Ada")
	_, bobOut := login(t, g, "Bob")
	bobOut.reset()

	DispatchCommand(g, ada, "whisper bo psst")
	if got := adaOut.last(); got != "You whisper to Bob: psst" {
		t.Errorf("sender got %q", got)
	}
	if got := bobOut.last(); got != "Ada whispers: psst" {
		t.Errorf("target got %q", got)
	}
}

func TestWhisperUnknownUser(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")

	DispatchCommand(g, d, "whisper Zed psst")
	if got := out.last(); got != "User 'Zed' not found." {
		t.Errorf("got %q", got)
	}
}

func TestGetAndDrop(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "get ke")
	if got := out.last(); got != "You pick up key." {
		t.Errorf("got %q", got)
	}
	DispatchCommand(g, d, "inventory")
	if got := out.last(); got != "You are carrying: key" {
		t.Errorf("got %q", got)
	}
	DispatchCommand(g, d, "drop key")
	if got := out.last(); got != "You drop key." {
		t.Errorf("got %q", got)
	}
}

func TestGetImmovableItem(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "get statue")
	if got := out.last(); got != "The statue is too heavy to move." {
		t.Errorf("got %q", got)
	}
}

func TestGetMissingItem(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "get sandwich")
	if got := out.last(); got != "There is no 'sandwich' here." {
		t.Errorf("got %q", got)
	}
}

func TestOpenContainerShowsContents(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "open chest")
	if got := out.last(); got != "You open chest. Inside you see: coin." {
		t.Errorf("got %q", got)
	}
	DispatchCommand(g, d, "open chest")
	if got := out.last(); got != "The chest is already open." {
		t.Errorf("got %q", got)
	}
	DispatchCommand(g, d, "close chest")
	if got := out.last(); got != "You close chest." {
		t.Errorf("got %q", got)
	}
}

func TestGetFromOpenContainer(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "open chest")
	DispatchCommand(g, d, "get coin")
	if got := out.last(); got != "You take coin from chest." {
		t.Errorf("got %q", got)
	}
}

func TestPutInContainer(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")
	DispatchCommand(g, d, "get key")
	DispatchCommand(g, d, "open chest")

	DispatchCommand(g, d, "put key in chest")
	if got := out.last(); got != "You put key in chest." {
		t.Errorf("got %q", got)
	}
}

func TestPutInClosedContainer(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")
	DispatchCommand(g, d, "get key")

	DispatchCommand(g, d, "put key in chest")
	if got := out.last(); got != "The chest is closed." {
		t.Errorf("got %q", got)
	}
}

func TestPutWithoutContainerDrops(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")
	DispatchCommand(g, d, "get key")

	DispatchCommand(g, d, "put key")
	if got := out.last(); got != "You drop key." {
		t.Errorf("got %q", got)
	}
}

func TestGiveToUser(t *testing.T) {
	g := newTestGame(t)
	ada, adaOut := login(t, g, "Ada")
	_, bobOut := login(t, g, "Bob")
	DispatchCommand(g, ada, "get key")
	bobOut.reset()

	DispatchCommand(g, ada, "give key to bob")
	if got := adaOut.last(); got != "You give key to Bob." {
		t.Errorf("giver got %q", got)
	}
	if got := bobOut.last(); got != "Ada gives you key." {
		t.Errorf("receiver got %q", got)
	}
	if names := g.World.InventoryNames("Bob"); len(names) != 1 || names[0] != "key" {
		t.Errorf("Bob carries %v", names)
	}
}

func TestGiveToBot(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")
	DispatchCommand(g, d, "get key")

	DispatchCommand(g, d, "give key to greeter")
	if got := out.last(); got != "You give key to Greeter." {
		t.Errorf("got %q", got)
	}
	if names := g.World.InventoryNames("Ada"); len(names) != 0 {
		t.Errorf("Ada still carries %v", names)
	}
	b, ok := g.World.BotSnapshot("greeter")
	if !ok || len(b.Inventory) != 1 {
		t.Errorf("bot inventory = %v", b.Inventory)
	}
}

func TestGiveTargetsAreRoomScoped(t *testing.T) {
	g := newTestGame(t)
	ada, out := login(t, g, "Ada")
	bob, _ := login(t, g, "Bob")
	DispatchCommand(g, ada, "get key")
	DispatchCommand(g, bob, "go north")

	DispatchCommand(g, ada, "give key to bob")
	if got := out.last(); got != "User 'bob' not found." {
		t.Errorf("got %q", got)
	}
	if names := g.World.InventoryNames("Ada"); len(names) != 1 {
		t.Errorf("Ada carries %v", names)
	}
}

func TestGiveToSelf(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")
	DispatchCommand(g, d, "get key")

	DispatchCommand(g, d, "give key to ada")
	if got := out.last(); got != "You already have that." {
		t.Errorf("got %q", got)
	}
}

func TestExamineItem(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "examine statue")
	got := out.last()
	if !strings.Contains(got, "statue: A weathered statue.") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "Tags: immovable") {
		t.Errorf("got %q, want tags line", got)
	}
}

func TestExamineClosedContainer(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "examine chest")
	if got := out.last(); !strings.Contains(got, "It is closed.") {
		t.Errorf("got %q", got)
	}
}

func TestGoUnknownExit(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "go west")
	if got := out.last(); got != "You can't go west from here." {
		t.Errorf("got %q", got)
	}
}

func TestTeleportListsAndMoves(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")

	DispatchCommand(g, d, "teleport")
	if got := out.last(); got != "Available rooms: garden, lobby" {
		t.Errorf("got %q", got)
	}
	out.reset()
	DispatchCommand(g, d, "teleport gar")
	if room, _ := g.World.UserRoom("Ada"); room != "garden" {
		t.Errorf("Ada in %q, want garden", room)
	}
}

func TestBroadcastReachesAllRooms(t *testing.T) {
	g := newTestGame(t)
	ada, _ := login(t, g, "Ada")
	bob, bobOut := login(t, g, "Bob")
	g.MoveUser(bob, "garden")
	bobOut.reset()

	DispatchCommand(g, ada, "broadcast server restart soon")
	if !strings.Contains(bobOut.all(), "📢 Ada broadcasts: server restart soon") {
		t.Errorf("Bob got %q", bobOut.all())
	}
}

func TestKickDisconnectsUser(t *testing.T) {
	g := newTestGame(t)
	ada, adaOut := login(t, g, "Ada")
	bob, bobOut := login(t, g, "Bob")

	DispatchCommand(g, ada, "kick Bob")
	if got := adaOut.last(); got != "Kicked user: Bob" {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(bobOut.all(), "You have been disconnected by an administrator.") {
		t.Errorf("Bob got %q", bobOut.all())
	}
	if !bob.IsClosed() {
		t.Error("Bob's connection still open")
	}
}

func TestKickSelf(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")

	DispatchCommand(g, d, "kick Ada")
	if got := out.last(); got != "You cannot kick yourself." {
		t.Errorf("got %q", got)
	}
}

func TestScriptCommand(t *testing.T) {
	g := newTestGame(t)
	g.SetScripts([]ScriptEntry{
		{Name: "greet", BotID: "greeter", Script: "say hello everyone"},
	}, nil)
	d, out := login(t, g, "Ada")

	DispatchCommand(g, d, "script greet")
	if !strings.Contains(out.all(), "Greeter says: hello everyone") {
		t.Errorf("got %q, want bot speech", out.all())
	}
	if got := out.last(); got != "Script 'greet' executed." {
		t.Errorf("got %q", got)
	}

	DispatchCommand(g, d, "script nosuch")
	if got := out.last(); got != "Script 'nosuch' not found." {
		t.Errorf("got %q", got)
	}
}

func TestHistoryDisabled(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")

	DispatchCommand(g, d, "history")
	if got := out.last(); got != "Chat history is not enabled." {
		t.Errorf("got %q", got)
	}
}

func TestStatsCommand(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Ada")

	DispatchCommand(g, d, "stats")
	got := out.last()
	for _, want := range []string{"Server statistics:", "2 rooms", "4 items", "1 bots"} {
		if !strings.Contains(got, want) {
			t.Errorf("stats output %q missing %q", got, want)
		}
	}
}

func TestQuitClosesConnection(t *testing.T) {
	g := newTestGame(t)
	d, out := login(t, g, "Bob")

	DispatchCommand(g, d, "quit")
	if got := out.last(); got != "Goodbye!" {
		t.Errorf("got %q", got)
	}
	if !d.IsClosed() {
		t.Error("connection still open")
	}
}
