package boltstore

import (
	"path/filepath"
	"testing"

	"github.com/textspot/textspot/pkg/world"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := world.UserRecord{Name: "Alice", Room: "lobby", Inventory: []string{"coin"}, Admin: true}
	if err := s.PutUser(rec); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	// Lookup is case-insensitive.
	got, ok, err := s.GetUser("alice")
	if err != nil || !ok {
		t.Fatalf("GetUser: ok=%v err=%v", ok, err)
	}
	if got.Name != "Alice" || got.Room != "lobby" || !got.Admin {
		t.Errorf("got %+v", got)
	}
	if len(got.Inventory) != 1 || got.Inventory[0] != "coin" {
		t.Errorf("inventory = %v", got.Inventory)
	}

	if _, ok, _ := s.GetUser("bob"); ok {
		t.Error("bob should not exist")
	}
	if n := s.UserCount(); n != 1 {
		t.Errorf("UserCount = %d, want 1", n)
	}

	if err := s.DeleteUser("ALICE"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, ok, _ := s.GetUser("alice"); ok {
		t.Error("alice should be gone")
	}
}

func TestLoadUsers(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		if err := s.PutUser(world.UserRecord{Name: name, Room: "lobby"}); err != nil {
			t.Fatalf("PutUser %s: %v", name, err)
		}
	}
	recs, err := s.LoadUsers()
	if err != nil {
		t.Fatalf("LoadUsers: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("loaded %d users, want 3", len(recs))
	}
}

func snapshotWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.New()
	w.AddRoom(&world.Room{ID: "lobby", Name: "The Lobby", Exits: map[string]string{"north": "garden"}, Items: []string{"chest"}})
	w.AddRoom(&world.Room{ID: "garden", Name: "The Garden", Exits: map[string]string{"south": "lobby"}})
	w.AddItem(&world.Item{ID: "chest", Name: "chest", IsContainer: true, Open: true, Contents: []string{"coin"}})
	w.AddItem(&world.Item{ID: "coin", Name: "coin"})
	w.AddBot(&world.Bot{ID: "guard", Name: "Guard", Room: "lobby", Visible: true,
		Responses: []world.Response{{Keywords: []string{"hello"}, Reply: "Move along."}}})
	return w
}

func TestWorldSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.LoadWorld(); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	if err := s.SaveWorld(snapshotWorld(t)); err != nil {
		t.Fatalf("SaveWorld: %v", err)
	}
	if s.SavedAt().IsZero() {
		t.Error("SavedAt should be set after save")
	}

	w, ok, err := s.LoadWorld()
	if err != nil || !ok {
		t.Fatalf("LoadWorld: ok=%v err=%v", ok, err)
	}
	if !w.RoomExists("garden") {
		t.Error("garden missing from snapshot")
	}
	if got, _ := w.ExitTarget("lobby", "north"); got != "garden" {
		t.Errorf("exit north = %q", got)
	}
	bot, ok := w.BotSnapshot("guard")
	if !ok || bot.Room != "lobby" || len(bot.Responses) != 1 {
		t.Errorf("bot = %+v ok=%v", bot, ok)
	}
	names := w.RoomItemNames("lobby")
	if len(names) != 2 { // chest plus coin visible through the open lid
		t.Errorf("lobby items = %v", names)
	}
	if err := w.CheckOwnership(); err != nil {
		t.Errorf("ownership after reload: %v", err)
	}
}

func TestSaveWorldReplacesPreviousSnapshot(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveWorld(snapshotWorld(t)); err != nil {
		t.Fatalf("SaveWorld: %v", err)
	}

	small := world.New()
	small.AddRoom(&world.Room{ID: "cell", Name: "A Cell"})
	if err := s.SaveWorld(small); err != nil {
		t.Fatalf("SaveWorld: %v", err)
	}

	w, ok, err := s.LoadWorld()
	if err != nil || !ok {
		t.Fatalf("LoadWorld: ok=%v err=%v", ok, err)
	}
	if w.RoomExists("lobby") {
		t.Error("old snapshot rooms should be gone")
	}
	if !w.RoomExists("cell") {
		t.Error("cell missing")
	}
}

func TestWorldDirTracking(t *testing.T) {
	s := openTestStore(t)
	if got := s.WorldDir(); got != "" {
		t.Errorf("WorldDir = %q, want empty", got)
	}
	if err := s.SetWorldDir("/srv/world"); err != nil {
		t.Fatalf("SetWorldDir: %v", err)
	}
	if got := s.WorldDir(); got != "/srv/world" {
		t.Errorf("WorldDir = %q", got)
	}
}

func TestBackup(t *testing.T) {
	s := openTestStore(t)
	if err := s.PutUser(world.UserRecord{Name: "Alice", Room: "lobby"}); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	path := filepath.Join(t.TempDir(), "backup.db")
	if err := s.Backup(path); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	restored, err := Open(path)
	if err != nil {
		t.Fatalf("Open backup: %v", err)
	}
	defer restored.Close()
	if _, ok, _ := restored.GetUser("alice"); !ok {
		t.Error("backup should contain alice")
	}
}
