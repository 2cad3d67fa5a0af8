package world

import (
	"errors"
	"sync"
	"testing"
)

func testWorld(t *testing.T) *World {
	t.Helper()
	w := New()
	w.AddRoom(&Room{ID: "lobby", Name: "The Lobby", Description: "A quiet lobby.",
		Exits: map[string]string{"north": "garden", "void": "nowhere"},
		Items: []string{"coin", "chest", "statue"}})
	w.AddRoom(&Room{ID: "garden", Name: "The Garden",
		Exits: map[string]string{"south": "lobby"}})
	w.AddItem(&Item{ID: "coin", Name: "Gold Coin"})
	w.AddItem(&Item{ID: "chest", Name: "Treasure Chest", IsContainer: true,
		Contents: []string{"scroll"}})
	w.AddItem(&Item{ID: "scroll", Name: "Scroll"})
	w.AddItem(&Item{ID: "statue", Name: "Statue", Tags: []string{TagImmovable}})
	w.AddBot(&Bot{ID: "guard", Name: "Guard", Room: "lobby", Visible: true,
		Inventory: []string{"key"}})
	w.AddItem(&Item{ID: "key", Name: "Brass Key"})
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return w
}

func mustAddUser(t *testing.T, w *World, name string) {
	t.Helper()
	if err := w.AddUser(UserRecord{Name: name, Room: "lobby"}); err != nil {
		t.Fatalf("AddUser(%s): %v", name, err)
	}
}

func TestValidateRejectsDoubleOwnership(t *testing.T) {
	w := New()
	w.AddRoom(&Room{ID: "a", Items: []string{"coin"}})
	w.AddRoom(&Room{ID: "b", Items: []string{"coin"}})
	w.AddItem(&Item{ID: "coin", Name: "Gold Coin"})
	if err := w.Validate(); err == nil {
		t.Fatal("expected validation error for doubly-owned item")
	}
}

func TestPickUpAndDrop(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")

	from, err := w.PickUp("Alice", "Gold Coin")
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	if from != "" {
		t.Errorf("expected pickup from floor, got container %q", from)
	}
	if got := w.InventoryNames("Alice"); len(got) != 1 || got[0] != "Gold Coin" {
		t.Errorf("inventory = %v", got)
	}
	if err := w.CheckOwnership(); err != nil {
		t.Fatal(err)
	}

	if err := w.Drop("Alice", "Gold Coin"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if got := w.InventoryNames("Alice"); len(got) != 0 {
		t.Errorf("inventory after drop = %v", got)
	}
	if err := w.CheckOwnership(); err != nil {
		t.Fatal(err)
	}
}

func TestPickUpPrefersOpenContainer(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")

	// Closed chest: the scroll inside is unreachable.
	if _, err := w.PickUp("Alice", "Scroll"); err == nil {
		t.Fatal("expected scroll in closed chest to be unreachable")
	}

	if _, err := w.SetContainerOpen("Alice", "Treasure Chest", true); err != nil {
		t.Fatalf("open: %v", err)
	}
	from, err := w.PickUp("Alice", "Scroll")
	if err != nil {
		t.Fatalf("PickUp from container: %v", err)
	}
	if from != "Treasure Chest" {
		t.Errorf("from = %q, want Treasure Chest", from)
	}
	if err := w.CheckOwnership(); err != nil {
		t.Fatal(err)
	}
}

func TestPickUpImmovable(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")

	_, err := w.PickUp("Alice", "Statue")
	var ise *InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("err = %v, want InvalidStateError", err)
	}
	if err := w.CheckOwnership(); err != nil {
		t.Fatal(err)
	}
}

func TestPutInClosedContainer(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")
	if _, err := w.PickUp("Alice", "Gold Coin"); err != nil {
		t.Fatal(err)
	}

	err := w.PutIn("Alice", "Gold Coin", "Treasure Chest")
	var ise *InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("put into closed chest: err = %v, want InvalidStateError", err)
	}
	// Coin stays with Alice.
	if got := w.InventoryNames("Alice"); len(got) != 1 {
		t.Errorf("inventory = %v", got)
	}

	if _, err := w.SetContainerOpen("Alice", "Treasure Chest", true); err != nil {
		t.Fatal(err)
	}
	if err := w.PutIn("Alice", "Gold Coin", "Treasure Chest"); err != nil {
		t.Fatalf("put into open chest: %v", err)
	}
	if got := w.InventoryNames("Alice"); len(got) != 0 {
		t.Errorf("inventory = %v", got)
	}
	if err := w.CheckOwnership(); err != nil {
		t.Fatal(err)
	}
}

func TestGiveBetweenUsers(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")
	mustAddUser(t, w, "Bob")
	if _, err := w.PickUp("Alice", "Gold Coin"); err != nil {
		t.Fatal(err)
	}

	if err := w.Give("Alice", "Gold Coin", "Bob"); err != nil {
		t.Fatalf("Give: %v", err)
	}
	if got := w.InventoryNames("Bob"); len(got) != 1 || got[0] != "Gold Coin" {
		t.Errorf("Bob inventory = %v", got)
	}

	// Missing target leaves the giver's inventory unchanged.
	if _, err := w.PickUp("Bob", "Statue"); err == nil {
		t.Fatal("statue should be immovable")
	}
	err := w.Give("Bob", "Gold Coin", "Carol")
	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if got := w.InventoryNames("Bob"); len(got) != 1 {
		t.Errorf("Bob inventory after failed give = %v", got)
	}
	if err := w.CheckOwnership(); err != nil {
		t.Fatal(err)
	}
}

func TestBotGiveAndTake(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")

	name, err := w.BotGive("guard", "Brass Key", "Alice")
	if err != nil {
		t.Fatalf("BotGive: %v", err)
	}
	if name != "Brass Key" {
		t.Errorf("name = %q", name)
	}
	if got := w.InventoryNames("Alice"); len(got) != 1 {
		t.Errorf("inventory = %v", got)
	}

	if _, err := w.BotTake("guard", "Brass Key", "Alice"); err != nil {
		t.Fatalf("BotTake: %v", err)
	}
	b, _ := w.BotSnapshot("guard")
	if len(b.Inventory) != 1 || b.Inventory[0] != "key" {
		t.Errorf("bot inventory = %v", b.Inventory)
	}
	if err := w.CheckOwnership(); err != nil {
		t.Fatal(err)
	}
}

func TestGiveTargetNames(t *testing.T) {
	w := testWorld(t)
	w.AddBot(&Bot{ID: "ghost", Name: "Ghost", Room: "lobby", Visible: false})
	mustAddUser(t, w, "Alice")
	mustAddUser(t, w, "Bob")
	if err := w.AddUser(UserRecord{Name: "Carol", Room: "garden"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	got := w.GiveTargetNames("Alice", false)
	want := []string{"Bob", "Guard"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("targets = %v, want %v", got, want)
	}

	// Admins also see invisible bots; nobody sees users in other rooms
	// or themselves.
	got = w.GiveTargetNames("Alice", true)
	want = []string{"Bob", "Ghost", "Guard"}
	if len(got) != 3 || got[1] != "Ghost" {
		t.Errorf("admin targets = %v, want %v", got, want)
	}
}

func TestRoomBotByName(t *testing.T) {
	w := testWorld(t)
	w.AddBot(&Bot{ID: "ghost", Name: "Ghost", Room: "lobby", Visible: false})
	mustAddUser(t, w, "Alice")

	if id, ok := w.RoomBotByName("Alice", "guard", false); !ok || id != "guard" {
		t.Errorf("guard = %q, %v", id, ok)
	}
	if _, ok := w.RoomBotByName("Alice", "ghost", false); ok {
		t.Error("invisible bot resolved for non-admin")
	}
	if id, ok := w.RoomBotByName("Alice", "ghost", true); !ok || id != "ghost" {
		t.Errorf("admin ghost = %q, %v", id, ok)
	}
}

func TestContainerOpenClose(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")

	contents, err := w.SetContainerOpen("Alice", "Treasure Chest", true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(contents) != 1 || contents[0] != "Scroll" {
		t.Errorf("contents = %v", contents)
	}
	if _, err := w.SetContainerOpen("Alice", "Treasure Chest", true); err == nil {
		t.Error("expected already-open error")
	}
	if _, err := w.SetContainerOpen("Alice", "Gold Coin", true); err == nil {
		t.Error("expected non-container error")
	}
	if _, err := w.SetContainerOpen("Alice", "Treasure Chest", false); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestExamineContainerStates(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")

	e, err := w.FindExaminable("Alice", "Treasure Chest", false)
	if err != nil {
		t.Fatalf("FindExaminable: %v", err)
	}
	if !e.IsContainer || e.Open || e.Contents != nil {
		t.Errorf("closed chest view = %+v", e)
	}

	if _, err := w.SetContainerOpen("Alice", "Treasure Chest", true); err != nil {
		t.Fatal(err)
	}
	e, err = w.FindExaminable("Alice", "Treasure Chest", false)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Open || len(e.Contents) != 1 || e.Contents[0] != "Scroll" {
		t.Errorf("open chest view = %+v", e)
	}
}

func TestNameClaimIsExclusive(t *testing.T) {
	w := testWorld(t)

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = w.AddUser(UserRecord{Name: "Alice", Room: "lobby"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var nte *NameTakenError
		if !errors.As(err, &nte) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d successful claims, want exactly 1", wins)
	}
}

func TestMovementSplit(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")

	old, ok := w.RemoveOccupant("Alice")
	if !ok || old != "lobby" {
		t.Fatalf("RemoveOccupant = %q, %v", old, ok)
	}
	if occ := w.Occupants("lobby"); len(occ) != 0 {
		t.Errorf("lobby occupants mid-move = %v", occ)
	}
	if err := w.PlaceOccupant("Alice", "garden"); err != nil {
		t.Fatalf("PlaceOccupant: %v", err)
	}
	room, _ := w.UserRoom("Alice")
	if room != "garden" {
		t.Errorf("room = %q", room)
	}
	if occ := w.Occupants("garden"); len(occ) != 1 || occ[0] != "Alice" {
		t.Errorf("garden occupants = %v", occ)
	}
}

func TestRemoveUserReturnsRecord(t *testing.T) {
	w := testWorld(t)
	mustAddUser(t, w, "Alice")
	if _, err := w.PickUp("Alice", "Gold Coin"); err != nil {
		t.Fatal(err)
	}

	rec, ok := w.RemoveUser("Alice")
	if !ok {
		t.Fatal("RemoveUser returned no record")
	}
	if rec.Room != "lobby" || len(rec.Inventory) != 1 || rec.Inventory[0] != "coin" {
		t.Errorf("record = %+v", rec)
	}
	if occ := w.Occupants("lobby"); len(occ) != 0 {
		t.Errorf("occupants after disconnect = %v", occ)
	}
}

func TestAddUserFallsBackToStartRoom(t *testing.T) {
	w := testWorld(t)
	if err := w.AddUser(UserRecord{Name: "Bob", Room: "demolished"}); err != nil {
		t.Fatal(err)
	}
	room, _ := w.UserRoom("Bob")
	if room != "lobby" {
		t.Errorf("room = %q, want start room lobby", room)
	}
}
