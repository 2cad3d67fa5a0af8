package server

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	hs, err := OpenHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistoryStore: %v", err)
	}
	t.Cleanup(func() { hs.Close() })
	return hs
}

func TestHistoryInsertAndRecent(t *testing.T) {
	hs := newTestHistory(t)
	now := time.Now()
	for i := 0; i < 5; i++ {
		if err := hs.Insert(now, "lobby", "Ada", fmt.Sprintf("line %d", i)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := hs.Insert(now, "garden", "Bob", "elsewhere"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	lines, err := hs.Recent("lobby", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	// Oldest first within the window: the last three inserted.
	if lines[0].Text != "line 2" || lines[2].Text != "line 4" {
		t.Errorf("lines = %q %q %q", lines[0].Text, lines[1].Text, lines[2].Text)
	}
	for _, ln := range lines {
		if ln.Room != "lobby" {
			t.Errorf("room = %q, want lobby", ln.Room)
		}
	}
}

func TestHistoryRecentEmptyRoom(t *testing.T) {
	hs := newTestHistory(t)
	lines, err := hs.Recent("attic", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %d lines, want 0", len(lines))
	}
}

func TestHistoryPurge(t *testing.T) {
	hs := newTestHistory(t)
	old := time.Now().Add(-48 * time.Hour)
	if err := hs.Insert(old, "lobby", "Ada", "stale"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := hs.Insert(time.Now(), "lobby", "Ada", "fresh"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	purged, err := hs.Purge(24 * time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	lines, err := hs.Recent("lobby", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "fresh" {
		t.Errorf("remaining = %v", lines)
	}
}

func TestHistoryWriterRecordsSay(t *testing.T) {
	g := newTestGame(t)
	g.History = newTestHistory(t)
	NewHistoryWriter(g)

	d, _ := login(t, g, "Ada")
	DispatchCommand(g, d, "say remember this")

	lines, err := g.History.Recent("lobby", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Text != "Ada says: remember this" {
		t.Errorf("text = %q", lines[0].Text)
	}
	if lines[0].Source != "Ada" {
		t.Errorf("source = %q", lines[0].Source)
	}
}

func TestHistoryWriterIgnoresWhispers(t *testing.T) {
	g := newTestGame(t)
	g.History = newTestHistory(t)
	NewHistoryWriter(g)

	ada, _ := login(t, g, "Ada")
	login(t, g, "Bob")
	DispatchCommand(g, ada, "whisper Bob secret stuff")

	lines, err := g.History.Recent("lobby", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("whisper was recorded: %v", lines)
	}
}
