package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/textspot/textspot/pkg/events"
)

// HistoryStore keeps room chat in SQLite so users can scroll back past their
// own session. Writes come from a global event bus subscriber; reads serve
// the admin history command and the REST endpoint.
type HistoryStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// HistoryLine is one recorded utterance.
type HistoryLine struct {
	At     time.Time `json:"at"`
	Room   string    `json:"room"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
}

// OpenHistoryStore opens (creating if needed) the chat history database,
// with WAL mode and a busy timeout for concurrent readers.
func OpenHistoryStore(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		room TEXT NOT NULL,
		source TEXT NOT NULL,
		text TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating messages table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_room_at
		ON messages(room, at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating messages index: %w", err)
	}
	return &HistoryStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (h *HistoryStore) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// Path returns the filesystem path of the history database.
func (h *HistoryStore) Path() string { return h.path }

// Insert records one utterance.
func (h *HistoryStore) Insert(at time.Time, room, source, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.db.Exec(`INSERT INTO messages (at, room, source, text) VALUES (?, ?, ?, ?)`,
		at.Unix(), room, source, text)
	return err
}

// Recent returns up to limit lines for a room, oldest first.
func (h *HistoryStore) Recent(room string, limit int) ([]HistoryLine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := h.db.QueryContext(ctx, `SELECT at, room, source, text FROM (
			SELECT at, room, source, text, id FROM messages
			WHERE room = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryLine
	for rows.Next() {
		var ln HistoryLine
		var at int64
		if err := rows.Scan(&at, &ln.Room, &ln.Source, &ln.Text); err != nil {
			return nil, err
		}
		ln.At = time.Unix(at, 0)
		out = append(out, ln)
	}
	return out, rows.Err()
}

// Purge deletes lines older than the retention window and returns the count.
func (h *HistoryStore) Purge(retention time.Duration) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cutoff := time.Now().Add(-retention).Unix()
	res, err := h.db.Exec(`DELETE FROM messages WHERE at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HistoryWriter is a global event bus subscriber that records room speech
// and broadcasts.
type HistoryWriter struct {
	store  *HistoryStore
	mu     sync.Mutex
	closed bool
}

// NewHistoryWriter creates a history writer and registers it as a global
// subscriber on the event bus.
func NewHistoryWriter(g *Game) *HistoryWriter {
	if g.History == nil {
		return nil
	}
	hw := &HistoryWriter{store: g.History}
	g.EventBus.SubscribeGlobal(hw)
	log.Printf("history: writer registered on event bus")
	return hw
}

// Receive implements events.Subscriber. Only say and broadcast events are
// stored; whispers stay private.
func (hw *HistoryWriter) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvSay, events.EvBroadcast:
	default:
		return
	}
	if err := hw.store.Insert(time.Now(), ev.Room, ev.Source, ev.Text); err != nil {
		log.Printf("history: insert error: %v", err)
	}
}

// Closed implements events.Subscriber.
func (hw *HistoryWriter) Closed() bool {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.closed
}

// Close marks the writer as closed so the bus stops delivering events.
func (hw *HistoryWriter) Close() {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.closed = true
}

// StartRetentionCleanup starts an hourly goroutine that purges old history.
func StartRetentionCleanup(store *HistoryStore, retention time.Duration) {
	if store == nil || retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			purged, err := store.Purge(retention)
			if err != nil {
				log.Printf("history cleanup error: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("history: purged %d old entries", purged)
			}
		}
	}()
}
