package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// RegisterRESTRoutes registers all REST API endpoints on the web server's
// mux. Called from WebServer.registerRoutes after the mux is created.
func (ws *WebServer) RegisterRESTRoutes() {
	// WHO list (optional auth)
	ws.mux.Handle("GET /api/v1/who",
		authMiddleware(ws.auth, false, http.HandlerFunc(ws.handleWho)))

	// Room list (required auth)
	ws.mux.Handle("GET /api/v1/rooms",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleRooms)))

	// Room chat history (required auth)
	ws.mux.Handle("GET /api/v1/history",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleHistory)))

	// One-shot command execution (required auth)
	ws.mux.Handle("POST /api/v1/command",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleCommand)))
}

// --- WHO ---

func (ws *WebServer) handleWho(w http.ResponseWriter, r *http.Request) {
	type whoEntry struct {
		Name  string `json:"name"`
		Room  string `json:"room,omitempty"`
		OnFor string `json:"on_for"`
		Idle  string `json:"idle"`
	}

	// Room ids are exposed only to authenticated admins.
	claims := ClaimsFromContext(r.Context())
	showRooms := claims != nil && claims.Admin

	now := time.Now()
	var entries []whoEntry
	for _, dd := range ws.game.Conns.AllDescriptors() {
		if dd.State != ConnConnected {
			continue
		}
		e := whoEntry{
			Name:  dd.Player,
			OnFor: FormatConnTime(now.Sub(dd.ConnTime)),
			Idle:  FormatIdleTime(now.Sub(dd.LastCmd)),
		}
		if showRooms {
			if roomID, ok := ws.game.World.UserRoom(dd.Player); ok {
				e.Room = roomID
			}
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"users": entries,
		"count": len(entries),
	})
}

// --- Rooms ---

func (ws *WebServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"rooms": ws.game.World.RoomIDs(),
	})
}

// --- History ---

func (ws *WebServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if ws.game.History == nil {
		http.Error(w, `{"error":"history not enabled"}`, http.StatusNotFound)
		return
	}
	claims := ClaimsFromContext(r.Context())

	room := r.URL.Query().Get("room")
	if room == "" {
		// Default to the caller's current room when they are online.
		if roomID, ok := ws.game.World.UserRoom(claims.Name); ok {
			room = roomID
		}
	}
	if room == "" {
		http.Error(w, `{"error":"room is required"}`, http.StatusBadRequest)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	lines, err := ws.game.History.Recent(room, limit)
	if err != nil {
		http.Error(w, `{"error":"history query failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"room":  room,
		"lines": lines,
		"count": len(lines),
	})
}

// --- Command Execution ---

// handleCommand runs one command for an authenticated but not-connected
// caller by dispatching through a capturing descriptor. The caller must be
// logged in over a live session; the capture descriptor borrows its name.
func (ws *WebServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if !ws.game.Conns.IsConnected(claims.Name) {
		http.Error(w, `{"error":"no active session"}`, http.StatusConflict)
		return
	}

	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		http.Error(w, `{"error":"command is required"}`, http.StatusBadRequest)
		return
	}

	// A capturing descriptor buffers output instead of writing to a socket.
	output := &captureBuffer{}
	d := &Descriptor{
		ID:        -1,
		Conn:      nullConn{},
		State:     ConnConnected,
		Player:    claims.Name,
		Addr:      r.RemoteAddr,
		ConnTime:  time.Now(),
		LastCmd:   time.Now(),
		Transport: TransportWebSocket,
	}
	d.SendFunc = func(msg string) {
		output.lines = append(output.lines, msg)
	}

	DispatchCommand(ws.game, d, req.Command)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"output": output.lines,
	})
}

type captureBuffer struct {
	lines []string
}
