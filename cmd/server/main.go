package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/textspot/textspot/pkg/boltstore"
	"github.com/textspot/textspot/pkg/events"
	"github.com/textspot/textspot/pkg/server"
	"github.com/textspot/textspot/pkg/world"
	"github.com/textspot/textspot/pkg/worldfile"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("TEXTSPOT_CONF", ""), "Path to game config file (env: TEXTSPOT_CONF)")
	worldDir := flag.String("world", envDefault("TEXTSPOT_WORLD", ""), "Path to world directory with rooms.yaml etc., overrides config (env: TEXTSPOT_WORLD)")
	boltPath := flag.String("bolt", envDefault("TEXTSPOT_BOLT", ""), "Path to bbolt persistent database, overrides config (env: TEXTSPOT_BOLT)")
	historyPath := flag.String("history", envDefault("TEXTSPOT_HISTORY", ""), "Path to SQLite chat history database, overrides config (env: TEXTSPOT_HISTORY)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config (env: TEXTSPOT_PORT)")
	fresh := flag.Bool("fresh", os.Getenv("TEXTSPOT_FRESH") == "true", "Delete bolt DB on startup for a clean world reload every restart (env: TEXTSPOT_FRESH)")
	debug := flag.Bool("debug", os.Getenv("TEXTSPOT_DEBUG") == "true", "Enable debug logging (env: TEXTSPOT_DEBUG)")
	hashPass := flag.String("hashpass", "", "Print a bcrypt hash for admin_password_hash and exit")
	flag.Parse()

	if *hashPass != "" {
		hash, err := server.HashAdminPassword(*hashPass)
		if err != nil {
			log.Fatalf("FATAL: hashing password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	server.SetDebug(*debug)
	log.Printf("Welcome to %s", server.VersionString())

	// Handle TEXTSPOT_PORT env if -port flag not set
	if *port == 0 {
		if envPort := os.Getenv("TEXTSPOT_PORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				*port = p
			}
		}
	}

	// Load game config if specified, otherwise use defaults
	var gc *server.GameConf
	if *confFile != "" {
		var err error
		gc, err = server.LoadGameConf(*confFile)
		if err != nil {
			log.Fatalf("Error loading game config: %v", err)
		}
		log.Printf("Loaded game config from %s", *confFile)
	} else {
		gc = server.DefaultGameConf()
	}

	// Command-line flags override config file values
	if *port != 0 {
		gc.Port = *port
	}
	if *worldDir != "" {
		gc.WorldDir = *worldDir
	}
	if *boltPath != "" {
		gc.BoltPath = *boltPath
	}
	if *historyPath != "" {
		gc.HistoryPath = *historyPath
	}

	var store *boltstore.Store
	if gc.BoltPath != "" {
		if *fresh {
			if err := os.Remove(gc.BoltPath); err != nil && !os.IsNotExist(err) {
				log.Fatalf("Error removing bolt database for fresh start: %v", err)
			}
			log.Printf("Fresh mode: removed %s for clean reload", gc.BoltPath)
		}
		var err error
		store, err = boltstore.Open(gc.BoltPath)
		if err != nil {
			log.Fatalf("Error opening bolt database: %v", err)
		}
		defer store.Close()
	}

	w, scripts, err := loadWorld(gc, store)
	if err != nil {
		log.Fatalf("Error loading world: %v", err)
	}

	game := server.NewGame(w, gc)
	game.Store = store
	game.ConfPath = *confFile
	applyScripts(game, scripts)

	if gc.HistoryPath != "" {
		hs, err := server.OpenHistoryStore(gc.HistoryPath)
		if err != nil {
			log.Printf("WARNING: chat history disabled: %v", err)
		} else {
			game.History = hs
			defer hs.Close()
			log.Printf("Chat history enabled, database: %s", gc.HistoryPath)
		}
	}

	// Hot-reload scripts.yaml on change
	if gc.WatchWorld && gc.WorldDir != "" {
		stop, err := worldfile.WatchScripts(gc.WorldDir, func(defs []worldfile.ScriptDef) {
			applyScripts(game, defs)
			log.Printf("Reloaded %d scripts from %s", len(defs), gc.WorldDir)
		})
		if err != nil {
			log.Printf("WARNING: script watcher disabled: %v", err)
		} else {
			defer stop()
		}
	}

	cfg := server.Config{
		Port:        gc.Port,
		IdleTimeout: server.DefaultConfig().IdleTimeout,
		WelcomeText: server.DefaultConfig().WelcomeText,
	}
	srv := server.NewServer(game, cfg)

	// Save the world and shut down cleanly on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down", sig)
		if store != nil {
			if err := store.SaveWorld(game.World); err != nil {
				log.Printf("Final world save failed: %v", err)
			}
		}
		srv.Stop()
	}()

	log.Printf("Starting %s on port %d...", gc.Name, gc.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// loadWorld builds the world from the bolt snapshot when one exists for the
// configured world directory, otherwise from the YAML files. The YAML path is
// also taken when -fresh wiped the snapshot or no world was ever saved.
func loadWorld(gc *server.GameConf, store *boltstore.Store) (*world.World, []worldfile.ScriptDef, error) {
	// Scripts always come from YAML; the snapshot only covers world state.
	var scripts []worldfile.ScriptDef
	if gc.WorldDir != "" {
		var err error
		scripts, err = worldfile.LoadScripts(gc.WorldDir)
		if err != nil {
			return nil, nil, err
		}
	}

	if store != nil && store.WorldDir() == gc.WorldDir {
		w, ok, err := store.LoadWorld()
		if err != nil {
			return nil, nil, err
		}
		if ok {
			if w.RoomExists(worldfile.StartRoomKey) {
				w.StartRoom = worldfile.StartRoomKey
			}
			log.Printf("World loaded from snapshot %s (saved %s)",
				store.Path(), store.SavedAt().Format(time.RFC3339))
			return w, scripts, nil
		}
	}

	if gc.WorldDir == "" {
		return nil, nil, fmt.Errorf("no world snapshot and no world_dir configured")
	}
	w, scripts, err := worldfile.Load(gc.WorldDir)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("World loaded from %s", gc.WorldDir)
	if store != nil {
		if err := store.SaveWorld(w); err != nil {
			return nil, nil, err
		}
		if err := store.SetWorldDir(gc.WorldDir); err != nil {
			return nil, nil, err
		}
	}
	return w, scripts, nil
}

// applyScripts converts script definitions into the game's script table and
// trigger index. Definitions with an unknown trigger event are kept as
// manually runnable scripts but get no trigger.
func applyScripts(game *server.Game, defs []worldfile.ScriptDef) {
	entries := make([]server.ScriptEntry, 0, len(defs))
	var triggers []events.Trigger
	for _, def := range defs {
		entries = append(entries, server.ScriptEntry{
			Name:   def.Name,
			BotID:  def.Bot,
			Script: def.Script,
		})
		if def.Trigger == nil {
			continue
		}
		var ev events.EventType
		switch def.Trigger.Event {
		case "enter-room":
			ev = events.EvEnter
		case "leave-room":
			ev = events.EvLeave
		default:
			log.Printf("WARNING: script %q has unknown trigger event %q", def.Name, def.Trigger.Event)
			continue
		}
		triggers = append(triggers, events.Trigger{
			Name:   def.Name,
			Event:  ev,
			Room:   def.Trigger.Room,
			BotID:  def.Bot,
			Script: def.Script,
		})
	}
	game.SetScripts(entries, triggers)
}
