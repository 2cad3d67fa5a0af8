// Package worldfile loads the human-authored world definition tables
// (rooms.yaml, items.yaml, bots.yaml, scripts.yaml) into the in-memory
// world. The loader validates id uniqueness and item placement; dangling
// exits are tolerated and checked at move time.
package worldfile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/textspot/textspot/pkg/world"
)

// RoomDef is one entry in rooms.yaml.
type RoomDef struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Exits       map[string]string `yaml:"exits"`
	Items       []string          `yaml:"items"`
}

// ItemDef is one entry in items.yaml.
type ItemDef struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Container   bool     `yaml:"container"`
	Open        bool     `yaml:"open"`
	Contents    []string `yaml:"contents"`
	Script      string   `yaml:"script"`
}

// ResponseDef is one keyword-response entry on a bot.
type ResponseDef struct {
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

// BotDef is one entry in bots.yaml.
type BotDef struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Room        string        `yaml:"room"`
	Description string        `yaml:"description"`
	Visible     *bool         `yaml:"visible"` // nil = visible
	Inventory   []string      `yaml:"inventory"`
	Responses   []ResponseDef `yaml:"responses"`
}

// TriggerDef declares the event binding of a script in scripts.yaml.
type TriggerDef struct {
	Event string `yaml:"event"` // "enter-room" or "leave-room"
	Room  string `yaml:"room"`  // optional filter
}

// ScriptDef is one entry in scripts.yaml: a named script run by a bot,
// optionally bound to a movement event.
type ScriptDef struct {
	Name    string      `yaml:"name"`
	Bot     string      `yaml:"bot"` // bot id
	Trigger *TriggerDef `yaml:"trigger"`
	Script  string      `yaml:"script"`
}

type roomsFile struct {
	Rooms []RoomDef `yaml:"rooms"`
}

type itemsFile struct {
	Items []ItemDef `yaml:"items"`
}

type botsFile struct {
	Bots []BotDef `yaml:"bots"`
}

type scriptsFile struct {
	Scripts []ScriptDef `yaml:"scripts"`
}

// StartRoomKey, when present as a room id, becomes the start room; otherwise
// the first room listed is the start room.
const StartRoomKey = "start"

// Load reads the world tables from a directory and builds the world.
// rooms.yaml is required; the other files are optional.
func Load(dir string) (*world.World, []ScriptDef, error) {
	w := world.New()

	var rf roomsFile
	if err := readYAML(filepath.Join(dir, "rooms.yaml"), &rf); err != nil {
		return nil, nil, err
	}
	if len(rf.Rooms) == 0 {
		return nil, nil, fmt.Errorf("worldfile: %s defines no rooms", filepath.Join(dir, "rooms.yaml"))
	}

	var itf itemsFile
	if err := readYAMLOptional(filepath.Join(dir, "items.yaml"), &itf); err != nil {
		return nil, nil, err
	}
	var bf botsFile
	if err := readYAMLOptional(filepath.Join(dir, "bots.yaml"), &bf); err != nil {
		return nil, nil, err
	}
	scripts, err := LoadScripts(dir)
	if err != nil {
		return nil, nil, err
	}

	seenRooms := make(map[string]bool)
	for _, rd := range rf.Rooms {
		if rd.ID == "" {
			return nil, nil, fmt.Errorf("worldfile: room with empty id")
		}
		if seenRooms[rd.ID] {
			return nil, nil, fmt.Errorf("worldfile: duplicate room id %q", rd.ID)
		}
		seenRooms[rd.ID] = true
		w.AddRoom(&world.Room{
			ID:          rd.ID,
			Name:        rd.Name,
			Description: rd.Description,
			Exits:       rd.Exits,
			Items:       rd.Items,
		})
	}
	if seenRooms[StartRoomKey] {
		w.StartRoom = StartRoomKey
	}

	seenItems := make(map[string]bool)
	for _, id := range itf.Items {
		if id.ID == "" {
			return nil, nil, fmt.Errorf("worldfile: item with empty id")
		}
		if seenItems[id.ID] {
			return nil, nil, fmt.Errorf("worldfile: duplicate item id %q", id.ID)
		}
		seenItems[id.ID] = true
		w.AddItem(&world.Item{
			ID:          id.ID,
			Name:        id.Name,
			Description: id.Description,
			Tags:        id.Tags,
			IsContainer: id.Container,
			Open:        id.Open,
			Contents:    id.Contents,
			Script:      id.Script,
		})
	}

	seenBots := make(map[string]bool)
	for _, bd := range bf.Bots {
		if bd.ID == "" {
			return nil, nil, fmt.Errorf("worldfile: bot with empty id")
		}
		if seenBots[bd.ID] {
			return nil, nil, fmt.Errorf("worldfile: duplicate bot id %q", bd.ID)
		}
		seenBots[bd.ID] = true
		if !seenRooms[bd.Room] {
			return nil, nil, fmt.Errorf("worldfile: bot %q placed in unknown room %q", bd.ID, bd.Room)
		}
		visible := bd.Visible == nil || *bd.Visible
		var responses []world.Response
		for _, rd := range bd.Responses {
			responses = append(responses, world.Response{Keywords: rd.Keywords, Reply: rd.Reply})
		}
		w.AddBot(&world.Bot{
			ID:          bd.ID,
			Name:        bd.Name,
			Room:        bd.Room,
			Description: bd.Description,
			Visible:     visible,
			Inventory:   bd.Inventory,
			Responses:   responses,
		})
	}

	for _, sd := range scripts {
		if sd.Bot != "" && !seenBots[sd.Bot] {
			return nil, nil, fmt.Errorf("worldfile: script %q references unknown bot %q", sd.Name, sd.Bot)
		}
	}

	if err := w.Validate(); err != nil {
		return nil, nil, fmt.Errorf("worldfile: %w", err)
	}
	return w, scripts, nil
}

// LoadScripts reads just scripts.yaml. The server calls this again on hot
// reload.
func LoadScripts(dir string) ([]ScriptDef, error) {
	var sf scriptsFile
	if err := readYAMLOptional(filepath.Join(dir, "scripts.yaml"), &sf); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, sd := range sf.Scripts {
		if sd.Name == "" {
			return nil, fmt.Errorf("worldfile: script with empty name")
		}
		if seen[sd.Name] {
			return nil, fmt.Errorf("worldfile: duplicate script name %q", sd.Name)
		}
		seen[sd.Name] = true
	}
	return sf.Scripts, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("worldfile: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("worldfile: parsing %s: %w", path, err)
	}
	return nil
}

func readYAMLOptional(path string, out any) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return readYAML(path, out)
}
