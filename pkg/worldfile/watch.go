package worldfile

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchScripts starts an fsnotify watcher on the world directory and calls
// onChange with the freshly parsed script table whenever scripts.yaml is
// written. Parse errors keep the previous table in place. The returned stop
// function shuts the watcher down.
func WatchScripts(dir string, onChange func([]ScriptDef)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(event.Name) != "scripts.yaml" {
					continue
				}
				scripts, err := LoadScripts(dir)
				if err != nil {
					log.Printf("Script reload failed, keeping previous table: %v", err)
					continue
				}
				log.Printf("Reloaded %d scripts from %s", len(scripts), event.Name)
				onChange(scripts)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Script watcher error: %v", err)
			}
		}
	}()

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	log.Printf("Watching world directory for script changes: %s", dir)
	return func() { watcher.Close() }, nil
}
