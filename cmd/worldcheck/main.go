// worldcheck validates a world directory without starting a server. It loads
// the YAML tables, runs the consistency checks, and parses every script,
// reporting problems a live boot would only hit later.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/textspot/textspot/pkg/script"
	"github.com/textspot/textspot/pkg/worldfile"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: worldcheck <world-dir>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	dir := flag.Arg(0)

	w, scripts, err := worldfile.Load(dir)
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}

	problems := 0
	if err := w.Validate(); err != nil {
		log.Printf("Validation: %v", err)
		problems++
	}
	if err := w.CheckOwnership(); err != nil {
		log.Printf("Ownership: %v", err)
		problems++
	}

	botIDs := make(map[string]bool)
	for _, id := range w.BotIDs() {
		botIDs[id] = true
	}
	for _, def := range scripts {
		if def.Bot != "" && !botIDs[def.Bot] {
			log.Printf("Script %q references unknown bot %q", def.Name, def.Bot)
			problems++
		}
		stmts := script.Parse(def.Script)
		if len(stmts) == 0 && def.Script != "" {
			log.Printf("Script %q parses to no statements", def.Name)
			problems++
		}
	}

	rooms, items, bots := w.Dump()
	fmt.Printf("%s: %d rooms, %d items, %d bots, %d scripts\n",
		dir, len(rooms), len(items), len(bots), len(scripts))
	if problems > 0 {
		fmt.Printf("%d problem(s) found\n", problems)
		os.Exit(1)
	}
	fmt.Println("OK")
}
