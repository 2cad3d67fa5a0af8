// Package command implements the command catalog and the input resolution
// pipeline: alias expansion, exact and prefix matching with a deterministic
// ambiguity report, and semantic-type argument completion.
package command

import (
	"fmt"
	"sort"
	"strings"
)

// Command describes a registered command: its canonical name, access and
// argument requirements, and the ordered argument semantic types used for
// completion. Handlers are looked up by canonical name in the coordinator;
// the registry itself is pure metadata.
type Command struct {
	Name      string
	AdminOnly bool
	MinArgs   int
	Usage     string
	Aliases   []string
	Args      []ArgType
}

// Registry is the command catalog. Lookup checks canonical names first, then
// the alias table. Alias collisions silently overwrite; aliases are assumed
// unique by construction.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]string // alias -> canonical name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
}

// Register inserts a command by name and indexes all its aliases.
func (r *Registry) Register(c *Command) {
	name := strings.ToLower(c.Name)
	r.commands[name] = c
	for _, alias := range c.Aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
}

// Lookup finds a command by canonical name or alias.
func (r *Registry) Lookup(name string) (*Command, bool) {
	name = strings.ToLower(name)
	if c, ok := r.commands[name]; ok {
		return c, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// All returns the canonical command names visible to an actor, sorted. Admin
// commands are included only when admin is true.
func (r *Registry) All(admin bool) []string {
	names := make([]string, 0, len(r.commands))
	for name, c := range r.commands {
		if c.AdminOnly && !admin {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks a resolved command against the actor's privilege and the
// provided arguments. It returns a user-facing error from the resolution
// taxonomy, or nil.
func (r *Registry) Validate(c *Command, admin bool, argc int) error {
	if c.AdminOnly && !admin {
		return &PermissionDeniedError{}
	}
	if argc < c.MinArgs {
		return &UsageError{Usage: c.Usage}
	}
	return nil
}

// --- Resolution error taxonomy ---

// UnknownCommandError reports an input that matched nothing.
type UnknownCommandError struct {
	Input string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("Unknown command: %s. Type 'help' for available commands.", e.Input)
}

// AmbiguousError reports an input that prefix-matched more than one
// candidate. Candidates are sorted lexicographically so the report is
// deterministic regardless of registration order.
type AmbiguousError struct {
	Input      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("Ambiguous command. Did you mean: %s?", strings.Join(e.Candidates, ", "))
}

// PermissionDeniedError reports an admin-only command used without privilege.
type PermissionDeniedError struct{}

func (e *PermissionDeniedError) Error() string {
	return "Access denied. Admin privileges required."
}

// UsageError reports too few arguments for a command.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "Usage: " + e.Usage
}
