package world

import "fmt"

// NotFoundError reports a missing entity of a given kind.
type NotFoundError struct {
	Kind string // "user", "room", "item", "bot", "container", "exit"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// InvalidStateError reports an operation refused by the current world state
// (closed container, immovable item, dangling exit).
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return e.Reason
}

// NameTakenError reports a display-name collision during session activation.
type NameTakenError struct {
	Name string
}

func (e *NameTakenError) Error() string {
	return fmt.Sprintf("name %q is already in use", e.Name)
}
