package script

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ActorKind distinguishes bot-attached from item-attached scripts.
type ActorKind int

const (
	ActorBot ActorKind = iota
	ActorItem
)

// Actor is the identity a script runs as. Variables and subroutines are
// scoped to the ID, so different actors never share state.
type Actor struct {
	ID   string
	Kind ActorKind
	Name string
}

// Invocation carries the context a script was invoked with: who triggered it
// and in which room. Item-attached say delivers to Room instead of searching
// for a holder.
type Invocation struct {
	Invoker string
	Room    string
}

// Host is the world-side collaborator the interpreter acts through.
type Host interface {
	// SayToRoom delivers pre-formatted text to every occupant of a room.
	SayToRoom(roomID, text string)
	// Broadcast delivers text to every connected session.
	Broadcast(text string)
	// ActorRoom returns a bot actor's current room. Item actors have none.
	ActorRoom(a Actor) (string, bool)
	// MoveActor relocates a bot actor and announces the move. It fails if
	// the destination room does not exist.
	MoveActor(a Actor, roomID string) error
	// GiveItem moves a named item from the actor's inventory to a user's;
	// TakeItem moves it back. Both return the item's display name.
	GiveItem(a Actor, itemName, userName string) (string, error)
	TakeItem(a Actor, itemName, userName string) (string, error)
}

// FaultError reports a failed script invocation. A fault aborts only the
// invocation it occurred in, never the actor's future invocations.
type FaultError struct {
	Actor  string
	Reason string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("script fault in %s: %s", e.Actor, e.Reason)
}

var (
	ifRe     = regexp.MustCompile(`^(\w+) equals (\w+) then (.+)$`)
	repeatRe = regexp.MustCompile(`^(\d+)\s*\{(.+)\}$`)
	funcRe   = regexp.MustCompile(`^(\w+)\s*\{(.+)\}$`)
)

// Pending is a parked script continuation produced by wait. The scheduler
// holds it until ResumeAt and hands it back to Resume.
type Pending struct {
	Actor    Actor
	Inv      Invocation
	Rest     []Statement
	ResumeAt time.Time

	steps int // statements consumed before parking
}

type actorState struct {
	vars  map[string]string
	funcs map[string][]Statement
}

// Interp executes scripts. One Interp is shared by all actors; per-actor
// state lives in a nested map keyed by actor ID, never by concatenated
// strings.
type Interp struct {
	mu     sync.Mutex
	host   Host
	states map[string]*actorState
	rng    *rand.Rand

	// StepLimit bounds the statements one invocation may execute, counting
	// expanded repeat bodies and subroutine calls, so a runaway script
	// cannot starve other actors.
	StepLimit int
}

// DefaultStepLimit bounds a single script invocation.
const DefaultStepLimit = 10000

// New creates an interpreter bound to a host.
func New(host Host) *Interp {
	return &Interp{
		host:      host,
		states:    make(map[string]*actorState),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		StepLimit: DefaultStepLimit,
	}
}

// SetRand replaces the random source. Tests use this for determinism.
func (in *Interp) SetRand(r *rand.Rand) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.rng = r
}

func (in *Interp) state(actorID string) *actorState {
	st, ok := in.states[actorID]
	if !ok {
		st = &actorState{
			vars:  make(map[string]string),
			funcs: make(map[string][]Statement),
		}
		in.states[actorID] = st
	}
	return st
}

// GetVar reads a per-actor variable; unset reads return "".
func (in *Interp) GetVar(actorID, name string) string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state(actorID).vars[name]
}

// SetVar writes a per-actor variable.
func (in *Interp) SetVar(actorID, name, value string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.state(actorID).vars[name] = value
}

// Run executes a statement list for an actor. It returns a non-nil Pending
// if the script parked on a wait, in which case the caller hands it to the
// scheduler. A FaultError aborts the invocation; per-actor state already
// written is kept.
func (in *Interp) Run(a Actor, inv Invocation, stmts []Statement) (*Pending, error) {
	return in.execRecover(a, inv, stmts, 0)
}

// Resume continues a parked invocation. The step budget carries over, so a
// script cannot reset it by waiting.
func (in *Interp) Resume(p *Pending) (*Pending, error) {
	return in.execRecover(p.Actor, p.Inv, p.Rest, p.steps)
}

// execRecover converts panics out of exec into FaultErrors so a bad
// statement aborts only its own invocation, whether it runs before or
// after a wait.
func (in *Interp) execRecover(a Actor, inv Invocation, work []Statement, steps int) (p *Pending, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = &FaultError{Actor: a.ID, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return in.exec(a, inv, work, steps)
}

func (in *Interp) exec(a Actor, inv Invocation, work []Statement, steps int) (*Pending, error) {
	for len(work) > 0 {
		steps++
		if steps > in.StepLimit {
			return nil, &FaultError{Actor: a.ID, Reason: "step limit exceeded"}
		}
		st := work[0]
		work = work[1:]

		switch st.Verb {
		case "say":
			in.say(a, inv, st.Arg)

		case "move":
			if a.Kind != ActorBot {
				continue
			}
			// A missing destination room is a quiet no-op.
			_ = in.host.MoveActor(a, strings.TrimSpace(st.Arg))

		case "wait":
			secs, err := strconv.ParseFloat(strings.TrimSpace(st.Arg), 64)
			if err != nil || secs <= 0 {
				continue
			}
			return &Pending{
				Actor:    a,
				Inv:      inv,
				Rest:     work,
				ResumeAt: time.Now().Add(time.Duration(secs * float64(time.Second))),
				steps:    steps,
			}, nil

		case "set":
			name, value := splitFirst(st.Arg)
			if name == "" {
				continue
			}
			in.SetVar(a.ID, name, value)

		case "get":
			// Reads are only meaningful inside if; a bare get is a no-op.

		case "if":
			m := ifRe.FindStringSubmatch(st.Arg)
			if m == nil {
				continue
			}
			if in.GetVar(a.ID, m[1]) != m[2] {
				continue
			}
			if nested, ok := parseLine(m[3]); ok {
				work = append([]Statement{nested}, work...)
			}

		case "broadcast":
			in.host.Broadcast(fmt.Sprintf("[%s] %s", a.Name, st.Arg))

		case "random_say":
			alts := strings.Split(st.Arg, "|")
			choice := strings.TrimSpace(alts[in.intn(len(alts))])
			in.say(a, inv, choice)

		case "repeat":
			m := repeatRe.FindStringSubmatch(st.Arg)
			if m == nil {
				continue
			}
			n, _ := strconv.Atoi(m[1])
			body := parseBlock(m[2])
			if n <= 0 || len(body) == 0 {
				continue
			}
			if n*len(body) > in.StepLimit {
				return nil, &FaultError{Actor: a.ID, Reason: "repeat exceeds step limit"}
			}
			expanded := make([]Statement, 0, n*len(body)+len(work))
			for i := 0; i < n; i++ {
				expanded = append(expanded, body...)
			}
			work = append(expanded, work...)

		case "function":
			m := funcRe.FindStringSubmatch(st.Arg)
			if m == nil {
				continue
			}
			body := parseBlock(m[2])
			in.mu.Lock()
			in.state(a.ID).funcs[m[1]] = body
			in.mu.Unlock()

		case "call":
			name := strings.TrimSpace(st.Arg)
			in.mu.Lock()
			body := in.state(a.ID).funcs[name]
			in.mu.Unlock()
			if len(body) == 0 {
				continue
			}
			work = append(append([]Statement(nil), body...), work...)

		case "give":
			item, user := splitLast(st.Arg)
			if item == "" || user == "" {
				continue
			}
			if name, err := in.host.GiveItem(a, item, user); err == nil {
				in.say(a, inv, fmt.Sprintf("*gives %s to %s*", name, user))
			}

		case "take":
			item, user := splitLast(st.Arg)
			if item == "" || user == "" {
				continue
			}
			if name, err := in.host.TakeItem(a, item, user); err == nil {
				in.say(a, inv, fmt.Sprintf("*takes %s from %s*", name, user))
			}

		default:
			// Unknown verbs in authored world data are skipped rather than
			// faulting the whole invocation.
		}
	}
	return nil, nil
}

// say delivers to the actor's room. Bot actors speak in their current room
// with a says: prefix; item actors deliver raw text to the invoking room.
func (in *Interp) say(a Actor, inv Invocation, text string) {
	room := inv.Room
	if a.Kind == ActorBot {
		if r, ok := in.host.ActorRoom(a); ok {
			room = r
		}
		text = fmt.Sprintf("%s says: %s", a.Name, text)
	}
	if room == "" {
		return
	}
	in.host.SayToRoom(room, text)
}

func (in *Interp) intn(n int) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	if n <= 1 {
		return 0
	}
	return in.rng.Intn(n)
}

// splitFirst splits "name rest of value" into name and value.
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// splitLast splits "multi word item user" on the final space, so item names
// with spaces survive.
func splitLast(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		return strings.TrimSpace(s[:i]), s[i+1:]
	}
	return "", s
}
