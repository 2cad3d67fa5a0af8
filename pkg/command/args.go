package command

import "strings"

// ArgType is the semantic type of a command argument slot. The context
// provider enumerates the valid candidate strings for a type from the
// actor's current surroundings.
type ArgType int

const (
	ArgString ArgType = iota
	ArgUser
	ArgRoomItem
	ArgInventoryItem
	ArgExaminable
	ArgExit
	ArgRoom // admin only
	ArgContainer
	ArgGiveTarget // occupants and bots in the actor's room
	ArgMessage
)

// String returns a short name for the argument type.
func (t ArgType) String() string {
	switch t {
	case ArgString:
		return "string"
	case ArgUser:
		return "user"
	case ArgRoomItem:
		return "room_item"
	case ArgInventoryItem:
		return "inv_item"
	case ArgExaminable:
		return "examinable"
	case ArgExit:
		return "exit"
	case ArgRoom:
		return "room"
	case ArgContainer:
		return "container"
	case ArgGiveTarget:
		return "give_target"
	case ArgMessage:
		return "message"
	default:
		return "unknown"
	}
}

// ContextProvider enumerates the current candidate strings for a semantic
// type, as seen by a named actor. The world implements this; tests use a
// fixture.
type ContextProvider interface {
	Candidates(actor string, t ArgType) []string
}

// ResolveArg matches a raw argument against the candidates for its semantic
// type. ArgString and ArgMessage pass through untouched.
func ResolveArg(p ContextProvider, actor string, t ArgType, raw string) (string, error) {
	if t == ArgString || t == ArgMessage {
		return raw, nil
	}
	return MatchName(raw, p.Candidates(actor, t))
}

// Complete returns the candidates for a semantic type that extend the given
// partial string, for interactive completion. An empty partial returns all
// candidates.
func Complete(p ContextProvider, actor string, t ArgType, partial string) []string {
	var out []string
	lower := strings.ToLower(partial)
	for _, c := range p.Candidates(actor, t) {
		if strings.HasPrefix(strings.ToLower(c), lower) {
			out = append(out, c)
		}
	}
	return out
}

// TwoSlot is the result of a literal-separator scan over the argument text
// of the irregular two-slot grammars ("put X in Y", "give X to Y").
type TwoSlot struct {
	First  string
	Second string
	Found  bool // separator present
}

// SplitSeparator scans for the first occurrence of any separator word as a
// whole token. Everything before it is slot one (possibly multi-word),
// everything after is slot two. With no separator present, the whole text is
// slot one and Found is false.
func SplitSeparator(text string, separators ...string) TwoSlot {
	fields := strings.Fields(text)
	for i, f := range fields {
		for _, sep := range separators {
			if strings.EqualFold(f, sep) && i > 0 && i < len(fields)-1 {
				return TwoSlot{
					First:  strings.Join(fields[:i], " "),
					Second: strings.Join(fields[i+1:], " "),
					Found:  true,
				}
			}
		}
	}
	return TwoSlot{First: strings.TrimSpace(text)}
}

// SplitFirstWord splits argument text into its first word and the rest,
// for grammars like "whisper USER MESSAGE".
func SplitFirstWord(text string) (string, string) {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		return text[:i], strings.TrimSpace(text[i+1:])
	}
	return text, ""
}
