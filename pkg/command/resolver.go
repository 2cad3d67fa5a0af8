package command

import (
	"sort"
	"strings"
)

// letterAliases maps fixed single-character abbreviations to command names.
// A one-character input is checked here before any prefix logic, so "s"
// always means south even though "say" would also prefix-match.
var letterAliases = map[string]string{
	"n": "north",
	"s": "south",
	"e": "east",
	"w": "west",
	"l": "look",
	"g": "go",
	"i": "inventory",
	"h": "help",
	"v": "version",
}

// Resolve maps a raw input token to a canonical command name. The token is
// lowercased by the caller. Resolution order:
//
//  1. single-character alias table (length-1 tokens only)
//  2. alias table and exact name match against the actor-visible candidates
//  3. unique prefix match; multiple prefix hits return AmbiguousError
//
// A token matching nothing returns UnknownCommandError.
func (r *Registry) Resolve(token string, admin bool) (string, error) {
	if len(token) == 1 {
		if full, ok := letterAliases[token]; ok {
			return full, nil
		}
	}

	if canonical, ok := r.aliases[token]; ok {
		if c := r.commands[canonical]; c != nil && (!c.AdminOnly || admin) {
			return canonical, nil
		}
	}
	if c, ok := r.commands[token]; ok {
		if !c.AdminOnly || admin {
			return token, nil
		}
		// An admin-only name typed by a non-admin still resolves so the
		// dispatcher can answer with a permission error instead of "unknown".
		return token, nil
	}

	var matches []string
	for name, c := range r.commands {
		if c.AdminOnly && !admin {
			continue
		}
		if strings.HasPrefix(name, token) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", &UnknownCommandError{Input: token}
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", &AmbiguousError{Input: token, Candidates: matches}
	}
}

// MatchName resolves a partial string against a candidate list using the
// shared matching policy: exact match wins, else case-insensitive exact,
// else case-insensitive prefix. One prefix hit resolves; several return
// AmbiguousError with the hits sorted; none returns UnknownCommandError.
// It is used for exit names and argument completion as well as commands.
func MatchName(partial string, candidates []string) (string, error) {
	for _, c := range candidates {
		if c == partial {
			return c, nil
		}
	}
	for _, c := range candidates {
		if strings.EqualFold(c, partial) {
			return c, nil
		}
	}
	var matches []string
	lower := strings.ToLower(partial)
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lower) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return "", &UnknownCommandError{Input: partial}
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", &AmbiguousError{Input: partial, Candidates: matches}
	}
}
