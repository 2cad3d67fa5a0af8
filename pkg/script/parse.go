// Package script implements the embedded statement DSL that drives bot and
// item behavior: say/move/wait/set/get/if/broadcast/random_say/repeat/
// function/call/give/take. Execution is resumable; wait parks the remaining
// statements on a scheduler instead of blocking.
package script

import "strings"

// Statement is one parsed DSL statement: a verb and its raw argument text.
type Statement struct {
	Verb string
	Arg  string
}

// Parse splits newline-delimited source into statements. Blank lines and
// lines starting with '#' are skipped.
func Parse(src string) []Statement {
	var stmts []Statement
	for _, line := range strings.Split(src, "\n") {
		if s, ok := parseLine(line); ok {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func parseLine(line string) (Statement, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Statement{}, false
	}
	verb, arg := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		verb, arg = line[:i], strings.TrimSpace(line[i+1:])
	}
	return Statement{Verb: strings.ToLower(verb), Arg: arg}, true
}

// parseBlock splits a brace-body on ';' into statements. A literal ';'
// inside an argument breaks this split; that is a known limitation of the
// block grammar, kept as is.
func parseBlock(body string) []Statement {
	var stmts []Statement
	for _, part := range strings.Split(body, ";") {
		if s, ok := parseLine(part); ok {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
