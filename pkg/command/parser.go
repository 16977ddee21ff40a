// Package command extracts add-event commands from assistant replies.
//
// The grammar, with a fixed field order:
//
//	command     ::= "[ADD_EVENT:" fields "]"
//	fields      ::= field ("," field)* | ""
//	field       ::= title | date | time | duration | location | description
//	title       ::= `title="` text `"`
//	date        ::= `date="` text `"`
//	time        ::= `time="` text `"`
//	duration    ::= "duration=" number
//	location    ::= `location="` text `"`
//	description ::= `description="` text `"`
//
// Every field is lexically optional, but fields must appear in the order
// listed; a command with fields out of order is not recognized and its text
// is left in place. Field-order rigidity is documented behavior, carried
// over from the grammar the assistant is prompted with.
package command

import (
	"strconv"
	"strings"
)

const marker = "[ADD_EVENT:"

// Command is one parsed add-event command. Duration is in hours, 0 when
// the field was absent. A command is actionable only when Complete.
type Command struct {
	Title       string
	Date        string
	Time        string
	Duration    float64
	Location    string
	Description string
}

// Complete reports whether the command carries both required fields.
func (c Command) Complete() bool {
	return c.Title != "" && c.Date != ""
}

const (
	fieldTitle = iota
	fieldDate
	fieldTime
	fieldDuration
	fieldLocation
	fieldDescription
)

var fieldNames = []string{"title", "date", "time", "duration", "location", "description"}

// Parse scans text for all non-overlapping commands. Recognized command
// spans are removed from the returned text — including incomplete ones,
// which are stripped but not actionable — and the result is trimmed.
// Commands come back in encounter order.
func Parse(text string) (string, []Command) {
	var out strings.Builder
	var cmds []Command

	i := 0
	for {
		rel := strings.Index(text[i:], marker)
		if rel < 0 {
			out.WriteString(text[i:])
			break
		}
		j := i + rel
		cmd, length, ok := parseCommand(text[j:])
		if !ok {
			// Not a recognized command: keep the text and resume
			// scanning past the marker.
			out.WriteString(text[i : j+len(marker)])
			i = j + len(marker)
			continue
		}
		out.WriteString(text[i:j])
		cmds = append(cmds, cmd)
		i = j + length
	}
	return strings.TrimSpace(out.String()), cmds
}

// parseCommand parses one command at the start of s (which begins with the
// marker) and returns its total length in bytes.
func parseCommand(s string) (Command, int, bool) {
	p := &scanner{src: s, pos: len(marker)}
	var cmd Command

	next := 0 // earliest field-order index still allowed
	first := true
	for {
		p.skipSpace()
		if p.consume(']') {
			return cmd, p.pos, true
		}
		if !first && !p.consume(',') {
			return Command{}, 0, false
		}
		p.skipSpace()

		name, ok := p.ident()
		if !ok {
			return Command{}, 0, false
		}
		idx := fieldIndex(name)
		if idx < 0 || idx < next {
			// Unknown field, duplicate, or out of order.
			return Command{}, 0, false
		}
		if !p.consume('=') {
			return Command{}, 0, false
		}

		var value string
		if idx == fieldDuration {
			value, ok = p.number()
		} else {
			value, ok = p.quoted()
		}
		if !ok {
			return Command{}, 0, false
		}
		if !setField(&cmd, idx, value) {
			return Command{}, 0, false
		}
		next = idx + 1
		first = false
	}
}

func fieldIndex(name string) int {
	for i, n := range fieldNames {
		if n == name {
			return i
		}
	}
	return -1
}

func setField(cmd *Command, idx int, value string) bool {
	switch idx {
	case fieldTitle:
		cmd.Title = value
	case fieldDate:
		cmd.Date = value
	case fieldTime:
		cmd.Time = value
	case fieldDuration:
		d, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		cmd.Duration = d
	case fieldLocation:
		cmd.Location = value
	case fieldDescription:
		cmd.Description = value
	}
	return true
}

type scanner struct {
	src string
	pos int
}

func (p *scanner) eof() bool {
	return p.pos >= len(p.src)
}

func (p *scanner) consume(ch byte) bool {
	if !p.eof() && p.src[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *scanner) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *scanner) ident() (string, bool) {
	start := p.pos
	for !p.eof() && p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z' {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return p.src[start:p.pos], true
}

func (p *scanner) quoted() (string, bool) {
	if !p.consume('"') {
		return "", false
	}
	start := p.pos
	for !p.eof() && p.src[p.pos] != '"' {
		p.pos++
	}
	if p.eof() {
		return "", false
	}
	value := p.src[start:p.pos]
	p.pos++
	return value, true
}

func (p *scanner) number() (string, bool) {
	start := p.pos
	for !p.eof() && (p.src[p.pos] == '.' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return p.src[start:p.pos], true
}
