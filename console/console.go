// Copyright © 2024 Galvanized Logic Inc.

// Package console implements the cvar/command registry and the text
// console (spec.md §6, "Console CLI" and "Cvars"). Grounded on the
// teacher's functional-options shape (config/config.go, adapted from
// the teacher's config.go) for a registry built up by small setter
// calls, and on gopkg.in/yaml.v3 (a teacher dependency otherwise
// unused load-bearing in this port) for the YAML-flavored `exec`
// script form spec.md's distillation adds alongside the plain-text
// grammar (original_source/src/console.rs only reads line commands).
package console

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flag marks cvar behavior (spec.md §6, "Cvars").
type Flag int

const (
	// Archive marks cvars for saving to a config file; this package
	// writes no config files, so the flag is only recorded.
	Archive Flag = 1 << iota
	// UserInfo cvars trigger OnUserInfoChange whenever they change
	// while Connected is true.
	UserInfo
)

// Cvar is one console variable: a string value plus its default and
// flags. Numeric reads are parsed on demand; spec.md §6 requires a
// failed parse to yield 0 rather than an error.
type Cvar struct {
	Name    string
	Value   string
	Default string
	Flags   Flag
}

// Float parses Value as a float64, returning 0 on failure.
func (c Cvar) Float() float64 {
	f, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return 0
	}
	return f
}

// Int parses Value as an int, returning 0 on failure.
func (c Cvar) Int() int {
	n, err := strconv.Atoi(c.Value)
	if err != nil {
		return 0
	}
	return n
}

// Bool treats a nonzero Int (or string "true") as true.
func (c Cvar) Bool() bool {
	if c.Value == "true" {
		return true
	}
	return c.Int() != 0
}

// CommandFunc implements one console command. args excludes the
// command name itself.
type CommandFunc func(args []string) error

// Console is the cvar/command registry and scrollback buffer (spec.md
// §4.5's client owns one; spec.md §6 describes the grammar it parses).
type Console struct {
	cvars    map[string]*Cvar
	commands map[string]CommandFunc
	buffer   []string

	// Connected is consulted when a UserInfo cvar changes; it stays
	// false unless the owner sets it.
	Connected bool

	// OnUserInfoChange, when set, is called after a UserInfo-flagged
	// cvar's value changes while Connected is true. This package has
	// no netchan/protocol dependency of its own. No package in this
	// module sets OnUserInfoChange or Connected, so no setinfo command
	// reaches the server when a UserInfo cvar changes.
	OnUserInfoChange func(name, value string)
}

// New returns an empty Console with the standard action-binding
// commands (+forward, -forward, ...) pre-registered as no-ops ready
// for the caller to override via RegisterCommand.
func New() *Console {
	c := &Console{
		cvars:    map[string]*Cvar{},
		commands: map[string]CommandFunc{},
	}
	for _, action := range []string{
		"forward", "back", "moveleft", "moveright", "moveup", "movedown",
		"left", "right", "lookup", "lookdown", "speed", "jump", "strafe",
		"attack", "use", "klook", "mlook", "showscores",
	} {
		c.commands["+"+action] = noop
		c.commands["-"+action] = noop
	}
	return c
}

func noop([]string) error { return nil }

// Log appends a line to the scrollback buffer, as both command output
// and incoming server Print/StuffText/CenterPrint messages do.
func (c *Console) Log(line string) { c.buffer = append(c.buffer, line) }

// Lines returns the full scrollback buffer.
func (c *Console) Lines() []string { return c.buffer }

// RegisterCvar adds a cvar at its default value. Re-registering an
// existing name resets it.
func (c *Console) RegisterCvar(name, value string, flags Flag) {
	c.cvars[name] = &Cvar{Name: name, Value: value, Default: value, Flags: flags}
}

// RegisterCommand installs a named console command.
func (c *Console) RegisterCommand(name string, fn CommandFunc) {
	c.commands[name] = fn
}

// Cvar looks up a registered cvar.
func (c *Console) Cvar(name string) (Cvar, bool) {
	v, ok := c.cvars[name]
	if !ok {
		return Cvar{}, false
	}
	return *v, true
}

// Set assigns a cvar's value, registering it first if unknown (spec.md
// §6's `set` command creates cvars that don't yet exist).
func (c *Console) Set(name, value string) {
	v, ok := c.cvars[name]
	if !ok {
		v = &Cvar{Name: name, Default: value}
		c.cvars[name] = v
	}
	v.Value = value
	if v.Flags&UserInfo != 0 && c.Connected && c.OnUserInfoChange != nil {
		c.OnUserInfoChange(name, value)
	}
}

// Execute parses and runs one or more command lines, split on '\n' and
// ';' (spec.md §6). Recognized built-ins (`set`, `bind`, `unbind`) are
// handled directly; anything else dispatches to a registered command.
func (c *Console) Execute(text string) error {
	for _, line := range splitStatements(text) {
		fields, err := tokenize(line)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			continue
		}
		if err := c.dispatch(fields[0], fields[1:]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) dispatch(name string, args []string) error {
	switch name {
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("console: set requires <cvar> <value>")
		}
		c.Set(args[0], strings.Join(args[1:], " "))
		return nil
	case "bind", "unbind":
		// Binding storage belongs to the input layer (not yet built);
		// the console's job is just to parse and route the line.
		fn, ok := c.commands[name]
		if !ok {
			return nil
		}
		return fn(args)
	default:
		fn, ok := c.commands[name]
		if !ok {
			return fmt.Errorf("console: unknown command %q", name)
		}
		return fn(args)
	}
}

// splitStatements breaks text on newlines and semicolons, the
// statement separators spec.md §6 specifies, ignoring semicolons
// inside a quoted string.
func splitStatements(text string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range text {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case (r == '\n' || r == ';') && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// tokenize splits a single statement into space-separated fields,
// honoring double-quoted strings as one field (spec.md §6).
func tokenize(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	started := false
	flush := func() {
		if started {
			fields = append(fields, cur.String())
			cur.Reset()
			started = false
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case r == ' ' || r == '\t':
			if inQuote {
				cur.WriteRune(r)
			} else {
				flush()
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("console: unterminated quoted string in %q", line)
	}
	flush()
	return fields, nil
}

// Exec runs a script file's contents, accepting either the classic
// line-command grammar or a YAML document of `cvar: value` pairs
// (SPEC_FULL.md's supplement to spec.md §6's `exec <path>`). A YAML
// mapping is tried first; anything that doesn't parse as one falls
// back to Execute.
func (c *Console) Exec(data []byte) error {
	var kv map[string]string
	if err := yaml.Unmarshal(data, &kv); err == nil && len(kv) > 0 {
		for name, value := range kv {
			c.Set(name, value)
		}
		return nil
	}
	return c.Execute(string(data))
}
