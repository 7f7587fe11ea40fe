// Package cmd provides a transport-agnostic command core: a command is something
// with a name, description, and Run(ctx, invocation). How it is dispatched
// (chat message, HTTP) is defined by adapters that wrap this.
package cmd

import (
	"context"
	"strings"
)

// Invocation carries the minimal input any command runner can pass: the
// arguments, the raw argument text and an opaque payload. Adapters set Data
// to their own context (e.g. the chat session and message).
type Invocation struct {
	Name string
	Args []string
	Raw  string
	Data any
}

// Command is the universal contract: identity plus execution. Permissions
// and transport-specific registration stay in adapters.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased is implemented by commands reachable under extra names.
type Aliased interface {
	Aliases() []string
}

// Parse splits a prefixed chat line like "!play never gonna" into an
// invocation. ok is false if the line does not start with prefix or names
// no command.
func Parse(prefix, line string) (inv *Invocation, ok bool) {
	line = strings.TrimSpace(line)
	if prefix == "" || !strings.HasPrefix(line, prefix) {
		return nil, false
	}
	rest := strings.TrimSpace(line[len(prefix):])
	if rest == "" {
		return nil, false
	}

	name, raw, _ := strings.Cut(rest, " ")
	raw = strings.TrimSpace(raw)
	return &Invocation{
		Name: strings.ToLower(name),
		Args: strings.Fields(raw),
		Raw:  raw,
	}, true
}
