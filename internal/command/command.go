// Package command implements the trait-based command table and dispatch framework:
// arity validation, a name→Cmd registry, and the command implementations themselves.
package command

import (
	"strings"

	"nimbis/internal/config"
	"nimbis/internal/nimbiserr"
	"nimbis/internal/resp"
	"nimbis/internal/storage"
)

// Context is everything a command needs to execute against one shard.
type Context struct {
	Storage *storage.Engine
	Config  *config.Config
}

// Meta carries a command's dispatch-time metadata.
type Meta struct {
	Name  string
	Arity int // >0: exact token count; <0: at least -Arity tokens
}

// Cmd is the capability every registered command implements.
type Cmd interface {
	Meta() Meta
	Execute(ctx *Context, args [][]byte) resp.Value
}

// ValidateArity checks totalTokens (including the command name) against meta.Arity.
func ValidateArity(meta Meta, totalTokens int) bool {
	if meta.Arity > 0 {
		return totalTokens == meta.Arity
	}
	return totalTokens >= -meta.Arity
}

// Table is a case-insensitive name→Cmd registry built once at startup.
type Table struct {
	cmds map[string]Cmd
}

// NewTable builds the registry with every command described in the dispatch framework.
func NewTable() *Table {
	t := &Table{cmds: make(map[string]Cmd)}
	for _, c := range allCommands() {
		t.cmds[c.Meta().Name] = c
	}
	return t
}

// Lookup finds a command by name, case-insensitively.
func (t *Table) Lookup(name string) (Cmd, bool) {
	c, ok := t.cmds[strings.ToUpper(name)]
	return c, ok
}

// Register adds or replaces a command in the table, keyed by its own Meta().Name.
func (t *Table) Register(c Cmd) {
	t.cmds[strings.ToUpper(c.Meta().Name)] = c
}

// Dispatch validates arity and executes the command, or returns an error reply for an
// unknown command / arity mismatch. args[0] is the command name.
func (t *Table) Dispatch(ctx *Context, args [][]byte) resp.Value {
	if len(args) == 0 {
		return errorValue(nimbiserr.Protocol("empty command"))
	}
	name := strings.ToUpper(string(args[0]))
	c, ok := t.cmds[name]
	if !ok {
		return errorValue(nimbiserr.UnknownCommand(name))
	}
	if !ValidateArity(c.Meta(), len(args)) {
		return errorValue(nimbiserr.Arity(name))
	}
	return c.Execute(ctx, args)
}

// errorValue renders a nimbiserr.Error as the RESP error wire value, picking the -WRONGTYPE
// prefix for KindWrongType and -ERR for everything else. A KindStorage error marks its
// reply Fatal so the connection handler closes the connection once it's written.
func errorValue(err error) resp.Value {
	nerr, ok := err.(*nimbiserr.Error)
	if !ok {
		return resp.ErrorValue("ERR " + err.Error())
	}
	prefix := "ERR "
	if nerr.Kind == nimbiserr.KindWrongType {
		prefix = "WRONGTYPE "
	}
	if nerr.Kind == nimbiserr.KindStorage {
		return resp.FatalErrorValue(prefix + nerr.WireMessage())
	}
	return resp.ErrorValue(prefix + nerr.WireMessage())
}
