package command

import (
	"strings"

	"nimbis/internal/nimbiserr"
	"nimbis/internal/resp"
)

// configCmd dispatches the grouped CONFIG GET/SET sub-commands. Arity is declared loose
// here (-3) and tightened per sub-command inside Execute, since GET and SET have
// different shapes (GET pattern vs SET key value).
type configCmd struct{}

func (configCmd) Meta() Meta { return Meta{Name: "CONFIG", Arity: -3} }

func (configCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	sub := strings.ToUpper(string(args[1]))
	switch sub {
	case "GET":
		if len(args) != 3 {
			return errorValue(nimbiserr.Arity("CONFIG"))
		}
		matches := ctx.Config.MatchFields(string(args[2]))
		var pairs []resp.Value
		for name, value := range matches {
			pairs = append(pairs, resp.BulkStringFromString(name), resp.BulkStringFromString(value))
		}
		return resp.Map(pairs...)
	case "SET":
		if len(args) != 4 {
			return errorValue(nimbiserr.Arity("CONFIG"))
		}
		if err := ctx.Config.SetField(string(args[2]), string(args[3])); err != nil {
			return errorValue(nimbiserr.Config(err.Error()))
		}
		return resp.SimpleString("OK")
	default:
		return errorValue(nimbiserr.Value("unknown CONFIG subcommand '" + sub + "'"))
	}
}
