package command

import (
	"math"
	"strconv"
	"strings"

	"nimbis/internal/nimbiserr"
	"nimbis/internal/resp"
)

func allCommands() []Cmd {
	return []Cmd{
		pingCmd{}, delCmd{}, existsCmd{}, expireCmd{}, ttlCmd{}, flushdbCmd{},
		getCmd{}, setCmd{}, incrCmd{}, decrCmd{}, appendCmd{},
		hsetCmd{}, hdelCmd{}, hgetCmd{}, hlenCmd{}, hmgetCmd{}, hgetallCmd{},
		lpushCmd{}, rpushCmd{}, lpopCmd{}, rpopCmd{}, llenCmd{}, lrangeCmd{},
		saddCmd{}, sremCmd{}, smembersCmd{}, sismemberCmd{}, scardCmd{},
		zaddCmd{}, zrangeCmd{}, zscoreCmd{}, zremCmd{}, zcardCmd{},
		configCmd{},
	}
}

// ---- connection ----

type pingCmd struct{}

func (pingCmd) Meta() Meta { return Meta{Name: "PING", Arity: -1} }
func (pingCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	if len(args) >= 2 {
		return resp.BulkString(args[1])
	}
	return resp.SimpleString("PONG")
}

// ---- cross-cutting key commands ----

type delCmd struct{}

func (delCmd) Meta() Meta { return Meta{Name: "DEL", Arity: -2} }
func (delCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	count := 0
	for _, k := range args[1:] {
		if ctx.Storage.Del(k) {
			count++
		}
	}
	return resp.Integer(int64(count))
}

type existsCmd struct{}

func (existsCmd) Meta() Meta { return Meta{Name: "EXISTS", Arity: -2} }
func (existsCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	count := 0
	for _, k := range args[1:] {
		if ctx.Storage.Exists(k) {
			count++
		}
	}
	return resp.Integer(int64(count))
}

type expireCmd struct{}

func (expireCmd) Meta() Meta { return Meta{Name: "EXPIRE", Arity: 3} }
func (expireCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	seconds, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return errorValue(nimbiserr.Value("value is not an integer or out of range"))
	}
	ok, err := ctx.Storage.Expire(args[1], seconds)
	if err != nil {
		return errorValue(err)
	}
	if ok {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

type ttlCmd struct{}

func (ttlCmd) Meta() Meta { return Meta{Name: "TTL", Arity: 2} }
func (ttlCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	ttl, err := ctx.Storage.TTL(args[1])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(ttl)
}

type flushdbCmd struct{}

func (flushdbCmd) Meta() Meta { return Meta{Name: "FLUSHDB", Arity: 1} }
func (flushdbCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	if err := ctx.Storage.Flush(); err != nil {
		return errorValue(err)
	}
	return resp.SimpleString("OK")
}

// ---- string ----

type getCmd struct{}

func (getCmd) Meta() Meta { return Meta{Name: "GET", Arity: 2} }
func (getCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	val, found, err := ctx.Storage.Get(args[1])
	if err != nil {
		return errorValue(err)
	}
	if !found {
		return resp.Null
	}
	return resp.BulkString(val)
}

type setCmd struct{}

func (setCmd) Meta() Meta { return Meta{Name: "SET", Arity: 3} }
func (setCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	if err := ctx.Storage.Set(args[1], args[2]); err != nil {
		return errorValue(err)
	}
	return resp.SimpleString("OK")
}

type incrCmd struct{}

func (incrCmd) Meta() Meta { return Meta{Name: "INCR", Arity: 2} }
func (incrCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	next, err := ctx.Storage.Incr(args[1], 1)
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(next)
}

type decrCmd struct{}

func (decrCmd) Meta() Meta { return Meta{Name: "DECR", Arity: 2} }
func (decrCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	next, err := ctx.Storage.Incr(args[1], -1)
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(next)
}

type appendCmd struct{}

func (appendCmd) Meta() Meta { return Meta{Name: "APPEND", Arity: 3} }
func (appendCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.Append(args[1], args[2])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

// ---- hash ----

type hsetCmd struct{}

func (hsetCmd) Meta() Meta { return Meta{Name: "HSET", Arity: -4} }
func (hsetCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	rest := args[2:]
	if len(rest)%2 != 0 {
		return errorValue(nimbiserr.Value("wrong number of arguments for HSET"))
	}
	fields := make([][]byte, 0, len(rest)/2)
	values := make([][]byte, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		fields = append(fields, rest[i])
		values = append(values, rest[i+1])
	}
	created, err := ctx.Storage.HSet(args[1], fields, values)
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(created))
}

type hdelCmd struct{}

func (hdelCmd) Meta() Meta { return Meta{Name: "HDEL", Arity: -3} }
func (hdelCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	removed, err := ctx.Storage.HDel(args[1], args[2:])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(removed))
}

type hgetCmd struct{}

func (hgetCmd) Meta() Meta { return Meta{Name: "HGET", Arity: 3} }
func (hgetCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	val, found, err := ctx.Storage.HGet(args[1], args[2])
	if err != nil {
		return errorValue(err)
	}
	if !found {
		return resp.Null
	}
	return resp.BulkString(val)
}

type hlenCmd struct{}

func (hlenCmd) Meta() Meta { return Meta{Name: "HLEN", Arity: 2} }
func (hlenCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.HLen(args[1])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

type hmgetCmd struct{}

func (hmgetCmd) Meta() Meta { return Meta{Name: "HMGET", Arity: -3} }
func (hmgetCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	values, found, err := ctx.Storage.HMGet(args[1], args[2:])
	if err != nil {
		return errorValue(err)
	}
	elems := make([]resp.Value, len(values))
	for i := range values {
		if found[i] {
			elems[i] = resp.BulkString(values[i])
		} else {
			elems[i] = resp.Null
		}
	}
	return resp.Array(elems)
}

type hgetallCmd struct{}

func (hgetallCmd) Meta() Meta { return Meta{Name: "HGETALL", Arity: 2} }
func (hgetallCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	fields, values, err := ctx.Storage.HGetAll(args[1])
	if err != nil {
		return errorValue(err)
	}
	pairs := make([]resp.Value, 0, len(fields)*2)
	for i := range fields {
		pairs = append(pairs, resp.BulkString(fields[i]), resp.BulkString(values[i]))
	}
	return resp.Array(pairs)
}

// ---- list ----

type lpushCmd struct{}

func (lpushCmd) Meta() Meta { return Meta{Name: "LPUSH", Arity: -3} }
func (lpushCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.LPush(args[1], args[2:])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

type rpushCmd struct{}

func (rpushCmd) Meta() Meta { return Meta{Name: "RPUSH", Arity: -3} }
func (rpushCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.RPush(args[1], args[2:])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

func popCount(args [][]byte) (int, error) {
	if len(args) < 3 {
		return 1, nil
	}
	n, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return 0, err
	}
	return n, nil
}

type lpopCmd struct{}

func (lpopCmd) Meta() Meta { return Meta{Name: "LPOP", Arity: -2} }
func (lpopCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	count, err := popCount(args)
	if err != nil {
		return errorValue(nimbiserr.Value("value is not an integer or out of range"))
	}
	popped, err := ctx.Storage.LPop(args[1], count)
	if err != nil {
		return errorValue(err)
	}
	if popped == nil {
		if len(args) >= 3 {
			return resp.Array([]resp.Value{})
		}
		return resp.Null
	}
	if len(args) < 3 {
		return resp.BulkString(popped[0])
	}
	elems := make([]resp.Value, len(popped))
	for i, v := range popped {
		elems[i] = resp.BulkString(v)
	}
	return resp.Array(elems)
}

type rpopCmd struct{}

func (rpopCmd) Meta() Meta { return Meta{Name: "RPOP", Arity: -2} }
func (rpopCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	count, err := popCount(args)
	if err != nil {
		return errorValue(nimbiserr.Value("value is not an integer or out of range"))
	}
	popped, err := ctx.Storage.RPop(args[1], count)
	if err != nil {
		return errorValue(err)
	}
	if popped == nil {
		if len(args) >= 3 {
			return resp.Array([]resp.Value{})
		}
		return resp.Null
	}
	if len(args) < 3 {
		return resp.BulkString(popped[0])
	}
	elems := make([]resp.Value, len(popped))
	for i, v := range popped {
		elems[i] = resp.BulkString(v)
	}
	return resp.Array(elems)
}

type llenCmd struct{}

func (llenCmd) Meta() Meta { return Meta{Name: "LLEN", Arity: 2} }
func (llenCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.LLen(args[1])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

type lrangeCmd struct{}

func (lrangeCmd) Meta() Meta { return Meta{Name: "LRANGE", Arity: 4} }
func (lrangeCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	start, err1 := strconv.Atoi(string(args[2]))
	stop, err2 := strconv.Atoi(string(args[3]))
	if err1 != nil || err2 != nil {
		return errorValue(nimbiserr.Value("value is not an integer or out of range"))
	}
	elems, err := ctx.Storage.LRange(args[1], start, stop)
	if err != nil {
		return errorValue(err)
	}
	out := make([]resp.Value, len(elems))
	for i, v := range elems {
		out[i] = resp.BulkString(v)
	}
	return resp.Array(out)
}

// ---- set ----

type saddCmd struct{}

func (saddCmd) Meta() Meta { return Meta{Name: "SADD", Arity: -3} }
func (saddCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.SAdd(args[1], args[2:])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

type sremCmd struct{}

func (sremCmd) Meta() Meta { return Meta{Name: "SREM", Arity: -3} }
func (sremCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.SRem(args[1], args[2:])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

type smembersCmd struct{}

func (smembersCmd) Meta() Meta { return Meta{Name: "SMEMBERS", Arity: 2} }
func (smembersCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	members, err := ctx.Storage.SMembers(args[1])
	if err != nil {
		return errorValue(err)
	}
	out := make([]resp.Value, len(members))
	for i, m := range members {
		out[i] = resp.BulkString(m)
	}
	return resp.Array(out)
}

type sismemberCmd struct{}

func (sismemberCmd) Meta() Meta { return Meta{Name: "SISMEMBER", Arity: 3} }
func (sismemberCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	ok, err := ctx.Storage.SIsMember(args[1], args[2])
	if err != nil {
		return errorValue(err)
	}
	if ok {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

type scardCmd struct{}

func (scardCmd) Meta() Meta { return Meta{Name: "SCARD", Arity: 2} }
func (scardCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.SCard(args[1])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

// ---- zset ----

type zaddCmd struct{}

func (zaddCmd) Meta() Meta { return Meta{Name: "ZADD", Arity: -4} }
func (zaddCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	rest := args[2:]
	if len(rest)%2 != 0 {
		return errorValue(nimbiserr.Value("syntax error"))
	}
	scores := make([]float64, 0, len(rest)/2)
	members := make([][]byte, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		score, err := parseScore(rest[i])
		if err != nil {
			return errorValue(nimbiserr.Value("value is not a valid float"))
		}
		scores = append(scores, score)
		members = append(members, rest[i+1])
	}
	n, err := ctx.Storage.ZAdd(args[1], scores, members)
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

func parseScore(s []byte) (float64, error) {
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

type zrangeCmd struct{}

func (zrangeCmd) Meta() Meta { return Meta{Name: "ZRANGE", Arity: -4} }
func (zrangeCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	start, err1 := strconv.Atoi(string(args[2]))
	stop, err2 := strconv.Atoi(string(args[3]))
	if err1 != nil || err2 != nil {
		return errorValue(nimbiserr.Value("value is not an integer or out of range"))
	}
	withScores := len(args) >= 5 && strings.EqualFold(string(args[4]), "WITHSCORES")
	entries, err := ctx.Storage.ZRange(args[1], start, stop)
	if err != nil {
		return errorValue(err)
	}
	var out []resp.Value
	for _, e := range entries {
		out = append(out, resp.BulkString(e.Member))
		if withScores {
			out = append(out, resp.BulkStringFromString(formatScore(e.Score)))
		}
	}
	return resp.Array(out)
}

func formatScore(f float64) string {
	return string(resp.FormatDouble(f))
}

type zscoreCmd struct{}

func (zscoreCmd) Meta() Meta { return Meta{Name: "ZSCORE", Arity: 3} }
func (zscoreCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	score, found, err := ctx.Storage.ZScore(args[1], args[2])
	if err != nil {
		return errorValue(err)
	}
	if !found {
		return resp.Null
	}
	return resp.BulkStringFromString(formatScore(score))
}

type zremCmd struct{}

func (zremCmd) Meta() Meta { return Meta{Name: "ZREM", Arity: -3} }
func (zremCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.ZRem(args[1], args[2:])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}

type zcardCmd struct{}

func (zcardCmd) Meta() Meta { return Meta{Name: "ZCARD", Arity: 2} }
func (zcardCmd) Execute(ctx *Context, args [][]byte) resp.Value {
	n, err := ctx.Storage.ZCard(args[1])
	if err != nil {
		return errorValue(err)
	}
	return resp.Integer(int64(n))
}
