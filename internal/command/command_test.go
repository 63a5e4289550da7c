package command

import (
	"testing"

	"github.com/rsms/go-log"

	"nimbis/internal/config"
	"nimbis/internal/resp"
	"nimbis/internal/storage"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	e, err := storage.Open(t.TempDir(), 0, log.RootLogger)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return &Context{Storage: e, Config: config.New(config.DefaultDefaults(), log.RootLogger)}
}

func bulkArgs(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestValidateArityExact(t *testing.T) {
	m := Meta{Name: "GET", Arity: 2}
	if !ValidateArity(m, 2) || ValidateArity(m, 1) || ValidateArity(m, 3) {
		t.Fatalf("exact arity validation failed")
	}
}

func TestValidateArityMinimum(t *testing.T) {
	m := Meta{Name: "DEL", Arity: -2}
	if ValidateArity(m, 1) {
		t.Fatalf("expected 1 token to fail a minimum-2 arity")
	}
	if !ValidateArity(m, 2) || !ValidateArity(m, 5) {
		t.Fatalf("expected 2+ tokens to satisfy a minimum-2 arity")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	v := table.Dispatch(ctx, bulkArgs("NOSUCHCOMMAND"))
	if v.Type != resp.TypeError {
		t.Fatalf("got %+v", v)
	}
}

func TestDispatchArityMismatch(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	v := table.Dispatch(ctx, bulkArgs("GET"))
	if v.Type != resp.TypeError {
		t.Fatalf("got %+v", v)
	}
}

func TestDispatchSetAndGet(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	if v := table.Dispatch(ctx, bulkArgs("SET", "k", "v")); string(v.Str) != "OK" {
		t.Fatalf("got %+v", v)
	}
	v := table.Dispatch(ctx, bulkArgs("GET", "k"))
	if v.Type != resp.TypeBulkString || string(v.Str) != "v" {
		t.Fatalf("got %+v", v)
	}
}

func TestDispatchGetMissingReturnsNull(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	v := table.Dispatch(ctx, bulkArgs("GET", "absent"))
	if !v.IsNil() {
		t.Fatalf("got %+v", v)
	}
}

func TestDispatchIncrDecr(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	table.Dispatch(ctx, bulkArgs("SET", "n", "10"))
	v := table.Dispatch(ctx, bulkArgs("INCR", "n"))
	if v.Int != 11 {
		t.Fatalf("got %+v", v)
	}
	v = table.Dispatch(ctx, bulkArgs("DECR", "n"))
	if v.Int != 10 {
		t.Fatalf("got %+v", v)
	}
}

func TestDispatchWrongTypeReply(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	table.Dispatch(ctx, bulkArgs("HSET", "h", "f", "v"))
	v := table.Dispatch(ctx, bulkArgs("GET", "h"))
	if v.Type != resp.TypeError || string(v.Str[:10]) != "WRONGTYPE " {
		t.Fatalf("got %+v", v)
	}
}

func TestDispatchHashRoundTrip(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	table.Dispatch(ctx, bulkArgs("HSET", "h", "a", "1", "b", "2"))
	v := table.Dispatch(ctx, bulkArgs("HGET", "h", "a"))
	if string(v.Str) != "1" {
		t.Fatalf("got %+v", v)
	}
	v = table.Dispatch(ctx, bulkArgs("HLEN", "h"))
	if v.Int != 2 {
		t.Fatalf("got %+v", v)
	}
}

func TestDispatchHSetOddArgsIsAnError(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	v := table.Dispatch(ctx, bulkArgs("HSET", "h", "a", "1", "b"))
	if v.Type != resp.TypeError {
		t.Fatalf("expected an error for an odd field/value count, got %+v", v)
	}
}

func TestDispatchListPopShapes(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	table.Dispatch(ctx, bulkArgs("RPUSH", "l", "a", "b", "c"))

	v := table.Dispatch(ctx, bulkArgs("LPOP", "l"))
	if v.Type != resp.TypeBulkString || string(v.Str) != "a" {
		t.Fatalf("expected a bare bulk string with no count, got %+v", v)
	}

	v = table.Dispatch(ctx, bulkArgs("LPOP", "l", "2"))
	if v.Type != resp.TypeArray || len(v.Elems) != 2 {
		t.Fatalf("expected an array reply when a count is given, got %+v", v)
	}
}

func TestDispatchZAddAndRange(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	table.Dispatch(ctx, bulkArgs("ZADD", "z", "3", "c", "1", "a", "2", "b"))
	v := table.Dispatch(ctx, bulkArgs("ZRANGE", "z", "0", "-1"))
	if v.Type != resp.TypeArray || len(v.Elems) != 3 {
		t.Fatalf("got %+v", v)
	}
	if string(v.Elems[0].Str) != "a" || string(v.Elems[2].Str) != "c" {
		t.Fatalf("expected ascending score order, got %+v", v.Elems)
	}
}

func TestDispatchZAddSyntaxError(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	v := table.Dispatch(ctx, bulkArgs("ZADD", "z", "1", "a", "2"))
	if v.Type != resp.TypeError {
		t.Fatalf("expected an error for an unpaired score/member, got %+v", v)
	}
}

func TestDispatchZAddRejectsNaNScore(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	v := table.Dispatch(ctx, bulkArgs("ZADD", "z", "nan", "m"))
	if v.Type != resp.TypeError {
		t.Fatalf("expected NaN score to be rejected, got %+v", v)
	}
}

func TestDispatchZAddAndScoreFormatInfinity(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	table.Dispatch(ctx, bulkArgs("ZADD", "z", "-inf", "lo", "0", "mid", "+inf", "hi"))
	v := table.Dispatch(ctx, bulkArgs("ZRANGE", "z", "0", "-1", "WITHSCORES"))
	if v.Type != resp.TypeArray || len(v.Elems) != 6 {
		t.Fatalf("got %+v", v)
	}
	if string(v.Elems[1].Str) != "-inf" || string(v.Elems[5].Str) != "inf" {
		t.Fatalf("expected lowercase inf/-inf scores, got %+v", v.Elems)
	}
	score := table.Dispatch(ctx, bulkArgs("ZSCORE", "z", "hi"))
	if string(score.Str) != "inf" {
		t.Fatalf("got %+v", score)
	}
}

func TestDispatchExpireAndTTL(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	table.Dispatch(ctx, bulkArgs("SET", "k", "v"))
	v := table.Dispatch(ctx, bulkArgs("EXPIRE", "k", "100"))
	if v.Int != 1 {
		t.Fatalf("got %+v", v)
	}
	v = table.Dispatch(ctx, bulkArgs("TTL", "k"))
	if v.Int <= 0 || v.Int > 100 {
		t.Fatalf("got %+v", v)
	}
}

func TestDispatchFlushdb(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	table.Dispatch(ctx, bulkArgs("SET", "k", "v"))
	v := table.Dispatch(ctx, bulkArgs("FLUSHDB"))
	if string(v.Str) != "OK" {
		t.Fatalf("got %+v", v)
	}
	v = table.Dispatch(ctx, bulkArgs("EXISTS", "k"))
	if v.Int != 0 {
		t.Fatalf("expected the key to be gone after FLUSHDB, got %+v", v)
	}
}

func TestDispatchPing(t *testing.T) {
	table := NewTable()
	ctx := newTestContext(t)
	if v := table.Dispatch(ctx, bulkArgs("PING")); string(v.Str) != "PONG" {
		t.Fatalf("got %+v", v)
	}
	if v := table.Dispatch(ctx, bulkArgs("PING", "hello")); string(v.Str) != "hello" {
		t.Fatalf("got %+v", v)
	}
}
