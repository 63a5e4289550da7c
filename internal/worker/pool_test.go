package worker

import (
	"testing"

	"github.com/rsms/go-log"

	"nimbis/internal/command"
	"nimbis/internal/config"
	"nimbis/internal/resp"
	"nimbis/internal/storage"
)

func newTestPool(t *testing.T, numShards int) *Pool {
	t.Helper()
	cfg := config.New(config.DefaultDefaults(), log.RootLogger)
	table := command.NewTable()
	workers := make([]*Worker, numShards)
	for i := 0; i < numShards; i++ {
		e, err := storage.Open(t.TempDir(), i, log.RootLogger)
		if err != nil {
			t.Fatalf("storage.Open shard %d: %v", i, err)
		}
		t.Cleanup(func() { e.Close() })
		workers[i] = NewWorker(i, e, cfg, table)
		go workers[i].Run()
		t.Cleanup(workers[i].Stop)
	}
	return &Pool{Workers: workers}
}

func TestPoolSingleKeyRouting(t *testing.T) {
	p := newTestPool(t, 4)
	v := p.Dispatch([][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	if string(v.Str) != "OK" {
		t.Fatalf("got %+v", v)
	}
	v = p.Dispatch([][]byte{[]byte("GET"), []byte("k")})
	if string(v.Str) != "v" {
		t.Fatalf("got %+v", v)
	}
}

func TestPoolScatterGatherDel(t *testing.T) {
	p := newTestPool(t, 4)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		p.Dispatch([][]byte{[]byte("SET"), []byte(k), []byte("1")})
	}
	v := p.Dispatch([][]byte{[]byte("DEL"), []byte("a"), []byte("b"), []byte("c"), []byte("nope")})
	if v.Int != 3 {
		t.Fatalf("expected 3 keys deleted across shards, got %+v", v)
	}
}

func TestPoolScatterGatherExists(t *testing.T) {
	p := newTestPool(t, 4)
	for _, k := range []string{"x", "y", "z"} {
		p.Dispatch([][]byte{[]byte("SET"), []byte(k), []byte("1")})
	}
	v := p.Dispatch([][]byte{[]byte("EXISTS"), []byte("x"), []byte("y"), []byte("absent")})
	if v.Int != 2 {
		t.Fatalf("got %+v", v)
	}
}

func TestPoolBroadcastFlushdb(t *testing.T) {
	p := newTestPool(t, 3)
	for _, k := range []string{"a", "b", "c"} {
		p.Dispatch([][]byte{[]byte("SET"), []byte(k), []byte("1")})
	}
	v := p.Dispatch([][]byte{[]byte("FLUSHDB")})
	if string(v.Str) != "OK" {
		t.Fatalf("got %+v", v)
	}
	for _, k := range []string{"a", "b", "c"} {
		got := p.Dispatch([][]byte{[]byte("EXISTS"), []byte(k)})
		if got.Int != 0 {
			t.Fatalf("expected key %q to be gone from every shard after FLUSHDB", k)
		}
	}
}

func TestPoolBroadcastConfigSetAppliesToEveryShard(t *testing.T) {
	p := newTestPool(t, 3)
	v := p.Dispatch([][]byte{[]byte("CONFIG"), []byte("SET"), []byte("appendonly"), []byte("yes")})
	if string(v.Str) != "OK" {
		t.Fatalf("got %+v", v)
	}
	for _, w := range p.Workers {
		val, err := w.ctx.Config.GetField("appendonly")
		if err != nil || val != "yes" {
			t.Fatalf("shard %d: val=%q err=%v", w.ID, val, err)
		}
	}
}

func TestPoolDispatchAsyncPreservesOrder(t *testing.T) {
	p := newTestPool(t, 4)
	var chans []chan resp.Value
	keys := []string{"k1", "k2", "k3", "k4", "k5"}
	for _, k := range keys {
		chans = append(chans, p.DispatchAsync([][]byte{[]byte("SET"), []byte(k), []byte(k)}))
	}
	for _, ch := range chans {
		if v := <-ch; string(v.Str) != "OK" {
			t.Fatalf("got %+v", v)
		}
	}
	var getChans []chan resp.Value
	for _, k := range keys {
		getChans = append(getChans, p.DispatchAsync([][]byte{[]byte("GET"), []byte(k)}))
	}
	for i, ch := range getChans {
		v := <-ch
		if string(v.Str) != keys[i] {
			t.Fatalf("index %d: got %+v, want %q", i, v, keys[i])
		}
	}
}
