package worker

import (
	"bufio"
	"net"
	"testing"

	"github.com/rsms/go-log"

	"nimbis/internal/command"
	"nimbis/internal/config"
	"nimbis/internal/nimbiserr"
	"nimbis/internal/resp"
	"nimbis/internal/storage"
)

// failCmd always returns a KindStorage error, to exercise the connection-fatal path.
type failCmd struct{}

func (failCmd) Meta() command.Meta { return command.Meta{Name: "FAILSTORAGE", Arity: 1} }
func (failCmd) Execute(ctx *command.Context, args [][]byte) resp.Value {
	err := nimbiserr.Storage(nimbiserr.CodeEngineError, nimbiserr.Value("boom"))
	return resp.FatalErrorValue("ERR " + err.WireMessage())
}

func newTestPoolWithFailCmd(t *testing.T, numShards int) *Pool {
	t.Helper()
	cfg := config.New(config.DefaultDefaults(), log.RootLogger)
	table := command.NewTable()
	table.Register(failCmd{})
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

func TestConnectionServeRoundTrip(t *testing.T) {
	p := newTestPool(t, 2)
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	c := newConnection(serverConn, p, nil)
	go c.serve()

	if _, err := clientConn.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reader := bufio.NewReader(clientConn)
	parser := resp.NewParser()
	var v resp.Value
	for {
		b, err := reader.ReadByte()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		parser.Feed([]byte{b})
		var ok bool
		v, ok, err = parser.Next()
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ok {
			break
		}
	}
	if string(v.Str) != "OK" {
		t.Fatalf("got %+v", v)
	}
}

func TestConnectionInlinePing(t *testing.T) {
	p := newTestPool(t, 1)
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	c := newConnection(serverConn, p, nil)
	go c.serve()

	if _, err := clientConn.Write([]byte("PING\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reader := bufio.NewReader(clientConn)
	parser := resp.NewParser()
	var v resp.Value
	for {
		b, err := reader.ReadByte()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		parser.Feed([]byte{b})
		var ok bool
		v, ok, err = parser.Next()
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ok {
			break
		}
	}
	if string(v.Str) != "PONG" {
		t.Fatalf("got %+v", v)
	}
}

func TestConnectionClosesAfterStorageError(t *testing.T) {
	p := newTestPoolWithFailCmd(t, 1)
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	c := newConnection(serverConn, p, nil)
	go c.serve()

	if _, err := clientConn.Write([]byte("*1\r\n$11\r\nFAILSTORAGE\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reader := bufio.NewReader(clientConn)
	parser := resp.NewParser()
	var v resp.Value
	for {
		b, err := reader.ReadByte()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		parser.Feed([]byte{b})
		var ok bool
		v, ok, err = parser.Next()
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if ok {
			break
		}
	}
	if v.Type != resp.TypeError {
		t.Fatalf("got %+v", v)
	}

	// The handler should have closed its end; a subsequent read hits EOF rather than
	// hanging for a second reply that will never come.
	buf := make([]byte, 1)
	if _, err := clientConn.Read(buf); err == nil {
		t.Fatalf("expected connection to be closed after a storage error")
	}
}

func TestValueToArgsFromArray(t *testing.T) {
	v := resp.Array([]resp.Value{resp.BulkStringFromString("GET"), resp.BulkStringFromString("k")})
	args := valueToArgs(v)
	if len(args) != 2 || string(args[0]) != "GET" || string(args[1]) != "k" {
		t.Fatalf("got %v", args)
	}
}

func TestValueToArgsNonArrayIsNil(t *testing.T) {
	if args := valueToArgs(resp.SimpleString("OK")); args != nil {
		t.Fatalf("got %v", args)
	}
}
