package worker

import (
	"net"

	"github.com/rsms/go-log"
	"github.com/rsms/go-uuid"

	"nimbis/internal/resp"
)

// readChunk is the initial read buffer size; resp.Parser grows its own internal buffer
// as needed for frames spanning multiple reads.
const readChunk = 4096

// connHandler runs one client connection's read/dispatch/reply loop.
type connHandler struct {
	conn   net.Conn
	pool   *Pool
	logger *log.Logger
	id     string
}

func newConnection(conn net.Conn, pool *Pool, logger *log.Logger) *connHandler {
	return &connHandler{conn: conn, pool: pool, logger: logger, id: uuid.MustGen().String()}
}

// serve reads frames, fans each parsed command out across the shard pool, and writes
// replies back in the exact order the commands were parsed — regardless of which shards
// produced which replies first.
func (c *connHandler) serve() {
	defer c.conn.Close()
	if c.logger != nil {
		c.logger.Debug("conn %s: accepted from %s", c.id, c.conn.RemoteAddr())
	}
	parser := resp.NewParser()
	buf := make([]byte, readChunk)

	for {
		n, readErr := c.conn.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n])
			if !c.drainAndDispatch(parser) {
				break
			}
		}
		if readErr != nil {
			break
		}
	}
	if c.logger != nil {
		c.logger.Debug("conn %s: closed", c.id)
	}
}

// drainAndDispatch pulls every complete frame currently buffered, dispatches each across
// the pool, and writes replies back in parse order. Returns false if the connection
// should close: a framing error, a write failure, or a reply marked Fatal (a
// storage-engine error, which the client can't usefully retry on this connection).
func (c *connHandler) drainAndDispatch(parser *resp.Parser) bool {
	var pending []chan resp.Value
	for {
		v, ok, err := parser.Next()
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("conn %s: protocol error: %v", c.id, err)
			}
			for _, ch := range pending {
				if !c.writeValue(<-ch) {
					return false
				}
			}
			c.writeValue(resp.ErrorValue("ERR " + err.Error()))
			return false
		}
		if !ok {
			break
		}
		pending = append(pending, c.pool.DispatchAsync(valueToArgs(v)))
	}
	for _, ch := range pending {
		v := <-ch
		if !c.writeValue(v) {
			return false
		}
		if v.Fatal {
			if c.logger != nil {
				c.logger.Warn("conn %s: closing after storage error: %s", c.id, v.Str)
			}
			return false
		}
	}
	return true
}

func (c *connHandler) writeValue(v resp.Value) bool {
	_, err := c.conn.Write(resp.Encode(v))
	return err == nil
}

// valueToArgs converts a parsed command (an Array of BulkStrings, from either the
// multi-bulk wire form or an inline command line) into a raw argument vector.
func valueToArgs(v resp.Value) [][]byte {
	if v.Type != resp.TypeArray {
		return nil
	}
	args := make([][]byte, len(v.Elems))
	for i, e := range v.Elems {
		args[i] = e.Str
	}
	return args
}
