package worker

import (
	"net"

	"github.com/rsms/go-log"
)

// Acceptor binds the listening port and spawns a connHandler per accepted connection.
// Connections aren't pinned to a worker: each command is routed to its owning shard by
// key hash (see Pool.DispatchAsync), so there's no per-connection worker to round-robin
// across.
type Acceptor struct {
	pool   *Pool
	logger *log.Logger
}

func NewAcceptor(pool *Pool, logger *log.Logger) *Acceptor {
	return &Acceptor{pool: pool, logger: logger}
}

// ListenAndServe binds addr and accepts connections until Accept returns an error, which
// it returns to the caller.
func (a *Acceptor) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	if a.logger != nil {
		a.logger.Info("listening on %s", addr)
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go newConnection(conn, a.pool, a.logger).serve()
	}
}
