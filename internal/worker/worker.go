// Package worker implements the sharded runtime: one Worker per shard, each running its
// own single-threaded command loop, fed by an Acceptor that spawns a handler goroutine
// per connection; each connection's handler fans commands out by key and gathers replies
// back in request order.
//
// The design calls for one OS thread per shard with its own cooperative scheduler; Go's
// goroutine scheduler gives the same isolation property more directly — each Worker's
// loop only ever runs on one goroutine at a time, so storage-engine operations against a
// shard are never interleaved, which is what gives INCR its per-key atomicity.
package worker

import (
	"nimbis/internal/command"
	"nimbis/internal/config"
	"nimbis/internal/resp"
	"nimbis/internal/storage"
)

// maxBatch caps how many pending requests a worker drains from its inbox before
// processing, amortizing wakeups under load.
const maxBatch = 256

// CmdRequest is one command routed to a shard, with a single-shot reply channel.
type CmdRequest struct {
	Args  [][]byte
	Reply chan resp.Value
}

// Worker owns one shard's StorageEngine and processes CmdRequests against it one at a
// time on its own goroutine.
type Worker struct {
	ID      int
	Storage *storage.Engine

	ctx   *command.Context
	table *command.Table
	inbox chan CmdRequest
}

// NewWorker builds a worker bound to engine and shared cfg/table.
func NewWorker(id int, engine *storage.Engine, cfg *config.Config, table *command.Table) *Worker {
	return &Worker{
		ID:      id,
		Storage: engine,
		ctx:     &command.Context{Storage: engine, Config: cfg},
		table:   table,
		inbox:   make(chan CmdRequest, maxBatch),
	}
}

// Submit enqueues req for this worker, blocking only if the inbox is momentarily full.
func (w *Worker) Submit(req CmdRequest) {
	w.inbox <- req
}

// Stop closes the inbox; Run exits once it has drained what's left.
func (w *Worker) Stop() {
	close(w.inbox)
}

// Run is the worker's command loop: blocking receive for the first request, then a
// non-blocking drain up to maxBatch before dispatching the whole batch.
func (w *Worker) Run() {
	for {
		batch, ok := w.drainBatch()
		if !ok {
			return
		}
		for _, req := range batch {
			w.dispatchOne(req)
		}
	}
}

// dispatchOne runs one request's Dispatch behind a panic boundary: a handler panic must
// not kill the shard goroutine, and must not leave req.Reply unsent (the connection
// handler is blocked on it and would hang forever otherwise).
func (w *Worker) dispatchOne(req CmdRequest) {
	defer func() {
		if r := recover(); r != nil {
			req.Reply <- resp.ErrorValue("ERR internal error")
		}
	}()
	req.Reply <- w.table.Dispatch(w.ctx, req.Args)
}

func (w *Worker) drainBatch() ([]CmdRequest, bool) {
	first, ok := <-w.inbox
	if !ok {
		return nil, false
	}
	batch := make([]CmdRequest, 0, maxBatch)
	batch = append(batch, first)
	for len(batch) < maxBatch {
		select {
		case req, ok := <-w.inbox:
			if !ok {
				return batch, true
			}
			batch = append(batch, req)
		default:
			return batch, true
		}
	}
	return batch, true
}
