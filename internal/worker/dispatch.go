package worker

import (
	"strings"

	"github.com/rsms/go-bits"

	"nimbis/internal/resp"
)

// class describes how a parsed command's keys map onto shards.
type class int

const (
	classSingleKey class = iota // routed by hashing args[1]
	classMultiKey               // DEL/EXISTS: scatter across args[1:], gather by summing
	classBroadcast              // FLUSHDB/CONFIG: sent to every shard
)

func classify(name string) class {
	switch strings.ToUpper(name) {
	case "DEL", "EXISTS":
		return classMultiKey
	case "FLUSHDB", "CONFIG":
		return classBroadcast
	default:
		return classSingleKey
	}
}

// Pool is the set of workers a connection routes commands across.
type Pool struct {
	Workers []*Worker
}

// Dispatch routes one parsed command (args[0] is the command name) across the pool and
// returns the reduced reply, synchronously from the caller's perspective — the caller
// (the per-connection handler) is expected to call this from its own goroutine per
// command, or pipeline many at once via DispatchAsync.
func (p *Pool) Dispatch(args [][]byte) resp.Value {
	return <-p.DispatchAsync(args)
}

// DispatchAsync returns a channel that will receive exactly one reply, preserving the
// per-connection ordering contract when callers collect replies from multiple
// DispatchAsync calls in the order they were issued.
func (p *Pool) DispatchAsync(args [][]byte) chan resp.Value {
	out := make(chan resp.Value, 1)
	if len(args) == 0 {
		out <- resp.ErrorValue("ERR empty command")
		return out
	}
	name := strings.ToUpper(string(args[0]))
	switch classify(name) {
	case classMultiKey:
		go p.scatterGather(name, args, out)
	case classBroadcast:
		go p.broadcast(name, args, out)
	default:
		shard := 0
		if len(args) >= 2 {
			shard = ShardFor(args[1], len(p.Workers))
		}
		reply := make(chan resp.Value, 1)
		p.Workers[shard].Submit(CmdRequest{Args: args, Reply: reply})
		go func() { out <- <-reply }()
	}
	return out
}

// scatterGather implements DEL/EXISTS: group keys by owning shard, issue one sub-command
// per shard, and sum the integer replies.
func (p *Pool) scatterGather(name string, args [][]byte, out chan resp.Value) {
	byShard := make(map[int][][]byte)
	for _, key := range args[1:] {
		s := ShardFor(key, len(p.Workers))
		byShard[s] = append(byShard[s], key)
	}
	replies := make([]chan resp.Value, 0, len(byShard))
	for shard, keys := range byShard {
		sub := make([][]byte, 0, len(keys)+1)
		sub = append(sub, []byte(name))
		sub = append(sub, keys...)
		reply := make(chan resp.Value, 1)
		p.Workers[shard].Submit(CmdRequest{Args: sub, Reply: reply})
		replies = append(replies, reply)
	}
	var total int64
	for _, r := range replies {
		v := <-r
		if v.Type == resp.TypeInteger {
			total += v.Int
		}
	}
	out <- resp.Integer(total)
}

// shardReply carries one shard's reply back to broadcast's fan-in loop, tagged with the
// shard index so arrival order (which is not the same as shard order) can still be mapped
// back onto a bit.
type shardReply struct {
	shard int
	value resp.Value
}

// maxBitmaskShards bounds how many shards' completion can be tracked in a uint64
// bitmask. Clusters with more shards than this fall back to a plain received-count,
// since shifting past bit 63 would silently wrap and under-count completion.
const maxBitmaskShards = 64

// broadcast implements FLUSHDB and CONFIG: send to every shard and wait for all to reply,
// in whatever order they finish. CONFIG GET's replies are identical across shards (config
// is shared, not sharded), so shard 0's reply is representative; CONFIG SET and FLUSHDB
// reply OK from every shard and we forward shard 0's, having waited for every shard to
// apply the change.
//
// For up to maxBitmaskShards, completion is tracked as a bitmask rather than a counter:
// bits.PopcountUint64 tells the fan-in loop when every bit is set without keeping a
// separate running total in sync with the mask. Beyond that bound a plain counter is
// used instead, since 1<<shard would overflow the mask.
func (p *Pool) broadcast(name string, args [][]byte, out chan resp.Value) {
	done := make(chan shardReply, len(p.Workers))
	for i, w := range p.Workers {
		i := i
		reply := make(chan resp.Value, 1)
		w.Submit(CmdRequest{Args: args, Reply: reply})
		go func() { done <- shardReply{shard: i, value: <-reply} }()
	}

	results := make([]resp.Value, len(p.Workers))
	if len(p.Workers) <= maxBitmaskShards {
		var repliedMask uint64
		for bits.PopcountUint64(repliedMask) < len(p.Workers) {
			r := <-done
			results[r.shard] = r.value
			repliedMask |= 1 << uint(r.shard)
		}
	} else {
		for received := 0; received < len(p.Workers); received++ {
			r := <-done
			results[r.shard] = r.value
		}
	}
	out <- results[0]
}
