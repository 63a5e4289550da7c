package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rsms/go-log"

	"nimbis/internal/nimbiserr"
	"nimbis/internal/storage/kv"
)

// versionSentinelKey is a raw string_db key used to remember the highest version ever
// allocated, so a restart doesn't have to fall back to a bounded meta scan in the common
// case. Its encoded length prefix (0xFFFF) can never match the byte count that follows,
// so it can never collide with a real MetaKey(userKey) — MetaKey always encodes an exact
// len16==len(userKey) match.
var versionSentinelKey = append([]byte{0xFF, 0xFF}, []byte("nimbis-version-sentinel")...)

// metaScanBound caps the number of keys scanned on open when the sentinel is absent.
const metaScanBound = 10000

// Engine is one shard's StorageEngine: five isolated KV engines plus a VersionGenerator.
type Engine struct {
	ShardID int

	stringDB kv.Engine
	hashDB   kv.Engine
	listDB   kv.Engine
	setDB    kv.Engine
	zsetDB   kv.Engine

	version VersionGenerator
	logger  *log.Logger
}

// Open opens (or creates) the five per-shard engines under <dataPath>/shard-<id>/.
func Open(dataPath string, shardID int, logger *log.Logger) (*Engine, error) {
	shardDir := filepath.Join(dataPath, fmt.Sprintf("shard-%d", shardID))
	e := &Engine{ShardID: shardID, logger: logger}

	dbs := []struct {
		name string
		dst  *kv.Engine
	}{
		{"string", &e.stringDB},
		{"hash", &e.hashDB},
		{"list", &e.listDB},
		{"set", &e.setDB},
		{"zset", &e.zsetDB},
	}
	for _, d := range dbs {
		db, err := kv.OpenBadger(filepath.Join(shardDir, d.name), logger)
		if err != nil {
			e.closeOpened()
			return nil, nimbiserr.Storage(nimbiserr.CodeEngineError, fmt.Errorf("open %s db: %w", d.name, err))
		}
		*d.dst = db
	}

	if err := e.seedVersion(); err != nil {
		e.closeOpened()
		return nil, err
	}
	return e, nil
}

func (e *Engine) closeOpened() {
	for _, db := range []kv.Engine{e.stringDB, e.hashDB, e.listDB, e.setDB, e.zsetDB} {
		if db != nil {
			_ = db.Close()
		}
	}
}

func (e *Engine) Close() error {
	e.closeOpened()
	return nil
}

func (e *Engine) seedVersion() error {
	if data, err := e.stringDB.Get(versionSentinelKey); err == nil && len(data) == 8 {
		e.version.Seed(binary.BigEndian.Uint64(data))
		return nil
	}
	// fresh data directory or pre-sentinel upgrade: bounded scan of meta keys for the
	// highest version seen.
	it := e.stringDB.NewIterator(nil)
	defer it.Close()
	var maxVersion uint64
	count := 0
	for it.Next() && count < metaScanBound {
		count++
		data, err := it.Value()
		if err != nil || len(data) < metaFixedHeader {
			continue
		}
		v := binary.BigEndian.Uint64(data[1:9])
		if v > maxVersion {
			maxVersion = v
		}
	}
	e.version.Seed(maxVersion)
	return nil
}

func (e *Engine) persistVersionSentinel() {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], e.version.Current())
	_ = e.stringDB.Set(versionSentinelKey, buf[:])
}

// nextVersion allocates a version and immediately persists the new high-water mark.
func (e *Engine) nextVersion() uint64 {
	v := e.version.Next()
	e.persistVersionSentinel()
	return v
}

func nowMs() int64 { return time.Now().UnixMilli() }

// ---- generic, type-agnostic operations (DEL, EXISTS, EXPIRE, TTL) ----

// Exists reports whether userKey has a live MetaRecord.
func (e *Engine) Exists(userKey []byte) bool {
	_, err := e.stringDB.Get(MetaKey(userKey))
	return err == nil
}

// Del removes the MetaRecord for userKey. This alone makes every DataRecord for the
// prior incarnation logically invisible (O(1) delete); physical reclamation is left to
// the compaction filter.
func (e *Engine) Del(userKey []byte) bool {
	if !e.Exists(userKey) {
		return false
	}
	if err := e.stringDB.Delete(MetaKey(userKey)); err != nil {
		return false
	}
	return true
}

// Expire sets userKey's absolute deadline, applying the engine's native TTL to the meta
// key itself: once badger drops the meta key, every DataRecord at that version becomes
// invisible too.
func (e *Engine) Expire(userKey []byte, seconds int64) (bool, error) {
	metaKey := MetaKey(userKey)
	data, err := e.stringDB.Get(metaKey)
	if err != nil {
		return false, nil
	}
	typeCode, err := PeekMetaType(data)
	if err != nil {
		return false, nimbiserr.Storage(nimbiserr.CodeDecodeError, err)
	}
	ttl := time.Duration(seconds) * time.Second
	expireAt := nowMs() + seconds*1000

	var rewritten []byte
	switch typeCode {
	case TypeString:
		m, err := DecodeStringMeta(data)
		if err != nil {
			return false, err
		}
		m.ExpireMs = expireAt
		rewritten = EncodeStringMeta(m)
	case TypeHash, TypeSet, TypeZSet:
		m, err := DecodeCollectionMeta(data)
		if err != nil {
			return false, err
		}
		m.ExpireMs = expireAt
		rewritten = EncodeCollectionMeta(m)
	case TypeList:
		m, err := DecodeListMeta(data)
		if err != nil {
			return false, err
		}
		m.ExpireMs = expireAt
		rewritten = EncodeListMeta(m)
	default:
		return false, nimbiserr.Storage(nimbiserr.CodeDecodeError, fmt.Errorf("unknown type code %q", typeCode))
	}
	if err := e.stringDB.SetWithTTL(metaKey, rewritten, ttl); err != nil {
		return false, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return true, nil
}

// TTL returns the remaining seconds, -1 if no expiry is set, or -2 if the key is absent.
func (e *Engine) TTL(userKey []byte) (int64, error) {
	data, err := e.stringDB.Get(MetaKey(userKey))
	if err != nil {
		return -2, nil
	}
	typeCode, err := PeekMetaType(data)
	if err != nil {
		return 0, err
	}
	var expireMs int64
	switch typeCode {
	case TypeString:
		m, err := DecodeStringMeta(data)
		if err != nil {
			return 0, err
		}
		expireMs = m.ExpireMs
	case TypeHash, TypeSet, TypeZSet:
		m, err := DecodeCollectionMeta(data)
		if err != nil {
			return 0, err
		}
		expireMs = m.ExpireMs
	case TypeList:
		m, err := DecodeListMeta(data)
		if err != nil {
			return 0, err
		}
		expireMs = m.ExpireMs
	}
	if expireMs == 0 {
		return -1, nil
	}
	remaining := (expireMs - nowMs()) / 1000
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Flush clears every key in all five engines for this shard (FLUSHDB).
func (e *Engine) Flush() error {
	for _, db := range []kv.Engine{e.stringDB, e.hashDB, e.listDB, e.setDB, e.zsetDB} {
		it := db.NewIterator(nil)
		wb := db.NewWriteBatch()
		for it.Next() {
			wb.Delete(it.Key())
		}
		it.Close()
		if err := wb.Commit(); err != nil {
			return nimbiserr.Storage(nimbiserr.CodeEngineError, err)
		}
	}
	return nil
}

// requireType validates that an existing meta record, if present, matches wantType,
// returning (data, exists, err). A mismatch surfaces as WRONGTYPE.
func requireType(db kv.Engine, metaKey []byte, wantType byte) (data []byte, exists bool, err error) {
	data, getErr := db.Get(metaKey)
	if getErr != nil {
		return nil, false, nil
	}
	tc, err := PeekMetaType(data)
	if err != nil {
		return nil, false, err
	}
	if tc != wantType {
		return nil, false, nimbiserr.WrongType
	}
	return data, true, nil
}

func parseI64(s []byte) (int64, error) {
	return strconv.ParseInt(string(s), 10, 64)
}
