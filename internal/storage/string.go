package storage

import (
	"fmt"
	"strconv"

	"nimbis/internal/nimbiserr"
)

// Get returns (value, found). A type mismatch is surfaced as WRONGTYPE rather than a
// miss, matching the real server's behavior on GET against a non-string key.
func (e *Engine) Get(userKey []byte) ([]byte, bool, error) {
	data, exists, err := requireType(e.stringDB, MetaKey(userKey), TypeString)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	m, err := DecodeStringMeta(data)
	if err != nil {
		return nil, false, err
	}
	return m.Value, true, nil
}

// Set overwrites userKey with value unconditionally, allocating a fresh version and
// discarding any prior type and its DataRecords (orphaned for the compaction filter).
func (e *Engine) Set(userKey, value []byte) error {
	v := e.nextVersion()
	m := StringMeta{Version: v, Value: value}
	if err := e.stringDB.Set(MetaKey(userKey), EncodeStringMeta(m)); err != nil {
		return nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return nil
}

// Incr applies delta to the integer stored at userKey, creating it at 0 if absent.
func (e *Engine) Incr(userKey []byte, delta int64) (int64, error) {
	metaKey := MetaKey(userKey)
	data, exists, err := requireType(e.stringDB, metaKey, TypeString)
	if err != nil {
		return 0, err
	}
	var cur int64
	var version uint64
	var expireMs int64
	if exists {
		m, err := DecodeStringMeta(data)
		if err != nil {
			return 0, err
		}
		cur, err = parseI64(m.Value)
		if err != nil {
			return 0, nimbiserr.Value("value is not an integer or out of range")
		}
		version = m.Version
		expireMs = m.ExpireMs
	} else {
		version = e.nextVersion()
	}
	next := cur + delta
	if (delta > 0 && next < cur) || (delta < 0 && next > cur) {
		return 0, nimbiserr.Value("increment or decrement would overflow")
	}
	m := StringMeta{Version: version, Value: []byte(strconv.FormatInt(next, 10)), ExpireMs: expireMs}
	if err := e.stringDB.Set(metaKey, EncodeStringMeta(m)); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return next, nil
}

// Append concatenates value onto the existing string (or creates it), returning the new
// total length.
func (e *Engine) Append(userKey, value []byte) (int, error) {
	metaKey := MetaKey(userKey)
	data, exists, err := requireType(e.stringDB, metaKey, TypeString)
	if err != nil {
		return 0, err
	}
	var version uint64
	var expireMs int64
	var combined []byte
	if exists {
		m, err := DecodeStringMeta(data)
		if err != nil {
			return 0, err
		}
		version = m.Version
		expireMs = m.ExpireMs
		combined = append(append([]byte{}, m.Value...), value...)
	} else {
		version = e.nextVersion()
		combined = append([]byte{}, value...)
	}
	m := StringMeta{Version: version, Value: combined, ExpireMs: expireMs}
	if err := e.stringDB.Set(metaKey, EncodeStringMeta(m)); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, fmt.Errorf("append: %w", err))
	}
	return len(combined), nil
}
