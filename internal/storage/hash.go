package storage

import "nimbis/internal/nimbiserr"

// hashMeta loads the CollectionMeta for userKey, creating a fresh one (new version, count
// 0) if absent. create is false for read-only operations that must not materialize state
// for a missing key.
func (e *Engine) hashMeta(userKey []byte, create bool) (CollectionMeta, bool, error) {
	metaKey := MetaKey(userKey)
	data, exists, err := requireType(e.stringDB, metaKey, TypeHash)
	if err != nil {
		return CollectionMeta{}, false, err
	}
	if exists {
		m, err := DecodeCollectionMeta(data)
		return m, true, err
	}
	if !create {
		return CollectionMeta{}, false, nil
	}
	return CollectionMeta{TypeCode: TypeHash, Version: e.nextVersion()}, false, nil
}

func (e *Engine) putHashMeta(userKey []byte, m CollectionMeta) error {
	if err := e.stringDB.Set(MetaKey(userKey), EncodeCollectionMeta(m)); err != nil {
		return nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return nil
}

// HSet sets fields[i]=values[i] pairs, returning the count of fields newly created.
func (e *Engine) HSet(userKey []byte, fields, values [][]byte) (int, error) {
	m, _, err := e.hashMeta(userKey, true)
	if err != nil {
		return 0, err
	}
	created := 0
	seen := make(map[string]bool, len(fields))
	wb := e.hashDB.NewWriteBatch()
	for i := range fields {
		fieldKey := HashFieldKey(userKey, m.Version, fields[i])
		if _, err := e.hashDB.Get(fieldKey); err != nil && !seen[string(fields[i])] {
			created++
			m.Count++
		}
		seen[string(fields[i])] = true
		wb.Set(fieldKey, values[i])
	}
	if err := wb.Commit(); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	if err := e.putHashMeta(userKey, m); err != nil {
		return 0, err
	}
	return created, nil
}

// HGet returns the value for field, or (nil, false) if the hash or field is absent.
func (e *Engine) HGet(userKey, field []byte) ([]byte, bool, error) {
	m, exists, err := e.hashMeta(userKey, false)
	if err != nil || !exists {
		return nil, false, err
	}
	val, err := e.hashDB.Get(HashFieldKey(userKey, m.Version, field))
	if err != nil {
		return nil, false, nil
	}
	return val, true, nil
}

// HMGet returns one (value, found) pair per requested field.
func (e *Engine) HMGet(userKey []byte, fields [][]byte) ([][]byte, []bool, error) {
	m, exists, err := e.hashMeta(userKey, false)
	values := make([][]byte, len(fields))
	found := make([]bool, len(fields))
	if err != nil || !exists {
		return values, found, err
	}
	for i, f := range fields {
		if v, err := e.hashDB.Get(HashFieldKey(userKey, m.Version, f)); err == nil {
			values[i] = v
			found[i] = true
		}
	}
	return values, found, nil
}

// HGetAll returns every field/value pair in the hash.
func (e *Engine) HGetAll(userKey []byte) ([][]byte, [][]byte, error) {
	m, exists, err := e.hashMeta(userKey, false)
	if err != nil || !exists {
		return nil, nil, err
	}
	prefix := VersionPrefix(userKey, m.Version)
	prefixLen := DataPrefixLen(userKey)
	it := e.hashDB.NewIterator(prefix)
	defer it.Close()
	var fields, values [][]byte
	for it.Next() {
		fields = append(fields, HashField(it.Key(), prefixLen))
		v, err := it.Value()
		if err != nil {
			return nil, nil, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
		}
		values = append(values, v)
	}
	return fields, values, nil
}

// HLen returns the number of fields in the hash (0 if absent).
func (e *Engine) HLen(userKey []byte) (int, error) {
	m, exists, err := e.hashMeta(userKey, false)
	if err != nil || !exists {
		return 0, err
	}
	return int(m.Count), nil
}

// HDel removes the given fields, returning how many were actually present.
func (e *Engine) HDel(userKey []byte, fields [][]byte) (int, error) {
	m, exists, err := e.hashMeta(userKey, false)
	if err != nil || !exists {
		return 0, err
	}
	removed := 0
	seen := make(map[string]bool, len(fields))
	wb := e.hashDB.NewWriteBatch()
	for _, f := range fields {
		if seen[string(f)] {
			continue
		}
		seen[string(f)] = true
		fieldKey := HashFieldKey(userKey, m.Version, f)
		if _, err := e.hashDB.Get(fieldKey); err != nil {
			continue
		}
		removed++
		wb.Delete(fieldKey)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := wb.Commit(); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	m.Count -= uint64(removed)
	if m.Count == 0 {
		e.Del(userKey)
		return removed, nil
	}
	return removed, e.putHashMeta(userKey, m)
}
