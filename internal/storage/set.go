package storage

import "nimbis/internal/nimbiserr"

func (e *Engine) setMeta(userKey []byte, create bool) (CollectionMeta, bool, error) {
	metaKey := MetaKey(userKey)
	data, exists, err := requireType(e.stringDB, metaKey, TypeSet)
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
	return CollectionMeta{TypeCode: TypeSet, Version: e.nextVersion()}, false, nil
}

func (e *Engine) putSetMeta(userKey []byte, m CollectionMeta) error {
	if err := e.stringDB.Set(MetaKey(userKey), EncodeCollectionMeta(m)); err != nil {
		return nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return nil
}

// SAdd adds members, returning how many were newly added.
func (e *Engine) SAdd(userKey []byte, members [][]byte) (int, error) {
	m, _, err := e.setMeta(userKey, true)
	if err != nil {
		return 0, err
	}
	added := 0
	seen := make(map[string]bool, len(members))
	wb := e.setDB.NewWriteBatch()
	for _, member := range members {
		if seen[string(member)] {
			continue
		}
		seen[string(member)] = true
		key := SetMemberKey(userKey, m.Version, member)
		if _, err := e.setDB.Get(key); err == nil {
			continue
		}
		added++
		m.Count++
		wb.Set(key, nil)
	}
	if added == 0 {
		return 0, nil
	}
	if err := wb.Commit(); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return added, e.putSetMeta(userKey, m)
}

// SRem removes members, returning how many were actually present.
func (e *Engine) SRem(userKey []byte, members [][]byte) (int, error) {
	m, exists, err := e.setMeta(userKey, false)
	if err != nil || !exists {
		return 0, err
	}
	removed := 0
	seen := make(map[string]bool, len(members))
	wb := e.setDB.NewWriteBatch()
	for _, member := range members {
		if seen[string(member)] {
			continue
		}
		seen[string(member)] = true
		key := SetMemberKey(userKey, m.Version, member)
		if _, err := e.setDB.Get(key); err != nil {
			continue
		}
		removed++
		wb.Delete(key)
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
	return removed, e.putSetMeta(userKey, m)
}

// SMembers returns every member of the set.
func (e *Engine) SMembers(userKey []byte) ([][]byte, error) {
	m, exists, err := e.setMeta(userKey, false)
	if err != nil || !exists {
		return nil, err
	}
	prefix := VersionPrefix(userKey, m.Version)
	prefixLen := DataPrefixLen(userKey)
	it := e.setDB.NewIterator(prefix)
	defer it.Close()
	var members [][]byte
	for it.Next() {
		members = append(members, SetMember(it.Key(), prefixLen))
	}
	return members, nil
}

// SIsMember reports whether member is present.
func (e *Engine) SIsMember(userKey, member []byte) (bool, error) {
	m, exists, err := e.setMeta(userKey, false)
	if err != nil || !exists {
		return false, err
	}
	_, err = e.setDB.Get(SetMemberKey(userKey, m.Version, member))
	return err == nil, nil
}

// SCard returns the number of members (0 if absent).
func (e *Engine) SCard(userKey []byte) (int, error) {
	m, exists, err := e.setMeta(userKey, false)
	if err != nil || !exists {
		return 0, err
	}
	return int(m.Count), nil
}
