package storage

import "nimbis/internal/nimbiserr"

func (e *Engine) listMeta(userKey []byte, create bool) (ListMeta, bool, error) {
	metaKey := MetaKey(userKey)
	data, exists, err := requireType(e.stringDB, metaKey, TypeList)
	if err != nil {
		return ListMeta{}, false, err
	}
	if exists {
		m, err := DecodeListMeta(data)
		return m, true, err
	}
	if !create {
		return ListMeta{}, false, nil
	}
	mid := ListSeqMiddle()
	return ListMeta{Version: e.nextVersion(), Head: mid, Tail: mid}, false, nil
}

func (e *Engine) putListMeta(userKey []byte, m ListMeta) error {
	if err := e.stringDB.Set(MetaKey(userKey), EncodeListMeta(m)); err != nil {
		return nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return nil
}

// LPush prepends elements (in argument order, so the last element ends up at the head)
// and returns the new length.
func (e *Engine) LPush(userKey []byte, elements [][]byte) (int, error) {
	m, _, err := e.listMeta(userKey, true)
	if err != nil {
		return 0, err
	}
	wb := e.listDB.NewWriteBatch()
	for _, el := range elements {
		m.Head--
		wb.Set(ListElementKey(userKey, m.Version, m.Head), el)
		m.Len++
	}
	if err := wb.Commit(); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return int(m.Len), e.putListMeta(userKey, m)
}

// RPush appends elements and returns the new length.
func (e *Engine) RPush(userKey []byte, elements [][]byte) (int, error) {
	m, _, err := e.listMeta(userKey, true)
	if err != nil {
		return 0, err
	}
	wb := e.listDB.NewWriteBatch()
	for _, el := range elements {
		wb.Set(ListElementKey(userKey, m.Version, m.Tail), el)
		m.Tail++
		m.Len++
	}
	if err := wb.Commit(); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return int(m.Len), e.putListMeta(userKey, m)
}

// LPop removes and returns up to count elements from the head.
func (e *Engine) LPop(userKey []byte, count int) ([][]byte, error) {
	m, exists, err := e.listMeta(userKey, false)
	if err != nil || !exists || m.Len == 0 {
		return nil, err
	}
	wb := e.listDB.NewWriteBatch()
	var popped [][]byte
	for i := 0; i < count && m.Len > 0; i++ {
		key := ListElementKey(userKey, m.Version, m.Head)
		val, err := e.listDB.Get(key)
		if err != nil {
			break
		}
		popped = append(popped, val)
		wb.Delete(key)
		m.Head++
		m.Len--
	}
	if len(popped) == 0 {
		return nil, nil
	}
	if err := wb.Commit(); err != nil {
		return nil, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	if m.Len == 0 {
		e.Del(userKey)
		return popped, nil
	}
	return popped, e.putListMeta(userKey, m)
}

// RPop removes and returns up to count elements from the tail, in pop order (most
// recently appended first).
func (e *Engine) RPop(userKey []byte, count int) ([][]byte, error) {
	m, exists, err := e.listMeta(userKey, false)
	if err != nil || !exists || m.Len == 0 {
		return nil, err
	}
	wb := e.listDB.NewWriteBatch()
	var popped [][]byte
	for i := 0; i < count && m.Len > 0; i++ {
		m.Tail--
		key := ListElementKey(userKey, m.Version, m.Tail)
		val, err := e.listDB.Get(key)
		if err != nil {
			m.Tail++
			break
		}
		popped = append(popped, val)
		wb.Delete(key)
		m.Len--
	}
	if len(popped) == 0 {
		return nil, nil
	}
	if err := wb.Commit(); err != nil {
		return nil, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	if m.Len == 0 {
		e.Del(userKey)
		return popped, nil
	}
	return popped, e.putListMeta(userKey, m)
}

// LLen returns the list's length (0 if absent).
func (e *Engine) LLen(userKey []byte) (int, error) {
	m, exists, err := e.listMeta(userKey, false)
	if err != nil || !exists {
		return 0, err
	}
	return int(m.Len), nil
}

// LRange returns elements in [start, stop], supporting negative indices counted from the
// tail, clamped to the list's bounds.
func (e *Engine) LRange(userKey []byte, start, stop int) ([][]byte, error) {
	m, exists, err := e.listMeta(userKey, false)
	if err != nil || !exists || m.Len == 0 {
		return nil, err
	}
	length := int(m.Len)
	start = normalizeIndex(start, length)
	stop = normalizeIndex(stop, length)
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || start >= length {
		return nil, nil
	}
	var result [][]byte
	for i := start; i <= stop; i++ {
		seq := m.Head + uint64(i)
		val, err := e.listDB.Get(ListElementKey(userKey, m.Version, seq))
		if err != nil {
			continue
		}
		result = append(result, val)
	}
	return result, nil
}

func normalizeIndex(idx, length int) int {
	if idx < 0 {
		idx += length
	}
	return idx
}
