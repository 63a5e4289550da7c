package storage

import (
	"encoding/binary"

	"nimbis/internal/nimbiserr"
)

func (e *Engine) zsetMeta(userKey []byte, create bool) (CollectionMeta, bool, error) {
	metaKey := MetaKey(userKey)
	data, exists, err := requireType(e.stringDB, metaKey, TypeZSet)
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
	return CollectionMeta{TypeCode: TypeZSet, Version: e.nextVersion()}, false, nil
}

func (e *Engine) putZSetMeta(userKey []byte, m CollectionMeta) error {
	if err := e.stringDB.Set(MetaKey(userKey), EncodeCollectionMeta(m)); err != nil {
		return nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return nil
}

// ZAdd sets scores[i] for members[i], returning how many members were newly added.
// Re-adding an existing member with a different score relocates its score-index entry.
func (e *Engine) ZAdd(userKey []byte, scores []float64, members [][]byte) (int, error) {
	m, _, err := e.zsetMeta(userKey, true)
	if err != nil {
		return 0, err
	}
	added := 0
	pending := make(map[string]float64, len(members))
	wb := e.zsetDB.NewWriteBatch()
	for i, member := range members {
		score := scores[i]
		memberKey := ZMemberKey(userKey, m.Version, member)
		if prevScore, ok := pending[string(member)]; ok {
			if prevScore != score {
				wb.Delete(ZScoreKey(userKey, m.Version, EncodeSortableScore(prevScore), member))
			}
		} else if prev, err := e.zsetDB.Get(memberKey); err == nil {
			prevScore := DecodeSortableScore(binary.BigEndian.Uint64(prev))
			if prevScore != score {
				wb.Delete(ZScoreKey(userKey, m.Version, EncodeSortableScore(prevScore), member))
			}
		} else {
			added++
			m.Count++
		}
		pending[string(member)] = score
		encoded := EncodeSortableScore(score)
		wb.Set(memberKey, encodedBytes(encoded))
		wb.Set(ZScoreKey(userKey, m.Version, encoded, member), nil)
	}
	if err := wb.Commit(); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	return added, e.putZSetMeta(userKey, m)
}

// ZScore returns the score of member, or (0, false) if absent.
func (e *Engine) ZScore(userKey, member []byte) (float64, bool, error) {
	m, exists, err := e.zsetMeta(userKey, false)
	if err != nil || !exists {
		return 0, false, err
	}
	data, err := e.zsetDB.Get(ZMemberKey(userKey, m.Version, member))
	if err != nil {
		return 0, false, nil
	}
	return DecodeSortableScore(binary.BigEndian.Uint64(data)), true, nil
}

// ZRem removes members, returning how many were actually present.
func (e *Engine) ZRem(userKey []byte, members [][]byte) (int, error) {
	m, exists, err := e.zsetMeta(userKey, false)
	if err != nil || !exists {
		return 0, err
	}
	removed := 0
	seen := make(map[string]bool, len(members))
	wb := e.zsetDB.NewWriteBatch()
	for _, member := range members {
		if seen[string(member)] {
			continue
		}
		seen[string(member)] = true
		memberKey := ZMemberKey(userKey, m.Version, member)
		data, err := e.zsetDB.Get(memberKey)
		if err != nil {
			continue
		}
		removed++
		m.Count--
		score := binary.BigEndian.Uint64(data)
		wb.Delete(memberKey)
		wb.Delete(ZScoreKey(userKey, m.Version, score, member))
	}
	if removed == 0 {
		return 0, nil
	}
	if err := wb.Commit(); err != nil {
		return 0, nimbiserr.Storage(nimbiserr.CodeEngineError, err)
	}
	if m.Count == 0 {
		e.Del(userKey)
		return removed, nil
	}
	return removed, e.putZSetMeta(userKey, m)
}

// ZCard returns the number of members (0 if absent).
func (e *Engine) ZCard(userKey []byte) (int, error) {
	m, exists, err := e.zsetMeta(userKey, false)
	if err != nil || !exists {
		return 0, err
	}
	return int(m.Count), nil
}

// ZRangeEntry is one member/score pair in rank order.
type ZRangeEntry struct {
	Member []byte
	Score  float64
}

// ZRange returns members in ascending score order over [start, stop] (negative indices
// counted from the tail), the score-key's natural byte order already matching ascending
// numeric order via EncodeSortableScore.
func (e *Engine) ZRange(userKey []byte, start, stop int) ([]ZRangeEntry, error) {
	m, exists, err := e.zsetMeta(userKey, false)
	if err != nil || !exists || m.Count == 0 {
		return nil, err
	}
	length := int(m.Count)
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

	prefixLen := DataPrefixLen(userKey)
	scorePrefix := append(VersionPrefix(userKey, m.Version), zsetScoreTag)
	it := e.zsetDB.NewIterator(scorePrefix)
	defer it.Close()
	var entries []ZRangeEntry
	idx := 0
	for it.Next() {
		if idx > stop {
			break
		}
		if idx >= start {
			key := it.Key()
			encoded := binary.BigEndian.Uint64(key[prefixLen+1 : prefixLen+1+8])
			entries = append(entries, ZRangeEntry{
				Member: ZScoreKeyMember(key, prefixLen),
				Score:  DecodeSortableScore(encoded),
			})
		}
		idx++
	}
	return entries, nil
}

func encodedBytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
