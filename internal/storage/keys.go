// Package storage implements the Redis data-type storage layer: key/value codecs, the
// MetaRecord/DataRecord model, TTL and versioning, and the typed per-type operations
// StorageEngine exposes to the command layer.
package storage

import (
	"encoding/binary"
	"math"
)

// listSeqMiddle is the starting sequence number for list elements: LPUSH decrements
// from here, RPUSH increments from here, keeping room to grow in both directions
// without renumbering.
const listSeqMiddle uint64 = 1 << 63

// MetaKey builds the string_db key holding a user key's MetaRecord: len16(user_key) ||
// user_key. String values share this same key (the meta record's payload IS the value
// for type 's').
func MetaKey(userKey []byte) []byte {
	buf := make([]byte, 2+len(userKey))
	binary.BigEndian.PutUint16(buf, uint16(len(userKey)))
	copy(buf[2:], userKey)
	return buf
}

// dataKeyPrefix builds the common len16(user_key)||user_key||version(u64) prefix shared
// by every non-string DataRecord key.
func dataKeyPrefix(userKey []byte, version uint64) []byte {
	buf := make([]byte, 2+len(userKey)+8)
	binary.BigEndian.PutUint16(buf, uint16(len(userKey)))
	copy(buf[2:], userKey)
	binary.BigEndian.PutUint64(buf[2+len(userKey):], version)
	return buf
}

// VersionPrefix returns the key prefix covering every DataRecord of userKey at version
// (all fields/members/elements of one incarnation), used for prefix-scoped range scans.
func VersionPrefix(userKey []byte, version uint64) []byte {
	return dataKeyPrefix(userKey, version)
}

// KeyPrefix returns the prefix covering ALL records (any version) for userKey. No
// operation in this package calls it; correctness never depends on it.
func KeyPrefix(userKey []byte) []byte {
	buf := make([]byte, 2+len(userKey))
	binary.BigEndian.PutUint16(buf, uint16(len(userKey)))
	copy(buf[2:], userKey)
	return buf
}

// ExtractUserKeyAndVersion parses the common len16||user_key||version prefix shared by
// every non-string DataRecord key, regardless of data type. Used by the compaction filter
// to decide whether a record is still live.
func ExtractUserKeyAndVersion(key []byte) (userKey []byte, version uint64, ok bool) {
	if len(key) < 2 {
		return nil, 0, false
	}
	ulen := int(binary.BigEndian.Uint16(key))
	if len(key) < 2+ulen+8 {
		return nil, 0, false
	}
	userKey = key[2 : 2+ulen]
	version = binary.BigEndian.Uint64(key[2+ulen : 2+ulen+8])
	return userKey, version, true
}

// DataPrefixLen returns the length of the common len16||user_key||version prefix for a
// given user key, i.e. the offset at which type-specific key suffix data begins.
func DataPrefixLen(userKey []byte) int { return 2 + len(userKey) + 8 }

func HashFieldKey(userKey []byte, version uint64, field []byte) []byte {
	prefix := dataKeyPrefix(userKey, version)
	buf := make([]byte, len(prefix)+4+len(field))
	n := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[n:], uint32(len(field)))
	copy(buf[n+4:], field)
	return buf
}

// HashField extracts the field name from a HashFieldKey, given the known prefix length.
func HashField(key []byte, prefixLen int) []byte {
	flen := binary.BigEndian.Uint32(key[prefixLen:])
	return key[prefixLen+4 : prefixLen+4+int(flen)]
}

func SetMemberKey(userKey []byte, version uint64, member []byte) []byte {
	prefix := dataKeyPrefix(userKey, version)
	buf := make([]byte, len(prefix)+4+len(member))
	n := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[n:], uint32(len(member)))
	copy(buf[n+4:], member)
	return buf
}

func SetMember(key []byte, prefixLen int) []byte {
	mlen := binary.BigEndian.Uint32(key[prefixLen:])
	return key[prefixLen+4 : prefixLen+4+int(mlen)]
}

func ListElementKey(userKey []byte, version uint64, seq uint64) []byte {
	prefix := dataKeyPrefix(userKey, version)
	buf := make([]byte, len(prefix)+8)
	n := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[n:], seq)
	return buf
}

// ListSeqMiddle is exported for the list meta initializer.
func ListSeqMiddle() uint64 { return listSeqMiddle }

const (
	zsetMemberTag byte = 'M'
	zsetScoreTag  byte = 'S'
)

func ZMemberKey(userKey []byte, version uint64, member []byte) []byte {
	prefix := dataKeyPrefix(userKey, version)
	buf := make([]byte, len(prefix)+1+4+len(member))
	n := copy(buf, prefix)
	buf[n] = zsetMemberTag
	n++
	binary.BigEndian.PutUint32(buf[n:], uint32(len(member)))
	copy(buf[n+4:], member)
	return buf
}

func ZMember(key []byte, prefixLen int) []byte {
	mlen := binary.BigEndian.Uint32(key[prefixLen+1:])
	return key[prefixLen+1+4 : prefixLen+1+4+int(mlen)]
}

func ZScoreKey(userKey []byte, version uint64, encodedScore uint64, member []byte) []byte {
	prefix := dataKeyPrefix(userKey, version)
	buf := make([]byte, len(prefix)+1+8+len(member))
	n := copy(buf, prefix)
	buf[n] = zsetScoreTag
	n++
	binary.BigEndian.PutUint64(buf[n:], encodedScore)
	copy(buf[n+8:], member)
	return buf
}

func ZScoreKeyMember(key []byte, prefixLen int) []byte {
	return key[prefixLen+1+8:]
}

// EncodeSortableScore maps a float64 to a uint64 whose ascending byte order matches
// ascending numeric order, including ±∞ and -0.0.
func EncodeSortableScore(score float64) uint64 {
	bits := math.Float64bits(score)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// DecodeSortableScore inverts EncodeSortableScore.
func DecodeSortableScore(encoded uint64) float64 {
	if encoded&(1<<63) != 0 {
		return math.Float64frombits(encoded &^ (1 << 63))
	}
	return math.Float64frombits(^encoded)
}
