package storage

import (
	"encoding/binary"
	"fmt"

	"nimbis/internal/nimbiserr"
)

// Type codes for MetaRecord.TypeCode.
const (
	TypeString byte = 's'
	TypeHash   byte = 'h'
	TypeList   byte = 'l'
	TypeSet    byte = 'S'
	TypeZSet   byte = 'z'
)

// metaFixedHeader is [type_code:1][version:8 BE].
const metaFixedHeader = 1 + 8

// PeekMetaType returns the type code of a raw MetaRecord without fully decoding it, for
// type-agnostic commands (EXISTS, TTL, EXPIRE, DEL) that only need "does it exist, and as
// what type".
func PeekMetaType(data []byte) (byte, error) {
	if len(data) < metaFixedHeader {
		return 0, nimbiserr.Storage(nimbiserr.CodeDecodeError, fmt.Errorf("meta record too short"))
	}
	return data[0], nil
}

func PeekMetaVersion(data []byte) (uint64, error) {
	if len(data) < metaFixedHeader {
		return 0, nimbiserr.Storage(nimbiserr.CodeDecodeError, fmt.Errorf("meta record too short"))
	}
	return binary.BigEndian.Uint64(data[1:9]), nil
}

// StringMeta is the decoded form of a MetaRecord with TypeCode 's': the value and
// expire_ms share the record with version; expire_ms lives in the last 8 bytes.
type StringMeta struct {
	Version  uint64
	Value    []byte
	ExpireMs int64
}

func EncodeStringMeta(m StringMeta) []byte {
	buf := make([]byte, metaFixedHeader+len(m.Value)+8)
	buf[0] = TypeString
	binary.BigEndian.PutUint64(buf[1:9], m.Version)
	copy(buf[9:9+len(m.Value)], m.Value)
	binary.BigEndian.PutUint64(buf[9+len(m.Value):], uint64(m.ExpireMs))
	return buf
}

func DecodeStringMeta(data []byte) (StringMeta, error) {
	if len(data) < metaFixedHeader+8 || data[0] != TypeString {
		return StringMeta{}, nimbiserr.Storage(nimbiserr.CodeDecodeError, fmt.Errorf("malformed string meta"))
	}
	version := binary.BigEndian.Uint64(data[1:9])
	value := data[9 : len(data)-8]
	expireMs := int64(binary.BigEndian.Uint64(data[len(data)-8:]))
	return StringMeta{Version: version, Value: value, ExpireMs: expireMs}, nil
}

// CollectionMeta is the decoded form for Hash/Set/ZSet ('h', 'S', 'z'): a fixed-size
// [type:1][version:8][count:8][expire_ms:8] record.
type CollectionMeta struct {
	TypeCode byte
	Version  uint64
	Count    uint64
	ExpireMs int64
}

const collectionMetaLen = metaFixedHeader + 8 + 8

func EncodeCollectionMeta(m CollectionMeta) []byte {
	buf := make([]byte, collectionMetaLen)
	buf[0] = m.TypeCode
	binary.BigEndian.PutUint64(buf[1:9], m.Version)
	binary.BigEndian.PutUint64(buf[9:17], m.Count)
	binary.BigEndian.PutUint64(buf[17:25], uint64(m.ExpireMs))
	return buf
}

func DecodeCollectionMeta(data []byte) (CollectionMeta, error) {
	if len(data) != collectionMetaLen {
		return CollectionMeta{}, nimbiserr.Storage(nimbiserr.CodeDecodeError, fmt.Errorf("malformed collection meta"))
	}
	return CollectionMeta{
		TypeCode: data[0],
		Version:  binary.BigEndian.Uint64(data[1:9]),
		Count:    binary.BigEndian.Uint64(data[9:17]),
		ExpireMs: int64(binary.BigEndian.Uint64(data[17:25])),
	}, nil
}

// ListMeta is the decoded form for Lists: [type:1][version:8][len:8][head:8][tail:8][expire_ms:8].
type ListMeta struct {
	Version  uint64
	Len      uint64
	Head     uint64
	Tail     uint64
	ExpireMs int64
}

const listMetaLen = metaFixedHeader + 8 + 8 + 8 + 8

func EncodeListMeta(m ListMeta) []byte {
	buf := make([]byte, listMetaLen)
	buf[0] = TypeList
	binary.BigEndian.PutUint64(buf[1:9], m.Version)
	binary.BigEndian.PutUint64(buf[9:17], m.Len)
	binary.BigEndian.PutUint64(buf[17:25], m.Head)
	binary.BigEndian.PutUint64(buf[25:33], m.Tail)
	binary.BigEndian.PutUint64(buf[33:41], uint64(m.ExpireMs))
	return buf
}

func DecodeListMeta(data []byte) (ListMeta, error) {
	if len(data) != listMetaLen || data[0] != TypeList {
		return ListMeta{}, nimbiserr.Storage(nimbiserr.CodeDecodeError, fmt.Errorf("malformed list meta"))
	}
	return ListMeta{
		Version:  binary.BigEndian.Uint64(data[1:9]),
		Len:      binary.BigEndian.Uint64(data[9:17]),
		Head:     binary.BigEndian.Uint64(data[17:25]),
		Tail:     binary.BigEndian.Uint64(data[25:33]),
		ExpireMs: int64(binary.BigEndian.Uint64(data[33:41])),
	}, nil
}

// TypeName renders a type code for WRONGTYPE-adjacent diagnostics/logging.
func TypeName(code byte) string {
	switch code {
	case TypeString:
		return "string"
	case TypeHash:
		return "hash"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	}
	return "unknown"
}
