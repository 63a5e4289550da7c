package storage

import (
	"bytes"
	"testing"
)

func TestStringMetaRoundTrip(t *testing.T) {
	m := StringMeta{Version: 7, Value: []byte("hello"), ExpireMs: 123456}
	data := EncodeStringMeta(m)
	got, err := DecodeStringMeta(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Version != m.Version || !bytes.Equal(got.Value, m.Value) || got.ExpireMs != m.ExpireMs {
		t.Fatalf("got %+v want %+v", got, m)
	}
}

func TestStringMetaEmptyValue(t *testing.T) {
	m := StringMeta{Version: 1, Value: nil, ExpireMs: 0}
	data := EncodeStringMeta(m)
	got, err := DecodeStringMeta(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Value) != 0 {
		t.Fatalf("got %q", got.Value)
	}
}

func TestCollectionMetaRoundTrip(t *testing.T) {
	m := CollectionMeta{TypeCode: TypeHash, Version: 3, Count: 5, ExpireMs: -1}
	data := EncodeCollectionMeta(m)
	got, err := DecodeCollectionMeta(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v want %+v", got, m)
	}
}

func TestListMetaRoundTrip(t *testing.T) {
	m := ListMeta{Version: 2, Len: 4, Head: ListSeqMiddle() - 2, Tail: ListSeqMiddle() + 1, ExpireMs: 0}
	data := EncodeListMeta(m)
	got, err := DecodeListMeta(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("got %+v want %+v", got, m)
	}
}

func TestPeekMetaTypeAndVersion(t *testing.T) {
	data := EncodeCollectionMeta(CollectionMeta{TypeCode: TypeSet, Version: 9, Count: 1})
	code, err := PeekMetaType(data)
	if err != nil || code != TypeSet {
		t.Fatalf("code=%v err=%v", code, err)
	}
	version, err := PeekMetaVersion(data)
	if err != nil || version != 9 {
		t.Fatalf("version=%v err=%v", version, err)
	}
}

func TestPeekMetaTooShort(t *testing.T) {
	if _, err := PeekMetaType([]byte{1, 2}); err == nil {
		t.Fatalf("expected an error for a truncated record")
	}
}

func TestTypeName(t *testing.T) {
	cases := map[byte]string{
		TypeString: "string",
		TypeHash:   "hash",
		TypeList:   "list",
		TypeSet:    "set",
		TypeZSet:   "zset",
		0xFF:       "unknown",
	}
	for code, want := range cases {
		if got := TypeName(code); got != want {
			t.Errorf("TypeName(%v) = %q, want %q", code, got, want)
		}
	}
}
