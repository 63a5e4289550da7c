// Package resp implements the RESP2/RESP3 wire codec: a resumable, zero-copy parser and a
// size-aware encoder, plus telnet-style inline command support.
package resp

// Type tags the variant held by a Value.
type Type byte

const (
	TypeSimpleString Type = iota
	TypeError
	TypeInteger
	TypeBulkString
	TypeArray
	TypeNull
	TypeBoolean
	TypeDouble
	TypeBigNumber
	TypeBulkError
	TypeVerbatimString
	TypeMap
	TypeSet
	TypePush
)

// Value is the tagged union described in the data model: every RESP2/RESP3 wire value.
//
// Bulk payloads (Str) are shared byte handles sliced directly from the parser's input
// buffer — see Parser for the zero-copy contract. Callers that need to retain a Value
// past the lifetime of the connection's read loop must copy Str themselves.
type Value struct {
	Type  Type
	Str   []byte  // SimpleString, Error, BulkString, BigNumber, BulkError payload
	Int   int64   // Integer
	Dbl   float64 // Double
	Bool  bool    // Boolean
	VEnc  [3]byte // VerbatimString 3-byte encoding tag (e.g. "txt", "mkd")
	Elems []Value // Array, Set, Push: ordered children. Map: flattened k0,v0,k1,v1,...

	// Fatal marks a TypeError reply whose cause means the connection must close after
	// this reply is written (a storage-engine failure, not a client mistake). It is a
	// dispatch-side signal only and is never put on the wire.
	Fatal bool
}

// Null is the shared RESP2/RESP3 null value.
var Null = Value{Type: TypeNull}

func SimpleString(s string) Value { return Value{Type: TypeSimpleString, Str: []byte(s)} }
func ErrorValue(s string) Value   { return Value{Type: TypeError, Str: []byte(s)} }

// FatalErrorValue builds an error reply that tells the connection handler to close the
// connection once this reply has been written.
func FatalErrorValue(s string) Value { return Value{Type: TypeError, Str: []byte(s), Fatal: true} }
func Integer(i int64) Value       { return Value{Type: TypeInteger, Int: i} }
func BulkString(b []byte) Value   { return Value{Type: TypeBulkString, Str: b} }
func BulkStringFromString(s string) Value {
	return Value{Type: TypeBulkString, Str: []byte(s)}
}
func Boolean(b bool) Value  { return Value{Type: TypeBoolean, Bool: b} }
func Double(f float64) Value { return Value{Type: TypeDouble, Dbl: f} }
func Array(elems []Value) Value {
	return Value{Type: TypeArray, Elems: elems}
}
func Push(elems []Value) Value { return Value{Type: TypePush, Elems: elems} }
func Set(elems []Value) Value  { return Value{Type: TypeSet, Elems: elems} }

// Map builds a Map value from ordered key/value pairs (flattened as k0,v0,k1,v1,...).
func Map(pairs ...Value) Value {
	return Value{Type: TypeMap, Elems: pairs}
}

// IsNil reports whether v represents "no value" (RESP2 null-bulk/null-array or RESP3 null).
func (v Value) IsNil() bool { return v.Type == TypeNull }
