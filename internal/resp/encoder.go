package resp

import (
	"math"
	"strconv"
)

// Encode renders v to its wire bytes. Capacity for integers and bulk frames is
// pre-computed to minimize reallocation, per the codec's design contract.
func Encode(v Value) []byte {
	var buf growBuffer
	buf.Reserve(estimateSize(v))
	EncodeInto(&buf, v)
	return buf.Bytes()
}

// EncodeInto appends v's wire encoding to buf.
func EncodeInto(buf *growBuffer, v Value) {
	switch v.Type {
	case TypeSimpleString:
		appendLine(buf, '+', v.Str)
	case TypeError:
		appendLine(buf, '-', v.Str)
	case TypeInteger:
		buf.WriteByte(':')
		appendInt(buf, v.Int)
		appendCRLF(buf)
	case TypeBulkString:
		appendBulk(buf, '$', v.Str)
	case TypeBulkError:
		appendBulk(buf, '!', v.Str)
	case TypeBigNumber:
		appendBulk(buf, '(', v.Str)
	case TypeVerbatimString:
		payload := make([]byte, 0, 4+len(v.Str))
		payload = append(payload, v.VEnc[:]...)
		payload = append(payload, ':')
		payload = append(payload, v.Str...)
		appendBulk(buf, '=', payload)
	case TypeNull:
		buf.Write([]byte("$-1\r\n"))
	case TypeBoolean:
		buf.WriteByte('#')
		if v.Bool {
			buf.WriteByte('t')
		} else {
			buf.WriteByte('f')
		}
		appendCRLF(buf)
	case TypeDouble:
		buf.WriteByte(',')
		buf.Write(FormatDouble(v.Dbl))
		appendCRLF(buf)
	case TypeArray:
		appendAggregateHeader(buf, '*', len(v.Elems))
		for _, e := range v.Elems {
			EncodeInto(buf, e)
		}
	case TypeSet:
		appendAggregateHeader(buf, '~', len(v.Elems))
		for _, e := range v.Elems {
			EncodeInto(buf, e)
		}
	case TypePush:
		appendAggregateHeader(buf, '>', len(v.Elems))
		for _, e := range v.Elems {
			EncodeInto(buf, e)
		}
	case TypeMap:
		appendAggregateHeader(buf, '%', len(v.Elems)/2)
		for _, e := range v.Elems {
			EncodeInto(buf, e)
		}
	}
}

func appendLine(buf *growBuffer, marker byte, data []byte) {
	buf.WriteByte(marker)
	buf.Write(data)
	appendCRLF(buf)
}

func appendBulk(buf *growBuffer, marker byte, data []byte) {
	buf.WriteByte(marker)
	appendInt(buf, int64(len(data)))
	appendCRLF(buf)
	buf.Write(data)
	appendCRLF(buf)
}

func appendAggregateHeader(buf *growBuffer, marker byte, n int) {
	buf.WriteByte(marker)
	appendInt(buf, int64(n))
	appendCRLF(buf)
}

func appendCRLF(buf *growBuffer) {
	buf.Write([]byte{'\r', '\n'})
}

func appendInt(buf *growBuffer, i int64) {
	var scratch [20]byte
	buf.Write(strconv.AppendInt(scratch[:0], i, 10))
}

// FormatDouble renders a float64 the way RESP3 doubles are written on the wire,
// including the inf/-inf/nan special forms, choosing 'e' vs 'f' notation by magnitude.
// Exported so callers formatting scores/floats for RESP2 bulk strings (e.g. ZSCORE,
// ZRANGE WITHSCORES) match the wire's own float rendering instead of Go's +Inf/-Inf.
func FormatDouble(v float64) []byte {
	switch {
	case math.IsNaN(v):
		return []byte("nan")
	case math.IsInf(v, 1):
		return []byte("inf")
	case math.IsInf(v, -1):
		return []byte("-inf")
	}
	mode := byte('f')
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		mode = 'e'
	}
	return strconv.AppendFloat(nil, v, mode, -1, 64)
}

// estimateSize gives a cheap upper-bound-ish estimate to pre-size the output buffer,
// avoiding reallocation for the common scalar cases.
func estimateSize(v Value) int {
	switch v.Type {
	case TypeInteger:
		return 22
	case TypeBulkString, TypeBulkError, TypeBigNumber:
		return len(v.Str) + 16
	case TypeVerbatimString:
		return len(v.Str) + 24
	case TypeSimpleString, TypeError:
		return len(v.Str) + 3
	case TypeNull, TypeBoolean:
		return 8
	case TypeDouble:
		return 32
	case TypeArray, TypeSet, TypePush, TypeMap:
		n := 16
		for _, e := range v.Elems {
			n += estimateSize(e)
		}
		return n
	}
	return 16
}
