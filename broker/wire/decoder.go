package wire

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned by Decode when buf does not contain a
// complete record.
var ErrShortBuffer = errors.New("wire: short buffer")

// Field is one decoded tag/value pair, exposed positionally since the
// GID tag is, by spec.md §9 Open Question (b), overloaded to carry
// document_id in the non-compact Regular encoding.
type Field struct {
	Tag   Tag
	Value []byte
}

// Record is one decoded event: the untagged kind/pid header plus the
// ordered list of tagged fields up to (not including) ArgDone.
type Record struct {
	Kind        int32
	ProducerPID int32
	Fields      []Field
	Consumed    int
}

// Decode parses exactly one record from the front of buf. It never
// reads past a complete ArgDone terminator. On a short/truncated buffer
// it returns ErrShortBuffer and consumes nothing, so callers can retry
// once more bytes arrive (mirrors the Delivery side's own
// buffer-boundary discipline).
func Decode(buf []byte) (Record, error) {
	if len(buf) < 8 {
		return Record{}, ErrShortBuffer
	}
	rec := Record{
		Kind:        int32(binary.LittleEndian.Uint32(buf[0:4])),
		ProducerPID: int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
	pos := 8
	for {
		if pos+tagHeaderSize > len(buf) {
			return Record{}, ErrShortBuffer
		}
		tag := Tag(binary.LittleEndian.Uint16(buf[pos : pos+2]))
		length := int(binary.LittleEndian.Uint16(buf[pos+2 : pos+4]))
		pos += tagHeaderSize
		if tag == ArgDone {
			rec.Consumed = pos
			return rec, nil
		}
		if pos+length > len(buf) {
			return Record{}, ErrShortBuffer
		}
		value := buf[pos : pos+length]
		rec.Fields = append(rec.Fields, Field{Tag: tag, Value: value})
		pos += length
	}
}

// DecodeAll decodes every complete record in buf, returning the
// records and the number of trailing bytes that did not form a
// complete record.
func DecodeAll(buf []byte) ([]Record, int) {
	var recs []Record
	pos := 0
	for pos < len(buf) {
		rec, err := Decode(buf[pos:])
		if err != nil {
			return recs, len(buf) - pos
		}
		recs = append(recs, rec)
		pos += rec.Consumed
	}
	return recs, 0
}

// String returns the nul-terminated string stored in an ArgString
// field's value, with the trailing nul stripped.
func (f Field) String() string {
	if len(f.Value) == 0 {
		return ""
	}
	if f.Value[len(f.Value)-1] == 0 {
		return string(f.Value[:len(f.Value)-1])
	}
	return string(f.Value)
}

// Uint64 decodes an 8-byte little-endian field value.
func (f Field) Uint64() uint64 {
	if len(f.Value) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(f.Value)
}

// Int64 decodes an 8-byte little-endian signed field value.
func (f Field) Int64() int64 {
	return int64(f.Uint64())
}

// Int32 decodes a 4-byte little-endian field value.
func (f Field) Int32() int32 {
	if len(f.Value) < 4 {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(f.Value))
}
