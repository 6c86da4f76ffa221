// Package wire implements the tagged TLV framing of spec.md §4.6: each
// event is a 32-bit kind, a 32-bit producer pid (both untagged), then a
// sequence of 16-bit-tag / 16-bit-length fields terminated by ARG_DONE.
//
// Wire endianness is frozen to little-endian for build reproducibility
// (spec.md §9 Open Question (a): "native endianness per build" is
// undefined across architectures; this module pins one encoding rather
// than varying it, see SPEC_FULL.md §5).
package wire

// Tag identifies a TLV field kind.
type Tag uint16

const (
	ArgDone Tag = iota
	ArgDev
	ArgIno
	ArgInt32
	ArgInt64
	ArgString
	ArgAuditToken
	ArgFinfo
	ArgMode
	ArgUID
	ArgGID
)

// MaxRecordSize is the largest a single encoded event may be; Delivery
// requires at least this many bytes of free buffer before attempting to
// encode an event (spec.md §4.5: "Require >= 2048 bytes").
const MaxRecordSize = 2048

// ScratchSize is the encoder's internal working buffer size (spec.md
// §4.6: "internal scratch (>= 512 bytes)").
const ScratchSize = 512

// tagHeaderSize is 2 bytes tag + 2 bytes length.
const tagHeaderSize = 4
