package wire

import "encoding/binary"

// RegularFields is the wire shape for CreateFile/Delete/Rename/Exchange/
// Clone/StatChanged/ContentModified/FinderInfoChanged/XattrModified/
// Chown (spec.md §4.6's Regular row).
type RegularFields struct {
	Path string
	// ZeroDevIno, when true, means (dev,ino)==(0,0): stop after the path
	// field with no further tags for this payload.
	ZeroDevIno bool
	Compact    bool
	Device     uint64
	Inode      uint64
	Mode       uint32
	UID        uint32
	// DocOrGID carries the document id in the non-compact encoding,
	// emitted under the ARG_GID tag per spec.md §9 Open Question (b):
	// consumers must read this by position, not by tag name.
	DocOrGID uint64
	// Dest, when non-nil, is recursed into before the trailer (the
	// Rename/Exchange/Clone destination).
	Dest *RegularFields
}

// DocIdFields is the wire shape for DocIdCreated/DocIdChanged.
type DocIdFields struct {
	Device   uint64
	SrcInode uint64
	DstInode uint64
	DocID    uint64
}

// ActivityFields is the wire shape for Activity.
type ActivityFields struct {
	Version  int32
	Device   uint64
	Inode    uint64
	Origin   int64
	Age      int64
	UseState int32
	Urgency  int32
	Size     int64
}

// AccessFields is the wire shape for AccessGranted.
type AccessFields struct {
	Path       string
	AuditToken [8]byte
}

// UnmountFields is the wire shape for UnmountPending.
type UnmountFields struct {
	Device uint64
}

// Event is the decoupled, wire-ready representation of a broker.Event:
// the encoder package does not import the broker package so that the
// broker can depend on wire without a cycle.
type Event struct {
	Kind             int32
	ProducerPID      int32
	Timestamp        int64
	WantsExtended    bool
	CombinedEvents   bool
	ContainsDropped  bool

	Regular  *RegularFields
	DocId    *DocIdFields
	Activity *ActivityFields
	Access   *AccessFields
	Unmount  *UnmountFields
}

// Encoder builds one TLV record at a time into an internal scratch
// buffer, then copies the whole record out atomically — per spec.md
// §4.6, "each record is atomic: either fully emitted or not at all".
type Encoder struct {
	scratch []byte
}

// NewEncoder returns an Encoder with the spec-mandated minimum internal
// scratch capacity.
func NewEncoder() *Encoder {
	return &Encoder{scratch: make([]byte, 0, ScratchSize)}
}

// Encode renders ev as a complete TLV record and returns its bytes. The
// returned slice is a fresh copy of the Encoder's scratch buffer, so it
// stays valid after later calls to Encode.
func (e *Encoder) Encode(ev Event) []byte {
	e.scratch = e.scratch[:0]

	kind := ev.Kind
	if ev.WantsExtended {
		if ev.CombinedEvents {
			kind |= combinedEventsBit
		}
		if ev.ContainsDropped {
			kind |= containsDroppedBit
		}
	}
	e.putInt32(kind)
	e.putInt32(ev.ProducerPID)

	switch {
	case ev.DocId != nil:
		e.tagDev(ev.DocId.Device)
		e.tagIno(ev.DocId.SrcInode)
		e.tagIno(ev.DocId.DstInode)
		e.tagInt64(ArgInt64, int64(ev.DocId.DocID))
	case ev.Unmount != nil:
		e.tagDev(ev.Unmount.Device)
	case ev.Activity != nil:
		a := ev.Activity
		e.tagInt32(a.Version)
		e.tagDev(a.Device)
		e.tagIno(a.Inode)
		e.tagInt64(ArgInt64, a.Origin)
		e.tagInt64(ArgInt64, a.Age)
		e.tagInt32(a.UseState)
		e.tagInt32(a.Urgency)
		e.tagInt64(ArgInt64, a.Size)
	case ev.Access != nil:
		e.tagString(ev.Access.Path)
		e.tagAuditToken(ev.Access.AuditToken)
	case ev.Regular != nil:
		e.encodeRegular(ev.Regular)
	}

	e.tagInt64(ArgInt64, ev.Timestamp)
	e.putTag(ArgDone, nil)

	out := make([]byte, len(e.scratch))
	copy(out, e.scratch)
	return out
}

// combinedEventsBit / containsDroppedBit occupy the upper bits of the
// 32-bit kind field when WantsExtended is set (spec.md §4.6).
const (
	combinedEventsBit int32 = 1 << 30
	containsDroppedBit int32 = -1 << 31 // bit 31, the int32 sign bit
)

func (e *Encoder) encodeRegular(r *RegularFields) {
	e.tagString(r.Path)
	if r.ZeroDevIno {
		return
	}
	if r.Compact {
		finfo := make([]byte, 8+8+4+4+8)
		o := 0
		binary.LittleEndian.PutUint64(finfo[o:], r.Device)
		o += 8
		binary.LittleEndian.PutUint64(finfo[o:], r.Inode)
		o += 8
		binary.LittleEndian.PutUint32(finfo[o:], r.Mode)
		o += 4
		binary.LittleEndian.PutUint32(finfo[o:], r.UID)
		o += 4
		binary.LittleEndian.PutUint64(finfo[o:], r.DocOrGID)
		e.putTag(ArgFinfo, finfo)
	} else {
		e.tagDev(r.Device)
		e.tagIno(r.Inode)
		e.tagInt32Raw(ArgMode, int32(r.Mode))
		e.tagInt32Raw(ArgUID, int32(r.UID))
		// GID tag repurposed to carry document_id, by position only.
		e.tagInt64(ArgGID, int64(r.DocOrGID))
	}
	if r.Dest != nil {
		e.encodeRegular(r.Dest)
	}
}

func (e *Encoder) putInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.scratch = append(e.scratch, b[:]...)
}

func (e *Encoder) putTag(tag Tag, value []byte) {
	var hdr [tagHeaderSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(tag))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(value)))
	e.scratch = append(e.scratch, hdr[:]...)
	e.scratch = append(e.scratch, value...)
}

func (e *Encoder) tagDev(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.putTag(ArgDev, b[:])
}

func (e *Encoder) tagIno(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.putTag(ArgIno, b[:])
}

func (e *Encoder) tagInt32(v int32) {
	e.tagInt32Raw(ArgInt32, v)
}

func (e *Encoder) tagInt32Raw(tag Tag, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.putTag(tag, b[:])
}

func (e *Encoder) tagInt64(tag Tag, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.putTag(tag, b[:])
}

func (e *Encoder) tagString(s string) {
	b := append([]byte(s), 0) // nul-terminated, matching the §6 write() format
	e.putTag(ArgString, b)
}

func (e *Encoder) tagAuditToken(tok [8]byte) {
	e.putTag(ArgAuditToken, tok[:])
}
