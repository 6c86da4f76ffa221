package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRegularNonCompactRoundTrip(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{
		Kind:        int32(2), // Rename, numerically, but wire is kind-agnostic
		ProducerPID: 4242,
		Timestamp:   99,
		Regular: &RegularFields{
			Path:     "/a/b",
			Device:   7,
			Inode:    99,
			Mode:     0o644,
			UID:      501,
			DocOrGID: 123,
		},
	})

	decoded, err := Decode(rec)
	require.NoError(t, err)
	require.Equal(t, int32(2), decoded.Kind)
	require.EqualValues(t, 4242, decoded.ProducerPID)
	require.Equal(t, decoded.Consumed, len(rec), "a single record must consume exactly its own bytes")

	require.Len(t, decoded.Fields, 7) // path, dev, ino, mode, uid, gid(docid), timestamp
	require.Equal(t, "/a/b", decoded.Fields[0].String())
	require.Equal(t, ArgDev, decoded.Fields[1].Tag)
	require.EqualValues(t, 7, decoded.Fields[1].Uint64())
	require.Equal(t, ArgIno, decoded.Fields[2].Tag)
	require.EqualValues(t, 99, decoded.Fields[2].Uint64())
	require.Equal(t, ArgMode, decoded.Fields[3].Tag)
	require.EqualValues(t, 0o644, decoded.Fields[3].Int32())
	require.Equal(t, ArgUID, decoded.Fields[4].Tag)
	require.EqualValues(t, 501, decoded.Fields[4].Int32())
	require.Equal(t, ArgGID, decoded.Fields[5].Tag, "doc_id is repurposed onto the GID tag per the non-compact encoding")
	require.EqualValues(t, 123, decoded.Fields[5].Int64())
}

func TestEncodeDecodeRegularCompactFinfoBlob(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{
		Kind: 0,
		Regular: &RegularFields{
			Path:     "/x",
			Compact:  true,
			Device:   1,
			Inode:    2,
			Mode:     3,
			UID:      4,
			DocOrGID: 5,
		},
	})
	decoded, err := Decode(rec)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 3) // path, one ARG_FINFO blob, timestamp
	require.Equal(t, ArgFinfo, decoded.Fields[1].Tag)
	require.Len(t, decoded.Fields[1].Value, 8+8+4+4+8)
}

func TestEncodeRegularZeroDevInoStopsAfterPath(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{
		Regular: &RegularFields{Path: "/z", ZeroDevIno: true},
	})
	decoded, err := Decode(rec)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 2, "dev/ino are both zero: only path and the trailing timestamp")
}

func TestEncodeRegularRecursesIntoDest(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{
		Regular: &RegularFields{
			Path:   "/src",
			Device: 1, Inode: 1, Mode: 1, UID: 1, DocOrGID: 1,
			Dest: &RegularFields{
				Path:   "/dst",
				Device: 2, Inode: 2, Mode: 2, UID: 2, DocOrGID: 2,
			},
		},
	})
	decoded, err := Decode(rec)
	require.NoError(t, err)
	// source(6) + dest(6) + timestamp(1) = 13
	require.Len(t, decoded.Fields, 13)
	require.Equal(t, "/src", decoded.Fields[0].String())
	require.Equal(t, "/dst", decoded.Fields[6].String())
}

func TestEncodeDecodeDocId(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{
		DocId: &DocIdFields{Device: 1, SrcInode: 2, DstInode: 3, DocID: 4},
	})
	decoded, err := Decode(rec)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 5)
	require.Equal(t, ArgDev, decoded.Fields[0].Tag)
	require.Equal(t, ArgIno, decoded.Fields[1].Tag)
	require.Equal(t, ArgIno, decoded.Fields[2].Tag)
	require.Equal(t, ArgInt64, decoded.Fields[3].Tag)
	require.EqualValues(t, 4, decoded.Fields[3].Int64())
}

func TestEncodeDecodeActivity(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{
		Activity: &ActivityFields{
			Version: 1, Device: 2, Inode: 3, Origin: 4, Age: 5, UseState: 6, Urgency: 7, Size: 8,
		},
	})
	decoded, err := Decode(rec)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 9)
}

func TestEncodeDecodeAccessGranted(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{
		Access: &AccessFields{Path: "/secure", AuditToken: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}},
	})
	decoded, err := Decode(rec)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 3)
	require.Equal(t, "/secure", decoded.Fields[0].String())
	require.Equal(t, ArgAuditToken, decoded.Fields[1].Tag)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, decoded.Fields[1].Value)
}

func TestEncodeDecodeUnmountPending(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{Unmount: &UnmountFields{Device: 42}})
	decoded, err := Decode(rec)
	require.NoError(t, err)
	require.Len(t, decoded.Fields, 2)
	require.EqualValues(t, 42, decoded.Fields[0].Uint64())
}

func TestEncodeExtendedFlagsPackIntoKind(t *testing.T) {
	enc := NewEncoder()
	rec := enc.Encode(Event{
		Kind: 5, WantsExtended: true, CombinedEvents: true, ContainsDropped: true,
		Unmount: &UnmountFields{Device: 1},
	})
	decoded, err := Decode(rec)
	require.NoError(t, err)
	require.NotEqual(t, int32(5), decoded.Kind, "extended flag bits must be packed into the kind field")
	require.Equal(t, int32(5)|combinedEventsBit|containsDroppedBit, decoded.Kind)
}

func TestDecodeAllMultipleRecordsAndTrailingBytes(t *testing.T) {
	enc := NewEncoder()
	rec1 := enc.Encode(Event{Kind: 1, Unmount: &UnmountFields{Device: 1}})
	rec2 := enc.Encode(Event{Kind: 2, Unmount: &UnmountFields{Device: 2}})

	buf := append(append([]byte{}, rec1...), rec2...)
	buf = append(buf, 0xFF, 0xFF) // a truncated trailing field header

	records, trailing := DecodeAll(buf)
	require.Len(t, records, 2)
	require.Equal(t, 2, trailing)
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrShortBuffer)
}
