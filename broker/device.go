package broker

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Device is the Go-native analogue of spec.md §6's control device: a
// single entry point restricted to privileged callers on open, from
// which per-consumer handles are cloned. The raw Device itself only
// accepts Write (producer records) and Clone; Read returns
// ErrNotSupportedOnRawDevice on it, matching the real char-device's
// EIO-on-raw-node behavior.
type Device struct {
	broker *Broker

	writeScratch []byte // preserves a partial trailing record across Write calls
}

// OpenDevice implements the §6 "restricted to the superuser on open"
// rule: owner must hold CapPrivilegedService. A nil owner is treated as
// unauthorized.
func OpenDevice(ctx context.Context, b *Broker, owner CredentialChecker) (*Device, error) {
	if owner == nil || !owner.TaskHas(ctx, CapPrivilegedService) {
		return nil, ErrPermissionDenied
	}
	return &Device{broker: b, writeScratch: make([]byte, 0, 4096)}, nil
}

// FileHandle is a cloned per-consumer handle (§6 "create a new file
// descriptor returning framed events on read").
type FileHandle struct {
	broker  *Broker
	watcher *Watcher
}

// CloneRequest mirrors the §6 clone ioctl input.
type CloneRequest struct {
	Interest   map[Kind]bool
	QueueDepth int
	Name       string
	PID        int32
	Owner      CredentialChecker
}

// Clone implements the §6 clone ioctl: registers a new watcher and
// returns a handle bound to it.
func (d *Device) Clone(ctx context.Context, req CloneRequest) (*FileHandle, error) {
	w, err := d.broker.AddWatcher(ctx, AddWatcherOpts{
		Interest:   req.Interest,
		QueueDepth: req.QueueDepth,
		Name:       req.Name,
		PID:        req.PID,
		Owner:      req.Owner,
	})
	if err != nil {
		return nil, err
	}
	return &FileHandle{broker: d.broker, watcher: w}, nil
}

// Read implements the §6 read contract for a cloned handle: ≥2048 byte
// buffer required (enforced inside Broker.Read), EAGAIN-equivalent on a
// second concurrent reader.
func (h *FileHandle) Read(ctx context.Context, buf []byte) (int, error) {
	return h.broker.Read(ctx, h.watcher, buf)
}

// Read on the raw device itself is rejected: a Device has no watcher of
// its own, only handles cloned from it deliver events.
func (d *Device) Read(ctx context.Context, buf []byte) (int, error) {
	return 0, ErrNotSupportedOnRawDevice
}

// Close unregisters the handle's watcher, draining its queue.
func (h *FileHandle) Close() error {
	return h.broker.RemoveWatcher(h.watcher.SlotID)
}

// WantCompact implements the §6 WantCompact ioctl.
func (h *FileHandle) WantCompact() { h.watcher.setFlag(WatcherWantsCompact) }

// WantExtended implements the §6 WantExtended ioctl.
func (h *FileHandle) WantExtended() { h.watcher.setFlag(WatcherWantsExtended) }

// GetCurrentID implements the §6 GetCurrentId ioctl.
func (h *FileHandle) GetCurrentID() int64 { return h.watcher.MaxEventID() }

// SetDeviceFilter implements the §6 DeviceFilter ioctl. An empty slice
// clears the filter.
func (h *FileHandle) SetDeviceFilter(devices []uint64) error {
	if len(devices) > 256 {
		return fmt.Errorf("fsbroker: %w: device filter exceeds 256 entries", ErrInvalidKind)
	}
	h.watcher.setDeviceFilter(devices)
	return nil
}

// AckUnmount implements the §6 UnmountPendingAck ioctl.
func (h *FileHandle) AckUnmount(dev uint64) error {
	return h.broker.AckUnmount(dev)
}

// fsInfo is the wire shape of the §6 write() producer record's
// embedded fse_info struct: inode, device, mode, uid, doc_id, nlink, as
// fixed-width little-endian fields (the same endianness freeze as the
// read-side wire encoder, see broker/wire).
type fsInfo struct {
	Inode  uint64
	Device uint64
	Mode   uint32
	UID    uint32
	DocID  uint64
	NLink  uint32
}

const fsInfoSize = 8 + 8 + 4 + 4 + 8 + 4 // 36 bytes

func decodeFsInfo(b []byte) (fsInfo, bool) {
	if len(b) < fsInfoSize {
		return fsInfo{}, false
	}
	var fi fsInfo
	fi.Inode = binary.LittleEndian.Uint64(b[0:8])
	fi.Device = binary.LittleEndian.Uint64(b[8:16])
	fi.Mode = binary.LittleEndian.Uint32(b[16:20])
	fi.UID = binary.LittleEndian.Uint32(b[20:24])
	fi.DocID = binary.LittleEndian.Uint64(b[24:32])
	fi.NLink = binary.LittleEndian.Uint32(b[32:36])
	return fi, true
}

// producerRecord is one parsed §6 write() record: {int32 kind; fse_info
// finfo; nul-terminated path; [fse_info finfo2; nul-terminated path2]}.
// The second finfo/path pair is present only for Rename/Exchange/Clone.
type producerRecord struct {
	Kind  Kind
	Info  fsInfo
	Path  string
	Info2 fsInfo
	Path2 string
	Paired bool
}

// Write implements spec.md §6's producer write API: a concatenation of
// packed records. A partial trailing record is preserved across calls
// via a 4 KiB scratch buffer, then each complete record is published
// through the broker the same way an in-kernel call would.
func (d *Device) Write(ctx context.Context, p []byte) (int, error) {
	d.writeScratch = append(d.writeScratch, p...)

	consumed := 0
	var publishErr error
	for {
		rec, n, ok := parseProducerRecord(d.writeScratch[consumed:])
		if !ok {
			break
		}
		consumed += n
		if err := d.publishRecord(ctx, rec); err != nil {
			publishErr = err
			break
		}
	}

	remaining := len(d.writeScratch) - consumed
	if remaining > 0 {
		copy(d.writeScratch, d.writeScratch[consumed:])
	}
	if publishErr != nil {
		d.writeScratch = d.writeScratch[:remaining]
		return len(p), publishErr
	}
	if remaining > 4096 {
		// Structural error per spec.md §7: an oversized unterminated
		// record cannot be accumulated forever. Drop the scratch and
		// return EINVAL from this Write.
		d.writeScratch = d.writeScratch[:0]
		return len(p), ErrInvalidKind
	}
	d.writeScratch = d.writeScratch[:remaining]

	return len(p), nil
}

// parseProducerRecord attempts to parse one record from buf, returning
// the number of bytes consumed. ok is false if buf holds an incomplete
// trailing record (caller should preserve the unconsumed bytes).
func parseProducerRecord(buf []byte) (producerRecord, int, bool) {
	if len(buf) < 4 {
		return producerRecord{}, 0, false
	}
	kind := Kind(int32(binary.LittleEndian.Uint32(buf[0:4])))
	off := 4

	info, ok := decodeFsInfo(buf[off:])
	if !ok {
		return producerRecord{}, 0, false
	}
	off += fsInfoSize

	path, n, ok := readCString(buf[off:])
	if !ok {
		return producerRecord{}, 0, false
	}
	off += n

	rec := producerRecord{Kind: kind, Info: info, Path: path}

	if kind == Rename || kind == Exchange || kind == Clone {
		info2, ok := decodeFsInfo(buf[off:])
		if !ok {
			return producerRecord{}, 0, false
		}
		off += fsInfoSize
		path2, n2, ok := readCString(buf[off:])
		if !ok {
			return producerRecord{}, 0, false
		}
		off += n2
		rec.Info2 = info2
		rec.Path2 = path2
		rec.Paired = true
	}

	return rec, off, true
}

func readCString(buf []byte) (string, int, bool) {
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i]), i + 1, true
		}
	}
	return "", 0, false
}

func (d *Device) publishRecord(ctx context.Context, rec producerRecord) error {
	spec := EventSpec{
		Kind: rec.Kind,
		Regular: &RegularSpec{
			OverridePath: rec.Path,
			Device:       rec.Info.Device,
			Inode:        rec.Info.Inode,
			Mode:         rec.Info.Mode,
			UID:          rec.Info.UID,
			DocumentID:   rec.Info.DocID,
		},
	}
	if rec.Paired {
		spec.Regular.Dest = &RegularSpec{
			OverridePath: rec.Path2,
			Device:       rec.Info2.Device,
			Inode:        rec.Info2.Inode,
			Mode:         rec.Info2.Mode,
			UID:          rec.Info2.UID,
			DocumentID:   rec.Info2.DocID,
		}
	}
	_, err := d.broker.Publish(ctx, spec)
	return err
}
