package broker

import (
	"context"
	"sync/atomic"

	"github.com/fsbroker/fsbroker/broker/wire"
)

// Read implements spec.md §4.5's delivery path: drains w's ring into
// buf, encoding each event as a TLV record, until buf has no more room
// for a whole record or the ring is empty. It returns the number of
// bytes written.
func (b *Broker) Read(ctx context.Context, w *Watcher, buf []byte) (int, error) {
	if len(buf) < wire.MaxRecordSize {
		return 0, ErrBufferTooSmall
	}
	if !atomic.CompareAndSwapInt32(&w.numReaders, 0, 1) {
		return 0, ErrReaderBusy
	}
	defer atomic.AddInt32(&w.numReaders, -1)

	if w.pending() == 0 && !w.hasFlag(WatcherClosing) {
		if err := b.waitForData(ctx, w); err != nil {
			return 0, err
		}
	}

	pos := 0
	enc := wire.NewEncoder()

	if w.hasFlag(WatcherDroppedEvents) {
		rec := enc.Encode(wire.Event{Kind: int32(EventsDropped), ProducerPID: 0, Timestamp: b.clock.Now()})
		if len(rec) <= len(buf)-pos {
			copy(buf[pos:], rec)
			pos += len(rec)
			w.clearFlag(WatcherDroppedEvents)
		}
	}

	for {
		w.mu.Lock()
		if w.emptyLocked() {
			w.mu.Unlock()
			break
		}
		ev := w.ring[w.rd]
		w.mu.Unlock()

		if b.skipOnDelivery(w, ev) {
			b.advanceAndRelease(w, ev)
			continue
		}

		rec := enc.Encode(b.toWireEvent(ev, w.hasFlag(WatcherWantsCompact), w.hasFlag(WatcherWantsExtended)))
		if len(rec) > len(buf)-pos {
			break // back out: position already only reflects full events
		}
		copy(buf[pos:], rec)
		pos += len(rec)
		b.advanceAndRelease(w, ev)
	}

	return pos, nil
}

// waitForData sleeps on w's wake channel until data arrives, the
// watcher starts closing, or ctx is cancelled (spec.md §4.5: "If queue
// empty and not Closing: sleep on watcher; on wake re-check").
func (b *Broker) waitForData(ctx context.Context, w *Watcher) error {
	for {
		ch := w.waitChan()
		if w.pending() > 0 || w.hasFlag(WatcherClosing) {
			return nil
		}
		atomic.AddInt32(&w.blockers, 1)
		select {
		case <-ch:
			atomic.AddInt32(&w.blockers, -1)
		case <-ctx.Done():
			atomic.AddInt32(&w.blockers, -1)
			return ctx.Err()
		}
	}
}

// skipOnDelivery implements the §4.5 skip list: invalid/Closing/
// BeingCreated/orphan-destination entries, and (for non-privileged
// watchers) ignored-directory paths.
func (b *Broker) skipOnDelivery(w *Watcher, ev *Event) bool {
	if ev == nil {
		return true
	}
	if ev.hasFlag(FlagBeingCreated) {
		return true
	}
	if w.hasFlag(WatcherClosing) {
		return true
	}
	if ev.isDest {
		// A Rename/Exchange/Clone destination must never be the primary
		// entry of a watcher queue; fan-out never enqueues one, but a
		// future producer path could still surface it, so delivery
		// defends the invariant too.
		return true
	}
	if !w.hasFlag(WatcherPrivilegedService) && b.ignored != nil {
		if path, ok := b.lookupPath(ev); ok && b.ignored.Ignored(path) {
			return true
		}
	}
	return false
}

func (b *Broker) lookupPath(ev *Event) (string, bool) {
	if b.interner == nil {
		return "", false
	}
	p := ev.path()
	if !p.Valid() {
		return "", false
	}
	return b.interner.Lookup(p)
}

func (b *Broker) advanceAndRelease(w *Watcher, ev *Event) {
	w.mu.Lock()
	w.ring[w.rd] = nil
	w.rd = (w.rd + 1) % len(w.ring)
	w.mu.Unlock()
	b.release(ev)
}

func (b *Broker) toWireEvent(ev *Event, compact, extended bool) wire.Event {
	we := wire.Event{
		Kind:            int32(ev.Kind),
		ProducerPID:     ev.ProducerPID,
		Timestamp:       ev.Timestamp,
		WantsExtended:   extended,
		CombinedEvents:  ev.hasFlag(FlagCombinedEvents),
		ContainsDropped: ev.hasFlag(FlagContainsDroppedData),
	}
	switch {
	case ev.DocId != nil:
		we.DocId = &wire.DocIdFields{
			Device: ev.DocId.Device, SrcInode: ev.DocId.SrcInode,
			DstInode: ev.DocId.DstInode, DocID: ev.DocId.DocID,
		}
	case ev.Activity != nil:
		a := ev.Activity
		we.Activity = &wire.ActivityFields{
			Version: a.Version, Device: a.Device, Inode: a.Inode,
			Origin: a.OriginID, Age: a.Age, UseState: a.UseState,
			Urgency: a.Urgency, Size: a.Size,
		}
	case ev.Access != nil:
		path, _ := b.lookupPath(ev)
		we.Access = &wire.AccessFields{Path: path, AuditToken: ev.Access.AuditToken}
	case ev.Unmount != nil:
		we.Unmount = &wire.UnmountFields{Device: ev.Unmount.Device}
	case ev.Regular != nil:
		we.Regular = b.toWireRegular(ev.Regular, compact)
	}
	return we
}

func (b *Broker) toWireRegular(r *RegularPayload, compact bool) *wire.RegularFields {
	if r == nil {
		return nil
	}
	path := ""
	if b.interner != nil && r.Path.Valid() {
		path, _ = b.interner.Lookup(r.Path)
	}
	wr := &wire.RegularFields{
		Path:       path,
		ZeroDevIno: r.Device == 0 && r.Inode == 0,
		Compact:    compact,
		Device:     r.Device,
		Inode:      r.Inode,
		Mode:       r.Mode,
		UID:        r.UID,
		DocOrGID:   r.DocumentID,
	}
	if !wr.ZeroDevIno && r.Dest != nil && r.Dest.Regular != nil {
		wr.Dest = b.toWireRegular(r.Dest.Regular, compact)
	}
	return wr
}
