package broker

import "time"

// recordDebug appends a copy of ev to the optional debug log (admin
// package's /debug/events), best-effort: a nil log or a store error
// never affects delivery.
func (b *Broker) recordDebug(w *Watcher, ev *Event) {
	if b.debugLog == nil {
		return
	}
	path, _ := b.lookupPath(ev)
	_ = b.debugLog.Append(ev.Kind.String(), path, w.ID, w.SlotID, time.Now())
}

// enqueue implements spec.md §4.4's per-watcher enqueue: bump refcount,
// store the reference, apply backpressure policy. Called under the
// registry's read lock (the caller, fanOut, holds it).
func (b *Broker) enqueue(w *Watcher, ev *Event) {
	w.mu.Lock()
	if w.fullLocked() {
		w.mu.Unlock()
		w.setFlag(WatcherDroppedEvents)
		b.metrics.observeOverflow(w)
		w.wakeReaders()
		return
	}

	ev.Ref()
	w.ring[w.wr] = ev
	w.wr = (w.wr + 1) % len(w.ring)
	w.bumpMaxEventID(ev.Timestamp)
	pending := w.pendingLocked()
	w.mu.Unlock()

	b.metrics.observeEnqueue(w, pending)
	b.recordDebug(w, ev)

	cap := w.capacity()
	switch {
	case pending*100 > b.cfg.DropThresholdPct*cap && !w.hasFlag(WatcherPrivilegedService):
		b.drainQueue(w)
		w.setFlag(WatcherDroppedEvents)
		w.wakeReaders()
	case pending > b.cfg.HighWatermark:
		w.wakeReaders()
	default:
		b.wakeup.arm()
	}
}

// drainQueue releases every reference currently queued for w (the
// backpressure drop policy of spec.md §4.4).
func (b *Broker) drainQueue(w *Watcher) {
	w.mu.Lock()
	var drained []*Event
	for !w.emptyLocked() {
		ev := w.ring[w.rd]
		w.ring[w.rd] = nil
		w.rd = (w.rd + 1) % len(w.ring)
		if ev != nil {
			drained = append(drained, ev)
		}
	}
	w.mu.Unlock()

	for _, ev := range drained {
		b.release(ev)
	}
	b.metrics.observeDrain(w, len(drained))
}

// fanOut walks the registry under its read lock and enqueues ev into
// every interested, non-denylisted watcher (spec.md §4.4).
func (b *Broker) fanOut(ev *Event) {
	dev := ev.device()
	b.registry.forEach(func(w *Watcher) {
		if w.hasFlag(WatcherClosing) {
			return
		}
		if !w.interestedIn(ev.Kind, dev) {
			return
		}
		b.enqueue(w, ev)
	})
}
