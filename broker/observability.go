package broker

import (
	"log/slog"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Observer receives broker lifecycle notifications as CloudEvents, the
// same pattern the teacher's memory.go emitEvent / module.go EmitEvent
// use (modular.NewCloudEvent + an async emit). fsbroker has no
// application-framework Subject to emit through, so Observer is the
// seam a caller plugs into instead.
type Observer interface {
	Notify(ev cloudevents.Event)
}

// observerHub fans a CloudEvent out to zero or more registered
// Observers, defaulting to a slog-backed one so the broker is useful
// standalone.
type observerHub struct {
	logger    *slog.Logger
	observers []Observer
}

func newObserverHub(logger *slog.Logger) *observerHub {
	return &observerHub{logger: logger}
}

// AddObserver registers an additional Observer (e.g. one forwarding to
// a message bus). Not safe to call concurrently with event emission.
func (h *observerHub) AddObserver(o Observer) { h.observers = append(h.observers, o) }

func (h *observerHub) emit(eventType, source string, data map[string]interface{}) {
	ev := cloudevents.NewEvent()
	ev.SetID(uuid.NewString())
	ev.SetType(eventType)
	ev.SetSource(source)
	if err := ev.SetData(cloudevents.ApplicationJSON, data); err != nil {
		h.logger.Debug("fsbroker: failed to encode lifecycle event data", "type", eventType, "error", err)
		return
	}
	for _, o := range h.observers {
		o.Notify(ev)
	}
	h.logger.Debug("fsbroker: lifecycle event", "type", eventType, "data", data)
}

const (
	EventTypePoolExhausted    = "io.fsbroker.pool.exhausted"
	EventTypeWatcherAdded     = "io.fsbroker.watcher.added"
	EventTypeWatcherRemoved   = "io.fsbroker.watcher.removed"
	EventTypeUnmountCompleted = "io.fsbroker.unmount.completed"
	EventTypeUnmountTimedOut  = "io.fsbroker.unmount.timedout"
)

func (h *observerHub) poolExhausted(dropCount uint64) {
	h.emit(EventTypePoolExhausted, "fsbroker/pool", map[string]interface{}{"drop_count": dropCount})
}

func (h *observerHub) watcherAdded(w *Watcher) {
	h.emit(EventTypeWatcherAdded, "fsbroker/registry", map[string]interface{}{
		"slot": w.SlotID, "id": w.ID, "name": w.Name, "pid": w.PID,
	})
}

func (h *observerHub) watcherRemoved(slot int) {
	h.emit(EventTypeWatcherRemoved, "fsbroker/registry", map[string]interface{}{"slot": slot})
}

func (h *observerHub) unmountCompleted(dev uint64) {
	h.emit(EventTypeUnmountCompleted, "fsbroker/unmount", map[string]interface{}{"device": dev})
}

func (h *observerHub) unmountTimedOut(dev uint64) {
	h.emit(EventTypeUnmountTimedOut, "fsbroker/unmount", map[string]interface{}{"device": dev})
}

// AddObserver exposes the hub's registration method on Broker.
func (b *Broker) AddObserver(o Observer) { b.observer.AddObserver(o) }
