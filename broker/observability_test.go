package broker

import (
	"log/slog"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	events []cloudevents.Event
}

func (r *recordingObserver) Notify(ev cloudevents.Event) { r.events = append(r.events, ev) }

func TestAddObserverReceivesWatcherAddedEvent(t *testing.T) {
	hub := newObserverHub(slog.Default())
	obs := &recordingObserver{}
	hub.AddObserver(obs)

	hub.watcherAdded(&Watcher{SlotID: 1, ID: "w1", Name: "demo", PID: 42})

	require.Len(t, obs.events, 1)
	require.Equal(t, EventTypeWatcherAdded, obs.events[0].Type())
	require.Equal(t, "fsbroker/registry", obs.events[0].Source())
}

func TestEmitReachesAllRegisteredObservers(t *testing.T) {
	hub := newObserverHub(slog.Default())
	a, b := &recordingObserver{}, &recordingObserver{}
	hub.AddObserver(a)
	hub.AddObserver(b)

	hub.poolExhausted(3)

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	require.Equal(t, EventTypePoolExhausted, a.events[0].Type())
}

func TestBrokerAddObserverDelegatesToHub(t *testing.T) {
	b := New(DefaultConfig(), Deps{})
	t.Cleanup(b.Close)
	obs := &recordingObserver{}
	b.AddObserver(obs)

	b.observer.unmountCompleted(7)
	require.Len(t, obs.events, 1)
	require.Equal(t, EventTypeUnmountCompleted, obs.events[0].Type())
}

func TestUnmountTimedOutEventCarriesDevice(t *testing.T) {
	hub := newObserverHub(slog.Default())
	obs := &recordingObserver{}
	hub.AddObserver(obs)

	hub.unmountTimedOut(99)

	require.Len(t, obs.events, 1)
	var data map[string]interface{}
	require.NoError(t, obs.events[0].DataAs(&data))
	require.EqualValues(t, 99, data["device"])
}
