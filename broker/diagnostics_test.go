package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDiagnosticsReporterRejectsInvalidSchedule(t *testing.T) {
	b := New(DefaultConfig(), Deps{})
	t.Cleanup(b.Close)

	_, err := NewDiagnosticsReporter(b, "not a cron expression")
	require.Error(t, err)
}

func TestDiagnosticsReporterStartStop(t *testing.T) {
	b := New(DefaultConfig(), Deps{})
	t.Cleanup(b.Close)

	r, err := NewDiagnosticsReporter(b, "@every 10ms")
	require.NoError(t, err)

	r.Start()
	time.Sleep(25 * time.Millisecond)
	r.Stop() // must return once any in-flight report finishes
}
