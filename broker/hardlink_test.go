package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHardlinkFanOutRepublishesUpToCap(t *testing.T) {
	links := new(MockLinkEnumerator)
	cfg := DefaultConfig()
	cfg.HardlinkFanoutCap = 2
	b := New(cfg, Deps{Links: links})
	t.Cleanup(b.Close)

	// A watcher must hold each republished event, otherwise it is
	// released back to the pool the moment hardlinkFanOut's own
	// Publish call returns (no interested watcher means no reference
	// survives fan-out).
	_, err := b.AddWatcher(context.Background(), AddWatcherOpts{Interest: map[Kind]bool{ContentModified: true}})
	require.NoError(t, err)

	links.On("NextLink", mock.Anything, uint64(1), uint64(0)).Return(uint64(10), "/sib/a", true).Once()
	links.On("NextLink", mock.Anything, uint64(1), uint64(10)).Return(uint64(20), "/sib/b", true).Once()

	ev := &Event{
		Kind: ContentModified,
		Regular: &RegularPayload{
			Device: 1, Inode: 5, Mode: ModeHLINK,
		},
	}

	b.hardlinkFanOut(context.Background(), ev)

	links.AssertNumberOfCalls(t, "NextLink", 2)
	require.EqualValues(t, 2, b.pool.Outstanding(), "each republish allocates its own event, held by the subscribed watcher")
}

func TestHardlinkFanOutSkipsLastLink(t *testing.T) {
	links := new(MockLinkEnumerator)
	b := New(DefaultConfig(), Deps{Links: links})
	t.Cleanup(b.Close)

	ev := &Event{
		Kind:    ContentModified,
		Regular: &RegularPayload{Device: 1, Inode: 5, Mode: ModeHLINK | ModeLastHLINK},
	}
	b.hardlinkFanOut(context.Background(), ev)
	links.AssertNotCalled(t, "NextLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestHardlinkFanOutSkipsNonHardlinkedEvents(t *testing.T) {
	links := new(MockLinkEnumerator)
	b := New(DefaultConfig(), Deps{Links: links})
	t.Cleanup(b.Close)

	ev := &Event{Kind: ContentModified, Regular: &RegularPayload{Device: 1, Inode: 5}}
	b.hardlinkFanOut(context.Background(), ev)
	links.AssertNotCalled(t, "NextLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestHardlinkFanOutSkipsUninterestingKinds(t *testing.T) {
	links := new(MockLinkEnumerator)
	b := New(DefaultConfig(), Deps{Links: links})
	t.Cleanup(b.Close)

	ev := &Event{Kind: CreateFile, Regular: &RegularPayload{Device: 1, Inode: 5, Mode: ModeHLINK}}
	b.hardlinkFanOut(context.Background(), ev)
	links.AssertNotCalled(t, "NextLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestHardlinkFanOutStopsWhenEnumerationExhausted(t *testing.T) {
	links := new(MockLinkEnumerator)
	cfg := DefaultConfig()
	cfg.HardlinkFanoutCap = 2
	b := New(cfg, Deps{Links: links})
	t.Cleanup(b.Close)

	links.On("NextLink", mock.Anything, uint64(1), uint64(0)).Return(uint64(0), "", false).Once()

	ev := &Event{Kind: ContentModified, Regular: &RegularPayload{Device: 1, Inode: 5, Mode: ModeHLINK}}
	b.hardlinkFanOut(context.Background(), ev)

	links.AssertNumberOfCalls(t, "NextLink", 1, "a false ok must stop the loop rather than spin the remaining budget")
}

func TestHardlinkFanOutNilLinkEnumeratorIsNoop(t *testing.T) {
	b := New(DefaultConfig(), Deps{})
	t.Cleanup(b.Close)

	ev := &Event{Kind: ContentModified, Regular: &RegularPayload{Device: 1, Inode: 5, Mode: ModeHLINK}}
	require.NotPanics(t, func() { b.hardlinkFanOut(context.Background(), ev) })
}
