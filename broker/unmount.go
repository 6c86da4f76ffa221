package broker

import (
	"context"
	"fmt"
	"time"
)

// TriggerUnmount implements spec.md §4.8's unmount barrier protocol: a
// cross-watcher rendezvous bounded by a retry budget.
//
//  1. wait until no other unmount barrier is in progress (sleep-retry,
//     ≤ UnmountMaxTicks ticks, else abort)
//  2. if no watcher is interested in UnmountPending, return immediately
//  3. set unmountDevice/pendingAcks, publish an UnmountPending event
//  4. wait for pendingAcks to reach 0, same tick budget
func (b *Broker) TriggerUnmount(ctx context.Context, dev uint64) error {
	if err := b.claimBarrier(dev); err != nil {
		return err
	}

	interested := b.registry.interestedCount(UnmountPending)
	if interested == 0 {
		b.releaseBarrier()
		return nil
	}

	b.registry.mu.Lock()
	b.registry.unmountDevice = dev
	b.registry.pendingAcks = interested
	b.registry.mu.Unlock()

	if _, err := b.Publish(ctx, EventSpec{
		Kind:        UnmountPending,
		ProducerPID: 0,
		Unmount:     &UnmountPendingPayload{Device: dev},
	}); err != nil {
		b.releaseBarrier()
		return fmt.Errorf("fsbroker: publishing unmount-pending: %w", err)
	}

	deadline := b.cfg.UnmountTickInterval * time.Duration(b.cfg.UnmountMaxTicks)
	ticker := time.NewTicker(b.cfg.UnmountTickInterval)
	defer ticker.Stop()
	timeout := time.After(deadline)
	for {
		b.registry.mu.RLock()
		done := b.registry.pendingAcks <= 0
		b.registry.mu.RUnlock()
		if done {
			b.releaseBarrier()
			b.observer.unmountCompleted(dev)
			return nil
		}
		select {
		case <-ticker.C:
			continue
		case <-timeout:
			b.registry.mu.Lock()
			b.registry.unmountDevice = 0
			b.registry.pendingAcks = 0
			b.registry.mu.Unlock()
			b.observer.unmountTimedOut(dev)
			return ErrUnmountTimeout
		case <-ctx.Done():
			b.registry.mu.Lock()
			b.registry.unmountDevice = 0
			b.registry.pendingAcks = 0
			b.registry.mu.Unlock()
			return ctx.Err()
		}
	}
}

// claimBarrier waits for unmountDevice==0 with the same tick budget as
// the main wait, per spec.md §4.8 step 1.
func (b *Broker) claimBarrier(dev uint64) error {
	for i := 0; i <= b.cfg.UnmountMaxTicks; i++ {
		b.registry.mu.Lock()
		if b.registry.unmountDevice == 0 {
			b.registry.mu.Unlock()
			return nil
		}
		b.registry.mu.Unlock()
		if i == b.cfg.UnmountMaxTicks {
			break
		}
		time.Sleep(b.cfg.UnmountTickInterval)
	}
	return ErrUnmountInProgress
}

func (b *Broker) releaseBarrier() {
	b.registry.mu.Lock()
	b.registry.unmountDevice = 0
	b.registry.pendingAcks = 0
	b.registry.mu.Unlock()
}

// AckUnmount implements the §6 UnmountPendingAck ioctl: decrement the
// barrier count for the matching device. The last ack resets
// unmountDevice to 0, which unblocks TriggerUnmount's wait loop.
func (b *Broker) AckUnmount(dev uint64) error {
	b.registry.mu.Lock()
	defer b.registry.mu.Unlock()
	if b.registry.unmountDevice != dev {
		return nil // stale or mismatched ack, non-fatal per spec.md §7
	}
	b.registry.pendingAcks--
	if b.registry.pendingAcks <= 0 {
		b.registry.unmountDevice = 0
		b.registry.pendingAcks = 0
	}
	return nil
}
