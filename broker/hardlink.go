package broker

import "context"

// Mode bits recognized in RegularPayload.Mode, the "hardlink hints"
// spec.md §3 mentions.
const (
	ModeHLINK     uint32 = 1 << 16
	ModeLastHLINK uint32 = 1 << 17
)

var hardlinkFanoutKinds = map[Kind]bool{
	StatChanged:       true,
	ContentModified:   true,
	FinderInfoChanged: true,
	XattrModified:     true,
}

// hardlinkFanOut implements spec.md §4.9: for events on hardlinked
// inodes that are not the last link, re-publish the event across up to
// HardlinkFanoutCap sibling paths. A sibling whose republish fails is
// non-fatal: its budget is spent and the loop continues. The loop stops
// as soon as NextLink reports no further sibling. Republished sibling
// events are not themselves fanned out to hardlinks again.
func (b *Broker) hardlinkFanOut(ctx context.Context, ev *Event) {
	type republishKey struct{}
	if b.links == nil || ev.Regular == nil || ctx.Value(republishKey{}) != nil {
		return
	}
	if !hardlinkFanoutKinds[ev.Kind] {
		return
	}
	mode := ev.Regular.Mode
	if mode&ModeHLINK == 0 || mode&ModeLastHLINK != 0 {
		return
	}

	fsid := ev.Regular.Device
	cursor := uint64(0)
	budget := b.cfg.HardlinkFanoutCap
	ctx = context.WithValue(ctx, republishKey{}, true)
	for budget > 0 {
		budget--
		linkID, path, ok := b.links.NextLink(ctx, fsid, cursor)
		if !ok {
			return
		}
		cursor = linkID

		spec := EventSpec{
			Kind:        ev.Kind,
			ProducerPID: ev.ProducerPID,
			Regular: &RegularSpec{
				Device:      ev.Regular.Device,
				Inode:       ev.Regular.Inode,
				Mode:        ev.Regular.Mode,
				UID:         ev.Regular.UID,
				DocumentID:  ev.Regular.DocumentID,
				OverridePath: path,
			},
		}
		if _, err := b.Publish(ctx, spec); err != nil {
			// Non-fatal: sibling couldn't be published (e.g. pool
			// exhausted); keep spending budget on the rest.
			continue
		}
	}
}
