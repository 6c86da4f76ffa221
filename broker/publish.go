package broker

import (
	"context"
	"fmt"
)

// fillPayload resolves paths/attributes via the collaborators and
// populates primary (and secondary, for Rename/Exchange/Clone) while
// FlagBeingCreated is still set (spec.md §4.3: "fill payload (may
// suspend to read attributes or resolve paths via collaborators)").
func (b *Broker) fillPayload(ctx context.Context, primary, secondary *Event, spec EventSpec) error {
	switch spec.Kind {
	case DocIdCreated, DocIdChanged:
		primary.DocId = spec.DocId
		return nil
	case Activity:
		primary.Activity = spec.Activity
		return nil
	case AccessGranted:
		return b.fillAccessGranted(ctx, primary, spec.Access)
	case UnmountPending:
		primary.Unmount = spec.Unmount
		return nil
	default:
		if err := b.fillRegular(ctx, primary, spec.Regular); err != nil {
			return err
		}
		if secondary != nil && spec.Regular.Dest != nil {
			if err := b.fillRegular(ctx, secondary, spec.Regular.Dest); err != nil {
				return err
			}
			primary.Regular.Dest = secondary
		}
		return nil
	}
}

func (b *Broker) fillRegular(ctx context.Context, ev *Event, rs *RegularSpec) error {
	path := rs.OverridePath
	device, inode, mode, uid, docid := rs.Device, rs.Inode, rs.Mode, rs.UID, rs.DocumentID

	if path == "" && rs.Handle != 0 {
		if b.paths != nil {
			p, err := b.paths.PathOf(ctx, rs.Handle)
			if err != nil {
				return fmt.Errorf("fsbroker: %w: %v", ErrPathResolution, err)
			}
			path = p
		}
		if b.attrs != nil {
			a, err := b.attrs.GetAttributes(ctx, rs.Handle)
			if err == nil {
				device, inode, mode, uid, docid = a.Device, a.Inode, a.Mode, a.UID, a.DocumentID
			}
		}
	}

	var interned InternedStr
	if b.interner != nil && path != "" {
		interned = b.interner.Intern(path)
	}

	ev.Regular = &RegularPayload{
		Device:     device,
		Inode:      inode,
		Mode:       mode,
		UID:        uid,
		DocumentID: docid,
		Path:       interned,
	}
	return nil
}

func (b *Broker) fillAccessGranted(ctx context.Context, ev *Event, spec *AccessGrantedSpec) error {
	path := ""
	if b.paths != nil && spec.Handle != 0 {
		p, err := b.paths.PathOf(ctx, spec.Handle)
		if err != nil {
			return fmt.Errorf("fsbroker: %w: %v", ErrPathResolution, err)
		}
		path = p
	}
	var interned InternedStr
	if b.interner != nil && path != "" {
		interned = b.interner.Intern(path)
	}
	ev.Access = &AccessGrantedPayload{Path: interned, AuditToken: spec.AuditToken}
	return nil
}
