// Package fsadapter bridges github.com/fsnotify/fsnotify's real
// filesystem notifications into a broker.Broker's Publish pipeline,
// playing the role spec.md §1 calls the kernel "producer" side — the
// half of the system this module treats as out of scope except for the
// Publish contract it drives.
package fsadapter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsbroker/fsbroker/broker"
	"github.com/fsnotify/fsnotify"
)

// Adapter watches a set of directories and republishes fsnotify events
// as broker.EventSpec Publish calls.
type Adapter struct {
	b       *broker.Broker
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	device  uint64 // synthetic device id, stable for the adapter's lifetime
}

// New creates an Adapter over b. device is the value reported as
// RegularSpec.Device for every event this adapter produces (real
// kernels key this off the underlying mount; fsnotify has no such
// concept, so callers supply one, e.g. a hash of the watched root).
func New(b *broker.Broker, device uint64, logger *slog.Logger) (*Adapter, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{b: b, watcher: w, logger: logger, device: device}, nil
}

// Add starts watching a directory tree rooted at path.
func (a *Adapter) Add(path string) error {
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return a.watcher.Add(p)
		}
		return nil
	})
}

// Run consumes fsnotify events until ctx is cancelled, publishing each
// as a Regular event. Errors from fsnotify itself are logged, not
// fatal: a single bad event must never stop the producer loop (spec.md
// §7's "recovery is always local").
func (a *Adapter) Run(ctx context.Context) error {
	defer a.watcher.Close()
	pid := int32(os.Getpid())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-a.watcher.Events:
			if !ok {
				return nil
			}
			kind, ok := translateOp(ev.Op)
			if !ok {
				continue
			}
			info, err := os.Lstat(ev.Name)
			var mode uint32
			var inode uint64
			if err == nil {
				mode = uint32(info.Mode())
				inode = inodeOf(info)
			}
			_, err = a.b.Publish(ctx, broker.EventSpec{
				Kind:        kind,
				ProducerPID: pid,
				Regular: &broker.RegularSpec{
					OverridePath: ev.Name,
					Device:       a.device,
					Inode:        inode,
					Mode:         mode,
				},
			})
			if err != nil {
				a.logger.Warn("fsadapter: publish failed", "path", ev.Name, "error", err)
			}
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("fsadapter: fsnotify error", "error", err)
		}
	}
}

// translateOp maps an fsnotify.Op to a broker.Kind. fsnotify has no
// Rename-pair, Exchange, Clone, or doc-id concept; Write is reported as
// ContentModified, Chmod as StatChanged.
func translateOp(op fsnotify.Op) (broker.Kind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return broker.CreateFile, true
	case op&fsnotify.Remove != 0:
		return broker.Delete, true
	case op&fsnotify.Rename != 0:
		return broker.Delete, true // fsnotify reports rename-away as a bare Rename op with no destination
	case op&fsnotify.Write != 0:
		return broker.ContentModified, true
	case op&fsnotify.Chmod != 0:
		return broker.StatChanged, true
	default:
		return 0, false
	}
}
