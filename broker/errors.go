package broker

import "errors"

// Pool / allocation errors.
var (
	ErrPoolExhausted = errors.New("fsbroker: event pool exhausted")
)

// Registry / watcher errors.
var (
	ErrRegistryFull      = errors.New("fsbroker: watcher registry full")
	ErrUnknownWatcher    = errors.New("fsbroker: unknown watcher slot")
	ErrInvalidQueueDepth = errors.New("fsbroker: invalid queue depth")
)

// Delivery errors.
var (
	ErrReaderBusy       = errors.New("fsbroker: another reader is active")
	ErrBufferTooSmall   = errors.New("fsbroker: buffer smaller than one max-size event")
	ErrWatcherClosing   = errors.New("fsbroker: watcher is closing")
	ErrNotSupportedOnRawDevice = errors.New("fsbroker: read not supported on raw device, clone a handle first")
)

// Publish errors.
var (
	ErrInvalidKind     = errors.New("fsbroker: invalid event kind")
	ErrPathResolution  = errors.New("fsbroker: path resolution failed")
)

// Unmount barrier errors.
var (
	ErrUnmountInProgress = errors.New("fsbroker: an unmount barrier is already in progress")
	ErrUnmountTimeout    = errors.New("fsbroker: unmount barrier timed out waiting for acks")
)

// Device errors.
var (
	ErrPermissionDenied = errors.New("fsbroker: caller lacks required entitlement")
)
