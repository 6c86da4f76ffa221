//go:build windows

package fsadapter

import "os"

// inodeOf has no portable equivalent on Windows; fsadapter reports 0
// and leaves dedup identity to fall back on path comparison.
func inodeOf(info os.FileInfo) uint64 { return 0 }
