package ignoredpath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPrefixesIgnored(t *testing.T) {
	m := New(nil)
	require.True(t, m.Ignored("/.Spotlight-V100/Store-V2/foo"))
	require.True(t, m.Ignored("/Volumes/.MobileBackups/x"))
	require.True(t, m.Ignored("/Backups.backupdb/machine/2024"))
	require.False(t, m.Ignored("/Users/alice/project/main.go"))
}

func TestCustomPrefixes(t *testing.T) {
	m := New([]string{"/private/var/vm"})
	require.True(t, m.Ignored("/private/var/vm/swapfile0"))
	require.False(t, m.Ignored("/private/etc/hosts"))
}

func TestNilMatcherNeverIgnores(t *testing.T) {
	var m *Matcher
	require.False(t, m.Ignored("/anything"))
}

func TestPrefixMustAlignOnBoundary(t *testing.T) {
	m := New([]string{"/Backups.backupdb"})
	require.False(t, m.Ignored("/Backups.backupdb-not-actually"), "a textual prefix match that does not end on a '/' boundary must not count as ignored, even though the radix LongestPrefix finds it")
}
