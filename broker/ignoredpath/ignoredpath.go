// Package ignoredpath implements the spec.md §4.5 ignored-directory
// check ("the event's path starts with an ignored prefix") with a
// radix tree over path prefixes, grounded on
// github.com/hashicorp/go-immutable-radix — a natural fit for prefix
// matching, versus the map-of-strings a naive port would reach for.
package ignoredpath

import iradix "github.com/hashicorp/go-immutable-radix"

// DefaultPrefixes are the directories spec.md §4.5 names by name:
// Spotlight, MobileBackups, Backups.backupdb.
var DefaultPrefixes = []string{
	"/.Spotlight-V100",
	"/Volumes/.MobileBackups",
	"/Backups.backupdb",
}

// Matcher answers whether a path falls under one of its registered
// prefixes.
type Matcher struct {
	tree *iradix.Tree
}

// New builds a Matcher over prefixes (defaults to DefaultPrefixes when
// nil/empty).
func New(prefixes []string) *Matcher {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	tree := iradix.New()
	for _, p := range prefixes {
		tree, _, _ = tree.Insert([]byte(p), struct{}{})
	}
	return &Matcher{tree: tree}
}

// Ignored reports whether path starts with any registered prefix on a
// path-component boundary: the path either ends at the prefix or
// continues with '/' right after it. The
// radix tree's longest-prefix search makes this O(len(path)) rather
// than O(len(prefixes) * len(path)).
func (m *Matcher) Ignored(path string) bool {
	if m == nil || m.tree == nil {
		return false
	}
	prefixBytes, _, ok := m.tree.Root().LongestPrefix([]byte(path))
	if !ok || len(path) < len(prefixBytes) {
		return false
	}
	return len(path) == len(prefixBytes) || path[len(prefixBytes)] == '/'
}
