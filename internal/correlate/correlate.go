// Package correlate merges duplicate groups that describe the same mirrored
// directory structure.
//
// A group's fingerprint hashes the parent directories of its members, taken
// in path order. When one subtree is duplicated under several roots, every
// duplicate group inside it yields the same fingerprint, so groups sharing a
// fingerprint form one Set. A Set is then transposed into columns: column r
// holds the r-th member of every group, which is one root's copy of the
// subtree.
package correlate

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"deduper/internal/catalog"
	"deduper/internal/grouping"
)

// Set is a family of duplicate groups with one fingerprint.
type Set struct {
	Fingerprint string
	// Groups holds each member group sorted by path.
	Groups [][]*catalog.Entry
	// Columns[r][i] is Groups[i][r], truncated to the shortest group.
	Columns [][]*catalog.Entry
	// Dropped counts members beyond the shortest group; they appear in
	// Groups but not in Columns.
	Dropped int
}

// Rows returns the number of structural positions (member groups).
func (s *Set) Rows() int {
	return len(s.Groups)
}

// Width returns the number of per-root columns.
func (s *Set) Width() int {
	return len(s.Columns)
}

// SortedByPath returns a copy of entries ordered by full path.
func SortedByPath(entries []*catalog.Entry) []*catalog.Entry {
	out := append([]*catalog.Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// DirectoryDigest hashes the parent directories of entries in the order given.
func DirectoryDigest(entries []*catalog.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Dir)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns the order-independent fingerprint of a group.
func Fingerprint(entries []*catalog.Entry) string {
	return DirectoryDigest(SortedByPath(entries))
}

// Correlator accumulates groups from one or more scans.
type Correlator struct {
	sets  []*Set
	index map[string]*Set
}

// New returns an empty Correlator.
func New() *Correlator {
	return &Correlator{index: make(map[string]*Set)}
}

// Add merges duplicate groups into the accumulated sets. Groups with fewer
// than two members are ignored.
func (c *Correlator) Add(groups ...*grouping.Group) {
	for _, g := range groups {
		if g == nil || g.Size() < 2 {
			continue
		}
		members := SortedByPath(g.Entries)
		fp := DirectoryDigest(members)
		set, ok := c.index[fp]
		if !ok {
			set = &Set{Fingerprint: fp}
			c.index[fp] = set
			c.sets = append(c.sets, set)
		}
		set.Groups = append(set.Groups, members)
	}
}

// Sets returns the correlated sets in order of first appearance, with
// columns computed.
func (c *Correlator) Sets() []*Set {
	for _, set := range c.sets {
		set.transpose()
	}
	return c.sets
}

// Correlate is Add followed by Sets on a fresh Correlator.
func Correlate(groups []*grouping.Group) []*Set {
	c := New()
	c.Add(groups...)
	return c.Sets()
}

func (s *Set) transpose() {
	if len(s.Groups) == 0 {
		s.Columns, s.Dropped = nil, 0
		return
	}
	width := len(s.Groups[0])
	total := 0
	for _, g := range s.Groups {
		width = min(width, len(g))
		total += len(g)
	}
	s.Columns = make([][]*catalog.Entry, width)
	for r := 0; r < width; r++ {
		col := make([]*catalog.Entry, len(s.Groups))
		for i, g := range s.Groups {
			col[i] = g[r]
		}
		s.Columns[r] = col
	}
	s.Dropped = total - width*len(s.Groups)
}
