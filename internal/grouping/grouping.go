// Package grouping partitions catalog entries into duplicate groups.
//
// HASH and NAME modes group by exact key equality. PERCEPTUAL mode scans the
// existing buckets in creation order and joins the first one whose signature
// is similar enough (first fit); an entry matching none starts a new bucket.
package grouping

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"deduper/internal/catalog"
	"deduper/internal/phash"
	"deduper/internal/tally"
)

// Field is the comparison field.
type Field string

const (
	ByHash       Field = "hash"
	ByName       Field = "name"
	ByPerceptual Field = "phash"
)

// ParseField accepts the CLI spelling of a comparison field.
func ParseField(value string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(value))) {
	case ByHash:
		return ByHash, nil
	case ByName:
		return ByName, nil
	case ByPerceptual, "perceptual":
		return ByPerceptual, nil
	}
	return "", fmt.Errorf("unknown comparison field %q (want hash, name, or phash)", value)
}

// Group is one set of entries sharing a key.
type Group struct {
	Key     string
	Entries []*catalog.Entry
}

// Size returns the number of members.
func (g *Group) Size() int {
	return len(g.Entries)
}

// Result is the outcome of one grouping pass.
type Result struct {
	Field Field
	// Groups holds every group, unique ones included, in creation order.
	Groups []*Group
	// Duplicate counts members that joined an existing group.
	Duplicate int
	// Unique counts groups that have at least one duplicate.
	Unique int
	// Skipped counts entries without a usable key.
	Skipped int
}

// Duplicates returns the groups with more than one member.
func (r Result) Duplicates() []*Group {
	out := make([]*Group, 0, r.Unique)
	for _, g := range r.Groups {
		if g.Size() > 1 {
			out = append(out, g)
		}
	}
	return out
}

// Grouper groups entries by one field.
type Grouper struct {
	field     Field
	threshold int
	counters  *tally.Counters
}

// Option configures a Grouper.
type Option func(*Grouper)

// WithThreshold sets the perceptual similarity threshold (0..100).
func WithThreshold(threshold int) Option {
	return func(g *Grouper) { g.threshold = threshold }
}

// WithCounters mirrors the duplicate and unique counts into c.
func WithCounters(c *tally.Counters) Option {
	return func(g *Grouper) { g.counters = c }
}

// New returns a Grouper for field.
func New(field Field, opts ...Option) *Grouper {
	g := &Grouper{field: field, threshold: 90}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group partitions entries. Input order decides group order and, in
// perceptual mode, bucket assignment.
func (g *Grouper) Group(entries []*catalog.Entry) Result {
	res := Result{Field: g.field}
	switch g.field {
	case ByPerceptual:
		g.groupPerceptual(entries, &res)
	default:
		g.groupExact(entries, &res)
	}
	return res
}

func (g *Grouper) groupExact(entries []*catalog.Entry, res *Result) {
	lower := cases.Lower(language.Und)
	index := make(map[string]*Group, len(entries))
	for _, entry := range entries {
		var key string
		switch g.field {
		case ByName:
			key = lower.String(entry.Name)
		default:
			if len(entry.FullHash) == 0 {
				res.Skipped++
				continue
			}
			key = hex.EncodeToString(entry.FullHash)
		}
		group, ok := index[key]
		if !ok {
			group = &Group{Key: key}
			index[key] = group
			res.Groups = append(res.Groups, group)
		}
		g.add(group, entry, res)
	}
}

func (g *Grouper) groupPerceptual(entries []*catalog.Entry, res *Result) {
	type bucket struct {
		sig   phash.Signature
		group *Group
	}
	var buckets []bucket
	for _, entry := range entries {
		if entry.Perceptual == nil {
			res.Skipped++
			continue
		}
		sig := phash.Signature(*entry.Perceptual)
		var target *Group
		for _, b := range buckets {
			if phash.Similar(b.sig, sig, g.threshold) {
				target = b.group
				break
			}
		}
		if target == nil {
			target = &Group{Key: sig.String()}
			buckets = append(buckets, bucket{sig: sig, group: target})
			res.Groups = append(res.Groups, target)
		}
		g.add(target, entry, res)
	}
}

func (g *Grouper) add(group *Group, entry *catalog.Entry, res *Result) {
	group.Entries = append(group.Entries, entry)
	if len(group.Entries) == 1 {
		return
	}
	res.Duplicate++
	g.counters.Duplicate()
	if len(group.Entries) == 2 {
		res.Unique++
		g.counters.Unique()
	}
}
