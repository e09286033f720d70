// Package renamer builds new file names from metadata templates.
//
// A template is literal text with [Field name] tokens. Parsing scans left to
// right; nested or unbalanced brackets, unknown fields, and empty templates
// are rejected.
package renamer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"deduper/internal/catalog"
	"deduper/internal/fileops"
	"deduper/internal/metadata"
	"deduper/internal/textutil"
)

// Template errors.
var (
	ErrEmptyTemplate = errors.New("template is empty")
	ErrNestedBracket = errors.New("nested '['")
	ErrUnmatched     = errors.New("']' without '['")
	ErrUnclosed      = errors.New("'[' is never closed")
	ErrUnknownField  = errors.New("unknown field")
	ErrEmptyField    = errors.New("empty field reference")
	// ErrMissingField aborts a run under the Abort missing-field policy.
	ErrMissingField = errors.New("metadata field is empty")
)

// MissingPolicy decides what happens when a referenced field is empty.
type MissingPolicy string

const (
	Substitute MissingPolicy = "substitute"
	SkipFile   MissingPolicy = "skip"
	AbortRun   MissingPolicy = "abort"
)

// ParseMissingPolicy accepts the config spelling of a policy.
func ParseMissingPolicy(value string) (MissingPolicy, error) {
	switch p := MissingPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case Substitute, SkipFile, AbortRun:
		return p, nil
	case "":
		return Substitute, nil
	}
	return "", fmt.Errorf("unknown missing-field policy %q (want substitute, skip, or abort)", value)
}

// segment is literal text when field < 0, else an index into Fields.
type segment struct {
	text  string
	field int
}

// Format is a parsed template.
type Format struct {
	Raw string
	// Pattern is the template with fields replaced by {1}, {2}, ...
	Pattern string
	// Fields lists referenced canonical fields in template order.
	Fields    []string
	OnMissing MissingPolicy
	OnExists  fileops.ConflictPolicy

	segments []segment
}

// Parse validates raw against vocab. A nil vocab uses the default vocabulary.
// The returned Format skips files with missing fields and appends an index
// on name conflicts.
func Parse(raw string, vocab *metadata.Vocabulary) (*Format, error) {
	if vocab == nil {
		vocab = metadata.Default()
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyTemplate
	}

	f := &Format{Raw: raw, OnMissing: SkipFile, OnExists: fileops.AppendIndex}
	var pattern, literal, field strings.Builder
	open := false
	flush := func() {
		if literal.Len() > 0 {
			f.segments = append(f.segments, segment{text: literal.String(), field: -1})
			literal.Reset()
		}
	}
	for pos, r := range raw {
		switch {
		case r == '[' && open:
			return nil, fmt.Errorf("%w at position %d", ErrNestedBracket, pos)
		case r == '[':
			open = true
			field.Reset()
		case r == ']' && !open:
			return nil, fmt.Errorf("%w at position %d", ErrUnmatched, pos)
		case r == ']':
			open = false
			name := field.String()
			if name == "" {
				return nil, fmt.Errorf("%w at position %d", ErrEmptyField, pos)
			}
			// Field names match the vocabulary exactly, spacing and case included.
			canonical, ok := vocab.Lookup(name)
			if !ok || canonical != name {
				return nil, fmt.Errorf("%w %q", ErrUnknownField, name)
			}
			flush()
			f.Fields = append(f.Fields, canonical)
			f.segments = append(f.segments, segment{field: len(f.Fields) - 1})
			pattern.WriteString("{" + strconv.Itoa(len(f.Fields)) + "}")
		case open:
			field.WriteRune(r)
		default:
			literal.WriteRune(r)
			pattern.WriteRune(r)
		}
	}
	if open {
		return nil, ErrUnclosed
	}
	flush()
	f.Pattern = pattern.String()
	return f, nil
}

// Apply returns the new base name for entry, extension included. skip is
// true when the file should be left alone. ErrMissingField is returned under
// the AbortRun policy.
func (f *Format) Apply(entry *catalog.Entry) (name string, skip bool, err error) {
	var b strings.Builder
	for _, seg := range f.segments {
		if seg.field < 0 {
			b.WriteString(seg.text)
			continue
		}
		field := f.Fields[seg.field]
		value := strings.TrimSpace(entry.Field(field))
		if value == "" {
			switch f.OnMissing {
			case AbortRun:
				return "", false, fmt.Errorf("%w: %q for %s", ErrMissingField, field, entry.Path)
			case SkipFile:
				return "", true, nil
			}
		}
		b.WriteString(value)
	}
	stem := textutil.SanitizeFileName(b.String())
	if stem == "" {
		return "", true, nil
	}
	if entry.Extension == "" {
		return stem, false, nil
	}
	return stem + "." + entry.Extension, false, nil
}
