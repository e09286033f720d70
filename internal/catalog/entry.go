package catalog

import (
	"path/filepath"
	"strings"
)

// Entry describes one file discovered during a walk.
type Entry struct {
	Path      string
	Dir       string
	Name      string
	Extension string
	Size      int64
	// Root is the scan root the entry was found under.
	Root string

	FullHash     []byte
	PartialHash  []byte
	Perceptual   *uint64
	Metadata     map[string]string
	Thumbnail    []byte
	metaResolved bool
}

// NewEntry builds an entry for an absolute path with the given size.
func NewEntry(path string, size int64, root string) *Entry {
	path = filepath.Clean(path)
	name := filepath.Base(path)
	return &Entry{
		Path:      path,
		Dir:       ParentDir(path),
		Name:      name,
		Extension: strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		Size:      size,
		Root:      filepath.Clean(root),
	}
}

// ParentDir returns the parent directory of path with a trailing separator.
// The separator keeps concatenated directory strings unambiguous.
func ParentDir(path string) string {
	dir := filepath.Dir(path)
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

// RelPath returns the entry path relative to its scan root.
func (e *Entry) RelPath() string {
	if e.Root == "" {
		return e.Name
	}
	rel, err := filepath.Rel(e.Root, e.Path)
	if err != nil {
		return e.Name
	}
	return rel
}

// Stem returns the file name without extension.
func (e *Entry) Stem() string {
	return strings.TrimSuffix(e.Name, filepath.Ext(e.Name))
}

// SetMetadata stores resolved metadata values.
func (e *Entry) SetMetadata(values map[string]string) {
	e.Metadata = values
	e.metaResolved = true
}

// MetadataLoaded reports whether metadata has been resolved for the entry.
func (e *Entry) MetadataLoaded() bool {
	return e.metaResolved
}

// ExtensionField is the metadata field derived from the file name.
const ExtensionField = "Extension"

// Field returns a metadata value or "" when absent.
func (e *Entry) Field(name string) string {
	if name == ExtensionField {
		return e.Extension
	}
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[name]
}

func (e *Entry) String() string {
	return e.Path
}
