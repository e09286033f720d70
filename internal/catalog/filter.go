package catalog

import (
	"sort"
	"strings"
)

// FilterMode selects how the extension list is applied.
type FilterMode string

const (
	FilterDisabled  FilterMode = "disabled"
	FilterWhitelist FilterMode = "whitelist"
	FilterBlacklist FilterMode = "blacklist"
)

var bundles = map[string][]string{
	"image": {"jpg", "jpeg", "jpe", "jif", "jfif", "jfi", "png", "gif", "webp", "tiff", "tif",
		"heif", "heic", "raw", "arw", "cr", "cr2", "rw2", "nrw", "k25", "svg"},
	"video": {"avi", "mp4", "mkv", "mk3d", "mov", "webm"},
}

// Bundle returns the extensions in a named bundle ("image" or "video").
func Bundle(name string) []string {
	return append([]string(nil), bundles[strings.ToLower(name)]...)
}

// IsVideo reports whether ext (without dot) belongs to the video bundle.
func IsVideo(ext string) bool {
	ext = strings.ToLower(ext)
	for _, v := range bundles["video"] {
		if v == ext {
			return true
		}
	}
	return false
}

// ExtensionFilter accepts or rejects files by extension.
type ExtensionFilter struct {
	mode FilterMode
	set  map[string]struct{}
}

// NewExtensionFilter builds a filter from explicit extensions plus named bundles.
func NewExtensionFilter(mode FilterMode, extensions []string, bundleNames []string) ExtensionFilter {
	set := make(map[string]struct{})
	for _, ext := range extensions {
		if ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), "."); ext != "" {
			set[ext] = struct{}{}
		}
	}
	for _, name := range bundleNames {
		for _, ext := range bundles[strings.ToLower(name)] {
			set[ext] = struct{}{}
		}
	}
	if mode == "" {
		mode = FilterDisabled
	}
	return ExtensionFilter{mode: mode, set: set}
}

// Allows reports whether a file with the given extension passes the filter.
func (f ExtensionFilter) Allows(ext string) bool {
	ext = strings.ToLower(ext)
	_, listed := f.set[ext]
	switch f.mode {
	case FilterWhitelist:
		return listed
	case FilterBlacklist:
		return !listed
	default:
		return true
	}
}

// Extensions lists the filter's extensions in sorted order.
func (f ExtensionFilter) Extensions() []string {
	out := make([]string, 0, len(f.set))
	for ext := range f.set {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
