package metadata

import (
	"sort"
	"strings"

	"deduper/internal/catalog"
)

// Canonical field names.
const (
	FieldMediaType          = "Media type"
	FieldCreationDate       = "Creation date"
	FieldCameraModel        = "Camera model"
	FieldCameraManufacturer = "Camera manufacturer"
	FieldWidth              = "Width"
	FieldHeight             = "Height"
	FieldArtist             = "Artist"
	FieldTitle              = "Title"
	FieldAlbum              = "Album"
	FieldGenre              = "Genre"
	FieldDuration           = "Duration"
	FieldExtension          = catalog.ExtensionField
)

type fieldSpec struct {
	name    string
	sources []string
}

// Vocabulary maps canonical fields to the tags they are read from.
// The value is immutable once built.
type Vocabulary struct {
	specs  []fieldSpec
	index  map[string]int
	names  []string
	tagSet map[string]struct{}
}

func newVocabulary(specs []fieldSpec) *Vocabulary {
	v := &Vocabulary{
		specs:  specs,
		index:  make(map[string]int, len(specs)),
		tagSet: make(map[string]struct{}),
	}
	for i, spec := range specs {
		v.index[spec.name] = i
		v.names = append(v.names, spec.name)
		for _, tag := range spec.sources {
			v.tagSet[tag] = struct{}{}
		}
	}
	sort.Strings(v.names)
	return v
}

var defaultVocabulary = newVocabulary([]fieldSpec{
	{FieldMediaType, []string{"MIMEType"}},
	{FieldCreationDate, []string{"MediaCreateDate", "ContentCreateDate", "DateTimeOriginal", "FileModifyDate"}},
	{FieldCameraModel, []string{"Model", "CameraModelName"}},
	{FieldCameraManufacturer, []string{"Make"}},
	{FieldWidth, []string{"ImageWidth", "ExifImageWidth"}},
	{FieldHeight, []string{"ImageHeight", "ExifImageHeight"}},
	{FieldArtist, []string{"Artist"}},
	{FieldTitle, []string{"Title"}},
	{FieldAlbum, []string{"Album"}},
	{FieldGenre, []string{"Genre"}},
	{FieldDuration, []string{"MediaDuration", "Duration", "TrackDuration"}},
	{FieldExtension, nil},
})

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	return defaultVocabulary
}

// Fields returns the canonical field names in lexical order.
func (v *Vocabulary) Fields() []string {
	return append([]string(nil), v.names...)
}

// IsField reports whether name is a canonical field.
func (v *Vocabulary) IsField(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Sources returns the tags name is read from, in priority order.
func (v *Vocabulary) Sources(name string) []string {
	i, ok := v.index[name]
	if !ok {
		return nil
	}
	return append([]string(nil), v.specs[i].sources...)
}

// Lookup finds a canonical field ignoring case and surrounding spaces.
func (v *Vocabulary) Lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if v.IsField(name) {
		return name, true
	}
	for _, candidate := range v.names {
		if strings.EqualFold(candidate, name) {
			return candidate, true
		}
	}
	return "", false
}

// keepTags drops tags no field reads from.
func (v *Vocabulary) keepTags(raw map[string]string) map[string]string {
	out := make(map[string]string, len(v.tagSet))
	for tag, value := range raw {
		if _, ok := v.tagSet[tag]; ok {
			out[tag] = value
		}
	}
	return out
}

// Fields returns the canonical field names of the default vocabulary.
func Fields() []string {
	return defaultVocabulary.Fields()
}

// IsField reports whether name belongs to the default vocabulary.
func IsField(name string) bool {
	return defaultVocabulary.IsField(name)
}
