package contentcache

import "fmt"

// Kind names one cached value type.
type Kind string

const (
	KindFullHash   Kind = "hash"
	KindPartial    Kind = "partial_hash"
	KindPerceptual Kind = "perceptual_hash"
	KindMetadata   Kind = "metadata"
	KindThumbnail  Kind = "thumbnail"
)

type location struct {
	table  string
	column string
}

var locations = map[Kind]location{
	KindFullHash:   {"hashes", "hash"},
	KindPartial:    {"hashes", "partial_hash"},
	KindPerceptual: {"hashes", "perceptual_hash"},
	KindMetadata:   {"metadata", "fields"},
	KindThumbnail:  {"thumbnails", "thumbnail"},
}

var hashColumns = []string{"hash", "partial_hash", "perceptual_hash"}

func locate(kind Kind) (location, error) {
	loc, ok := locations[kind]
	if !ok {
		return location{}, fmt.Errorf("unknown cache kind %q", kind)
	}
	return loc, nil
}
