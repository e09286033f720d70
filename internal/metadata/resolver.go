package metadata

import "strings"

// Resolver maps raw tags onto canonical fields.
type Resolver struct {
	vocab  *Vocabulary
	empty  map[string]struct{}
	remaps Remaps
}

// NewResolver builds a Resolver. emptyValues are compared after trimming.
func NewResolver(vocab *Vocabulary, emptyValues []string, remaps Remaps) *Resolver {
	if vocab == nil {
		vocab = Default()
	}
	empty := make(map[string]struct{}, len(emptyValues)+1)
	empty[""] = struct{}{}
	for _, v := range emptyValues {
		empty[strings.TrimSpace(v)] = struct{}{}
	}
	return &Resolver{vocab: vocab, empty: empty, remaps: remaps}
}

// Vocabulary returns the resolver's field vocabulary.
func (r *Resolver) Vocabulary() *Vocabulary {
	return r.vocab
}

// Resolve returns a value for every source-backed field; unresolved fields
// map to "".
func (r *Resolver) Resolve(raw map[string]string) map[string]string {
	out := make(map[string]string, len(r.vocab.specs))
	for _, spec := range r.vocab.specs {
		if len(spec.sources) == 0 {
			continue
		}
		out[spec.name] = r.resolveField(spec, raw)
	}
	return out
}

func (r *Resolver) resolveField(spec fieldSpec, raw map[string]string) string {
	for _, tag := range spec.sources {
		value := strings.TrimSpace(raw[tag])
		if _, isEmpty := r.empty[value]; isEmpty {
			continue
		}
		if conv, ok := converters[spec.name]; ok {
			value = conv(value)
		}
		if table, ok := r.remaps[spec.name]; ok {
			if mapped, ok := table[value]; ok {
				value = mapped
			}
		}
		return value
	}
	return ""
}
