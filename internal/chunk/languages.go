package chunk

import "github.com/cdeust/ai-prd-codeindex/internal/lang"

// specRegistry accumulates LanguageSpecs registered by each language
// file's init(). NewRegistry snapshots this into per-language Parsers.
var specRegistry = map[lang.Tag]LanguageSpec{}

func registerDefault(tag lang.Tag, spec LanguageSpec) {
	specRegistry[tag] = spec
}

func defaultLanguageSpecs() map[lang.Tag]LanguageSpec {
	out := make(map[lang.Tag]LanguageSpec, len(specRegistry))
	for k, v := range specRegistry {
		out[k] = v
	}
	return out
}
