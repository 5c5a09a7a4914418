package chunk

import (
	"sync"

	"github.com/cdeust/ai-prd-codeindex/internal/lang"
)

// Registry dispatches by language tag to a registered Parser. New
// languages extend the engine purely by registering an instance here;
// callers (the orchestrator) never switch on the tag.
type Registry struct {
	mu      sync.RWMutex
	parsers map[lang.Tag]Parser
}

// NewRegistry returns a Registry pre-populated with every chunkable
// language.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[lang.Tag]Parser)}
	for tag, spec := range defaultLanguageSpecs() {
		r.Register(tag, NewHeuristicParser(spec))
	}
	return r
}

// Register associates a Parser with a language tag, overwriting any
// previous registration.
func (r *Registry) Register(tag lang.Tag, p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[tag] = p
}

// Lookup returns the Parser registered for tag, if any.
func (r *Registry) Lookup(tag lang.Tag) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[tag]
	return p, ok
}
