package lang

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"astscope/internal/logging"
)

// Registry routes parse requests to the parser registered for a file's
// extension. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // normalized extension -> parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoParser())
	r.Register(NewPythonParser())
	r.Register(NewRustParser())
	return r
}

// Register adds a parser for its supported extensions, replacing any
// previous registration.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range p.SupportedExtensions() {
		ext = normalizeExtension(ext)
		logging.ParseDebug("Registry: registering %s parser for %s", p.Language(), ext)
		r.parsers[ext] = p
	}
}

// ParserFor returns the parser for a file path, or nil if none matches.
func (r *Registry) ParserFor(path string) Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parsers[normalizeExtension(filepath.Ext(path))]
}

// HasParser reports whether a parser exists for the file path.
func (r *Registry) HasParser(path string) bool {
	return r.ParserFor(path) != nil
}

// Parse extracts elements from a file using the matching parser.
func (r *Registry) Parse(path string, content []byte) ([]Element, error) {
	p := r.ParserFor(path)
	if p == nil {
		return nil, fmt.Errorf("no parser registered for extension: %s", filepath.Ext(path))
	}
	return p.Parse(path, content)
}

// ParseWithFacts parses a file and returns elements plus all facts.
func (r *Registry) ParseWithFacts(path string, content []byte) (*ParseResult, error) {
	p := r.ParserFor(path)
	if p == nil {
		return nil, fmt.Errorf("no parser registered for extension: %s", filepath.Ext(path))
	}

	elements, err := p.Parse(path, content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Elements: elements}
	for i := range elements {
		result.ElementFacts = append(result.ElementFacts, elements[i].ToFacts()...)
	}
	result.LanguageFacts = p.EmitLanguageFacts(elements)
	return result, nil
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	return exts
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
