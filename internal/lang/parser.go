package lang

import (
	"astscope/internal/rules"
)

// Parser is the contract for language-specific element parsers.
// Different languages use language-appropriate techniques (go/ast,
// Tree-sitter) while emitting the unified Element representation.
type Parser interface {
	// Parse extracts Elements from source content. The path is used for
	// generating stable refs and error messages; content is the raw file
	// bytes, which allows parsing in-memory content.
	Parse(path string, content []byte) ([]Element, error)

	// SupportedExtensions returns the file extensions this parser
	// handles, including the leading dot. The first extension is the
	// canonical one.
	SupportedExtensions() []string

	// EmitLanguageFacts generates language-specific stratum-0 facts
	// (go_struct, py_class, constructor_candidate, ...) that the bridge
	// rules normalize into cross-language archetypes.
	EmitLanguageFacts(elements []Element) []rules.Fact

	// Language returns the short identifier used in refs ("go", "py", "rs").
	Language() string
}

// ParseResult wraps the output of a parse with its derived facts.
type ParseResult struct {
	Elements      []Element
	ElementFacts  []rules.Fact
	LanguageFacts []rules.Fact
}

// Facts returns element facts and language facts combined.
func (r *ParseResult) Facts() []rules.Fact {
	out := make([]rules.Fact, 0, len(r.ElementFacts)+len(r.LanguageFacts))
	out = append(out, r.ElementFacts...)
	out = append(out, r.LanguageFacts...)
	return out
}
