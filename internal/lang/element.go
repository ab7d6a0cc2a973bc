// Package lang extracts language-neutral code elements from source files.
// Each language gets its own Parser (go/ast for Go, Tree-sitter for the
// rest); all of them emit the same Element shape plus language-specific
// stratum-0 facts for the rules kernel.
package lang

import (
	"astscope/internal/rules"
)

// ElementKind is the semantic type of a code element.
type ElementKind string

const (
	KindFunction  ElementKind = "function"
	KindMethod    ElementKind = "method"
	KindStruct    ElementKind = "struct"
	KindInterface ElementKind = "interface"
	KindClass     ElementKind = "class"
	KindEnum      ElementKind = "enum"
	KindTrait     ElementKind = "trait"
	KindField     ElementKind = "field"
	KindConst     ElementKind = "const"
	KindVar       ElementKind = "var"
	KindModule    ElementKind = "module"
	KindType      ElementKind = "type"
)

// Visibility of a code element.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Element is a semantic unit of code with a stable reference.
type Element struct {
	// Ref is the stable reference ID (e.g., "go:greeter.Greeter.Greet").
	Ref string `json:"ref"`

	// Kind is the semantic type (function, method, struct, class, ...).
	Kind ElementKind `json:"kind"`

	// Language is the short language identifier ("go", "py", "rs").
	Language string `json:"language"`

	// File is the source file path.
	File string `json:"file"`

	// StartLine and EndLine are 1-indexed inclusive line numbers.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Signature is the declaration line.
	Signature string `json:"signature"`

	// Doc is the documentation comment attached to the element, if any.
	Doc string `json:"doc,omitempty"`

	// Parent is the ref of the containing element (struct for methods).
	Parent string `json:"parent,omitempty"`

	// Visibility is public or private.
	Visibility Visibility `json:"visibility"`

	// Container is the enclosing package/module/class name.
	Container string `json:"container"`

	// Name is the element's bare name.
	Name string `json:"name"`

	// Constructs names the type this function constructs, when the
	// parser recognizes it as a constructor (NewX, fn new, __init__).
	Constructs string `json:"constructs,omitempty"`
}

// ToFacts lowers the element into kernel facts.
func (e *Element) ToFacts() []rules.Fact {
	facts := make([]rules.Fact, 0, 6)

	// code_element(ref, kind, file, start_line, end_line)
	facts = append(facts, rules.Fact{
		Predicate: "code_element",
		Args:      []interface{}{e.Ref, "/" + string(e.Kind), e.File, int64(e.StartLine), int64(e.EndLine)},
	})

	facts = append(facts, rules.Fact{
		Predicate: "element_name",
		Args:      []interface{}{e.Ref, e.Name},
	})

	facts = append(facts, rules.Fact{
		Predicate: "element_signature",
		Args:      []interface{}{e.Ref, e.Signature},
	})

	facts = append(facts, rules.Fact{
		Predicate: "element_visibility",
		Args:      []interface{}{e.Ref, "/" + string(e.Visibility)},
	})

	facts = append(facts, rules.Fact{
		Predicate: "element_lang",
		Args:      []interface{}{e.Ref, "/" + e.Language},
	})

	if e.Parent != "" {
		facts = append(facts, rules.Fact{
			Predicate: "element_parent",
			Args:      []interface{}{e.Ref, e.Parent},
		})
	}

	if e.Doc != "" {
		facts = append(facts, rules.Fact{
			Predicate: "element_doc",
			Args:      []interface{}{e.Ref, e.Doc},
		})
	}

	return facts
}

// exportedName reports Go-style visibility: uppercase first byte is public.
func exportedName(name string) Visibility {
	if len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z' {
		return VisibilityPublic
	}
	return VisibilityPrivate
}
