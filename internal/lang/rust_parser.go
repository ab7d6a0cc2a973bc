package lang

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"astscope/internal/logging"
	"astscope/internal/rules"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// RustParser implements Parser for Rust source files using Tree-sitter.
type RustParser struct {
	mu     sync.Mutex // sitter.Parser is not safe for concurrent use
	parser *sitter.Parser
}

// NewRustParser creates a Rust parser.
func NewRustParser() *RustParser {
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())
	return &RustParser{parser: parser}
}

// Language returns "rs".
func (p *RustParser) Language() string {
	return "rs"
}

// SupportedExtensions returns [".rs"].
func (p *RustParser) SupportedExtensions() []string {
	return []string{".rs"}
}

// Parse extracts Elements from Rust source code.
func (p *RustParser) Parse(path string, content []byte) ([]Element, error) {
	start := time.Now()
	logging.ParseDebug("RustParser: parsing file: %s", filepath.Base(path))

	p.mu.Lock()
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	p.mu.Unlock()
	if err != nil {
		logging.Get(logging.CategoryParse).Error("RustParser: parse failed: %s - %v", path, err)
		return nil, err
	}
	defer tree.Close()

	module := moduleName(path)
	lines := strings.Split(string(content), "\n")

	var elements []Element
	typeRefs := make(map[string]string)
	p.walkNode(tree.RootNode(), path, module, content, lines, &elements, typeRefs)

	logging.ParseDebug("RustParser: parsed %s - %d elements in %v",
		filepath.Base(path), len(elements), time.Since(start))
	return elements, nil
}

// EmitLanguageFacts generates Rust-specific stratum-0 facts.
func (p *RustParser) EmitLanguageFacts(elements []Element) []rules.Fact {
	var facts []rules.Fact

	for i := range elements {
		elem := &elements[i]
		switch elem.Kind {
		case KindStruct:
			facts = append(facts, rules.Fact{
				Predicate: "rs_struct",
				Args:      []interface{}{elem.Ref},
			})
		case KindEnum:
			facts = append(facts, rules.Fact{
				Predicate: "rs_enum",
				Args:      []interface{}{elem.Ref},
			})
		case KindTrait:
			facts = append(facts, rules.Fact{
				Predicate: "rs_trait",
				Args:      []interface{}{elem.Ref},
			})
		}
		if elem.Kind == KindMethod && elem.Parent != "" {
			facts = append(facts, rules.Fact{
				Predicate: "method_of",
				Args:      []interface{}{elem.Ref, elem.Parent},
			})
		}
		if elem.Kind == KindField && elem.Parent != "" {
			facts = append(facts, rules.Fact{
				Predicate: "has_field",
				Args:      []interface{}{elem.Parent, elem.Name},
			})
		}
		if elem.Constructs != "" {
			facts = append(facts, rules.Fact{
				Predicate: "constructor_candidate",
				Args:      []interface{}{elem.Ref, elem.Constructs},
			})
		}
	}

	return facts
}

// walkNode walks the top-level items of a Rust source tree.
func (p *RustParser) walkNode(
	node *sitter.Node,
	path, module string,
	content []byte,
	lines []string,
	elements *[]Element,
	typeRefs map[string]string,
) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "struct_item":
			if elem := p.parseStructItem(child, path, module, content, lines, elements); elem != nil {
				*elements = append(*elements, *elem)
				typeRefs[elem.Name] = elem.Ref
			}

		case "enum_item", "trait_item":
			kind := KindEnum
			if child.Type() == "trait_item" {
				kind = KindTrait
			}
			if elem := p.parseNamedItem(child, kind, path, module, content, lines); elem != nil {
				*elements = append(*elements, *elem)
				typeRefs[elem.Name] = elem.Ref
			}

		case "function_item":
			if elem := p.parseFunctionItem(child, path, module, "", "", content, lines); elem != nil {
				*elements = append(*elements, *elem)
			}

		case "impl_item":
			p.parseImplItem(child, path, module, content, lines, elements, typeRefs)

		case "mod_item":
			if elem := p.parseNamedItem(child, KindModule, path, module, content, lines); elem != nil {
				*elements = append(*elements, *elem)
			}
			// Inline modules carry their own items.
			if body := child.ChildByFieldName("body"); body != nil {
				p.walkNode(body, path, module, content, lines, elements, typeRefs)
			}
		}
	}
}

// parseStructItem parses a struct and its named fields.
func (p *RustParser) parseStructItem(
	node *sitter.Node,
	path, module string,
	content []byte,
	lines []string,
	elements *[]Element,
) *Element {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	name := nodeText(nameNode, content)
	startLine := int(node.StartPoint().Row) + 1
	ref := fmt.Sprintf("rs:%s.%s", module, name)

	elem := &Element{
		Ref:        ref,
		Kind:       KindStruct,
		Language:   "rs",
		File:       path,
		StartLine:  startLine,
		EndLine:    int(node.EndPoint().Row) + 1,
		Signature:  declLine(lines, startLine),
		Doc:        rustDoc(node, content),
		Visibility: rustVisibility(node, content),
		Container:  module,
		Name:       name,
	}

	if body := node.ChildByFieldName("body"); body != nil && body.Type() == "field_declaration_list" {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			field := body.NamedChild(i)
			if field.Type() != "field_declaration" {
				continue
			}
			fieldNameNode := field.ChildByFieldName("name")
			if fieldNameNode == nil {
				continue
			}
			fieldName := nodeText(fieldNameNode, content)
			fieldLine := int(field.StartPoint().Row) + 1
			*elements = append(*elements, Element{
				Ref:        fmt.Sprintf("rs:%s.%s.%s", module, name, fieldName),
				Kind:       KindField,
				Language:   "rs",
				File:       path,
				StartLine:  fieldLine,
				EndLine:    int(field.EndPoint().Row) + 1,
				Signature:  declLine(lines, fieldLine),
				Parent:     ref,
				Visibility: rustVisibility(field, content),
				Container:  name,
				Name:       fieldName,
			})
		}
	}

	return elem
}

// parseNamedItem parses enum, trait, and mod items.
func (p *RustParser) parseNamedItem(
	node *sitter.Node,
	kind ElementKind,
	path, module string,
	content []byte,
	lines []string,
) *Element {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	name := nodeText(nameNode, content)
	startLine := int(node.StartPoint().Row) + 1

	return &Element{
		Ref:        fmt.Sprintf("rs:%s.%s", module, name),
		Kind:       kind,
		Language:   "rs",
		File:       path,
		StartLine:  startLine,
		EndLine:    int(node.EndPoint().Row) + 1,
		Signature:  declLine(lines, startLine),
		Doc:        rustDoc(node, content),
		Visibility: rustVisibility(node, content),
		Container:  module,
		Name:       name,
	}
}

// parseFunctionItem parses a free function or an impl method.
func (p *RustParser) parseFunctionItem(
	node *sitter.Node,
	path, module, implType, implRef string,
	content []byte,
	lines []string,
) *Element {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	name := nodeText(nameNode, content)
	startLine := int(node.StartPoint().Row) + 1

	kind := KindFunction
	ref := fmt.Sprintf("rs:%s.%s", module, name)
	container := module
	var constructs string

	if implType != "" {
		kind = KindMethod
		ref = fmt.Sprintf("rs:%s.%s.%s", module, implType, name)
		container = implType
		if name == "new" {
			constructs = implType
		}
	}

	return &Element{
		Ref:        ref,
		Kind:       kind,
		Language:   "rs",
		File:       path,
		StartLine:  startLine,
		EndLine:    int(node.EndPoint().Row) + 1,
		Signature:  declLine(lines, startLine),
		Doc:        rustDoc(node, content),
		Parent:     implRef,
		Visibility: rustVisibility(node, content),
		Container:  container,
		Name:       name,
		Constructs: constructs,
	}
}

// parseImplItem parses an impl block, linking its methods to the type.
func (p *RustParser) parseImplItem(
	node *sitter.Node,
	path, module string,
	content []byte,
	lines []string,
	elements *[]Element,
	typeRefs map[string]string,
) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	implType := nodeText(typeNode, content)
	implRef := typeRefs[implType]

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		item := body.NamedChild(i)
		if item.Type() != "function_item" {
			continue
		}
		if elem := p.parseFunctionItem(item, path, module, implType, implRef, content, lines); elem != nil {
			*elements = append(*elements, *elem)
		}
	}
}

// rustDoc collects contiguous preceding /// doc comments.
func rustDoc(node *sitter.Node, content []byte) string {
	var parts []string
	for prev := node.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		if prev.Type() != "line_comment" {
			break
		}
		text := nodeText(prev, content)
		if !strings.HasPrefix(text, "///") {
			break
		}
		parts = append([]string{strings.TrimSpace(strings.TrimPrefix(text, "///"))}, parts...)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// rustVisibility checks for a pub modifier on the item.
func rustVisibility(node *sitter.Node, content []byte) Visibility {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "visibility_modifier" && strings.HasPrefix(nodeText(child, content), "pub") {
			return VisibilityPublic
		}
	}
	return VisibilityPrivate
}
