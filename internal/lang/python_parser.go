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
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParser implements Parser for Python source files using Tree-sitter.
type PythonParser struct {
	mu     sync.Mutex // sitter.Parser is not safe for concurrent use
	parser *sitter.Parser
}

// NewPythonParser creates a Python parser.
func NewPythonParser() *PythonParser {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &PythonParser{parser: parser}
}

// Language returns "py".
func (p *PythonParser) Language() string {
	return "py"
}

// SupportedExtensions returns [".py", ".pyw"].
func (p *PythonParser) SupportedExtensions() []string {
	return []string{".py", ".pyw"}
}

// Parse extracts Elements from Python source code.
func (p *PythonParser) Parse(path string, content []byte) ([]Element, error) {
	start := time.Now()
	logging.ParseDebug("PythonParser: parsing file: %s", filepath.Base(path))

	p.mu.Lock()
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	p.mu.Unlock()
	if err != nil {
		logging.Get(logging.CategoryParse).Error("PythonParser: parse failed: %s - %v", path, err)
		return nil, err
	}
	defer tree.Close()

	module := moduleName(path)
	lines := strings.Split(string(content), "\n")

	var elements []Element
	p.walkNode(tree.RootNode(), path, module, "", "", content, lines, &elements)

	logging.ParseDebug("PythonParser: parsed %s - %d elements in %v",
		filepath.Base(path), len(elements), time.Since(start))
	return elements, nil
}

// EmitLanguageFacts generates Python-specific stratum-0 facts.
func (p *PythonParser) EmitLanguageFacts(elements []Element) []rules.Fact {
	var facts []rules.Fact

	for i := range elements {
		elem := &elements[i]
		switch elem.Kind {
		case KindClass:
			facts = append(facts, rules.Fact{
				Predicate: "py_class",
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

// walkNode recursively walks the AST and extracts Elements.
// className is non-empty while inside a class body.
func (p *PythonParser) walkNode(
	node *sitter.Node,
	path, module, className, classRef string,
	content []byte,
	lines []string,
	elements *[]Element,
) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "class_definition":
			elem := p.parseClassDef(child, path, module, content, lines, elements)
			if elem != nil {
				*elements = append(*elements, *elem)
				if body := child.ChildByFieldName("body"); body != nil {
					p.walkNode(body, path, module, elem.Name, elem.Ref, content, lines, elements)
				}
			}

		case "function_definition":
			elem := p.parseFuncDef(child, path, module, className, classRef, content, lines, elements)
			if elem != nil {
				*elements = append(*elements, *elem)
			}

		case "decorated_definition":
			// Decorators extend the element's span upward.
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				switch inner.Type() {
				case "function_definition":
					elem := p.parseFuncDef(inner, path, module, className, classRef, content, lines, elements)
					if elem != nil {
						elem.StartLine = int(child.StartPoint().Row) + 1
						*elements = append(*elements, *elem)
					}
				case "class_definition":
					elem := p.parseClassDef(inner, path, module, content, lines, elements)
					if elem != nil {
						elem.StartLine = int(child.StartPoint().Row) + 1
						*elements = append(*elements, *elem)
						if body := inner.ChildByFieldName("body"); body != nil {
							p.walkNode(body, path, module, elem.Name, elem.Ref, content, lines, elements)
						}
					}
				}
			}

		default:
			p.walkNode(child, path, module, className, classRef, content, lines, elements)
		}
	}
}

// parseClassDef parses a Python class definition.
func (p *PythonParser) parseClassDef(
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

	return &Element{
		Ref:        fmt.Sprintf("py:%s.%s", module, name),
		Kind:       KindClass,
		Language:   "py",
		File:       path,
		StartLine:  startLine,
		EndLine:    int(node.EndPoint().Row) + 1,
		Signature:  declLine(lines, startLine),
		Doc:        docstring(node, content),
		Visibility: pythonVisibility(name),
		Container:  module,
		Name:       name,
	}
}

// parseFuncDef parses a function or method definition. For __init__
// methods it also extracts self-assigned fields of the enclosing class.
func (p *PythonParser) parseFuncDef(
	node *sitter.Node,
	path, module, className, classRef string,
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

	kind := KindFunction
	ref := fmt.Sprintf("py:%s.%s", module, name)
	container := module
	var constructs string

	if className != "" {
		kind = KindMethod
		ref = fmt.Sprintf("py:%s.%s.%s", module, className, name)
		container = className
		if name == "__init__" {
			constructs = className
			p.extractSelfFields(node, path, module, className, classRef, content, lines, elements)
		}
	}

	return &Element{
		Ref:        ref,
		Kind:       kind,
		Language:   "py",
		File:       path,
		StartLine:  startLine,
		EndLine:    int(node.EndPoint().Row) + 1,
		Signature:  declLine(lines, startLine),
		Doc:        docstring(node, content),
		Parent:     classRef,
		Visibility: pythonVisibility(name),
		Container:  container,
		Name:       name,
		Constructs: constructs,
	}
}

// extractSelfFields emits field elements for `self.x = ...` assignments
// inside __init__.
func (p *PythonParser) extractSelfFields(
	initNode *sitter.Node,
	path, module, className, classRef string,
	content []byte,
	lines []string,
	elements *[]Element,
) {
	body := initNode.ChildByFieldName("body")
	if body == nil {
		return
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "assignment" {
			left := n.ChildByFieldName("left")
			if left != nil && left.Type() == "attribute" {
				obj := left.ChildByFieldName("object")
				attr := left.ChildByFieldName("attribute")
				if obj != nil && attr != nil && nodeText(obj, content) == "self" {
					fieldName := nodeText(attr, content)
					fieldLine := int(n.StartPoint().Row) + 1
					*elements = append(*elements, Element{
						Ref:        fmt.Sprintf("py:%s.%s.%s", module, className, fieldName),
						Kind:       KindField,
						Language:   "py",
						File:       path,
						StartLine:  fieldLine,
						EndLine:    int(n.EndPoint().Row) + 1,
						Signature:  declLine(lines, fieldLine),
						Parent:     classRef,
						Visibility: pythonVisibility(fieldName),
						Container:  className,
						Name:       fieldName,
					})
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(body)
}

// docstring returns the leading string literal of a def/class body, if any.
func docstring(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	text := nodeText(str, content)
	text = strings.Trim(text, "\"'")
	return strings.TrimSpace(text)
}

// pythonVisibility follows the underscore convention.
func pythonVisibility(name string) Visibility {
	if strings.HasPrefix(name, "_") && name != "__init__" {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

// moduleName derives the Python module name from the file path.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// nodeText returns the source text of a node.
func nodeText(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}
