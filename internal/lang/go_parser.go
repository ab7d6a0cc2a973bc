package lang

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"time"

	"astscope/internal/logging"
	"astscope/internal/rules"
)

// GoParser implements Parser for Go source files using go/ast.
type GoParser struct{}

// NewGoParser creates a Go parser.
func NewGoParser() *GoParser {
	return &GoParser{}
}

// Language returns "go".
func (p *GoParser) Language() string {
	return "go"
}

// SupportedExtensions returns [".go"].
func (p *GoParser) SupportedExtensions() []string {
	return []string{".go"}
}

// Parse extracts Elements from Go source code.
func (p *GoParser) Parse(path string, content []byte) ([]Element, error) {
	start := time.Now()
	logging.ParseDebug("GoParser: parsing file: %s", filepath.Base(path))

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		logging.Get(logging.CategoryParse).Error("GoParser: parse failed: %s - %v", path, err)
		return nil, err
	}

	lines := strings.Split(string(content), "\n")
	pkgName := file.Name.Name

	// First pass: struct refs for method parent linking.
	structRefs := make(map[string]string)
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if _, isStruct := typeSpec.Type.(*ast.StructType); isStruct {
				name := typeSpec.Name.Name
				structRefs[name] = p.buildRef(pkgName, "", name)
			}
		}
	}

	var elements []Element
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			elements = append(elements, p.parseFuncDecl(fset, d, path, pkgName, lines, structRefs))
		case *ast.GenDecl:
			elements = append(elements, p.parseGenDecl(fset, d, path, pkgName, lines, structRefs)...)
		}
	}

	logging.ParseDebug("GoParser: parsed %s - %d elements in %v",
		filepath.Base(path), len(elements), time.Since(start))
	return elements, nil
}

// EmitLanguageFacts generates Go-specific stratum-0 facts.
func (p *GoParser) EmitLanguageFacts(elements []Element) []rules.Fact {
	var facts []rules.Fact

	for i := range elements {
		elem := &elements[i]
		switch elem.Kind {
		case KindStruct:
			facts = append(facts, rules.Fact{
				Predicate: "go_struct",
				Args:      []interface{}{elem.Ref},
			})
		case KindInterface:
			facts = append(facts, rules.Fact{
				Predicate: "go_interface",
				Args:      []interface{}{elem.Ref},
			})
		case KindFunction, KindMethod:
			if strings.Contains(elem.Signature, ") error") || strings.Contains(elem.Signature, ", error)") {
				facts = append(facts, rules.Fact{
					Predicate: "returns_error",
					Args:      []interface{}{elem.Ref},
				})
			}
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

// buildRef creates a stable repo-anchored ref.
func (p *GoParser) buildRef(pkgName, parent, name string) string {
	if parent != "" {
		return fmt.Sprintf("go:%s.%s.%s", pkgName, parent, name)
	}
	return fmt.Sprintf("go:%s.%s", pkgName, name)
}

// parseFuncDecl parses a function or method declaration.
func (p *GoParser) parseFuncDecl(
	fset *token.FileSet,
	decl *ast.FuncDecl,
	path, pkgName string,
	lines []string,
	structRefs map[string]string,
) Element {
	name := decl.Name.Name
	startLine := fset.Position(decl.Pos()).Line
	endLine := fset.Position(decl.End()).Line

	kind := KindFunction
	var parentRef, container string
	container = pkgName
	ref := p.buildRef(pkgName, "", name)

	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		kind = KindMethod
		recvType, _ := receiverTypeInfo(decl.Recv.List[0].Type)
		if recvType != "" {
			ref = p.buildRef(pkgName, recvType, name)
			container = recvType
			if sref, ok := structRefs[recvType]; ok {
				parentRef = sref
			}
		}
	}

	elem := Element{
		Ref:        ref,
		Kind:       kind,
		Language:   "go",
		File:       path,
		StartLine:  startLine,
		EndLine:    endLine,
		Signature:  declLine(lines, startLine),
		Doc:        docText(decl.Doc),
		Parent:     parentRef,
		Visibility: exportedName(name),
		Container:  container,
		Name:       name,
	}

	// Constructor detection: a free function whose name is New or NewX
	// returning X or *X for a struct X declared in the same file.
	if kind == KindFunction {
		if target := constructedType(decl, structRefs); target != "" {
			elem.Constructs = target
		}
	}

	return elem
}

// parseGenDecl parses type, const, and var declarations.
func (p *GoParser) parseGenDecl(
	fset *token.FileSet,
	decl *ast.GenDecl,
	path, pkgName string,
	lines []string,
	structRefs map[string]string,
) []Element {
	var elements []Element

	switch decl.Tok {
	case token.TYPE:
		for _, spec := range decl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			elements = append(elements, p.parseTypeSpec(fset, decl, typeSpec, path, pkgName, lines)...)
		}

	case token.CONST, token.VAR:
		kind := KindConst
		if decl.Tok == token.VAR {
			kind = KindVar
		}
		for _, spec := range decl.Specs {
			valueSpec, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, ident := range valueSpec.Names {
				specStart := fset.Position(spec.Pos()).Line
				specEnd := fset.Position(spec.End()).Line
				elements = append(elements, Element{
					Ref:        p.buildRef(pkgName, "", ident.Name),
					Kind:       kind,
					Language:   "go",
					File:       path,
					StartLine:  specStart,
					EndLine:    specEnd,
					Signature:  declLine(lines, specStart),
					Doc:        docText(valueSpec.Doc),
					Visibility: exportedName(ident.Name),
					Container:  pkgName,
					Name:       ident.Name,
				})
			}
		}
	}

	return elements
}

// parseTypeSpec parses a type declaration, emitting field elements for structs.
func (p *GoParser) parseTypeSpec(
	fset *token.FileSet,
	decl *ast.GenDecl,
	spec *ast.TypeSpec,
	path, pkgName string,
	lines []string,
) []Element {
	name := spec.Name.Name
	startLine := fset.Position(decl.Pos()).Line
	endLine := fset.Position(decl.End()).Line
	if decl.Lparen == 0 {
		startLine = fset.Position(spec.Pos()).Line
		endLine = fset.Position(spec.End()).Line
	}

	kind := KindType
	switch spec.Type.(type) {
	case *ast.StructType:
		kind = KindStruct
	case *ast.InterfaceType:
		kind = KindInterface
	}

	doc := docText(decl.Doc)
	if doc == "" {
		doc = docText(spec.Doc)
	}

	ref := p.buildRef(pkgName, "", name)
	elements := []Element{{
		Ref:        ref,
		Kind:       kind,
		Language:   "go",
		File:       path,
		StartLine:  startLine,
		EndLine:    endLine,
		Signature:  declLine(lines, startLine),
		Doc:        doc,
		Visibility: exportedName(name),
		Container:  pkgName,
		Name:       name,
	}}

	if structType, ok := spec.Type.(*ast.StructType); ok && structType.Fields != nil {
		for _, field := range structType.Fields.List {
			for _, ident := range field.Names {
				fieldStart := fset.Position(field.Pos()).Line
				elements = append(elements, Element{
					Ref:        p.buildRef(pkgName, name, ident.Name),
					Kind:       KindField,
					Language:   "go",
					File:       path,
					StartLine:  fieldStart,
					EndLine:    fset.Position(field.End()).Line,
					Signature:  declLine(lines, fieldStart),
					Doc:        docText(field.Doc),
					Parent:     ref,
					Visibility: exportedName(ident.Name),
					Container:  name,
					Name:       ident.Name,
				})
			}
		}
	}

	return elements
}

// constructedType reports the struct name a function constructs, or "".
func constructedType(decl *ast.FuncDecl, structRefs map[string]string) string {
	if decl.Type.Results == nil || len(decl.Type.Results.List) == 0 {
		return ""
	}
	result := decl.Type.Results.List[0].Type
	if star, ok := result.(*ast.StarExpr); ok {
		result = star.X
	}
	ident, ok := result.(*ast.Ident)
	if !ok {
		return ""
	}
	if _, known := structRefs[ident.Name]; !known {
		return ""
	}
	name := decl.Name.Name
	if name == "New" || name == "New"+ident.Name {
		return ident.Name
	}
	return ""
}

// receiverTypeInfo extracts the type name and pointer-ness of a receiver.
func receiverTypeInfo(expr ast.Expr) (typeName string, isPointer bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, false
	case *ast.StarExpr:
		name, _ := receiverTypeInfo(t.X)
		return name, true
	}
	return "", false
}

// declLine returns the trimmed declaration line for a 1-indexed line number.
func declLine(lines []string, line int) string {
	if line > 0 && line <= len(lines) {
		return strings.TrimSpace(lines[line-1])
	}
	return ""
}

// docText flattens a comment group into a single trimmed string.
func docText(group *ast.CommentGroup) string {
	if group == nil {
		return ""
	}
	return strings.TrimSpace(group.Text())
}
