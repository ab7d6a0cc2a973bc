package lang

import (
	"os"
	"path/filepath"
	"testing"
)

func findByRef(elements []Element, ref string) *Element {
	for i := range elements {
		if elements[i].Ref == ref {
			return &elements[i]
		}
	}
	return nil
}

func TestGoParser_ParseFixture(t *testing.T) {
	parser := NewGoParser()

	if parser.Language() != "go" {
		t.Errorf("Language() = %s, want go", parser.Language())
	}
	exts := parser.SupportedExtensions()
	if len(exts) != 1 || exts[0] != ".go" {
		t.Errorf("SupportedExtensions() = %v, want [.go]", exts)
	}

	content, err := os.ReadFile(filepath.Join("testdata", "multi-lang", "sample.go"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	elements, err := parser.Parse("sample.go", content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	greeter := findByRef(elements, "go:main.Greeter")
	if greeter == nil {
		t.Fatal("Greeter struct not found")
	}
	if greeter.Kind != KindStruct {
		t.Errorf("Greeter kind = %s, want struct", greeter.Kind)
	}
	if greeter.Visibility != VisibilityPublic {
		t.Errorf("Greeter visibility = %s, want public", greeter.Visibility)
	}
	if greeter.Doc != "Greeter greets people" {
		t.Errorf("Greeter doc = %q, want %q", greeter.Doc, "Greeter greets people")
	}

	greet := findByRef(elements, "go:main.Greeter.Greet")
	if greet == nil {
		t.Fatal("Greet method not found")
	}
	if greet.Kind != KindMethod {
		t.Errorf("Greet kind = %s, want method", greet.Kind)
	}
	if greet.Parent != greeter.Ref {
		t.Errorf("Greet parent = %s, want %s", greet.Parent, greeter.Ref)
	}

	farewell := findByRef(elements, "go:main.Farewell")
	if farewell == nil {
		t.Fatal("Farewell function not found")
	}
	if farewell.Kind != KindFunction {
		t.Errorf("Farewell kind = %s, want function", farewell.Kind)
	}
	if farewell.Parent != "" {
		t.Errorf("Farewell parent = %s, want empty", farewell.Parent)
	}

	person := findByRef(elements, "go:main.Person")
	if person == nil {
		t.Fatal("Person struct not found")
	}
	for _, field := range []string{"Name", "Age"} {
		f := findByRef(elements, "go:main.Person."+field)
		if f == nil {
			t.Fatalf("Person field %s not found", field)
		}
		if f.Kind != KindField || f.Parent != person.Ref {
			t.Errorf("Person.%s kind=%s parent=%s, want field/%s", field, f.Kind, f.Parent, person.Ref)
		}
	}

	mainFn := findByRef(elements, "go:main.main")
	if mainFn == nil {
		t.Fatal("main function not found")
	}
	if mainFn.Visibility != VisibilityPrivate {
		t.Errorf("main visibility = %s, want private", mainFn.Visibility)
	}
}

func TestGoParser_ConstructorDetection(t *testing.T) {
	src := `package users

// User is an account holder.
type User struct {
	ID   int
	Name string
}

// NewUser creates a User.
func NewUser(id int, name string) *User {
	return &User{ID: id, Name: name}
}

// Rename is not a constructor.
func Rename(u *User, name string) *User {
	u.Name = name
	return u
}
`
	parser := NewGoParser()
	elements, err := parser.Parse("users.go", []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ctor := findByRef(elements, "go:users.NewUser")
	if ctor == nil {
		t.Fatal("NewUser not found")
	}
	if ctor.Constructs != "User" {
		t.Errorf("NewUser constructs = %q, want User", ctor.Constructs)
	}

	rename := findByRef(elements, "go:users.Rename")
	if rename == nil {
		t.Fatal("Rename not found")
	}
	if rename.Constructs != "" {
		t.Errorf("Rename constructs = %q, want empty", rename.Constructs)
	}

	facts := parser.EmitLanguageFacts(elements)
	var sawStruct, sawCtor bool
	for _, f := range facts {
		switch f.Predicate {
		case "go_struct":
			sawStruct = true
		case "constructor_candidate":
			sawCtor = true
			if f.Args[1] != "User" {
				t.Errorf("constructor_candidate target = %v, want User", f.Args[1])
			}
		}
	}
	if !sawStruct || !sawCtor {
		t.Errorf("missing facts: go_struct=%v constructor_candidate=%v", sawStruct, sawCtor)
	}
}

func TestGoParser_EmptyFile(t *testing.T) {
	parser := NewGoParser()
	elements, err := parser.Parse("empty.go", []byte("package empty\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("expected 0 elements, got %d", len(elements))
	}
}

func TestGoParser_InvalidSource(t *testing.T) {
	parser := NewGoParser()
	if _, err := parser.Parse("broken.go", []byte("func {")); err == nil {
		t.Error("expected parse error for invalid source")
	}
}
