package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureFacts mirrors what the parsers emit for a small workspace:
// a Go Greeter (struct + constructor + method), a Go Person data
// record, and a Python Greeter class twin.
func fixtureFacts() []Fact {
	return []Fact{
		// Go Greeter struct with a method and a constructor.
		{Predicate: "code_element", Args: []interface{}{"go:sample.Greeter", "/struct", "sample.go", int64(6), int64(8)}},
		{Predicate: "element_name", Args: []interface{}{"go:sample.Greeter", "Greeter"}},
		{Predicate: "element_visibility", Args: []interface{}{"go:sample.Greeter", "/public"}},
		{Predicate: "element_lang", Args: []interface{}{"go:sample.Greeter", "/go"}},
		{Predicate: "element_doc", Args: []interface{}{"go:sample.Greeter", "Greeter says hello."}},
		{Predicate: "go_struct", Args: []interface{}{"go:sample.Greeter"}},
		{Predicate: "has_field", Args: []interface{}{"go:sample.Greeter", "greeting"}},

		{Predicate: "code_element", Args: []interface{}{"go:sample.NewGreeter", "/function", "sample.go", int64(10), int64(12)}},
		{Predicate: "element_name", Args: []interface{}{"go:sample.NewGreeter", "NewGreeter"}},
		{Predicate: "element_visibility", Args: []interface{}{"go:sample.NewGreeter", "/public"}},
		{Predicate: "element_lang", Args: []interface{}{"go:sample.NewGreeter", "/go"}},
		{Predicate: "element_doc", Args: []interface{}{"go:sample.NewGreeter", "NewGreeter builds a Greeter."}},
		{Predicate: "constructor_candidate", Args: []interface{}{"go:sample.NewGreeter", "Greeter"}},

		{Predicate: "code_element", Args: []interface{}{"go:sample.Greeter.Greet", "/method", "sample.go", int64(14), int64(16)}},
		{Predicate: "element_name", Args: []interface{}{"go:sample.Greeter.Greet", "Greet"}},
		{Predicate: "element_visibility", Args: []interface{}{"go:sample.Greeter.Greet", "/public"}},
		{Predicate: "element_lang", Args: []interface{}{"go:sample.Greeter.Greet", "/go"}},
		{Predicate: "method_of", Args: []interface{}{"go:sample.Greeter.Greet", "go:sample.Greeter"}},

		// Go Person: fields, no methods, no doc.
		{Predicate: "code_element", Args: []interface{}{"go:sample.Person", "/struct", "sample.go", int64(20), int64(23)}},
		{Predicate: "element_name", Args: []interface{}{"go:sample.Person", "Person"}},
		{Predicate: "element_visibility", Args: []interface{}{"go:sample.Person", "/public"}},
		{Predicate: "element_lang", Args: []interface{}{"go:sample.Person", "/go"}},
		{Predicate: "go_struct", Args: []interface{}{"go:sample.Person"}},
		{Predicate: "has_field", Args: []interface{}{"go:sample.Person", "Name"}},
		{Predicate: "has_field", Args: []interface{}{"go:sample.Person", "Age"}},

		// Python Greeter class, same bare name as the Go struct.
		{Predicate: "code_element", Args: []interface{}{"py:sample.Greeter", "/class", "sample.py", int64(3), int64(10)}},
		{Predicate: "element_name", Args: []interface{}{"py:sample.Greeter", "Greeter"}},
		{Predicate: "element_visibility", Args: []interface{}{"py:sample.Greeter", "/public"}},
		{Predicate: "element_lang", Args: []interface{}{"py:sample.Greeter", "/py"}},
		{Predicate: "element_doc", Args: []interface{}{"py:sample.Greeter", "Greets people."}},
		{Predicate: "py_class", Args: []interface{}{"py:sample.Greeter"}},
		{Predicate: "method_of", Args: []interface{}{"py:sample.Greeter.say", "py:sample.Greeter"}},

		// A public free function.
		{Predicate: "code_element", Args: []interface{}{"go:sample.Farewell", "/function", "sample.go", int64(26), int64(28)}},
		{Predicate: "element_name", Args: []interface{}{"go:sample.Farewell", "Farewell"}},
		{Predicate: "element_visibility", Args: []interface{}{"go:sample.Farewell", "/public"}},
		{Predicate: "element_lang", Args: []interface{}{"go:sample.Farewell", "/go"}},
	}
}

func refs(facts []Fact) []string {
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		if len(f.Args) > 0 {
			if s, ok := f.Args[0].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func loadedKernel(t *testing.T) *Kernel {
	t.Helper()
	k := NewKernel()
	require.NoError(t, k.LoadFacts(fixtureFacts()))
	return k
}

func TestKernel_DerivesRulesNotJustBaseFacts(t *testing.T) {
	k := loadedKernel(t)

	// Base facts land in the store as loaded.
	structs, err := k.Query("go_struct")
	require.NoError(t, err)
	assert.Len(t, structs, 2)

	// Evaluation must also run the rules: record_shape is derived, never
	// asserted directly, so an empty result means no rule fired at all.
	shapes, err := k.Query("record_shape")
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"go:sample.Greeter", "go:sample.Person", "py:sample.Greeter"},
		refs(shapes))
}

func TestKernel_ServiceTypeVsDataRecord(t *testing.T) {
	k := loadedKernel(t)

	services, err := k.Query("service_type")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"go:sample.Greeter", "py:sample.Greeter"}, refs(services))

	records, err := k.Query("data_record")
	require.NoError(t, err)
	// Person has fields and no methods; Greeter is excluded by negation.
	assert.ElementsMatch(t, []string{"go:sample.Person"}, refs(records))
}

func TestKernel_ConstructorPattern(t *testing.T) {
	k := loadedKernel(t)

	ctors, err := k.Query("constructor_pattern")
	require.NoError(t, err)
	require.Len(t, ctors, 1)
	assert.Equal(t, "go:sample.Greeter", ctors[0].Args[0])
	assert.Equal(t, "go:sample.NewGreeter", ctors[0].Args[1])
}

func TestKernel_FreeFunction(t *testing.T) {
	k := loadedKernel(t)

	free, err := k.Query("free_function")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"go:sample.NewGreeter", "go:sample.Farewell"}, refs(free))
}

func TestKernel_UndocumentedPublic(t *testing.T) {
	k := loadedKernel(t)

	undoc, err := k.Query("undocumented_public")
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"go:sample.Greeter.Greet", "go:sample.Person", "go:sample.Farewell"},
		refs(undoc))
}

func TestKernel_CrossLanguageTwin(t *testing.T) {
	k := loadedKernel(t)

	twins, err := k.Query("cross_language_twin")
	require.NoError(t, err)
	// Directed by language order: exactly one (go, py) pair, no
	// self-pairs, no reversed duplicate.
	require.Len(t, twins, 1)
	assert.Equal(t, "go:sample.Greeter", twins[0].Args[0])
	assert.Equal(t, "py:sample.Greeter", twins[0].Args[1])
}

func TestKernel_QueryUnknownPredicate(t *testing.T) {
	k := loadedKernel(t)

	facts, err := k.Query("no_such_predicate")
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestKernel_QueryBeforeLoadFails(t *testing.T) {
	k := NewKernel()
	_, err := k.Query("data_record")
	assert.Error(t, err)
}

func TestKernel_ExtraRules(t *testing.T) {
	k := NewKernel()
	k.AddRules("Decl twin_name(Name).\ntwin_name(Name) :- cross_language_twin(A, B), element_name(A, Name).")
	require.NoError(t, k.LoadFacts(fixtureFacts()))

	names, err := k.Query("twin_name")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "Greeter", names[0].Args[0])
}

func TestKernel_RetractAndReset(t *testing.T) {
	k := loadedKernel(t)
	before := k.FactCount()

	require.NoError(t, k.Retract("py_class"))
	assert.Equal(t, before-1, k.FactCount())

	// Without py_class the Python Greeter is no longer a record shape,
	// so the twin disappears.
	twins, err := k.Query("cross_language_twin")
	require.NoError(t, err)
	assert.Empty(t, twins)

	k.Reset()
	assert.Equal(t, 0, k.FactCount())
	_, err = k.Query("data_record")
	assert.Error(t, err)
}

func TestKernel_QueryAll(t *testing.T) {
	k := loadedKernel(t)

	all, err := k.QueryAll()
	require.NoError(t, err)
	assert.NotEmpty(t, all["record_shape"])
	assert.NotEmpty(t, all["service_type"])
	assert.NotEmpty(t, all["constructor_pattern"])
}

func TestFact_String(t *testing.T) {
	f := Fact{Predicate: "code_element", Args: []interface{}{"go:x.Y", "/struct", "x.go", int64(1), int64(2)}}
	assert.Equal(t, `code_element("go:x.Y", /struct, "x.go", 1, 2).`, f.String())
}
