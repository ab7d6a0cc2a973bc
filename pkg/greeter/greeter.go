// Package greeter is a deliberately small fixture package. Its shapes
// (a struct with a constructor and a method, a free function, and a
// plain data record) are the archetypes the pattern rules detect, and
// the multi-language scan fixtures mirror it in Python and Rust.
package greeter

import "fmt"

// Greeter greets people with a configurable greeting.
type Greeter struct {
	greeting string
}

// New returns a Greeter that uses the given greeting.
func New(greeting string) *Greeter {
	return &Greeter{greeting: greeting}
}

// Greet returns the greeting for name, e.g. "Hello, World!".
func (g *Greeter) Greet(name string) string {
	return fmt.Sprintf("%s, %s!", g.greeting, name)
}

// Farewell says goodbye to name.
func Farewell(name string) string {
	return fmt.Sprintf("Goodbye, %s!", name)
}

// Person is a plain data record.
type Person struct {
	Name string
	Age  int
}
