// Package rules evaluates Datalog pattern rules over facts extracted
// from source code. The default schema and patterns ship embedded;
// callers may layer extra rule files on top before loading facts.
package rules

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"astscope/internal/logging"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

//go:embed schema.mg
var defaultSchema string

//go:embed patterns.mg
var defaultPatterns string

// PatternPredicates lists the built-in derived predicates, in the order
// the match command reports them.
var PatternPredicates = []string{
	"data_record",
	"service_type",
	"constructor_pattern",
	"free_function",
	"documented",
	"undocumented_public",
	"cross_language_twin",
}

// Kernel wraps the google/mangle engine with EDB/IDB separation:
// parser facts form the extensional database, pattern rules the
// intensional one. Every load re-evaluates to fixpoint.
type Kernel struct {
	mu          sync.RWMutex
	facts       []Fact
	store       factstore.FactStore
	programInfo *analysis.ProgramInfo
	schema      string
	patterns    string
	extraRules  []string
	initialized bool
}

// NewKernel creates a kernel with the embedded schema and pattern rules.
func NewKernel() *Kernel {
	return &Kernel{
		facts:    make([]Fact, 0),
		store:    factstore.NewSimpleInMemoryStore(),
		schema:   defaultSchema,
		patterns: defaultPatterns,
	}
}

// AddRules appends user-supplied rule source on top of the built-ins.
// Takes effect on the next LoadFacts/Retract rebuild.
func (k *Kernel) AddRules(src string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.extraRules = append(k.extraRules, src)
}

// LoadFacts adds facts to the EDB and re-evaluates the program.
func (k *Kernel) LoadFacts(facts []Fact) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.facts = append(k.facts, facts...)
	return k.rebuild()
}

// Assert adds a single fact without re-deriving the IDB. The fact is
// visible to queries immediately; derived predicates catch up on the
// next rebuild.
func (k *Kernel) Assert(fact Fact) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.facts = append(k.facts, fact)
	atom, err := fact.ToAtom()
	if err != nil {
		return err
	}
	k.store.Add(atom)
	return nil
}

// Retract removes all facts of a predicate and re-evaluates.
func (k *Kernel) Retract(predicate string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	filtered := make([]Fact, 0, len(k.facts))
	for _, f := range k.facts {
		if f.Predicate != predicate {
			filtered = append(filtered, f)
		}
	}
	k.facts = filtered
	return k.rebuild()
}

// Reset drops all loaded facts. Rules stay.
func (k *Kernel) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.facts = k.facts[:0]
	k.store = factstore.NewSimpleInMemoryStore()
	k.programInfo = nil
	k.initialized = false
}

// rebuild reconstructs the full program text and evaluates it to fixpoint.
// Callers must hold the write lock.
func (k *Kernel) rebuild() error {
	var sb strings.Builder

	sb.WriteString(k.schema)
	sb.WriteString("\n")

	for _, f := range k.facts {
		sb.WriteString(f.String())
		sb.WriteString("\n")
	}

	sb.WriteString(k.patterns)
	for _, extra := range k.extraRules {
		sb.WriteString("\n")
		sb.WriteString(extra)
	}

	parsed, err := parse.Unit(strings.NewReader(sb.String()))
	if err != nil {
		return fmt.Errorf("failed to parse rule program: %w", err)
	}

	programInfo, err := analysis.AnalyzeOneUnit(parsed, nil)
	if err != nil {
		return fmt.Errorf("failed to analyze rule program: %w", err)
	}
	k.programInfo = programInfo

	k.store = factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(programInfo, k.store); err != nil {
		return fmt.Errorf("failed to evaluate rule program: %w", err)
	}

	logging.RulesDebug("Kernel: rebuilt with %d EDB facts", len(k.facts))
	k.initialized = true
	return nil
}

// Query retrieves all facts (base or derived) for a predicate.
// Unknown predicates yield an empty result, not an error.
func (k *Kernel) Query(predicate string) ([]Fact, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if !k.initialized {
		return nil, fmt.Errorf("kernel not initialized: no facts loaded")
	}

	results := make([]Fact, 0)
	if k.programInfo == nil {
		return results, nil
	}

	for pred := range k.programInfo.Decls {
		if pred.Symbol == predicate {
			err := k.store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
				results = append(results, atomToFact(a))
				return nil
			})
			if err != nil {
				return nil, err
			}
			break
		}
	}

	return results, nil
}

// QueryAll retrieves every derived fact, keyed by predicate symbol.
func (k *Kernel) QueryAll() (map[string][]Fact, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if !k.initialized {
		return nil, fmt.Errorf("kernel not initialized: no facts loaded")
	}

	results := make(map[string][]Fact)
	if k.programInfo == nil {
		return results, nil
	}

	for pred := range k.programInfo.Decls {
		err := k.store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
			results[pred.Symbol] = append(results[pred.Symbol], atomToFact(a))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// FactCount reports the size of the EDB.
func (k *Kernel) FactCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.facts)
}
