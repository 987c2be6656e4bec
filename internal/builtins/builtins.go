// Package builtins defines the fixed table of builtin call names the
// validator and lowerer dispatch on: arity, permitted operand kinds,
// statement-vs-expression form, and the effect a call requires.
//
// Grounded on the teacher's internal/builtins registry (a Table map
// populated by per-category register functions) and on design note §9's
// explicit recommendation to replace the long "if (name == ...)" chains
// with a static registry.
package builtins

import "github.com/saruga/primec/internal/effects"

// Arity constrains how many arguments a builtin accepts.
type Arity struct {
	Min int
	Max int // -1 means unbounded
}

func exact(n int) Arity { return Arity{Min: n, Max: n} }

// KindRule names which operand-kind check a builtin's arguments must
// satisfy; the validator owns the actual type-compatibility logic and
// consults this only to pick which rule to run.
type KindRule uint8

const (
	KindRuleNone KindRule = iota
	KindRuleNumericSameKind    // both operands same numeric kind, or pointer+integer offset
	KindRuleComparable         // numeric, bool, or string (VM/native reject string compares)
	KindRuleCollectionOrString // one collection/string target
	KindRuleIndexAccess        // target collection/string, integer index
	KindRuleMutableVector      // target must be a mutable vector binding
	KindRulePrintArg           // integer/bool/string literal/binding/argv access
	KindRulePathspaceArg       // first argument is a string value
	KindRulePow                // two integers or two floats
	KindRuleBoolean            // bool operands
	KindRuleUnaryNumeric       // one numeric operand
	KindRuleAssignTarget       // mutable binding, mutable deref, or field thereof
	KindRulePointer            // pointer/reference target
)

// Builtin describes one entry in the fixed builtin table.
type Builtin struct {
	Name           string
	Arity          Arity
	KindRule       KindRule
	StatementOnly  bool
	RequiredEffect string // "" means no effect required
}

// Table maps builtin call name to its registered entry.
var Table = map[string]*Builtin{}

func register(b Builtin) {
	bb := b
	Table[b.Name] = &bb
}

func init() {
	registerArithmetic()
	registerComparison()
	registerLogical()
	registerCollections()
	registerPrint()
	registerPathspace()
	registerControlFlow()
	registerPointers()
	registerMisc()
}

func registerArithmetic() {
	for _, name := range []string{"plus", "minus", "multiply", "divide"} {
		register(Builtin{Name: name, Arity: exact(2), KindRule: KindRuleNumericSameKind})
	}
	register(Builtin{Name: "negate", Arity: exact(1), KindRule: KindRuleUnaryNumeric})
	register(Builtin{Name: "pow", Arity: exact(2), KindRule: KindRulePow})
}

func registerComparison() {
	for _, name := range []string{"equal", "not_equal", "less_than", "less_equal", "greater_than", "greater_equal"} {
		register(Builtin{Name: name, Arity: exact(2), KindRule: KindRuleComparable})
	}
}

func registerLogical() {
	register(Builtin{Name: "and", Arity: exact(2), KindRule: KindRuleBoolean})
	register(Builtin{Name: "or", Arity: exact(2), KindRule: KindRuleBoolean})
	register(Builtin{Name: "not", Arity: exact(1), KindRule: KindRuleBoolean})
	register(Builtin{Name: "assign", Arity: exact(2), StatementOnly: true, KindRule: KindRuleAssignTarget})
	register(Builtin{Name: "increment", Arity: exact(1), StatementOnly: true, KindRule: KindRuleAssignTarget})
	register(Builtin{Name: "decrement", Arity: exact(1), StatementOnly: true, KindRule: KindRuleAssignTarget})
}

func registerCollections() {
	register(Builtin{Name: "count", Arity: exact(1), KindRule: KindRuleCollectionOrString})
	register(Builtin{Name: "capacity", Arity: exact(1), KindRule: KindRuleCollectionOrString})
	register(Builtin{Name: "at", Arity: exact(2), KindRule: KindRuleIndexAccess})
	register(Builtin{Name: "at_unsafe", Arity: exact(2), KindRule: KindRuleIndexAccess})
	register(Builtin{Name: "push", Arity: exact(2), StatementOnly: true, KindRule: KindRuleMutableVector, RequiredEffect: "heap_alloc"})
	register(Builtin{Name: "pop", Arity: exact(1), StatementOnly: true, KindRule: KindRuleMutableVector})
	register(Builtin{Name: "reserve", Arity: exact(2), StatementOnly: true, KindRule: KindRuleMutableVector, RequiredEffect: "heap_alloc"})
	register(Builtin{Name: "clear", Arity: exact(1), StatementOnly: true, KindRule: KindRuleMutableVector})
	register(Builtin{Name: "remove_at", Arity: exact(2), StatementOnly: true, KindRule: KindRuleMutableVector})
	register(Builtin{Name: "remove_swap", Arity: exact(2), StatementOnly: true, KindRule: KindRuleMutableVector})
}

func registerPrint() {
	register(Builtin{Name: "print", Arity: exact(1), StatementOnly: true, KindRule: KindRulePrintArg, RequiredEffect: "io_out"})
	register(Builtin{Name: "print_line", Arity: exact(1), StatementOnly: true, KindRule: KindRulePrintArg, RequiredEffect: "io_out"})
	register(Builtin{Name: "print_error", Arity: exact(1), StatementOnly: true, KindRule: KindRulePrintArg, RequiredEffect: "io_err"})
	register(Builtin{Name: "print_line_error", Arity: exact(1), StatementOnly: true, KindRule: KindRulePrintArg, RequiredEffect: "io_err"})
}

func registerPathspace() {
	register(Builtin{Name: "notify", Arity: Arity{Min: 1, Max: -1}, StatementOnly: true, KindRule: KindRulePathspaceArg, RequiredEffect: "pathspace_notify"})
	register(Builtin{Name: "insert", Arity: Arity{Min: 1, Max: -1}, StatementOnly: true, KindRule: KindRulePathspaceArg, RequiredEffect: "pathspace_insert"})
	register(Builtin{Name: "take", Arity: Arity{Min: 1, Max: -1}, StatementOnly: true, KindRule: KindRulePathspaceArg, RequiredEffect: "pathspace_take"})
}

func registerControlFlow() {
	register(Builtin{Name: "if", Arity: Arity{Min: 2, Max: 3}, KindRule: KindRuleNone})
	register(Builtin{Name: "loop", Arity: exact(2), StatementOnly: true, KindRule: KindRuleNone})
	register(Builtin{Name: "while", Arity: exact(2), StatementOnly: true, KindRule: KindRuleNone})
	register(Builtin{Name: "for", Arity: exact(4), StatementOnly: true, KindRule: KindRuleNone})
	register(Builtin{Name: "repeat", Arity: exact(2), StatementOnly: true, KindRule: KindRuleNone})
	register(Builtin{Name: "return", Arity: Arity{Min: 0, Max: 1}, StatementOnly: true, KindRule: KindRuleNone})
	register(Builtin{Name: "block", Arity: exact(0), KindRule: KindRuleNone})
}

func registerPointers() {
	register(Builtin{Name: "location", Arity: exact(1), KindRule: KindRulePointer})
	register(Builtin{Name: "dereference", Arity: exact(1), KindRule: KindRulePointer})
}

func registerMisc() {
	register(Builtin{Name: "convert", Arity: exact(1), KindRule: KindRuleNone})
}

// Lookup returns the builtin registered under name, or nil.
func Lookup(name string) *Builtin {
	return Table[name]
}

// CheckArity reports whether n arguments satisfy b's arity.
func (b *Builtin) CheckArity(n int) bool {
	if n < b.Arity.Min {
		return false
	}
	return b.Arity.Max == -1 || n <= b.Arity.Max
}

// RequiresEffect reports whether b requires an active effect, and
// which one.
func (b *Builtin) RequiresEffect() (string, bool) {
	return b.RequiredEffect, b.RequiredEffect != ""
}

// IsActiveEffectSatisfied reports whether b's required effect (if any)
// is present in active.
func (b *Builtin) IsActiveEffectSatisfied(active effects.Set) bool {
	if b.RequiredEffect == "" {
		return true
	}
	return active.Has(b.RequiredEffect)
}
