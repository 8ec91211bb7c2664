package types

// ComparisonPredicate is a single attribute/literal comparison: the shape
// that every pushdown path in page and csbtree knows how to accelerate.
type ComparisonPredicate struct {
	AttributeID int
	Op          Op
	Literal     TypedValue
}

// Predicate is the external contract this module requires from the
// comparison/predicate evaluator named as out-of-scope in spec.md §1. Any
// predicate that is a single attribute/literal comparison should expose
// itself via AsComparison so that page and csbtree pushdown paths can
// apply; every predicate must support row-by-row Evaluate as the fallback
// spec.md §4.3/§4.5 describe for predicates that aren't eligible for
// pushdown.
type Predicate interface {
	// AsComparison returns the predicate's comparison form and true if this
	// predicate is a single attribute/literal comparison eligible for
	// pushdown; ok is false for any other predicate shape (conjunctions,
	// disjunctions, multi-attribute expressions, ...).
	AsComparison() (cmp ComparisonPredicate, ok bool)

	// Evaluate runs the predicate against one tuple, given a getter from
	// attribute id to its value in that tuple. Used for the full-scan
	// fallback path.
	Evaluate(get func(attributeID int) TypedValue) bool
}

// Comparison is the trivial Predicate implementation wrapping a single
// ComparisonPredicate; most synthetic workloads and tests use it directly
// rather than a full expression tree.
type Comparison struct {
	ComparisonPredicate
}

// NewComparison builds a Predicate for "attribute OP literal".
func NewComparison(attributeID int, op Op, literal TypedValue) Comparison {
	return Comparison{ComparisonPredicate{AttributeID: attributeID, Op: op, Literal: literal}}
}

func (c Comparison) AsComparison() (ComparisonPredicate, bool) { return c.ComparisonPredicate, true }

func (c Comparison) Evaluate(get func(attributeID int) TypedValue) bool {
	cmp, err := MakeComparator(c.Op, get(c.AttributeID).Type, c.Literal.Type)
	if err != nil {
		return false
	}
	return cmp.Compare(get(c.AttributeID), c.Literal)
}
