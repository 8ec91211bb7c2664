package page

import (
	"testing"

	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

func intRelation(ids ...int) types.Relation {
	attrs := make([]types.Attribute, len(ids))
	for i, id := range ids {
		attrs[i] = types.Attribute{ID: id, Type: types.NumericType(types.Int, false)}
	}
	return types.NewRelation(attrs)
}

func tupleOf(vals ...int32) types.Tuple {
	tv := make([]types.TypedValue, len(vals))
	for i, v := range vals {
		tv[i] = types.IntValue(v, false)
	}
	return types.Tuple{Values: tv}
}

// Scenario 1 from spec.md §8.
func TestSortedInsertScenario(t *testing.T) {
	rel := intRelation(0, 1)
	p, err := NewSortedPage(rel, 0, 4+100*8)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range [][2]int32{{3, 30}, {1, 10}, {2, 20}} {
		if _, err := p.Insert(tupleOf(row[0], row[1])); err != nil {
			t.Fatal(err)
		}
	}
	wantA := []int32{1, 2, 3}
	wantB := []int32{10, 20, 30}
	for i := 0; i < 3; i++ {
		a, _ := p.Get(base.TupleID(i), 0)
		b, _ := p.Get(base.TupleID(i), 1)
		if a.I64 != int64(wantA[i]) || b.I64 != int64(wantB[i]) {
			t.Errorf("tuple %d = (%d,%d), want (%d,%d)", i, a.I64, b.I64, wantA[i], wantB[i])
		}
	}
}

func TestSortedPageFull(t *testing.T) {
	rel := intRelation(0)
	p, err := NewSortedPage(rel, 0, 4+2*4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Insert(tupleOf(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Insert(tupleOf(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Insert(tupleOf(3)); err == nil {
		t.Fatal("expected ErrFull")
	}
}

// P1: after rebuild(), the sort-attribute stripe is fully ordered.
func TestRebuildSortInvariant(t *testing.T) {
	rel := intRelation(0)
	p, err := NewSortedPage(rel, 0, 4+10*4)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int32{5, 1, 4, 2, 3} {
		if _, err := p.InsertBatch(tupleOf(v)); err != nil {
			t.Fatal(err)
		}
	}
	if p.IsSorted() {
		t.Fatal("page should be unsorted after InsertBatch")
	}
	changed, err := p.Rebuild()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("Rebuild should report it did work")
	}
	for i := 1; i < p.NumTuples(); i++ {
		a, _ := p.Get(base.TupleID(i-1), 0)
		b, _ := p.Get(base.TupleID(i), 0)
		if a.I64 > b.I64 {
			t.Errorf("not sorted at %d: %d > %d", i, a.I64, b.I64)
		}
	}

	again, err := p.Rebuild()
	if err != nil {
		t.Fatal(err)
	}
	if again {
		t.Error("second Rebuild on an already-sorted page should be a no-op")
	}
}

func TestDeleteLastAndMiddle(t *testing.T) {
	rel := intRelation(0)
	p, _ := NewSortedPage(rel, 0, 4+10*4)
	for _, v := range []int32{1, 2, 3, 4} {
		p.Insert(tupleOf(v))
	}
	p.Delete(3) // last
	if p.NumTuples() != 3 {
		t.Fatalf("NumTuples = %d, want 3", p.NumTuples())
	}
	p.Delete(1) // middle: removes value 2
	if p.NumTuples() != 2 {
		t.Fatalf("NumTuples = %d, want 2", p.NumTuples())
	}
	a, _ := p.Get(0, 0)
	b, _ := p.Get(1, 0)
	if a.I64 != 1 || b.I64 != 3 {
		t.Errorf("after deletes got (%d,%d), want (1,3)", a.I64, b.I64)
	}
}

func TestSortedMatchesRange(t *testing.T) {
	rel := intRelation(0)
	p, _ := NewSortedPage(rel, 0, 4+10*4)
	for _, v := range []int32{10, 20, 30, 40} {
		p.Insert(tupleOf(v))
	}
	ids, err := p.Matches(types.NewComparison(0, types.LessOrEqual, types.IntValue(20, false)))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("<=20 should match 2 tuples, got %d", len(ids))
	}
}
