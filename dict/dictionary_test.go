package dict

import (
	"testing"

	"github.com/fenwickdb/coldb/types"
)

func buildIntDict(t *testing.T, vals []int32) *Dictionary {
	t.Helper()
	typ := types.NumericType(types.Int, false)
	b := NewBuilder(typ)
	for _, v := range vals {
		if _, err := b.Add(types.IntValue(v, false)); err != nil {
			t.Fatal(err)
		}
	}
	d, err := Attach(b.Build(), typ)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDictionaryRoundTrip(t *testing.T) {
	// P2: for every code c < num_codes, code_for(value_for(c)) == c.
	d := buildIntDict(t, []int32{30, 10, 20, 10, 5})
	for c := uint32(0); c < d.NumCodes(); c++ {
		v, err := d.ValueFor(c)
		if err != nil {
			t.Fatal(err)
		}
		got, err := d.CodeFor(v)
		if err != nil {
			t.Fatal(err)
		}
		if got != c {
			t.Errorf("code_for(value_for(%d)) = %d, want %d", c, got, c)
		}
	}
}

func TestDictionaryOrdering(t *testing.T) {
	// P3: for c1 < c2, less(value_for(c1), value_for(c2)).
	d := buildIntDict(t, []int32{30, 10, 20, 5})
	less, err := types.MakeLessThan(types.NumericType(types.Int, false), types.NumericType(types.Int, false))
	if err != nil {
		t.Fatal(err)
	}
	for c := uint32(1); c < d.NumCodes(); c++ {
		a, _ := d.ValueFor(c - 1)
		b, _ := d.ValueFor(c)
		if !less.Less(a, b) {
			t.Errorf("value_for(%d) should be < value_for(%d)", c-1, c)
		}
	}
}

func TestCodeOutOfRange(t *testing.T) {
	d := buildIntDict(t, []int32{1, 2, 3})
	if _, err := d.ValueFor(d.NumCodes()); err == nil {
		t.Fatal("expected CodeOutOfRange")
	}
}

func TestCodeForNotFoundSentinel(t *testing.T) {
	d := buildIntDict(t, []int32{10, 20, 30})
	got, err := d.CodeFor(types.IntValue(15, false))
	if err != nil {
		t.Fatal(err)
	}
	if got != d.NumCodes() {
		t.Errorf("CodeFor(15) = %d, want not-found sentinel %d", got, d.NumCodes())
	}
}

func TestLimitCodesEqual(t *testing.T) {
	d := buildIntDict(t, []int32{10, 20, 30})
	lo, hi, err := d.LimitCodes(types.Equal, types.IntValue(20, false))
	if err != nil {
		t.Fatal(err)
	}
	if hi != lo+1 {
		t.Errorf("Equal on present value should yield a single-code range, got [%d,%d)", lo, hi)
	}

	lo, hi, err = d.LimitCodes(types.Equal, types.IntValue(15, false))
	if err != nil {
		t.Fatal(err)
	}
	if lo != d.NumCodes() || hi != d.NumCodes() {
		t.Errorf("Equal on absent value should yield empty range at num_codes, got [%d,%d)", lo, hi)
	}
}

func TestLimitCodesOrderedOps(t *testing.T) {
	d := buildIntDict(t, []int32{10, 20, 30})
	lo, hi, err := d.LimitCodes(types.LessOrEqual, types.IntValue(20, false))
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0 || hi != 2 {
		t.Errorf("<=20 should match codes [0,2), got [%d,%d)", lo, hi)
	}

	lo, hi, err = d.LimitCodes(types.Greater, types.IntValue(20, false))
	if err != nil {
		t.Fatal(err)
	}
	if lo != 2 || hi != 3 {
		t.Errorf(">20 should match codes [2,3), got [%d,%d)", lo, hi)
	}
}

func TestVariableLengthDictionary(t *testing.T) {
	typ := types.VarCharType(16, false)
	b := NewBuilder(typ)
	for _, s := range []string{"cherry", "apple", "banana"} {
		if _, err := b.Add(types.VarCharValue([]byte(s), 16, false)); err != nil {
			t.Fatal(err)
		}
	}
	d, err := Attach(b.Build(), typ)
	if err != nil {
		t.Fatal(err)
	}
	v0, _ := d.ValueFor(0)
	if string(v0.Raw) != "apple" {
		t.Errorf("code 0 = %q, want apple", v0.Raw)
	}

	lo, hi, err := d.LimitCodes(types.LessOrEqual, types.VarCharValue([]byte("banana"), 16, false))
	if err != nil {
		t.Fatal(err)
	}
	if hi-lo != 2 {
		t.Errorf("<=banana should match 2 codes (apple, banana), got %d", hi-lo)
	}
}

func TestBuilderRollback(t *testing.T) {
	// P4: rollback must leave the builder byte-identical to its
	// pre-insertion state.
	typ := types.NumericType(types.Int, false)
	b := NewBuilder(typ)
	b.Add(types.IntValue(1, false))
	b.Add(types.IntValue(2, false))
	before := b.Build()

	snap := b.Snapshot()
	b.Add(types.IntValue(3, false))
	b.Restore(snap)

	after := b.Build()
	if string(before) != string(after) {
		t.Errorf("rollback did not restore byte-identical state")
	}
}
