package types

import "testing"

func TestNumericComparatorAgainstNull(t *testing.T) {
	left := IntValue(5, true)
	right := NullValue(NumericType(Int, true))

	for _, op := range []Op{Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual} {
		cmp, err := MakeComparator(op, left.Type, right.Type)
		if err != nil {
			t.Fatalf("MakeComparator(%v): %v", op, err)
		}
		if cmp.Compare(left, right) {
			t.Errorf("op %v against NULL should be false", op)
		}
		if cmp.Compare(right, left) {
			t.Errorf("op %v from NULL should be false", op)
		}
	}
}

func TestNumericComparatorCoercion(t *testing.T) {
	a := IntValue(3, false)
	b := LongValue(3, false)
	cmp, err := MakeComparator(Equal, a.Type, b.Type)
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Compare(a, b) {
		t.Errorf("Int(3) == Long(3) should hold via coercion")
	}

	less, err := MakeComparator(Less, NumericType(Int, false), NumericType(Double, false))
	if err != nil {
		t.Fatal(err)
	}
	if !less.Compare(IntValue(2, false), DoubleValue(2.5, false)) {
		t.Errorf("Int(2) < Double(2.5) should hold")
	}
}

func TestTypeMismatch(t *testing.T) {
	_, err := MakeComparator(Equal, NumericType(Int, false), CharType(8, false))
	if err == nil {
		t.Fatal("expected TypeMismatch for Int vs Char")
	}
}

func TestStringComparatorOrdering(t *testing.T) {
	apple := VarCharValue([]byte("apple"), 16, false)
	banana := VarCharValue([]byte("banana"), 16, false)
	less, err := MakeComparator(Less, apple.Type, banana.Type)
	if err != nil {
		t.Fatal(err)
	}
	if !less.Compare(apple, banana) {
		t.Error("\"apple\" should be < \"banana\"")
	}

	prefix := VarCharValue([]byte("app"), 16, false)
	if !less.Compare(prefix, apple) {
		t.Error("\"app\" should be < \"apple\" (shorter prefix is smaller)")
	}
}

func TestCoercion(t *testing.T) {
	cases := []struct {
		from, to Type
		want     bool
	}{
		{NumericType(Int, false), NumericType(Long, false), true},
		{NumericType(Long, false), NumericType(Int, false), false},
		{NumericType(Int, false), NumericType(Double, false), true},
		{CharType(4, false), CharType(8, false), true},
		{CharType(8, false), CharType(4, false), false},
		{CharType(4, false), VarCharType(6, false), true},
		{CharType(4, false), VarCharType(4, false), false},
		{NumericType(Int, true), NumericType(Int, false), false},
	}
	for _, c := range cases {
		if got := c.from.CoercesTo(c.to); got != c.want {
			t.Errorf("%+v.CoercesTo(%+v) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
