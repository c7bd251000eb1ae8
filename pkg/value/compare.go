package value

import (
	"fmt"
	"math"
	"sort"
)

// ComparisonTypeError reports an ordered comparison (<, <=, >, >=, or a
// sort) attempted between values that have no defined order relative to
// each other — different kinds (other than the always-legal ==/!=), or
// Currency values with different codes. spec.md §4.1/§4.7.
type ComparisonTypeError struct {
	Left, Right Kind
	Reason      string
	NaN         bool // true when the failure is specifically a NaN operand, not a kind mismatch
}

func (e *ComparisonTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot order %s and %s: %s", e.Left, e.Right, e.Reason)
	}
	return fmt.Sprintf("cannot order %s and %s", e.Left, e.Right)
}

// Compare returns -1/0/1 for an ordered comparison of a and b, per the
// total order spec.md §4.1 defines within each kind:
//
//	strings lexicographic; Integer/Float numeric (compared as reals);
//	Currency only same-code; DateTime by instant; Boolean false < true;
//	References by FullId string form; Lists lexicographically.
//
// Cross-kind comparisons (other than Integer vs Float, which are both
// numeric) return a *ComparisonTypeError, as does any comparison
// involving a NaN Float.
func Compare(a, b FieldValue) (int, error) {
	if a.Kind() != b.Kind() {
		if isNumeric(a) && isNumeric(b) {
			return compareNumeric(a, b)
		}
		return 0, &ComparisonTypeError{Left: a.Kind(), Right: b.Kind()}
	}

	switch av := a.(type) {
	case String:
		bv := b.(String)
		return compareStrings(string(av), string(bv)), nil
	case Integer, Float:
		return compareNumeric(a, b)
	case Boolean:
		bv := b.(Boolean)
		return compareBool(bool(av), bool(bv)), nil
	case Currency:
		bv := b.(Currency)
		if av.Code != bv.Code {
			return 0, &ComparisonTypeError{Left: a.Kind(), Right: b.Kind(), Reason: fmt.Sprintf("currency codes %s and %s differ", av.Code, bv.Code)}
		}
		return av.Amount.Cmp(bv.Amount), nil
	case DateTime:
		bv := b.(DateTime)
		return av.Compare(bv), nil
	case EntityRef:
		bv := b.(EntityRef)
		return compareStrings(av.Full.String(), bv.Full.String()), nil
	case FieldRef:
		bv := b.(FieldRef)
		return compareStrings(av.String(), bv.String()), nil
	case Path:
		bv := b.(Path)
		return compareStrings(string(av), string(bv)), nil
	case Enum:
		bv := b.(Enum)
		return compareStrings(string(av), string(bv)), nil
	case List:
		bv := b.(List)
		return compareLists(av, bv)
	default:
		return 0, &ComparisonTypeError{Left: a.Kind(), Right: b.Kind(), Reason: "no defined order"}
	}
}

func isNumeric(v FieldValue) bool {
	k := v.Kind()
	return k == KindInteger || k == KindFloat
}

func compareNumeric(a, b FieldValue) (int, error) {
	af, aNaN := asFloat(a)
	bf, bNaN := asFloat(b)
	if aNaN || bNaN {
		return 0, &ComparisonTypeError{Left: a.Kind(), Right: b.Kind(), Reason: "NaN has no order", NaN: true}
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

func asFloat(v FieldValue) (f float64, isNaN bool) {
	switch n := v.(type) {
	case Integer:
		return float64(n), false
	case Float:
		return float64(n), math.IsNaN(float64(n))
	default:
		return 0, false
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func compareLists(a, b List) (int, error) {
	n := len(a.Items)
	if len(b.Items) < n {
		n = len(b.Items)
	}
	for i := 0; i < n; i++ {
		c, err := Compare(a.Items[i], b.Items[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return compareInts(len(a.Items), len(b.Items)), nil
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortStableByCompare stable-sorts items using Compare. A pair whose
// comparison fails (mismatched kinds, differing currency codes, or a NaN)
// counts as unordered, neither less than the other, so no error is raised
// and incomparable values are not moved to any particular position. This
// is the same rule pkg/query's orderBag applies inline for the `order`
// operator, where only entities missing the field are placed last.
func SortStableByCompare(items []FieldValue, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		c, err := Compare(items[i], items[j])
		if err != nil {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
