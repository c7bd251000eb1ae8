package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/42futures/firm/pkg/graph"
	"github.com/42futures/firm/pkg/value"
)

// Row is one record produced by a `select` aggregation: Values is keyed by
// the same labels Fields lists, in the order the query named them.
type Row struct {
	Fields []string
	Values map[string]value.FieldValue
}

// Result is whatever a query's final pipeline stage produced. Exactly one
// of Entities, Rows, or Scalar is set, depending on whether the query ends
// in no aggregation, `select`, or one of count/sum/average/median
// (spec.md §4.7).
type Result struct {
	Entities []*graph.Entity
	Rows     []Row
	Scalar   value.FieldValue
}

// Execute runs q against g, a frozen graph, and returns its result. Two
// runs of the same query against the same graph always produce a
// byte-equal result (spec.md §8 determinism property).
func Execute(q *Query, g *graph.Graph) (*Result, error) {
	bag, err := initialBag(q.Selector, g)
	if err != nil {
		return nil, err
	}

	for _, op := range q.Ops {
		bag, err = applyOp(bag, op, g)
		if err != nil {
			return nil, err
		}
	}

	if q.Aggregation == nil {
		return &Result{Entities: bag}, nil
	}
	return applyAggregation(bag, q.Aggregation)
}

func initialBag(sel Selector, g *graph.Graph) ([]*graph.Entity, error) {
	if sel.All {
		return g.ListAll(), nil
	}
	return g.ListByType(sel.Type), nil
}

func applyOp(bag []*graph.Entity, op Op, g *graph.Graph) ([]*graph.Entity, error) {
	switch o := op.(type) {
	case *WhereOp:
		return filterWhere(bag, o.Condition)
	case *RelatedOp:
		return expandRelated(bag, o, g), nil
	case *OrderOp:
		return orderBag(bag, o), nil
	case *LimitOp:
		return limitBag(bag, o.N), nil
	default:
		return bag, nil
	}
}

func filterWhere(bag []*graph.Entity, cond *Condition) ([]*graph.Entity, error) {
	var out []*graph.Entity
	for _, e := range bag {
		ok, err := evalCondition(e, cond)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func evalCondition(e *graph.Entity, cond *Condition) (bool, error) {
	result, err := evalAtom(e, cond.Atoms[0])
	if err != nil {
		return false, err
	}
	for _, atom := range cond.Atoms[1:] {
		v, err := evalAtom(e, atom)
		if err != nil {
			return false, err
		}
		if cond.Op == LogicalOr {
			result = result || v
		} else {
			result = result && v
		}
	}
	return result, nil
}

// evalAtom reports the atom's truth for e. A missing field is false for
// every comparison except `!=` against a literal, which is true — an
// entity that doesn't carry the field is trivially unequal to it
// (spec.md §4.7).
func evalAtom(e *graph.Entity, atom Atom) (bool, error) {
	fv, ok := lookupField(e, atom.Field)
	if !ok {
		return atom.Cmp == CmpNeq, nil
	}
	return evalCmp(atom.Cmp, fv, atom.Value)
}

func lookupField(e *graph.Entity, f Field) (value.FieldValue, bool) {
	switch f.Kind {
	case FieldKindId:
		return value.String(string(e.Full.ID)), true
	case FieldKindType:
		return value.String(string(e.Full.Type)), true
	default:
		v, ok := e.Fields[f.Name]
		return v, ok
	}
}

func evalCmp(cmp CmpOp, a, b value.FieldValue) (bool, error) {
	switch cmp {
	case CmpEq:
		return valuesEqual(a, b), nil
	case CmpNeq:
		return !valuesEqual(a, b), nil
	case CmpGt, CmpLt, CmpGte, CmpLte:
		c, err := value.Compare(a, b)
		if err != nil {
			var cerr *value.ComparisonTypeError
			if errors.As(err, &cerr) && cerr.NaN {
				return false, nil
			}
			return false, err
		}
		switch cmp {
		case CmpGt:
			return c > 0, nil
		case CmpLt:
			return c < 0, nil
		case CmpGte:
			return c >= 0, nil
		default:
			return c <= 0, nil
		}
	case CmpContains:
		return evalContains(a, b), nil
	case CmpStartsWith:
		return evalStartsEnds(a, b, true), nil
	case CmpEndsWith:
		return evalStartsEnds(a, b, false), nil
	case CmpIn:
		list, ok := b.(value.List)
		if !ok {
			return false, nil
		}
		return evalIn(a, list), nil
	default:
		return false, fmt.Errorf("unknown comparison operator %v", cmp)
	}
}

// valuesEqual implements `==`/`!=`'s cross-kind-safe equality: incomparable
// kinds (including a Currency pair with mismatched codes) are simply
// unequal rather than an error. Enum compares case-insensitively here, the
// same as list `contains`; only `in` (via inEquals) stays exact-case, per
// spec.md §9 Open Questions.
func valuesEqual(a, b value.FieldValue) bool {
	if ae, ok := a.(value.Enum); ok {
		be, ok := b.(value.Enum)
		return ok && strings.EqualFold(string(ae), string(be))
	}
	if _, ok := b.(value.Enum); ok {
		return false
	}
	c, err := value.Compare(a, b)
	if err != nil {
		return false
	}
	return c == 0
}

// inEquals is the exact-match equality `in` uses — Enum compares with
// its canonical casing, unlike valuesEqual.
func inEquals(a, b value.FieldValue) bool {
	return a.Equal(b)
}

// evalContains implements `contains`: substring test on a String, membership
// test on a List. List membership uses valuesEqual (case-insensitive Enum),
// not inEquals — spec.md §9 Open Questions resolves `contains` the same
// loose way as `==`, leaving `in` as the one exact-match membership test.
func evalContains(a, b value.FieldValue) bool {
	switch av := a.(type) {
	case value.String:
		bv, ok := b.(value.String)
		return ok && strings.Contains(string(av), string(bv))
	case value.List:
		for _, item := range av.Items {
			if valuesEqual(item, b) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func evalStartsEnds(a, b value.FieldValue, prefix bool) bool {
	av, ok := a.(value.String)
	if !ok {
		return false
	}
	bv, ok := b.(value.String)
	if !ok {
		return false
	}
	if prefix {
		return strings.HasPrefix(string(av), string(bv))
	}
	return strings.HasSuffix(string(av), string(bv))
}

func evalIn(a value.FieldValue, list value.List) bool {
	for _, item := range list.Items {
		if inEquals(a, item) {
			return true
		}
	}
	return false
}

// expandRelated replaces the bag with the union of every seed's K-hop
// neighborhood, seeds excluded and the union deduplicated — it does not
// keep the seeds themselves (spec.md §4.7, §8 scenario 5).
func expandRelated(bag []*graph.Entity, op *RelatedOp, g *graph.Graph) []*graph.Entity {
	seeds := make(map[string]bool, len(bag))
	for _, e := range bag {
		seeds[e.Full.String()] = true
	}

	seen := make(map[string]bool)
	var out []*graph.Entity
	for _, e := range bag {
		for _, n := range g.KHop(e.Full, op.K, op.Type) {
			key := n.Full.String()
			if seeds[key] || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, n)
		}
	}
	return out
}

// orderBag stable-sorts bag by Field. Entities missing the field sort
// after every entity that has it, regardless of asc/desc; entities whose
// values are present but incomparable (a ComparisonTypeError) keep their
// relative order rather than erroring, the same policy
// value.SortStableByCompare documents for this operator.
func orderBag(bag []*graph.Entity, op *OrderOp) []*graph.Entity {
	type keyed struct {
		e       *graph.Entity
		v       value.FieldValue
		present bool
	}
	items := make([]keyed, len(bag))
	for i, e := range bag {
		v, ok := lookupField(e, op.Field)
		items[i] = keyed{e: e, v: v, present: ok}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].present != items[j].present {
			return items[i].present
		}
		if !items[i].present {
			return false
		}
		c, err := value.Compare(items[i].v, items[j].v)
		if err != nil {
			return false
		}
		if op.Desc {
			return c > 0
		}
		return c < 0
	})

	out := make([]*graph.Entity, len(items))
	for i, it := range items {
		out[i] = it.e
	}
	return out
}

func limitBag(bag []*graph.Entity, n int) []*graph.Entity {
	if n >= len(bag) {
		return bag
	}
	return bag[:n]
}

func applyAggregation(bag []*graph.Entity, agg Aggregation) (*Result, error) {
	switch a := agg.(type) {
	case SelectAgg:
		return &Result{Rows: selectRows(bag, a.Fields)}, nil
	case CountAgg:
		return &Result{Scalar: value.Integer(countBag(bag, a.Field))}, nil
	case SumAgg:
		v, err := sumField(bag, a.Field)
		if err != nil {
			return nil, err
		}
		return &Result{Scalar: v}, nil
	case AverageAgg:
		v, err := averageField(bag, a.Field)
		if err != nil {
			return nil, err
		}
		return &Result{Scalar: v}, nil
	case MedianAgg:
		v, err := medianField(bag, a.Field)
		if err != nil {
			return nil, err
		}
		return &Result{Scalar: v}, nil
	default:
		return nil, fmt.Errorf("unknown aggregation type %T", agg)
	}
}

func fieldLabel(f Field) string {
	switch f.Kind {
	case FieldKindId:
		return "@id"
	case FieldKindType:
		return "@type"
	default:
		return string(f.Name)
	}
}

func selectRows(bag []*graph.Entity, fields []Field) []Row {
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = fieldLabel(f)
	}
	rows := make([]Row, len(bag))
	for i, e := range bag {
		values := make(map[string]value.FieldValue, len(fields))
		for j, f := range fields {
			v, ok := lookupField(e, f)
			if !ok {
				v = value.String("")
			}
			values[labels[j]] = v
		}
		rows[i] = Row{Fields: labels, Values: values}
	}
	return rows
}

func countBag(bag []*graph.Entity, field *Field) int {
	if field == nil {
		return len(bag)
	}
	n := 0
	for _, e := range bag {
		if _, ok := lookupField(e, *field); ok {
			n++
		}
	}
	return n
}

func collectValues(bag []*graph.Entity, field Field) []value.FieldValue {
	var out []value.FieldValue
	for _, e := range bag {
		if v, ok := lookupField(e, field); ok {
			out = append(out, v)
		}
	}
	return out
}

func sumField(bag []*graph.Entity, field Field) (value.FieldValue, error) {
	return reduceSum(field, collectValues(bag, field))
}

// reduceSum adds vals, which must all be Integer/Float or all Currency of
// one code (spec.md §4.7 "sum requires Integer, Float, or Currency;
// mixed currency codes is an error"). Summing zero values yields the
// additive identity rather than an error — only average/median treat an
// empty input as a failure.
func reduceSum(field Field, vals []value.FieldValue) (value.FieldValue, error) {
	if len(vals) == 0 {
		return value.Integer(0), nil
	}
	if _, ok := vals[0].(value.Currency); ok {
		return sumCurrency(field, vals)
	}
	return sumNumeric(field, vals)
}

func sumCurrency(field Field, vals []value.FieldValue) (value.FieldValue, error) {
	sum, ok := vals[0].(value.Currency)
	if !ok {
		return nil, fmt.Errorf("field %q is not consistently a currency field", fieldLabel(field))
	}
	for _, v := range vals[1:] {
		cv, ok := v.(value.Currency)
		if !ok {
			return nil, fmt.Errorf("field %q is not consistently a currency field", fieldLabel(field))
		}
		if cv.Code != sum.Code {
			return nil, &MixedCurrenciesError{First: sum.Code, Second: cv.Code}
		}
		sum = sum.Add(cv)
	}
	return sum, nil
}

func sumNumeric(field Field, vals []value.FieldValue) (value.FieldValue, error) {
	useFloat := false
	for _, v := range vals {
		switch v.(type) {
		case value.Integer:
		case value.Float:
			useFloat = true
		default:
			return nil, fmt.Errorf("field %q is not an integer, float, or currency field", fieldLabel(field))
		}
	}
	if useFloat {
		var total float64
		for _, v := range vals {
			total += numericFloat(v)
		}
		return value.Float(total), nil
	}
	var total int64
	for _, v := range vals {
		total += int64(v.(value.Integer))
	}
	return value.Integer(total), nil
}

func numericFloat(v value.FieldValue) float64 {
	switch tv := v.(type) {
	case value.Integer:
		return float64(tv)
	case value.Float:
		return float64(tv)
	default:
		return 0
	}
}

func averageField(bag []*graph.Entity, field Field) (value.FieldValue, error) {
	vals := collectValues(bag, field)
	if len(vals) == 0 {
		return nil, &EmptyAggregationError{Field: fieldLabel(field), Kind: "average"}
	}
	sum, err := reduceSum(field, vals)
	if err != nil {
		return nil, err
	}
	if cv, ok := sum.(value.Currency); ok {
		avg := cv.Amount.Div(decimal.NewFromInt(int64(len(vals)))).Round(4)
		return value.Currency{Amount: avg, Code: cv.Code}, nil
	}
	return value.Float(numericFloat(sum) / float64(len(vals))), nil
}

func medianField(bag []*graph.Entity, field Field) (value.FieldValue, error) {
	vals := collectValues(bag, field)
	if len(vals) == 0 {
		return nil, &EmptyAggregationError{Field: fieldLabel(field), Kind: "median"}
	}
	// reduceSum validates the same type/currency-code rules median needs,
	// without using the sum it returns.
	if _, err := reduceSum(field, vals); err != nil {
		return nil, err
	}

	sorted := append([]value.FieldValue(nil), vals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		c, _ := value.Compare(sorted[i], sorted[j])
		return c < 0
	})

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2], nil
	}
	return averageOfTwo(sorted[n/2-1], sorted[n/2])
}

func averageOfTwo(a, b value.FieldValue) (value.FieldValue, error) {
	if av, ok := a.(value.Currency); ok {
		bv := b.(value.Currency)
		sum := av.Add(bv)
		avg := sum.Amount.Div(decimal.NewFromInt(2)).Round(4)
		return value.Currency{Amount: avg, Code: sum.Code}, nil
	}
	return value.Float((numericFloat(a) + numericFloat(b)) / 2), nil
}
