package query

import (
	"fmt"
	"strings"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
)

// Validate checks a query against the record registry before it reaches
// storage.
//
// Rules:
//  1. The view is known.
//  2. Every composite in the filter is on the query's view.
//  3. Every composite has one operator fewer than children.
//  4. Every leaf property belongs to the view and its operand has the
//     property's data type.
//  5. String properties take string match kinds; all others take numeric
//     match kinds.
//  6. Projected and sort properties belong to the view.
//
// All violations are reported together as one InvalidParameter error.
func Validate(q *Query) error {
	if q == nil {
		return calerr.New(calerr.InvalidParameter, "validate query", "nil query")
	}
	v := &validator{view: q.View}
	if _, err := record.TypeForView(q.View); err != nil {
		v.addProblem("unknown view %q", q.View)
		return v.result()
	}
	if q.Filter != nil {
		v.validateFilter(q.Filter)
	}
	for _, id := range q.Projection {
		v.checkProperty(id, "projection")
	}
	if q.SortProperty != 0 {
		v.checkProperty(q.SortProperty, "sort")
	}
	return v.result()
}

// validator accumulates problems during traversal.
type validator struct {
	view     string
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) result() error {
	if len(v.problems) == 0 {
		return nil
	}
	return calerr.New(calerr.InvalidParameter, "validate query", "%s", strings.Join(v.problems, "; "))
}

func (v *validator) checkProperty(id record.PropertyID, where string) bool {
	if _, err := record.PropertyName(v.view, id); err != nil {
		v.addProblem("%s property %s is not in %s", where, id, v.view)
		return false
	}
	return true
}

func (v *validator) validateFilter(f Filter) {
	switch n := f.(type) {
	case *Composite:
		if n == nil {
			v.addProblem("nil composite")
			return
		}
		v.validateComposite(n)
	case *Leaf:
		if n == nil {
			v.addProblem("nil leaf")
			return
		}
		v.validateLeaf(n)
	default:
		v.addProblem("unknown filter node %T", f)
	}
}

func (v *validator) validateComposite(c *Composite) {
	if c.View != v.view {
		v.addProblem("composite on %s inside query on %s", c.View, v.view)
	}
	if !opsBalanced(len(c.Children), len(c.Ops)) {
		v.addProblem("composite has %d children and %d operators", len(c.Children), len(c.Ops))
	}
	for _, child := range c.Children {
		v.validateFilter(child)
	}
}

func (v *validator) validateLeaf(l *Leaf) {
	if !v.checkProperty(l.Property, "filter") {
		return
	}
	dt := l.Property.DataType()
	if l.Value.Type != dt {
		v.addProblem("filter on %s compares a %s property with a %s value", l.Property, dt, l.Value.Type)
	}
	switch {
	case dt == record.DataString && !l.Match.IsStringMatch():
		v.addProblem("match %s does not apply to string property %s", l.Match, l.Property)
	case dt != record.DataString && !l.Match.IsNumericMatch():
		v.addProblem("match %s does not apply to %s property %s", l.Match, dt, l.Property)
	}
}
