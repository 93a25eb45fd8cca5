package query

import (
	"fmt"

	"github.com/roach88/calstore/internal/calerr"
	"github.com/roach88/calstore/internal/record"
	"github.com/roach88/calstore/internal/wire"
)

// Filter is a node of a filter tree.
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// Op joins two consecutive children of a composite.
type Op int32

const (
	OpAnd Op = iota
	OpOr
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	}
	return fmt.Sprintf("op(%d)", int32(o))
}

// Match is the comparison a leaf applies. String properties take the
// string kinds; every other data type takes the numeric kinds.
type Match int32

const (
	MatchExactly Match = iota + 1
	MatchFullString
	MatchContains
	MatchStartsWith
	MatchEndsWith
	MatchExists
)

const (
	MatchEqual Match = iota + 0x11
	MatchGreaterThan
	MatchGreaterOrEqual
	MatchLessThan
	MatchLessOrEqual
	MatchNotEqual
	MatchIsNull
)

var matchNames = map[Match]string{
	MatchExactly:        "EXACTLY",
	MatchFullString:     "FULLSTRING",
	MatchContains:       "CONTAINS",
	MatchStartsWith:     "STARTSWITH",
	MatchEndsWith:       "ENDSWITH",
	MatchExists:         "EXISTS",
	MatchEqual:          "=",
	MatchGreaterThan:    ">",
	MatchGreaterOrEqual: ">=",
	MatchLessThan:       "<",
	MatchLessOrEqual:    "<=",
	MatchNotEqual:       "!=",
	MatchIsNull:         "ISNULL",
}

func (m Match) String() string {
	if s, ok := matchNames[m]; ok {
		return s
	}
	return fmt.Sprintf("match(%d)", int32(m))
}

// IsStringMatch reports whether m applies to string properties.
func (m Match) IsStringMatch() bool { return m >= MatchExactly && m <= MatchExists }

// IsNumericMatch reports whether m applies to int, double, int64 and time
// properties.
func (m Match) IsNumericMatch() bool { return m >= MatchEqual && m <= MatchIsNull }

// Composite combines child filters of one view. Ops[i] joins Children[i]
// and Children[i+1].
type Composite struct {
	View     string
	Children []Filter
	Ops      []Op
}

func (*Composite) filterNode() {}

// Leaf compares one property against a typed operand.
type Leaf struct {
	Property record.PropertyID
	Match    Match
	Value    record.Value
}

func (*Leaf) filterNode() {}

// NewComposite returns an empty composite for view. An empty composite
// matches every record.
func NewComposite(view string) *Composite {
	return &Composite{View: view}
}

// Where returns a composite for view whose first child is f.
func Where(view string, f Filter) *Composite {
	return &Composite{View: view, Children: []Filter{f}}
}

// And appends f joined by AND. On an empty composite f becomes the first
// child and no operator is added.
func (c *Composite) And(f Filter) *Composite { return c.add(OpAnd, f) }

// Or appends f joined by OR.
func (c *Composite) Or(f Filter) *Composite { return c.add(OpOr, f) }

func (c *Composite) add(op Op, f Filter) *Composite {
	if len(c.Children) > 0 {
		c.Ops = append(c.Ops, op)
	}
	c.Children = append(c.Children, f)
	return c
}

// MatchString returns a string leaf.
func MatchString(id record.PropertyID, m Match, s string) *Leaf {
	return &Leaf{Property: id, Match: m, Value: record.StringValue(s)}
}

// MatchInt returns an int leaf.
func MatchInt(id record.PropertyID, m Match, v int32) *Leaf {
	return &Leaf{Property: id, Match: m, Value: record.IntValue(v)}
}

// MatchDouble returns a double leaf.
func MatchDouble(id record.PropertyID, m Match, v float64) *Leaf {
	return &Leaf{Property: id, Match: m, Value: record.DoubleValue(v)}
}

// MatchInt64 returns an int64 leaf.
func MatchInt64(id record.PropertyID, m Match, v int64) *Leaf {
	return &Leaf{Property: id, Match: m, Value: record.Int64Value(v)}
}

// MatchTime returns a time leaf.
func MatchTime(id record.PropertyID, m Match, v record.CalTime) *Leaf {
	return &Leaf{Property: id, Match: m, Value: record.TimeValue(v)}
}

// Filter node tags on the wire.
const (
	tagComposite int32 = 1
	tagLeaf      int32 = 2
)

// maxDepth bounds composite nesting on decode.
const maxDepth = 32

// minNodeSize is the smallest encoded node: a leaf's tag, property id, match
// kind and a four-byte operand.
const minNodeSize = 16

func filterFields(s wire.Stream, f *Filter, depth int) {
	if depth > maxDepth {
		s.Fail(calerr.New(calerr.InvalidParameter, "filter", "nesting deeper than %d", maxDepth))
		return
	}
	var tag int32
	if !s.Decoding() {
		switch n := (*f).(type) {
		case *Composite:
			tag = tagComposite
			if n == nil {
				tag = 0
			}
		case *Leaf:
			tag = tagLeaf
			if n == nil {
				tag = 0
			}
		}
		if tag == 0 {
			s.Fail(calerr.New(calerr.InvalidParameter, "filter", "unsupported filter node %T", *f))
			return
		}
	}
	s.Int32(&tag)
	if s.Err() != nil {
		return
	}
	switch tag {
	case tagComposite:
		c, _ := (*f).(*Composite)
		if s.Decoding() {
			c = &Composite{}
		}
		c.fields(s, depth)
		if s.Decoding() && s.Err() == nil {
			*f = c
		}
	case tagLeaf:
		l, _ := (*f).(*Leaf)
		if s.Decoding() {
			l = &Leaf{}
		}
		l.fields(s)
		if s.Decoding() && s.Err() == nil {
			*f = l
		}
	default:
		s.Fail(calerr.New(calerr.InvalidParameter, "filter", "unknown filter tag %d", tag))
	}
}

func (c *Composite) fields(s wire.Stream, depth int) {
	if !s.Decoding() && !opsBalanced(len(c.Children), len(c.Ops)) {
		s.Fail(opCountError(c))
		return
	}
	s.Text(&c.View)

	n := len(c.Children)
	s.Count(&n, minNodeSize)
	if s.Err() != nil {
		return
	}
	if s.Decoding() {
		c.Children = nil
		if n > 0 {
			c.Children = make([]Filter, n)
		}
	}
	for i := range c.Children {
		filterFields(s, &c.Children[i], depth+1)
		if s.Err() != nil {
			return
		}
	}

	m := len(c.Ops)
	s.Count(&m, 4)
	if s.Err() != nil {
		return
	}
	if s.Decoding() {
		c.Ops = nil
		if m > 0 {
			c.Ops = make([]Op, m)
		}
	}
	for i := range c.Ops {
		op := int32(c.Ops[i])
		s.Int32(&op)
		c.Ops[i] = Op(op)
		if s.Decoding() && c.Ops[i] != OpAnd && c.Ops[i] != OpOr {
			s.Fail(calerr.New(calerr.InvalidParameter, "filter", "unknown operator %d", op))
			return
		}
	}
	if s.Decoding() && s.Err() == nil && !opsBalanced(n, m) {
		s.Fail(opCountError(c))
	}
}

func (l *Leaf) fields(s wire.Stream) {
	id := uint32(l.Property)
	s.Uint32(&id)
	l.Property = record.PropertyID(id)
	m := int32(l.Match)
	s.Int32(&m)
	l.Match = Match(m)
	if s.Err() != nil {
		return
	}
	l.Value.Fields(s, l.Property.DataType())
}

// opsBalanced reports whether a composite with n children may carry m
// operators.
func opsBalanced(n, m int) bool {
	if n == 0 {
		return m == 0
	}
	return m == n-1
}

func opCountError(c *Composite) error {
	return calerr.New(calerr.InvalidParameter, "filter",
		"composite on %s has %d children and %d operators", c.View, len(c.Children), len(c.Ops))
}
