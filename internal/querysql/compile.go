// Package querysql compiles calendar queries to parameterized SQLite SQL
// over the store's records table.
//
// Each record row keeps its properties as a JSON document in the data
// column, keyed by the property names of the record's view. Filter leaves
// become json_extract comparisons against that document.
//
// All values are parameterized, never interpolated, including the JSON
// paths. Every SELECT ends in ORDER BY with the row id as final tiebreaker,
// so results are deterministic.
package querysql

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/calstore/internal/query"
	"github.com/roach88/calstore/internal/record"
)

// Compiler compiles queries against one table.
type Compiler struct {
	// Table is the records table name. It is trusted, not user input.
	Table string
}

// NewCompiler returns a compiler for the store's records table.
func NewCompiler() *Compiler {
	return &Compiler{Table: "records"}
}

// Select compiles q into a statement returning (id, blob) rows. A negative
// limit means no limit.
func (c *Compiler) Select(q *query.Query, offset, limit int) (string, []any, error) {
	where, params, err := c.where(q)
	if err != nil {
		return "", nil, err
	}
	order, orderParams, err := c.orderBy(q)
	if err != nil {
		return "", nil, err
	}
	params = append(params, orderParams...)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT id, blob FROM %s WHERE %s ORDER BY %s", c.Table, where, order)
	if limit >= 0 || offset > 0 {
		if limit < 0 {
			limit = -1
		}
		sb.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, limit, offset)
	}
	return sb.String(), params, nil
}

// Count compiles q into a statement returning the number of matching rows.
func (c *Compiler) Count(q *query.Query) (string, []any, error) {
	where, params, err := c.where(q)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", c.Table, where), params, nil
}

// Filter compiles a composite on its own. An empty composite is "1 = 1".
func (c *Compiler) Filter(f *query.Composite) (string, []any, error) {
	if f == nil {
		return "1 = 1", nil, nil
	}
	return c.compileComposite(f.View, f)
}

func (c *Compiler) where(q *query.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := query.Validate(q); err != nil {
		return "", nil, err
	}
	clause := "view = ?"
	params := []any{q.View}
	if q.Filter != nil && len(q.Filter.Children) > 0 {
		sql, fp, err := c.compileComposite(q.View, q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		clause += " AND " + sql
		params = append(params, fp...)
	}
	return clause, params, nil
}

// orderBy returns the ORDER BY list. The row id is always the last key.
func (c *Compiler) orderBy(q *query.Query) (string, []any, error) {
	dir := "ASC"
	if !q.Ascending {
		dir = "DESC"
	}
	if q.SortProperty == 0 {
		return "id " + dir, nil, nil
	}
	name, err := record.PropertyName(q.View, q.SortProperty)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("json_extract(data, ?) %s, id %s", dir, dir), []any{jsonPath(name)}, nil
}

func (c *Compiler) compileFilter(view string, f query.Filter) (string, []any, error) {
	switch n := f.(type) {
	case *query.Composite:
		return c.compileComposite(view, n)
	case *query.Leaf:
		return c.compileLeaf(view, n)
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

// compileComposite joins the children with their operators. Every composite
// is parenthesized so operators bind exactly as the tree nests.
func (c *Compiler) compileComposite(view string, f *query.Composite) (string, []any, error) {
	if len(f.Children) == 0 {
		return "1 = 1", nil, nil
	}
	var sb strings.Builder
	var params []any
	sb.WriteString("(")
	for i, child := range f.Children {
		if i > 0 {
			switch f.Ops[i-1] {
			case query.OpAnd:
				sb.WriteString(" AND ")
			case query.OpOr:
				sb.WriteString(" OR ")
			default:
				return "", nil, fmt.Errorf("unsupported operator %s", f.Ops[i-1])
			}
		}
		sql, p, err := c.compileFilter(view, child)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(sql)
		params = append(params, p...)
	}
	sb.WriteString(")")
	return sb.String(), params, nil
}

func (c *Compiler) compileLeaf(view string, l *query.Leaf) (string, []any, error) {
	name, err := record.PropertyName(view, l.Property)
	if err != nil {
		return "", nil, err
	}
	col := "json_extract(data, ?)"
	path := jsonPath(name)

	if l.Property.DataType() == record.DataString {
		s := norm.NFC.String(l.Value.Str.String)
		switch l.Match {
		case query.MatchExactly:
			return col + " = ?", []any{path, s}, nil
		case query.MatchFullString:
			return col + " = ? COLLATE NOCASE", []any{path, s}, nil
		case query.MatchContains:
			return col + ` LIKE ? ESCAPE '\'`, []any{path, "%" + escapeLike(s) + "%"}, nil
		case query.MatchStartsWith:
			return col + ` LIKE ? ESCAPE '\'`, []any{path, escapeLike(s) + "%"}, nil
		case query.MatchEndsWith:
			return col + ` LIKE ? ESCAPE '\'`, []any{path, "%" + escapeLike(s)}, nil
		case query.MatchExists:
			return col + " IS NOT NULL", []any{path}, nil
		}
		return "", nil, fmt.Errorf("unsupported string match %s", l.Match)
	}

	operand, err := valueToParam(l.Value)
	if err != nil {
		return "", nil, err
	}
	var op string
	switch l.Match {
	case query.MatchEqual:
		op = "="
	case query.MatchGreaterThan:
		op = ">"
	case query.MatchGreaterOrEqual:
		op = ">="
	case query.MatchLessThan:
		op = "<"
	case query.MatchLessOrEqual:
		op = "<="
	case query.MatchNotEqual:
		op = "!="
	case query.MatchIsNull:
		return col + " IS NULL", []any{path}, nil
	default:
		return "", nil, fmt.Errorf("unsupported numeric match %s", l.Match)
	}
	return fmt.Sprintf("%s %s ?", col, op), []any{path, operand}, nil
}

// valueToParam converts a numeric operand to a SQL parameter. Times compare
// by sort key, the form the store writes into documents.
func valueToParam(v record.Value) (any, error) {
	switch v.Type {
	case record.DataInt:
		return int64(v.Int), nil
	case record.DataDouble:
		return v.Double, nil
	case record.DataInt64:
		return v.Int64, nil
	case record.DataTime:
		return v.Time.SortKey(), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %s", v.Type)
	}
}

func jsonPath(name string) string {
	return `$."` + name + `"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
