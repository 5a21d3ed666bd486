// Package parser contains the window query parser.
//
//nolint:govet
package parser

import (
	"fmt"
	"strings"
)

// Identifier is a column, table or window name. Backquotes are removed on capture.
type Identifier string

func (i *Identifier) Capture(values []string) error {
	v := strings.Join(values, "")
	if len(v) >= 2 && strings.HasPrefix(v, "`") && strings.HasSuffix(v, "`") {
		v = v[1 : len(v)-1]
	}
	*i = Identifier(v)
	return nil
}

func (i Identifier) String() string {
	return string(i)
}

// AggregateCall is an aggregate evaluated over a named window, e.g. SUM(amount) OVER w.
type AggregateCall struct {
	Func   Identifier `@Ident "("`
	Star   bool       `( @"*"`
	Arg    Identifier `| @Ident ) ")"`
	Window Identifier `"OVER" @Ident`
}

func (a *AggregateCall) String() string {
	arg := a.Arg.String()
	if a.Star {
		arg = "*"
	}
	return fmt.Sprintf("%s(%s) OVER %s", strings.ToUpper(a.Func.String()), arg, a.Window)
}

// SelectItem is either a column passed through unchanged or an aggregate.
type SelectItem struct {
	Aggregate *AggregateCall `(  @@`
	Column    Identifier     ` | @Ident )`
	Alias     Identifier     `("AS" @Ident)?`
}

// Name is the output column name of the item.
func (s *SelectItem) Name() string {
	if s.Alias != "" {
		return s.Alias.String()
	}
	if s.Aggregate != nil {
		return s.Aggregate.String()
	}
	return s.Column.String()
}

func (s *SelectItem) String() string {
	var item string
	if s.Aggregate != nil {
		item = s.Aggregate.String()
	} else {
		item = s.Column.String()
	}
	if s.Alias != "" {
		item += " AS " + s.Alias.String()
	}
	return item
}

type ColumnRef struct {
	Name Identifier `@Ident`
}

type OrderItem struct {
	Column    Identifier `@Ident`
	Direction string     `@("ASC" | "DESC")?`
}

func (o *OrderItem) Descending() bool {
	return strings.EqualFold(o.Direction, "DESC")
}

// FrameBound is the start of a frame. Frames always end at the current row.
type FrameBound struct {
	Current   bool   `  @("CURRENT" "ROW")`
	Unbounded bool   `| ( @"UNBOUNDED"`
	Offset    *int64 `  | @Number )`
	Direction string `  @("PRECEDING" | "FOLLOWING")`
}

func (f *FrameBound) Following() bool {
	return strings.EqualFold(f.Direction, "FOLLOWING")
}

func (f *FrameBound) String() string {
	switch {
	case f.Current:
		return "CURRENT ROW"
	case f.Unbounded:
		return "UNBOUNDED " + strings.ToUpper(f.Direction)
	default:
		return fmt.Sprintf("%d %s", *f.Offset, strings.ToUpper(f.Direction))
	}
}

type FrameDef struct {
	Type  string      `@("ROWS" | "RANGE") "BETWEEN"`
	Start *FrameBound `@@ "AND" "CURRENT" "ROW"`
}

func (f *FrameDef) Rows() bool {
	return strings.EqualFold(f.Type, "ROWS")
}

// WindowDef is the named window all aggregates of a query are evaluated over. Without a frame the window covers the
// group up to the current row.
type WindowDef struct {
	Name        Identifier   `@Ident "AS" "("`
	PartitionBy []*ColumnRef `("PARTITION" "BY" @@ ("," @@)*)?`
	OrderBy     []*OrderItem `"ORDER" "BY" @@ ("," @@)*`
	Frame       *FrameDef    `@@? ")"`
}

// WindowQuery AST root.
type WindowQuery struct {
	Items  []*SelectItem `"SELECT" @@ ("," @@)*`
	From   Identifier    `"FROM" @Ident`
	Window *WindowDef    `"WINDOW" @@ ";"?`
}

func (q *WindowQuery) String() string {
	sb := strings.Builder{}
	sb.WriteString("SELECT ")
	for i, item := range q.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.String())
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.From.String())
	w := q.Window
	sb.WriteString(" WINDOW ")
	sb.WriteString(w.Name.String())
	sb.WriteString(" AS (")
	if len(w.PartitionBy) > 0 {
		sb.WriteString("PARTITION BY ")
		for i, col := range w.PartitionBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col.Name.String())
		}
		sb.WriteString(" ")
	}
	sb.WriteString("ORDER BY ")
	for i, o := range w.OrderBy {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(o.Column.String())
		if o.Descending() {
			sb.WriteString(" DESC")
		}
	}
	if w.Frame != nil {
		sb.WriteString(fmt.Sprintf(" %s BETWEEN %s AND CURRENT ROW", strings.ToUpper(w.Frame.Type), w.Frame.Start))
	}
	sb.WriteString(")")
	return sb.String()
}
