package parser

import (
	"testing"

	"github.com/alecthomas/repr"
	"github.com/squareup/winagg/errors"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected *WindowQuery
		err      string
	}{
		{"RunningSum", `SELECT g, o, SUM(v) OVER w AS total FROM readings
			WINDOW w AS (PARTITION BY g ORDER BY o RANGE BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW)`,
			&WindowQuery{
				Items: []*SelectItem{
					{Column: "g"},
					{Column: "o"},
					{Aggregate: &AggregateCall{Func: "SUM", Arg: "v", Window: "w"}, Alias: "total"},
				},
				From: "readings",
				Window: &WindowDef{
					Name:        "w",
					PartitionBy: []*ColumnRef{{Name: "g"}},
					OrderBy:     []*OrderItem{{Column: "o"}},
					Frame:       &FrameDef{Type: "RANGE", Start: &FrameBound{Unbounded: true, Direction: "PRECEDING"}},
				},
			}, ""},
		{"RowsFrameLowerCase", `select count(*) over win from t window win as (partition by a, b order by ts desc rows between 3 preceding and current row);`,
			&WindowQuery{
				Items: []*SelectItem{
					{Aggregate: &AggregateCall{Func: "count", Star: true, Window: "win"}},
				},
				From: "t",
				Window: &WindowDef{
					Name:        "win",
					PartitionBy: []*ColumnRef{{Name: "a"}, {Name: "b"}},
					OrderBy:     []*OrderItem{{Column: "ts", Direction: "desc"}},
					Frame:       &FrameDef{Type: "rows", Start: &FrameBound{Offset: int64Ptr(3), Direction: "preceding"}},
				},
			}, ""},
		{"NoPartitionNoFrame", "SELECT `order`, MAX(`value`) OVER w FROM t WINDOW w AS (ORDER BY `order` ASC)",
			&WindowQuery{
				Items: []*SelectItem{
					{Column: "order"},
					{Aggregate: &AggregateCall{Func: "MAX", Arg: "value", Window: "w"}},
				},
				From: "t",
				Window: &WindowDef{
					Name:    "w",
					OrderBy: []*OrderItem{{Column: "order", Direction: "ASC"}},
				},
			}, ""},
		{"TwoOrderColumns", `SELECT SUM(v) OVER w FROM t WINDOW w AS (PARTITION BY g ORDER BY o1, o2 RANGE BETWEEN CURRENT ROW AND CURRENT ROW)`,
			&WindowQuery{
				Items: []*SelectItem{
					{Aggregate: &AggregateCall{Func: "SUM", Arg: "v", Window: "w"}},
				},
				From: "t",
				Window: &WindowDef{
					Name:        "w",
					PartitionBy: []*ColumnRef{{Name: "g"}},
					OrderBy:     []*OrderItem{{Column: "o1"}, {Column: "o2"}},
					Frame:       &FrameDef{Type: "RANGE", Start: &FrameBound{Current: true}},
				},
			}, ""},
		{"Following", `SELECT SUM(v) OVER w FROM t WINDOW w AS (ORDER BY o ROWS BETWEEN 2 FOLLOWING AND CURRENT ROW)`,
			&WindowQuery{
				Items: []*SelectItem{
					{Aggregate: &AggregateCall{Func: "SUM", Arg: "v", Window: "w"}},
				},
				From: "t",
				Window: &WindowDef{
					Name:    "w",
					OrderBy: []*OrderItem{{Column: "o"}},
					Frame:   &FrameDef{Type: "ROWS", Start: &FrameBound{Offset: int64Ptr(2), Direction: "FOLLOWING"}},
				},
			}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := Parse(test.sql)
			if test.err != "" {
				require.EqualError(t, err, test.err)
			} else {
				require.NoError(t, err)
				require.Equal(t,
					repr.String(test.expected, repr.IgnoreGoStringer(), repr.Indent("  ")),
					repr.String(actual, repr.IgnoreGoStringer(), repr.Indent("  ")),
					repr.String(actual, repr.IgnoreGoStringer(), repr.Indent("  ")))
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, sql := range []string{
		"",
		"SELECT FROM t",
		"SELECT a FROM t",
		"SELECT SUM(v) OVER w FROM t WINDOW w AS (PARTITION BY g)",
		"SELECT SUM(v) OVER w FROM t WINDOW w AS (ORDER BY o ROWS BETWEEN UNBOUNDED PRECEDING AND 1 FOLLOWING)",
		"SELECT SUM(v) OVER w FROM t WINDOW w AS (ORDER BY o ROWS BETWEEN 1.5 PRECEDING AND CURRENT ROW)",
		"DROP TABLE t",
	} {
		_, err := Parse(sql)
		require.Error(t, err, sql)
		require.True(t, errors.HasCode(err, errors.InvalidStatement), "%s: %v", sql, err)
	}
}

func TestQueryString(t *testing.T) {
	sql := "SELECT g, SUM(v) OVER w AS total, COUNT(*) OVER w FROM t WINDOW w AS (PARTITION BY g, h ORDER BY o DESC " +
		"ROWS BETWEEN 5 PRECEDING AND CURRENT ROW)"
	q, err := Parse(sql)
	require.NoError(t, err)
	require.Equal(t, sql, q.String())

	again, err := Parse(q.String())
	require.NoError(t, err)
	require.Equal(t, q, again)
}

func TestItemNames(t *testing.T) {
	q, err := Parse("select g, sum(v) over w, min(v) over w as lowest from t window w as (order by o)")
	require.NoError(t, err)
	require.Equal(t, "g", q.Items[0].Name())
	require.Equal(t, "SUM(v) OVER w", q.Items[1].Name())
	require.Equal(t, "lowest", q.Items[2].Name())
}
