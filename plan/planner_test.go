package plan

import (
	"math"
	"testing"

	"github.com/squareup/winagg/command/parser"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/conf"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/kernel"
	"github.com/stretchr/testify/require"
)

func TestExecuteQuery(t *testing.T) {
	p := newPlanner(t, conf.NewTestConfig(), nil)
	ds := dataset(t, gov,
		[]interface{}{int64(1), int64(1), int64(10)},
		[]interface{}{int64(1), int64(2), int64(20)},
		[]interface{}{int64(2), int64(1), int64(5)},
		[]interface{}{int64(1), int64(3), nil},
		[]interface{}{int64(1), int64(4), int64(1)},
	)
	out, err := p.ExecuteQuery(`SELECT g, o, SUM(v) OVER w AS total, COUNT(v) OVER w AS n, COUNT(*) OVER w AS n_all
		FROM t WINDOW w AS (PARTITION BY g ORDER BY o ROWS BETWEEN 2 PRECEDING AND CURRENT ROW)`, ds)
	require.NoError(t, err)
	require.Equal(t, []string{"g", "o", "total", "n", "n_all"}, common.ColumnNames(out.Columns))
	sortRows(out.Rows, 2)
	require.Equal(t, [][]interface{}{
		{int64(1), int64(1), int64(10), int64(1), int64(1)},
		{int64(1), int64(2), int64(30), int64(2), int64(2)},
		{int64(1), int64(3), int64(30), int64(2), int64(3)},
		{int64(1), int64(4), int64(21), int64(2), int64(3)},
		{int64(2), int64(1), int64(5), int64(1), int64(1)},
	}, values(out.Rows))
}

func TestExecuteQueryDescending(t *testing.T) {
	p := newPlanner(t, conf.NewTestConfig(), nil)
	ds := dataset(t, gov,
		[]interface{}{int64(1), int64(1), int64(1)},
		[]interface{}{int64(1), int64(2), int64(2)},
		[]interface{}{int64(1), int64(3), int64(3)},
	)
	out, err := p.ExecuteQuery("SELECT o, FIRST_VALUE(v) OVER w AS first FROM t WINDOW w AS (PARTITION BY g ORDER BY o DESC)", ds)
	require.NoError(t, err)
	require.Equal(t, [][]interface{}{
		{int64(3), int64(3)},
		{int64(2), int64(3)},
		{int64(1), int64(3)},
	}, values(out.Rows))
}

func TestExecuteQueryTwoOrderColumns(t *testing.T) {
	p := newPlanner(t, conf.NewTestConfig(), nil)
	_, err := p.ExecuteQuery("SELECT SUM(v) OVER w FROM t WINDOW w AS (PARTITION BY g ORDER BY o, v)", dataset(t, gov))
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.UnsupportedOrderKey), err.Error())
}

func TestStageDefFromQueryErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		code errors.ErrorCode
	}{
		{"UnknownWindow", "SELECT SUM(v) OVER w2 FROM t WINDOW w AS (ORDER BY o)", errors.InvalidStatement},
		{"UnknownFunction", "SELECT MEDIAN(v) OVER w FROM t WINDOW w AS (ORDER BY o)", errors.InvalidStatement},
		{"Following", "SELECT SUM(v) OVER w FROM t WINDOW w AS (ORDER BY o ROWS BETWEEN 1 FOLLOWING AND CURRENT ROW)", errors.InvalidFrame},
		{"UnboundedFollowing", "SELECT SUM(v) OVER w FROM t WINDOW w AS (ORDER BY o ROWS BETWEEN UNBOUNDED FOLLOWING AND CURRENT ROW)", errors.InvalidFrame},
		{"NegativeOffset", "SELECT SUM(v) OVER w FROM t WINDOW w AS (ORDER BY o RANGE BETWEEN -3 PRECEDING AND CURRENT ROW)", errors.InvalidFrame},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			query, err := parser.Parse(test.sql)
			require.NoError(t, err)
			_, err = StageDefFromQuery(query)
			require.Error(t, err)
			require.True(t, errors.HasCode(err, test.code), err.Error())
		})
	}
}

func TestFrames(t *testing.T) {
	tests := []struct {
		window string
		frame  kernel.Frame
	}{
		{"ORDER BY o", kernel.Frame{Type: kernel.FrameRange, StartOffset: kernel.UnboundedPreceding}},
		{"ORDER BY o RANGE BETWEEN 100 PRECEDING AND CURRENT ROW", kernel.Frame{Type: kernel.FrameRange, StartOffset: -100}},
		{"ORDER BY o ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW", kernel.Frame{Type: kernel.FrameRows, StartOffset: kernel.UnboundedPreceding}},
		{"ORDER BY o ROWS BETWEEN CURRENT ROW AND CURRENT ROW", kernel.Frame{Type: kernel.FrameRows}},
		{"ORDER BY o ROWS BETWEEN 0 FOLLOWING AND CURRENT ROW", kernel.Frame{Type: kernel.FrameRows}},
		{"ORDER BY o ROWS BETWEEN 9223372036854775807 PRECEDING AND CURRENT ROW", kernel.Frame{Type: kernel.FrameRows, StartOffset: -math.MaxInt64}},
	}
	for _, test := range tests {
		t.Run(test.window, func(t *testing.T) {
			query, err := parser.Parse("SELECT SUM(v) OVER w FROM t WINDOW w AS (" + test.window + ")")
			require.NoError(t, err)
			def, err := StageDefFromQuery(query)
			require.NoError(t, err)
			require.Equal(t, test.frame, def.Frame)
		})
	}
}

func TestNewPlannerErrors(t *testing.T) {
	cnf := conf.NewTestConfig()
	cnf.KernelModule = "jit"
	_, err := NewPlanner(cnf, nil, nil)
	require.True(t, errors.HasCode(err, errors.UnknownModule), err.Error())

	cnf = conf.NewTestConfig()
	cnf.Parallelism = 0
	_, err = NewPlanner(cnf, nil, nil)
	require.True(t, errors.HasCode(err, errors.InvalidConfiguration), err.Error())
}
