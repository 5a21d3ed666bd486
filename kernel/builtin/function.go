package builtin

import (
	"github.com/squareup/winagg/aggfuncs"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
)

// CountStarArg as an ArgIndex feeds the aggregate a constant non-NULL value, which is how COUNT(*) is evaluated.
const CountStarArg = -1

// AggregateDef is one aggregate computed by a function.
type AggregateDef struct {
	FuncType aggfuncs.AggFunctionType
	// ArgIndex is the column of the argument slice the aggregate reads, or CountStarArg.
	ArgIndex int
}

// FunctionDef describes a window function over an input row of two slices: slice 0 holds columns copied unchanged
// to the output and slice 1 the aggregate arguments. The output row has the same slice 0 followed by one slice with
// a column per aggregate.
type FunctionDef struct {
	PassThrough common.SchemaSlice
	Args        common.SchemaSlice
	Aggregates  []AggregateDef
}

// Function is a compiled FunctionDef. It is immutable and shared by every partition that invokes it.
type Function struct {
	id          string
	def         FunctionDef
	aggFuncs    []aggfuncs.AggregateFunction
	resultTypes common.SchemaSlice
}

func compileFunction(id string, def FunctionDef) (*Function, error) {
	if len(def.Aggregates) == 0 {
		return nil, errors.Errorf("function must compute at least one aggregate")
	}
	fn := &Function{
		id:          id,
		def:         def,
		aggFuncs:    make([]aggfuncs.AggregateFunction, len(def.Aggregates)),
		resultTypes: make(common.SchemaSlice, len(def.Aggregates)),
	}
	for i, agg := range def.Aggregates {
		var argType common.ColumnType
		switch {
		case agg.ArgIndex == CountStarArg:
			if agg.FuncType != aggfuncs.CountAggregateFunctionType {
				return nil, errors.Errorf("%s(*) is not supported", agg.FuncType)
			}
			argType = common.BigIntColumnType
		case agg.ArgIndex < 0 || agg.ArgIndex >= len(def.Args):
			return nil, errors.Errorf("aggregate %d refers to argument %d, function has %d arguments",
				i, agg.ArgIndex, len(def.Args))
		default:
			argType = def.Args[agg.ArgIndex]
		}
		aggFunc, err := aggfuncs.NewAggregateFunction(agg.FuncType, argType)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		fn.aggFuncs[i] = aggFunc
		fn.resultTypes[i] = aggFunc.ValueType()
	}
	return fn, nil
}

func (f *Function) ID() string {
	return f.id
}

// InputSlices is the slice layout Invoke expects for this function's input rows.
func (f *Function) InputSlices() []common.SchemaSlice {
	return []common.SchemaSlice{f.def.PassThrough, f.def.Args}
}

// OutputSlices is the slice layout of the rows Invoke returns.
func (f *Function) OutputSlices() []common.SchemaSlice {
	return []common.SchemaSlice{f.def.PassThrough, f.resultTypes}
}

func (f *Function) ResultTypes() common.SchemaSlice {
	return f.resultTypes
}
