package aggfuncs

import (
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
)

// AggregateFunction folds values into an AggState slot. A sliding window evaluates each value twice: once with
// reverse == false when the row enters the window and once with reverse == true when it leaves. Values leave in
// the order they entered.
type AggregateFunction interface {
	EvalInt64(value int64, null bool, aggState *AggState, index int, reverse bool) error
	EvalFloat64(value float64, null bool, aggState *AggState, index int, reverse bool) error
	EvalString(value string, null bool, aggState *AggState, index int, reverse bool) error
	EvalTimestamp(value time.Time, null bool, aggState *AggState, index int, reverse bool) error
	EvalDecimal(value *apd.Decimal, null bool, aggState *AggState, index int, reverse bool) error

	// Result is the current value of the aggregation, nil for SQL NULL.
	Result(aggState *AggState, index int) (interface{}, error)

	ValueType() common.ColumnType
	ArgType() common.ColumnType
	FuncType() AggFunctionType
}

type aggregateFunctionBase struct {
	funcType  AggFunctionType
	argType   common.ColumnType
	valueType common.ColumnType
}

func (b *aggregateFunctionBase) EvalInt64(value int64, null bool, aggState *AggState, index int, reverse bool) error {
	return b.unsupported()
}

func (b *aggregateFunctionBase) EvalFloat64(value float64, null bool, aggState *AggState, index int, reverse bool) error {
	return b.unsupported()
}

func (b *aggregateFunctionBase) EvalString(value string, null bool, aggState *AggState, index int, reverse bool) error {
	return b.unsupported()
}

func (b *aggregateFunctionBase) EvalTimestamp(value time.Time, null bool, aggState *AggState, index int, reverse bool) error {
	return b.unsupported()
}

func (b *aggregateFunctionBase) EvalDecimal(value *apd.Decimal, null bool, aggState *AggState, index int, reverse bool) error {
	return b.unsupported()
}

func (b *aggregateFunctionBase) unsupported() error {
	return errors.Errorf("%s does not accept %s arguments", b.funcType, b.argType)
}

func (b *aggregateFunctionBase) ValueType() common.ColumnType {
	return b.valueType
}

func (b *aggregateFunctionBase) ArgType() common.ColumnType {
	return b.argType
}

func (b *aggregateFunctionBase) FuncType() AggFunctionType {
	return b.funcType
}

type AggFunctionType int

const (
	SumAggregateFunctionType AggFunctionType = iota
	CountAggregateFunctionType
	MinAggregateFunctionType
	MaxAggregateFunctionType
	AvgAggregateFunctionType
	FirstValueAggregateFunctionType
	LastValueAggregateFunctionType
)

var aggFunctionNames = []string{"SUM", "COUNT", "MIN", "MAX", "AVG", "FIRST_VALUE", "LAST_VALUE"}

func (t AggFunctionType) String() string {
	if int(t) < 0 || int(t) >= len(aggFunctionNames) {
		return "UNKNOWN"
	}
	return aggFunctionNames[t]
}

// ParseAggFunctionType looks a function up by its SQL name, case insensitively.
func ParseAggFunctionType(name string) (AggFunctionType, bool) {
	upper := strings.ToUpper(name)
	for i, n := range aggFunctionNames {
		if n == upper {
			return AggFunctionType(i), true
		}
	}
	return 0, false
}

// NewAggregateFunction creates a function of funcType over arguments of argType, the result type follows from both.
func NewAggregateFunction(funcType AggFunctionType, argType common.ColumnType) (AggregateFunction, error) {
	argType.NotNull = false
	base := aggregateFunctionBase{funcType: funcType, argType: argType, valueType: argType}
	switch funcType {
	case SumAggregateFunctionType:
		switch argType.Type {
		case common.TypeTinyInt, common.TypeInt, common.TypeBigInt:
			base.valueType = common.BigIntColumnType
		case common.TypeDouble:
			base.valueType = common.DoubleColumnType
		case common.TypeDecimal:
			base.valueType = common.NewDecimalColumnType(decimalSumPrecision, argType.DecScale)
		default:
			return nil, errors.Errorf("SUM is not supported for %s", argType)
		}
		return &SumAggregateFunction{aggregateFunctionBase: base}, nil
	case CountAggregateFunctionType:
		base.valueType = common.BigIntColumnType
		return &CountAggregateFunction{aggregateFunctionBase: base}, nil
	case AvgAggregateFunctionType:
		switch argType.Type {
		case common.TypeTinyInt, common.TypeInt, common.TypeBigInt, common.TypeDouble, common.TypeDecimal:
		default:
			return nil, errors.Errorf("AVG is not supported for %s", argType)
		}
		base.valueType = common.DoubleColumnType
		return &AvgAggregateFunction{aggregateFunctionBase: base}, nil
	case MinAggregateFunctionType:
		return &MinMaxAggregateFunction{aggregateFunctionBase: base}, nil
	case MaxAggregateFunctionType:
		return &MinMaxAggregateFunction{aggregateFunctionBase: base, max: true}, nil
	case FirstValueAggregateFunctionType:
		return &FirstLastValueAggregateFunction{aggregateFunctionBase: base}, nil
	case LastValueAggregateFunctionType:
		return &FirstLastValueAggregateFunction{aggregateFunctionBase: base, last: true}, nil
	default:
		return nil, errors.Errorf("unexpected aggregate function type %d", funcType)
	}
}

// Eval dispatches value to the typed Eval method matching the function's argument type.
func Eval(f AggregateFunction, value interface{}, aggState *AggState, index int, reverse bool) error {
	null := value == nil
	switch f.ArgType().Type {
	case common.TypeTinyInt, common.TypeInt, common.TypeBigInt:
		var v int64
		if !null {
			v = value.(int64)
		}
		return f.EvalInt64(v, null, aggState, index, reverse)
	case common.TypeDouble:
		var v float64
		if !null {
			v = value.(float64)
		}
		return f.EvalFloat64(v, null, aggState, index, reverse)
	case common.TypeVarchar:
		var v string
		if !null {
			v = value.(string)
		}
		return f.EvalString(v, null, aggState, index, reverse)
	case common.TypeTimestamp:
		var v time.Time
		if !null {
			v = value.(time.Time)
		}
		return f.EvalTimestamp(v, null, aggState, index, reverse)
	case common.TypeDecimal:
		var v *apd.Decimal
		if !null {
			v = value.(*apd.Decimal)
		}
		return f.EvalDecimal(v, null, aggState, index, reverse)
	default:
		return errors.Errorf("unexpected argument type %s", f.ArgType())
	}
}
