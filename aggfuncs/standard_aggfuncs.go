package aggfuncs

import (
	"math"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/btree"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
)

const decimalSumPrecision = 38

var decimalContext = apd.BaseContext.WithPrecision(decimalSumPrecision)

// SUM
// ===

// SumAggregateFunction is NULL while the window holds no non-NULL value.
type SumAggregateFunction struct {
	aggregateFunctionBase
}

func (s *SumAggregateFunction) EvalInt64(currValue int64, null bool, aggState *AggState, index int, reverse bool) error {
	if null {
		return nil
	}
	prev := aggState.GetInt64(index)
	var res int64
	if reverse {
		res = prev - currValue
		if (currValue > 0 && res > prev) || (currValue < 0 && res < prev) {
			return errors.Errorf("BIGINT overflow in SUM")
		}
		aggState.addCount(index, -1)
	} else {
		res = prev + currValue
		if (currValue > 0 && res < prev) || (currValue < 0 && res > prev) {
			return errors.Errorf("BIGINT overflow in SUM")
		}
		aggState.addCount(index, 1)
	}
	aggState.SetInt64(index, res)
	return nil
}

func (s *SumAggregateFunction) EvalFloat64(currValue float64, null bool, aggState *AggState, index int, reverse bool) error {
	if null {
		return nil
	}
	if reverse {
		currValue = -currValue
		aggState.addCount(index, -1)
	} else {
		aggState.addCount(index, 1)
	}
	if aggState.Count(index) == 0 {
		aggState.SetFloat64(index, 0)
		return nil
	}
	aggState.SetFloat64(index, aggState.GetFloat64(index)+currValue)
	return nil
}

func (s *SumAggregateFunction) EvalDecimal(currValue *apd.Decimal, null bool, aggState *AggState, index int, reverse bool) error {
	if null {
		return nil
	}
	prev := aggState.GetDecimal(index)
	if prev == nil {
		prev = &apd.Decimal{}
	}
	res := new(apd.Decimal)
	var err error
	if reverse {
		_, err = decimalContext.Sub(res, prev, currValue)
		aggState.addCount(index, -1)
	} else {
		_, err = decimalContext.Add(res, prev, currValue)
		aggState.addCount(index, 1)
	}
	if err != nil {
		return errors.WithStack(err)
	}
	aggState.SetDecimal(index, res)
	return nil
}

func (s *SumAggregateFunction) Result(aggState *AggState, index int) (interface{}, error) {
	if aggState.Count(index) == 0 {
		return nil, nil
	}
	switch s.argType.Type {
	case common.TypeDouble:
		return aggState.GetFloat64(index), nil
	case common.TypeDecimal:
		res := new(apd.Decimal)
		if _, err := decimalContext.Quantize(res, aggState.GetDecimal(index), -int32(s.valueType.DecScale)); err != nil {
			return nil, errors.WithStack(err)
		}
		return res, nil
	default:
		return aggState.GetInt64(index), nil
	}
}

// COUNT
// =====

// CountAggregateFunction counts non-NULL values, COUNT(*) is evaluated over a constant non-NULL argument.
type CountAggregateFunction struct {
	aggregateFunctionBase
}

func (c *CountAggregateFunction) count(null bool, aggState *AggState, index int, reverse bool) error {
	if null {
		return nil
	}
	if reverse {
		if aggState.Count(index) == 0 {
			return errors.New("COUNT retracted below zero")
		}
		aggState.addCount(index, -1)
	} else {
		aggState.addCount(index, 1)
	}
	return nil
}

func (c *CountAggregateFunction) EvalInt64(_ int64, null bool, aggState *AggState, index int, reverse bool) error {
	return c.count(null, aggState, index, reverse)
}

func (c *CountAggregateFunction) EvalFloat64(_ float64, null bool, aggState *AggState, index int, reverse bool) error {
	return c.count(null, aggState, index, reverse)
}

func (c *CountAggregateFunction) EvalString(_ string, null bool, aggState *AggState, index int, reverse bool) error {
	return c.count(null, aggState, index, reverse)
}

func (c *CountAggregateFunction) EvalTimestamp(_ time.Time, null bool, aggState *AggState, index int, reverse bool) error {
	return c.count(null, aggState, index, reverse)
}

func (c *CountAggregateFunction) EvalDecimal(_ *apd.Decimal, null bool, aggState *AggState, index int, reverse bool) error {
	return c.count(null, aggState, index, reverse)
}

func (c *CountAggregateFunction) Result(aggState *AggState, index int) (interface{}, error) {
	return aggState.Count(index), nil
}

// AVG
// ===

// AvgAggregateFunction keeps a running DOUBLE sum next to the count of non-NULL values.
type AvgAggregateFunction struct {
	aggregateFunctionBase
}

func (a *AvgAggregateFunction) add(v float64, null bool, aggState *AggState, index int, reverse bool) error {
	if null {
		return nil
	}
	if reverse {
		v = -v
		aggState.addCount(index, -1)
	} else {
		aggState.addCount(index, 1)
	}
	if aggState.Count(index) == 0 {
		// drop accumulated rounding error once the window is empty
		aggState.SetFloat64(index, 0)
		return nil
	}
	aggState.SetFloat64(index, aggState.GetFloat64(index)+v)
	return nil
}

func (a *AvgAggregateFunction) EvalInt64(currValue int64, null bool, aggState *AggState, index int, reverse bool) error {
	return a.add(float64(currValue), null, aggState, index, reverse)
}

func (a *AvgAggregateFunction) EvalFloat64(currValue float64, null bool, aggState *AggState, index int, reverse bool) error {
	return a.add(currValue, null, aggState, index, reverse)
}

func (a *AvgAggregateFunction) EvalDecimal(currValue *apd.Decimal, null bool, aggState *AggState, index int, reverse bool) error {
	if null {
		return a.add(0, true, aggState, index, reverse)
	}
	f, err := currValue.Float64()
	if err != nil {
		return errors.WithStack(err)
	}
	return a.add(f, false, aggState, index, reverse)
}

func (a *AvgAggregateFunction) Result(aggState *AggState, index int) (interface{}, error) {
	n := aggState.Count(index)
	if n == 0 {
		return nil, nil
	}
	avg := aggState.GetFloat64(index) / float64(n)
	if math.IsInf(avg, 0) {
		return nil, errors.New("DOUBLE overflow in AVG")
	}
	return avg, nil
}

// MIN / MAX
// =========

// MinMaxAggregateFunction keeps the window's non-NULL values in an ordered multiset so values can be retracted.
type MinMaxAggregateFunction struct {
	aggregateFunctionBase
	max bool
}

func (m *MinMaxAggregateFunction) eval(value interface{}, null bool, aggState *AggState, index int, reverse bool) error {
	if null {
		return nil
	}
	ms := aggState.multiset(index)
	item := ms.Get(&multisetItem{value: value})
	if reverse {
		if item == nil {
			return errors.Errorf("retracted value %v is not in the window", value)
		}
		msi := item.(*multisetItem)
		msi.count--
		if msi.count == 0 {
			ms.Delete(msi)
		}
		aggState.addCount(index, -1)
		return nil
	}
	if item == nil {
		ms.ReplaceOrInsert(&multisetItem{value: value, count: 1})
	} else {
		item.(*multisetItem).count++
	}
	aggState.addCount(index, 1)
	return nil
}

func (m *MinMaxAggregateFunction) EvalInt64(currValue int64, null bool, aggState *AggState, index int, reverse bool) error {
	return m.eval(currValue, null, aggState, index, reverse)
}

func (m *MinMaxAggregateFunction) EvalFloat64(currValue float64, null bool, aggState *AggState, index int, reverse bool) error {
	return m.eval(currValue, null, aggState, index, reverse)
}

func (m *MinMaxAggregateFunction) EvalString(currValue string, null bool, aggState *AggState, index int, reverse bool) error {
	return m.eval(currValue, null, aggState, index, reverse)
}

func (m *MinMaxAggregateFunction) EvalTimestamp(currValue time.Time, null bool, aggState *AggState, index int, reverse bool) error {
	return m.eval(currValue, null, aggState, index, reverse)
}

func (m *MinMaxAggregateFunction) EvalDecimal(currValue *apd.Decimal, null bool, aggState *AggState, index int, reverse bool) error {
	return m.eval(currValue, null, aggState, index, reverse)
}

func (m *MinMaxAggregateFunction) Result(aggState *AggState, index int) (interface{}, error) {
	if aggState.Count(index) == 0 {
		return nil, nil
	}
	ms := aggState.multiset(index)
	var item btree.Item
	if m.max {
		item = ms.Max()
	} else {
		item = ms.Min()
	}
	return item.(*multisetItem).value, nil
}

// FIRST_VALUE / LAST_VALUE
// ========================

// FirstLastValueAggregateFunction returns the oldest or newest value in the window, NULLs included.
type FirstLastValueAggregateFunction struct {
	aggregateFunctionBase
	last bool
}

func (f *FirstLastValueAggregateFunction) eval(value interface{}, aggState *AggState, index int, reverse bool) error {
	q := aggState.queue(index)
	if reverse {
		if !q.pop() {
			return errors.New("retracted value from an empty window")
		}
		return nil
	}
	q.push(value)
	return nil
}

func (f *FirstLastValueAggregateFunction) EvalInt64(currValue int64, null bool, aggState *AggState, index int, reverse bool) error {
	return f.eval(nullable(currValue, null), aggState, index, reverse)
}

func (f *FirstLastValueAggregateFunction) EvalFloat64(currValue float64, null bool, aggState *AggState, index int, reverse bool) error {
	return f.eval(nullable(currValue, null), aggState, index, reverse)
}

func (f *FirstLastValueAggregateFunction) EvalString(currValue string, null bool, aggState *AggState, index int, reverse bool) error {
	return f.eval(nullable(currValue, null), aggState, index, reverse)
}

func (f *FirstLastValueAggregateFunction) EvalTimestamp(currValue time.Time, null bool, aggState *AggState, index int, reverse bool) error {
	return f.eval(nullable(currValue, null), aggState, index, reverse)
}

func (f *FirstLastValueAggregateFunction) EvalDecimal(currValue *apd.Decimal, null bool, aggState *AggState, index int, reverse bool) error {
	if null {
		return f.eval(nil, aggState, index, reverse)
	}
	return f.eval(currValue, aggState, index, reverse)
}

func (f *FirstLastValueAggregateFunction) Result(aggState *AggState, index int) (interface{}, error) {
	q := aggState.queue(index)
	if q.len() == 0 {
		return nil, nil
	}
	if f.last {
		return q.back(), nil
	}
	return q.front(), nil
}

func nullable(v interface{}, null bool) interface{} {
	if null {
		return nil
	}
	return v
}
