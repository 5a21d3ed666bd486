package aggfuncs

import (
	"unsafe"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/btree"
	"github.com/squareup/winagg/common"
)

const multisetDegree = 8

// AggState holds the running state of a set of aggregations, one slot per index. Scalar state lives in a packed
// []uint64, the heavier kinds are only allocated when a function needs them.
type AggState struct {
	state        []uint64
	counts       []int64
	decimalState []*apd.Decimal
	multisets    []*btree.BTree
	queues       []*valueQueue
	size         int
}

func NewAggState(size int) *AggState {
	return &AggState{
		state:  make([]uint64, size),
		counts: make([]int64, size),
		size:   size,
	}
}

func (as *AggState) Size() int {
	return as.size
}

// Reset returns every slot to its initial empty state, keeping allocations.
func (as *AggState) Reset() {
	for i := range as.state {
		as.state[i] = 0
		as.counts[i] = 0
	}
	for i := range as.decimalState {
		as.decimalState[i] = nil
	}
	for _, ms := range as.multisets {
		if ms != nil {
			ms.Clear(false)
		}
	}
	for _, q := range as.queues {
		if q != nil {
			q.clear()
		}
	}
}

func (as *AggState) SetInt64(index int, val int64) {
	ptrInt64 := (*int64)(unsafe.Pointer(&as.state[index])) // nolint: gosec
	*ptrInt64 = val
}

func (as *AggState) GetInt64(index int) int64 {
	ptrInt64 := (*int64)(unsafe.Pointer(&as.state[index])) // nolint: gosec
	return *ptrInt64
}

func (as *AggState) SetFloat64(index int, val float64) {
	ptrFloat64 := (*float64)(unsafe.Pointer(&as.state[index])) // nolint: gosec
	*ptrFloat64 = val
}

func (as *AggState) GetFloat64(index int) float64 {
	ptrFloat64 := (*float64)(unsafe.Pointer(&as.state[index])) // nolint: gosec
	return *ptrFloat64
}

// Count is the number of non-NULL values currently folded into the slot.
func (as *AggState) Count(index int) int64 {
	return as.counts[index]
}

func (as *AggState) addCount(index int, delta int64) {
	as.counts[index] += delta
}

func (as *AggState) SetDecimal(index int, val *apd.Decimal) {
	as.checkCreateDecimalState()
	as.decimalState[index] = val
}

// GetDecimal returns nil if no decimal has been stored in the slot.
func (as *AggState) GetDecimal(index int) *apd.Decimal {
	if as.decimalState == nil {
		return nil
	}
	return as.decimalState[index]
}

func (as *AggState) checkCreateDecimalState() {
	if as.decimalState == nil {
		as.decimalState = make([]*apd.Decimal, as.size)
	}
}

func (as *AggState) multiset(index int) *btree.BTree {
	if as.multisets == nil {
		as.multisets = make([]*btree.BTree, as.size)
	}
	ms := as.multisets[index]
	if ms == nil {
		ms = btree.New(multisetDegree)
		as.multisets[index] = ms
	}
	return ms
}

func (as *AggState) queue(index int) *valueQueue {
	if as.queues == nil {
		as.queues = make([]*valueQueue, as.size)
	}
	q := as.queues[index]
	if q == nil {
		q = &valueQueue{}
		as.queues[index] = q
	}
	return q
}

// multisetItem is one distinct value in a multiset and the number of times it is present.
type multisetItem struct {
	value interface{}
	count int64
}

func (m *multisetItem) Less(than btree.Item) bool {
	return common.CompareValues(m.value, than.(*multisetItem).value) < 0
}

// valueQueue is a FIFO of values, including NULLs, in arrival order.
type valueQueue struct {
	values []interface{}
	head   int
}

func (q *valueQueue) push(v interface{}) {
	q.values = append(q.values, v)
}

func (q *valueQueue) pop() bool {
	if q.len() == 0 {
		return false
	}
	q.values[q.head] = nil
	q.head++
	if q.head == len(q.values) {
		q.values = q.values[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.values) {
		n := copy(q.values, q.values[q.head:])
		q.values = q.values[:n]
		q.head = 0
	}
	return true
}

func (q *valueQueue) len() int {
	return len(q.values) - q.head
}

func (q *valueQueue) front() interface{} {
	return q.values[q.head]
}

func (q *valueQueue) back() interface{} {
	return q.values[len(q.values)-1]
}

func (q *valueQueue) clear() {
	for i := range q.values {
		q.values[i] = nil
	}
	q.values = q.values[:0]
	q.head = 0
}
