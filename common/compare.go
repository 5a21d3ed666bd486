package common

import (
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// ValuesEqual compares two values of the same column type for grouping purposes. Two NULLs are equal, as are two
// NaNs, so every row with a NULL (or NaN) key lands in one group the way SQL PARTITION BY places them.
// Timestamps compare at TimestampPrecision, like their encodings.
func ValuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && (av == bv || (math.IsNaN(av) && math.IsNaN(bv)))
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case *apd.Decimal:
		bv, ok := b.(*apd.Decimal)
		return ok && av.Cmp(bv) == 0
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.UnixMicro() == bv.UnixMicro()
	default:
		return false
	}
}

// CompareValues orders two non-NULL values of the same Go type, it panics on mixed types. NaN sorts before every
// other double.
func CompareValues(a, b interface{}) int {
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case float64:
		return compareFloat64(av, b.(float64))
	case string:
		return strings.Compare(av, b.(string))
	case *apd.Decimal:
		return av.Cmp(b.(*apd.Decimal))
	case time.Time:
		am, bm := av.UnixMicro(), b.(time.Time).UnixMicro()
		switch {
		case am < bm:
			return -1
		case am > bm:
			return 1
		}
		return 0
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
