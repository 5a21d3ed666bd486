package common

import (
	"math"
	"time"

	"github.com/squareup/winagg/errors"
)

// NullOrderKey is the surrogate for a NULL order value. NULLs sort first in both directions.
const NullOrderKey int64 = math.MinInt64

// IsOrderableType reports whether a column of type t can be the order key of a window.
func IsOrderableType(t Type) bool {
	switch t {
	case TypeTinyInt, TypeInt, TypeBigInt, TypeTimestamp:
		return true
	default:
		return false
	}
}

// OrderKey derives the int64 surrogate a kernel orders and measures ranges with. Integers map to themselves and
// timestamps to Unix milliseconds. For a descending window the surrogate is complemented so it is still
// non-decreasing along the scan, ^v == -v-1 so this never overflows.
func OrderKey(value interface{}, colType ColumnType, descending bool) (int64, error) {
	if value == nil {
		if colType.NotNull {
			return 0, errors.NewCodecError("NULL order value in NOT NULL column of type %s", colType)
		}
		return NullOrderKey, nil
	}
	var key int64
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		v, ok := value.(int64)
		if !ok {
			return 0, errors.NewCodecError("order value %v has Go type %T, expected int64", value, value)
		}
		key = v
	case TypeTimestamp:
		v, ok := value.(time.Time)
		if !ok {
			return 0, errors.NewCodecError("order value %v has Go type %T, expected time.Time", value, value)
		}
		key = v.UnixMilli()
	default:
		return 0, errors.NewUnsupportedOrderColumnTypeError("", colType.String())
	}
	if descending {
		key = ^key
	}
	if key == NullOrderKey {
		// keep the extreme value distinct from NULL
		key++
	}
	return key, nil
}
