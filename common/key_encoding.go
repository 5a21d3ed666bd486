package common

import (
	"math"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/squareup/winagg/errors"
)

/*
Keys are encoded so that byte-wise comparison of two keys agrees with comparing the values they were built from,
this is what lets Pebble iterate rows already grouped and ordered. The scheme is memcomparable in the MyRocks
sense for integers, floats and timestamps (big-endian, sign bit flipped).

Strings and decimals are length-prefixed rather than memcomparable. Equal values still produce equal bytes and no
encoding is a prefix of another, which is all grouping needs: rows of one group are contiguous, even if groups
themselves are not in value order.
*/

const SignBitMask uint64 = 1 << 63

const (
	keyNullMarker    = 0
	keyNotNullMarker = 1
)

func KeyEncodeInt64(buffer []byte, val int64) []byte {
	uVal := uint64(val) ^ SignBitMask
	return AppendUint64ToBufferBE(buffer, uVal)
}

func KeyEncodeFloat64(buffer []byte, val float64) []byte {
	if val == 0 {
		// -0 and +0 are the same key
		val = 0
	} else if math.IsNaN(val) {
		val = math.NaN()
	}
	uVal := math.Float64bits(val)
	if val >= 0 {
		uVal |= SignBitMask
	} else {
		uVal = ^uVal
	}
	return AppendUint64ToBufferBE(buffer, uVal)
}

func KeyEncodeString(buffer []byte, val string) []byte {
	buffer = AppendUint32ToBufferBE(buffer, uint32(len(val)))
	return append(buffer, val...)
}

// KeyEncodeDecimal encodes the reduced form, so 1.0 and 1.00 get the same key.
func KeyEncodeDecimal(buffer []byte, val *apd.Decimal) []byte {
	var reduced apd.Decimal
	reduced.Reduce(val)
	if reduced.IsZero() {
		reduced.Negative = false
	}
	return KeyEncodeString(buffer, reduced.Text('f'))
}

func KeyEncodeTimestamp(buffer []byte, val time.Time) []byte {
	return KeyEncodeInt64(buffer, val.UnixMicro())
}

func EncodeKeyElement(value interface{}, colType ColumnType, buffer []byte) ([]byte, error) {
	if value == nil {
		return append(buffer, keyNullMarker), nil
	}
	buffer = append(buffer, keyNotNullMarker)
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		valInt64, ok := value.(int64)
		if !ok {
			return nil, errors.Errorf("expected %v to be int64", value)
		}
		buffer = KeyEncodeInt64(buffer, valInt64)
	case TypeDouble:
		valFloat64, ok := value.(float64)
		if !ok {
			return nil, errors.Errorf("expected %v to be float64", value)
		}
		buffer = KeyEncodeFloat64(buffer, valFloat64)
	case TypeDecimal:
		valDec, ok := value.(*apd.Decimal)
		if !ok {
			return nil, errors.Errorf("expected %v to be *apd.Decimal", value)
		}
		buffer = KeyEncodeDecimal(buffer, valDec)
	case TypeVarchar:
		valString, ok := value.(string)
		if !ok {
			return nil, errors.Errorf("expected %v to be string", value)
		}
		buffer = KeyEncodeString(buffer, valString)
	case TypeTimestamp:
		valTime, ok := value.(time.Time)
		if !ok {
			return nil, errors.Errorf("expected %v to be time.Time", value)
		}
		buffer = KeyEncodeTimestamp(buffer, valTime)
	default:
		return nil, errors.Errorf("unexpected column type %s", colType)
	}
	return buffer, nil
}

func EncodeKeyCols(row Row, colIndexes []int, colTypes []ColumnType, buffer []byte) ([]byte, error) {
	for _, colIndex := range colIndexes {
		var err error
		buffer, err = EncodeKeyElement(row.values[colIndex], colTypes[colIndex], buffer)
		if err != nil {
			return nil, errors.Wrapf(err, "key column %d", colIndex)
		}
	}
	return buffer, nil
}
