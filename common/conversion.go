package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/squareup/winagg/errors"
)

// NullLiteral is the text form of NULL in CSV input and output.
const NullLiteral = `\N`

const timestampLayout = "2006-01-02 15:04:05.999999"

// NewTypedRow builds a Row, converting loosely typed Go values (int, int32, string decimals and so on) to the
// canonical representation for each column type.
func NewTypedRow(colTypes []ColumnType, values ...interface{}) (Row, error) {
	if len(values) != len(colTypes) {
		return Row{}, errors.Errorf("expected %d values, got %d", len(colTypes), len(values))
	}
	converted := make([]interface{}, len(values))
	for i, v := range values {
		cv, err := ConvertValue(v, colTypes[i])
		if err != nil {
			return Row{}, errors.Wrapf(err, "column %d", i)
		}
		converted[i] = cv
	}
	return Row{values: converted}, nil
}

func ConvertValue(value interface{}, colType ColumnType) (interface{}, error) { //nolint:gocyclo
	if value == nil {
		return nil, nil
	}
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		var i int64
		switch v := value.(type) {
		case int:
			i = int64(v)
		case int8:
			i = int64(v)
		case int16:
			i = int64(v)
		case int32:
			i = int64(v)
		case int64:
			i = v
		default:
			return nil, errors.Errorf("cannot convert %v (%T) to %s", value, value, colType)
		}
		if err := checkIntRange(i, colType.Type); err != nil {
			return nil, err
		}
		return i, nil
	case TypeDouble:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case TypeDecimal:
		switch v := value.(type) {
		case *apd.Decimal:
			return v, nil
		case string:
			return parseDecimal(v)
		case int:
			return apd.New(int64(v), 0), nil
		case int64:
			return apd.New(v, 0), nil
		}
	case TypeVarchar:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return NormalizeTimestamp(v), nil
		case string:
			return parseTimestamp(v)
		case int64:
			return time.UnixMilli(v).UTC(), nil
		case int:
			return time.UnixMilli(int64(v)).UTC(), nil
		}
	}
	return nil, errors.Errorf("cannot convert %v (%T) to %s", value, value, colType)
}

// ParseValue parses the textual form of a value, as found in CSV input.
func ParseValue(s string, colType ColumnType) (interface{}, error) {
	if s == NullLiteral || (s == "" && colType.Type != TypeVarchar) {
		return nil, nil
	}
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err := checkIntRange(i, colType.Type); err != nil {
			return nil, err
		}
		return i, nil
	case TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return f, nil
	case TypeDecimal:
		return parseDecimal(s)
	case TypeVarchar:
		return s, nil
	case TypeTimestamp:
		return parseTimestamp(s)
	default:
		return nil, errors.Errorf("unexpected column type %s", colType)
	}
}

// FormatValue is the inverse of ParseValue.
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return NullLiteral
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case *apd.Decimal:
		return v.Text('f')
	case string:
		return v
	case time.Time:
		return v.UTC().Format(timestampLayout)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func parseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return d, nil
}

// TimestampPrecision is the resolution TIMESTAMP values are stored, keyed and compared at.
const TimestampPrecision = time.Microsecond

// NormalizeTimestamp converts t to UTC and drops anything finer than TimestampPrecision.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampPrecision)
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if millis, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, timestampLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeTimestamp(t), nil
		}
	}
	return time.Time{}, errors.Errorf("cannot parse %q as a timestamp", s)
}

func checkIntRange(i int64, t Type) error {
	switch t {
	case TypeTinyInt:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return errors.Errorf("value %d out of range for TINYINT", i)
		}
	case TypeInt:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return errors.Errorf("value %d out of range for INT", i)
		}
	}
	return nil
}

// CheckValue verifies that a value has the Go representation required by its declared column type.
func CheckValue(value interface{}, colType ColumnType) error {
	if value == nil {
		if colType.NotNull {
			return errors.Errorf("NULL in NOT NULL column of type %s", colType)
		}
		return nil
	}
	ok := false
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		_, ok = value.(int64)
	case TypeDouble:
		_, ok = value.(float64)
	case TypeDecimal:
		_, ok = value.(*apd.Decimal)
	case TypeVarchar:
		_, ok = value.(string)
	case TypeTimestamp:
		_, ok = value.(time.Time)
	}
	if !ok {
		return errors.Errorf("value %v has Go type %T which is incompatible with declared type %s", value, value, colType)
	}
	return nil
}
