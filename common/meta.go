package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/squareup/winagg/errors"
)

type Type int

const (
	TypeUnknown Type = iota
	TypeTinyInt
	TypeInt
	TypeBigInt
	TypeDouble
	TypeDecimal
	TypeVarchar
	TypeTimestamp
)

var typeNames = map[Type]string{
	TypeUnknown:   "UNKNOWN",
	TypeTinyInt:   "TINYINT",
	TypeInt:       "INT",
	TypeBigInt:    "BIGINT",
	TypeDouble:    "DOUBLE",
	TypeDecimal:   "DECIMAL",
	TypeVarchar:   "VARCHAR",
	TypeTimestamp: "TIMESTAMP",
}

func (t Type) String() string {
	name, ok := typeNames[t]
	if !ok {
		return fmt.Sprintf("TYPE(%d)", int(t))
	}
	return name
}

// Capture lets participle and the schema loader turn a type name into a Type.
func (t *Type) Capture(tokens []string) error {
	text := strings.ToUpper(strings.TrimSpace(strings.Join(tokens, " ")))
	for typ, name := range typeNames {
		if typ != TypeUnknown && name == text {
			*t = typ
			return nil
		}
	}
	return errors.Errorf("unknown column type %s", text)
}

func (t *Type) UnmarshalText(text []byte) error {
	return t.Capture([]string{string(text)})
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

var (
	TinyIntColumnType   = ColumnType{Type: TypeTinyInt}
	IntColumnType       = ColumnType{Type: TypeInt}
	BigIntColumnType    = ColumnType{Type: TypeBigInt}
	DoubleColumnType    = ColumnType{Type: TypeDouble}
	VarcharColumnType   = ColumnType{Type: TypeVarchar}
	TimestampColumnType = ColumnType{Type: TypeTimestamp}
	UnknownColumnType   = ColumnType{Type: TypeUnknown}
)

func NewDecimalColumnType(precision int, scale int) ColumnType {
	return ColumnType{
		Type:         TypeDecimal,
		DecPrecision: precision,
		DecScale:     scale,
	}
}

// InferColumnType from Go type.
func InferColumnType(value interface{}) ColumnType {
	switch value.(type) {
	case string:
		return VarcharColumnType
	case int, int64:
		return BigIntColumnType
	case int16, int32:
		return IntColumnType
	case int8:
		return TinyIntColumnType
	case float64:
		return DoubleColumnType
	case *apd.Decimal:
		return NewDecimalColumnType(38, 10)
	case time.Time:
		return TimestampColumnType
	default:
		panic(fmt.Sprintf("can't infer column of type %T", value))
	}
}

type ColumnType struct {
	Type         Type `json:"type"`
	DecPrecision int  `json:"precision,omitempty"`
	DecScale     int  `json:"scale,omitempty"`
	NotNull      bool `json:"not_null,omitempty"`
}

func (c ColumnType) String() string {
	s := c.Type.String()
	if c.Type == TypeDecimal {
		s = fmt.Sprintf("%s(%d,%d)", s, c.DecPrecision, c.DecScale)
	}
	if c.NotNull {
		s += " NOT NULL"
	}
	return s
}

type ColumnInfo struct {
	Name string `json:"name"`
	ColumnType
}

func ColumnNames(cols []ColumnInfo) []string {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	return names
}

func ColumnTypes(cols []ColumnInfo) []ColumnType {
	types := make([]ColumnType, len(cols))
	for i, col := range cols {
		types[i] = col.ColumnType
	}
	return types
}

// SchemaSlice is one sub-tuple of a row's schema. A row laid out over several slices holds the fields of slice 0
// first, then slice 1 and so on.
type SchemaSlice []ColumnType

func NumColumns(slices []SchemaSlice) int {
	n := 0
	for _, s := range slices {
		n += len(s)
	}
	return n
}

func FlattenSlices(slices []SchemaSlice) []ColumnType {
	res := make([]ColumnType, 0, NumColumns(slices))
	for _, s := range slices {
		res = append(res, s...)
	}
	return res
}
