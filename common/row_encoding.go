package common

import (
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/squareup/winagg/errors"
)

// Values in rows are encoded in little-endian order, each preceded by a null marker byte (0 = NULL, 1 = present).
// Most CPU architectures are little-endian which lets reads be a pointer cast.

// EncodeRow appends all columns of row to buffer.
func EncodeRow(row Row, colTypes []ColumnType, buffer []byte) ([]byte, error) {
	return EncodeRowCols(row, 0, colTypes, buffer)
}

// EncodeRowCols appends len(colTypes) columns of row, starting at startCol, to buffer.
func EncodeRowCols(row Row, startCol int, colTypes []ColumnType, buffer []byte) ([]byte, error) {
	if startCol+len(colTypes) > row.ColCount() {
		return nil, errors.NewCodecError("row has %d columns, schema requires %d from column %d",
			row.ColCount(), len(colTypes), startCol)
	}
	for i, colType := range colTypes {
		var err error
		buffer, err = encodeRowCol(row.values[startCol+i], colType, buffer)
		if err != nil {
			return nil, errors.NewCodecError("column %d: %v", startCol+i, err)
		}
	}
	return buffer, nil
}

func encodeRowCol(value interface{}, colType ColumnType, buffer []byte) ([]byte, error) {
	if err := CheckValue(value, colType); err != nil {
		return nil, err
	}
	if value == nil {
		return append(buffer, 0), nil
	}
	buffer = append(buffer, 1)
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		// We store as unsigned so convert signed to unsigned
		buffer = AppendUint64ToBufferLE(buffer, uint64(value.(int64)))
	case TypeDouble:
		buffer = AppendFloat64ToBufferLE(buffer, value.(float64))
	case TypeDecimal:
		buffer = AppendStringToBufferLE(buffer, value.(*apd.Decimal).Text('f'))
	case TypeVarchar:
		buffer = AppendStringToBufferLE(buffer, value.(string))
	case TypeTimestamp:
		buffer = AppendUint64ToBufferLE(buffer, uint64(value.(time.Time).UnixMicro()))
	default:
		return nil, errors.Errorf("unexpected column type %s", colType)
	}
	return buffer, nil
}

// DecodeRow decodes len(colTypes) values from buffer into dest, starting at dest[destOffset].
func DecodeRow(buffer []byte, colTypes []ColumnType, dest []interface{}, destOffset int) error {
	if destOffset+len(colTypes) > len(dest) {
		return errors.NewCodecError("output array has %d fields, schema requires %d from field %d",
			len(dest), len(colTypes), destOffset)
	}
	offset := 0
	for i, colType := range colTypes {
		var err error
		dest[destOffset+i], offset, err = DecodeRowCol(buffer, offset, colType)
		if err != nil {
			return errors.NewCodecError("column %d: %v", destOffset+i, err)
		}
	}
	if offset != len(buffer) {
		return errors.NewCodecError("%d trailing bytes after decoding %d columns", len(buffer)-offset, len(colTypes))
	}
	return nil
}

func DecodeRowCol(buffer []byte, offset int, colType ColumnType) (interface{}, int, error) {
	if offset >= len(buffer) {
		return nil, 0, errors.New("buffer exhausted")
	}
	if buffer[offset] == 0 {
		if colType.NotNull {
			return nil, 0, errors.Errorf("NULL in NOT NULL column of type %s", colType)
		}
		return nil, offset + 1, nil
	}
	offset++
	switch colType.Type {
	case TypeTinyInt, TypeInt, TypeBigInt:
		if err := checkRemaining(buffer, offset, 8); err != nil {
			return nil, 0, err
		}
		u, off := ReadUint64FromBufferLE(buffer, offset)
		return int64(u), off, nil
	case TypeDouble:
		if err := checkRemaining(buffer, offset, 8); err != nil {
			return nil, 0, err
		}
		f, off := ReadFloat64FromBufferLE(buffer, offset)
		return f, off, nil
	case TypeDecimal:
		s, off, err := readString(buffer, offset)
		if err != nil {
			return nil, 0, err
		}
		d, _, err := apd.NewFromString(s)
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
		return d, off, nil
	case TypeVarchar:
		s, off, err := readString(buffer, offset)
		if err != nil {
			return nil, 0, err
		}
		return s, off, nil
	case TypeTimestamp:
		if err := checkRemaining(buffer, offset, 8); err != nil {
			return nil, 0, err
		}
		u, off := ReadUint64FromBufferLE(buffer, offset)
		return time.UnixMicro(int64(u)).UTC(), off, nil
	default:
		return nil, 0, errors.Errorf("unexpected column type %s", colType)
	}
}

func readString(buffer []byte, offset int) (string, int, error) {
	if err := checkRemaining(buffer, offset, 4); err != nil {
		return "", 0, err
	}
	l, _ := ReadUint32FromBufferLE(buffer, offset)
	if err := checkRemaining(buffer, offset+4, int(l)); err != nil {
		return "", 0, err
	}
	s, off := ReadStringFromBufferLE(buffer, offset)
	return s, off, nil
}

func checkRemaining(buffer []byte, offset int, n int) error {
	if len(buffer)-offset < n {
		return errors.Errorf("buffer truncated, need %d bytes at offset %d, have %d", n, offset, len(buffer)-offset)
	}
	return nil
}
