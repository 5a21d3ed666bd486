package window

import (
	"fmt"

	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
	"github.com/squareup/winagg/kernel"
)

// Config is the window aggregation configuration shared by every partition of a stage. It is built once by the
// plan and must not be modified afterwards.
type Config struct {
	Frame kernel.Frame
	// OrderColIndex and GroupColIndexes are positions in the input row, which is laid out as InputSlices.
	OrderColIndex   int
	Descending      bool
	GroupColIndexes []int
	FunctionID      string
	InputSlices     []common.SchemaSlice
	OutputSlices    []common.SchemaSlice
	// EncodeBufferSize is the initial capacity of the buffers input rows are encoded into.
	EncodeBufferSize int
	// CopyOutputRows makes the loop emit detached rows instead of views over its reused output array.
	CopyOutputRows bool
}

// Validate checks the config is consistent and returns the order column's type.
func (c *Config) Validate() (common.ColumnType, error) {
	inputTypes := common.FlattenSlices(c.InputSlices)
	if c.OrderColIndex < 0 || c.OrderColIndex >= len(inputTypes) {
		return common.ColumnType{}, errors.NewInvalidConfigurationError(
			fmt.Sprintf("order column %d out of range, input row has %d columns", c.OrderColIndex, len(inputTypes)))
	}
	orderType := inputTypes[c.OrderColIndex]
	if !common.IsOrderableType(orderType.Type) {
		return common.ColumnType{}, errors.NewUnsupportedOrderColumnTypeError(fmt.Sprintf("#%d", c.OrderColIndex),
			orderType.String())
	}
	for _, col := range c.GroupColIndexes {
		if col < 0 || col >= len(inputTypes) {
			return common.ColumnType{}, errors.NewInvalidConfigurationError(
				fmt.Sprintf("group column %d out of range, input row has %d columns", col, len(inputTypes)))
		}
	}
	if c.Frame.StartOffset > 0 {
		return common.ColumnType{}, errors.NewInvalidFrameError("frame must start at or before the current row")
	}
	if c.FunctionID == "" {
		return common.ColumnType{}, errors.NewInvalidConfigurationError("function id must be specified")
	}
	if len(c.OutputSlices) == 0 {
		return common.ColumnType{}, errors.NewInvalidConfigurationError("output slices must be specified")
	}
	if c.EncodeBufferSize < 0 {
		return common.ColumnType{}, errors.NewInvalidConfigurationError("encode buffer size must be >= 0")
	}
	return orderType, nil
}
