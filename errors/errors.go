package errors

import (
	"fmt"
	"strings"
)

type ErrorCode int

const (
	InternalError ErrorCode = iota
	InvalidConfiguration
	InvalidStatement
	UnsupportedOrderKey
	UnknownColumn
	UnsupportedOrderColumnType
	InvalidFrame
	UnknownFunction
	UnknownModule
	CodecError
	KernelError
)

func NewInternalError(ref string) WinError {
	return NewWinErrorf(InternalError, "Internal error - reference: %s please consult server logs for details", ref)
}

func NewInvalidConfigurationError(msg string) WinError {
	return NewWinErrorf(InvalidConfiguration, "Invalid configuration: %s", msg)
}

func NewInvalidStatementError(msg string) WinError {
	return NewWinErrorf(InvalidStatement, "Invalid statement: %s", msg)
}

func NewUnsupportedOrderKeyError(orderCols []string) WinError {
	return NewWinErrorf(UnsupportedOrderKey, "Window must have exactly one order column, got %d (%s)",
		len(orderCols), strings.Join(orderCols, ", "))
}

func NewUnknownColumnError(colName string, available []string) WinError {
	return NewWinErrorf(UnknownColumn, "Unknown column %s, available columns are (%s)", colName, strings.Join(available, ", "))
}

func NewUnsupportedOrderColumnTypeError(colName string, typeName string) WinError {
	return NewWinErrorf(UnsupportedOrderColumnType, "Order column %s has type %s, must be TINYINT, INT, BIGINT or TIMESTAMP",
		colName, typeName)
}

func NewInvalidFrameError(msg string) WinError {
	return NewWinErrorf(InvalidFrame, "Invalid window frame: %s", msg)
}

func NewUnknownFunctionError(functionID string) WinError {
	return NewWinErrorf(UnknownFunction, "Unknown window function %s", functionID)
}

func NewUnknownModuleError(moduleID string) WinError {
	return NewWinErrorf(UnknownModule, "Unknown kernel module %s", moduleID)
}

func NewCodecError(msgFormat string, args ...interface{}) WinError {
	return NewWinErrorf(CodecError, "Codec error: %s", fmt.Sprintf(msgFormat, args...))
}

func NewKernelError(functionID string, partitionID int, rowIndex int64, cause error) WinError {
	return NewWinErrorf(KernelError, "Window function %s failed in partition %d at row %d: %v",
		functionID, partitionID, rowIndex, cause)
}

func NewWinErrorf(errorCode ErrorCode, msgFormat string, args ...interface{}) WinError {
	msg := fmt.Sprintf(fmt.Sprintf("WIN%04d - %s", errorCode, msgFormat), args...)
	return WinError{Code: errorCode, Msg: msg}
}

// WinError is an error whose message is safe to show to the user of a window stage, it never carries a stack
type WinError struct {
	Code ErrorCode
	Msg  string
}

func (w WinError) Error() string {
	return w.Msg
}

// MaybeAddStack leaves WinError values untouched and stacks everything else.
func MaybeAddStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(WinError); ok {
		return err
	}
	return WithStack(err)
}

// HasCode reports whether a WinError with the given code is in err's chain.
func HasCode(err error, code ErrorCode) bool {
	var we WinError
	if As(err, &we) {
		return we.Code == code
	}
	return false
}

// WithRowContext names the partition and row a failure happened at. WinErrors keep their code, anything else becomes
// an internal error message with the context appended.
func WithRowContext(err error, partitionID int, rowIndex int64) error {
	var we WinError
	if As(err, &we) {
		location := fmt.Sprintf("partition %d, row %d", partitionID, rowIndex)
		// keep whatever the wrappers added, e.g. "slice 1: WIN0009 - ..." becomes "WIN0009 - ... (slice 1, ...)"
		if full := err.Error(); full != we.Msg && strings.HasSuffix(full, ": "+we.Msg) {
			location = strings.TrimSuffix(full, ": "+we.Msg) + ", " + location
		}
		return WinError{Code: we.Code, Msg: fmt.Sprintf("%s (%s)", we.Msg, location)}
	}
	return Wrapf(err, "partition %d, row %d", partitionID, rowIndex)
}
