// Package kernel defines the boundary to the compute kernel that evaluates window functions. The windowing loop
// only sees encoded rows and opaque window handles, the aggregation math lives behind Kernel.
package kernel

import (
	"fmt"
	"math"

	"github.com/squareup/winagg/common"
)

type FrameType int

const (
	// FrameRange bounds the window by order key distance from the current row.
	FrameRange FrameType = iota
	// FrameRows bounds the window by the number of preceding rows.
	FrameRows
)

func (f FrameType) String() string {
	switch f {
	case FrameRange:
		return "RANGE"
	case FrameRows:
		return "ROWS"
	default:
		return fmt.Sprintf("FRAME(%d)", int(f))
	}
}

// UnboundedPreceding as a start offset makes the window cover the whole group up to the current row.
const UnboundedPreceding int64 = math.MinInt64

// Frame describes where a window starts relative to the current row, it always ends at the current row.
// StartOffset is <= 0, in order key units for FrameRange and in rows for FrameRows.
type Frame struct {
	Type        FrameType
	StartOffset int64
}

func (f Frame) String() string {
	if f.StartOffset == UnboundedPreceding {
		return fmt.Sprintf("%s BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW", f.Type)
	}
	return fmt.Sprintf("%s BETWEEN %d PRECEDING AND CURRENT ROW", f.Type, -f.StartOffset)
}

// Window is the kernel-side state of one open window. It is owned by a single partition scan.
type Window interface {
	// Dispose releases the window's resources. It must be called exactly once, Invoke must not be called after.
	Dispose()
}

// Kernel evaluates compiled window functions. Implementations are shared by all partitions of a worker and must be
// safe for concurrent use, all per-group state lives in the Window handles they create.
type Kernel interface {
	// NewWindow creates an empty window anchored at frame.StartOffset.
	NewWindow(frame Frame) (Window, error)

	// Invoke threads the encoded row with the given order key into window and returns the encoded output row
	// computed over the window's updated membership.
	Invoke(functionID string, orderKey int64, input common.EncodedRow, window Window) (common.EncodedRow, error)

	// ReleaseRow gives back an output row returned by Invoke once the caller has decoded it.
	ReleaseRow(row common.EncodedRow)
}
