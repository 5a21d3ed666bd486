// Package codec converts rows to and from the encoded form exchanged with a compute kernel. A row is laid out over
// a list of schema slices and is encoded into one buffer per slice.
package codec

import (
	"github.com/squareup/winagg/bufpool"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/errors"
)

type Encoder struct {
	slices  []common.SchemaSlice
	offsets []int
	numCols int
	pool    *bufpool.Pool
	scratch [][]byte
}

func NewEncoder(slices []common.SchemaSlice, pool *bufpool.Pool) *Encoder {
	return &Encoder{
		slices:  slices,
		offsets: sliceOffsets(slices),
		numCols: common.NumColumns(slices),
		pool:    pool,
		scratch: make([][]byte, len(slices)),
	}
}

// Encode serializes row slice by slice. With keepBuffer the bytes live in buffers acquired from the pool and stay
// valid until the pool's next FreeAll. Otherwise they live in scratch space that the next transient Encode
// overwrites.
func (e *Encoder) Encode(row common.Row, keepBuffer bool) (common.EncodedRow, error) {
	if row.ColCount() != e.numCols {
		return nil, errors.NewCodecError("row has %d columns, input schema has %d", row.ColCount(), e.numCols)
	}
	encoded := make(common.EncodedRow, len(e.slices))
	for i, slice := range e.slices {
		var buff []byte
		var pooled *bufpool.Buffer
		if keepBuffer {
			pooled = e.pool.Acquire()
			buff = pooled.Bytes()
		} else {
			buff = e.scratch[i][:0]
		}
		buff, err := common.EncodeRowCols(row, e.offsets[i], slice, buff)
		if err != nil {
			return nil, errors.Wrapf(err, "slice %d", i)
		}
		if keepBuffer {
			// the append may have moved to a larger array, keep the pool pointing at what we hand out
			pooled.B = buff
			buff = pooled.Bytes()
		} else {
			e.scratch[i] = buff
		}
		encoded[i] = buff
	}
	return encoded, nil
}

type Decoder struct {
	slices  []common.SchemaSlice
	offsets []int
	numCols int
}

func NewDecoder(slices []common.SchemaSlice) *Decoder {
	return &Decoder{
		slices:  slices,
		offsets: sliceOffsets(slices),
		numCols: common.NumColumns(slices),
	}
}

// NewOutputArray allocates an array Decode can fill.
func (d *Decoder) NewOutputArray() []interface{} {
	return make([]interface{}, d.numCols)
}

// Decode fills out, in field order across all slices. out is normally reused from row to row, so anything that
// must outlive the next Decode has to be copied out first.
func (d *Decoder) Decode(encoded common.EncodedRow, out []interface{}) error {
	if len(encoded) != len(d.slices) {
		return errors.NewCodecError("encoded row has %d slices, output schema has %d", len(encoded), len(d.slices))
	}
	if len(out) != d.numCols {
		return errors.NewCodecError("output array has %d fields, output schema has %d", len(out), d.numCols)
	}
	for i, slice := range d.slices {
		if err := common.DecodeRow(encoded[i], slice, out, d.offsets[i]); err != nil {
			return errors.Wrapf(err, "slice %d", i)
		}
	}
	return nil
}

func sliceOffsets(slices []common.SchemaSlice) []int {
	offsets := make([]int, len(slices))
	off := 0
	for i, s := range slices {
		offsets[i] = off
		off += len(s)
	}
	return offsets
}
