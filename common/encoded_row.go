package common

// EncodedRow is the binary form of a row exchanged with a compute kernel, one buffer per schema slice.
type EncodedRow [][]byte

func (e EncodedRow) NumSlices() int {
	return len(e)
}

// Size is the total number of encoded bytes across all slices.
func (e EncodedRow) Size() int {
	n := 0
	for _, s := range e {
		n += len(s)
	}
	return n
}
