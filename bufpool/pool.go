// Package bufpool provides the scratch buffers rows are encoded into while a window is open. Every buffer kept for
// a group is handed back in one FreeAll call when the group's window is disposed.
//
// A Pool is owned by one partition scan and is not safe for concurrent use.
package bufpool

import "fmt"

const DefaultBufferSize = 256

// maxRetained caps the free list so one very large group does not pin its peak memory for the rest of the
// partition.
const maxRetained = 4096

type Buffer struct {
	pool *Pool
	gen  uint64
	B    []byte
}

// Bytes returns the encoded bytes. Reading a buffer after the generation it was acquired in has been freed is a
// bug and panics.
func (b *Buffer) Bytes() []byte {
	if b.gen != b.pool.generation || b.pool.closed {
		panic(fmt.Sprintf("buffer of generation %d read after it was freed, pool is at generation %d",
			b.gen, b.pool.generation))
	}
	return b.B
}

type Pool struct {
	bufferSize int
	free       []*Buffer
	live       []*Buffer
	generation uint64
	closed     bool
	stats      Stats
}

type Stats struct {
	Acquired  int64
	Allocated int64
	Freed     int64
	FreeAlls  int64
}

func NewPool(bufferSize int) *Pool {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Pool{bufferSize: bufferSize}
}

// Acquire hands out an empty buffer owned by the current generation.
func (p *Pool) Acquire() *Buffer {
	if p.closed {
		panic("acquire on closed pool")
	}
	p.stats.Acquired++
	var b *Buffer
	if n := len(p.free); n > 0 {
		b = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		b.B = b.B[:0]
	} else {
		p.stats.Allocated++
		b = &Buffer{pool: p, B: make([]byte, 0, p.bufferSize)}
	}
	b.gen = p.generation
	p.live = append(p.live, b)
	return b
}

// FreeAll releases every buffer acquired since the previous FreeAll and starts a new generation.
func (p *Pool) FreeAll() {
	p.stats.FreeAlls++
	p.stats.Freed += int64(len(p.live))
	for i, b := range p.live {
		if len(p.free) < maxRetained {
			p.free = append(p.free, b)
		}
		p.live[i] = nil
	}
	p.live = p.live[:0]
	p.generation++
}

// Close frees outstanding buffers and drops the free list. The pool cannot be used afterwards.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	p.FreeAll()
	p.free = nil
	p.closed = true
}

// Outstanding is the number of buffers acquired in the current generation.
func (p *Pool) Outstanding() int {
	return len(p.live)
}

func (p *Pool) Generation() uint64 {
	return p.generation
}

func (p *Pool) Stats() Stats {
	return p.stats
}
