// Package reclaim provides a growable byte buffer that is consumed from the
// front. Consumed bytes are reclaimed: the live region is shifted back to
// offset 0 so the freed space becomes capacity at the tail, instead of being
// skipped over and kept alive like a sliced []byte would.
//
// A Buffer is not safe for concurrent use.
package reclaim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxCapacity is the largest capacity a Buffer will ever allocate.
const MaxCapacity = math.MaxInt32 - 8

var (
	// ErrCapacity is returned when growing would exceed the buffer's limit.
	ErrCapacity = errors.New("reclaim: capacity exceeded")

	// ErrShortBuffer is returned when more bytes are requested than are live.
	ErrShortBuffer = errors.New("reclaim: not enough bytes")
)

// Buffer owns the region buf[0:cap(buf)]; buf[0:count] is live.
type Buffer struct {
	buf   []byte
	count int
	limit int
}

// New creates a buffer with the given initial capacity.
func New(capacity int) *Buffer {
	return NewWithLimit(capacity, MaxCapacity)
}

// NewWithLimit creates a buffer that refuses to grow beyond limit bytes.
func NewWithLimit(capacity, limit int) *Buffer {
	if limit <= 0 || limit > MaxCapacity {
		limit = MaxCapacity
	}
	if capacity < 0 {
		capacity = 0
	}
	if capacity > limit {
		capacity = limit
	}
	return &Buffer{
		buf:   make([]byte, capacity),
		limit: limit,
	}
}

// Len returns the number of live bytes.
func (b *Buffer) Len() int {
	return b.count
}

// Cap returns the allocated capacity.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Bytes returns the live region. The slice aliases the buffer and is only
// valid until the next mutating call.
func (b *Buffer) Bytes() []byte {
	return b.buf[:b.count]
}

// At returns the live byte at index i. It panics if i is out of range, like
// indexing a slice.
func (b *Buffer) At(i int) byte {
	if i < 0 || i >= b.count {
		panic(fmt.Sprintf("reclaim: index %d out of range [0:%d]", i, b.count))
	}
	return b.buf[i]
}

// IndexByte returns the index of the first c in the live region, or -1.
func (b *Buffer) IndexByte(c byte) int {
	return bytes.IndexByte(b.buf[:b.count], c)
}

// Grow makes room for at least by more bytes. Existing capacity is reused
// when it suffices; otherwise the buffer is reallocated, copying only the
// live bytes. The capacity never shrinks.
func (b *Buffer) Grow(by int) error {
	if by < 0 {
		return fmt.Errorf("reclaim: negative growth %d", by)
	}
	if by > b.limit-b.count {
		return fmt.Errorf("%w: need %d bytes, limit is %d", ErrCapacity, b.count+by, b.limit)
	}
	need := b.count + by
	if need <= len(b.buf) {
		return nil
	}

	newCap := len(b.buf) * 2
	if newCap < need {
		newCap = need
	}
	if newCap > b.limit {
		newCap = b.limit
	}
	grown := make([]byte, newCap)
	copy(grown, b.buf[:b.count])
	b.buf = grown
	return nil
}

// Write appends p, growing the buffer when needed. On ErrCapacity nothing
// is written.
func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.Grow(len(p)); err != nil {
		return 0, err
	}
	n := copy(b.buf[b.count:], p)
	b.count += n
	return n, nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	if err := b.Grow(1); err != nil {
		return err
	}
	b.buf[b.count] = c
	b.count++
	return nil
}

// Take removes the first n live bytes and returns a copy of them.
func (b *Buffer) Take(n int) ([]byte, error) {
	if n < 0 || n > b.count {
		return nil, fmt.Errorf("%w: take %d of %d", ErrShortBuffer, n, b.count)
	}
	out := make([]byte, n)
	copy(out, b.buf[:n])
	b.reclaim(n)
	return out, nil
}

// Drop removes the first n live bytes without returning them.
func (b *Buffer) Drop(n int) error {
	if n < 0 || n > b.count {
		return fmt.Errorf("%w: drop %d of %d", ErrShortBuffer, n, b.count)
	}
	b.reclaim(n)
	return nil
}

// Read implements io.Reader by taking up to len(p) bytes. It returns io.EOF
// when the buffer is empty.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.count == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.buf[:b.count])
	b.reclaim(n)
	return n, nil
}

// Reset drops all live bytes and keeps the capacity.
func (b *Buffer) Reset() {
	b.count = 0
}

// reclaim shifts the live bytes after n to the front.
func (b *Buffer) reclaim(n int) {
	if n == 0 {
		return
	}
	copy(b.buf, b.buf[n:b.count])
	b.count -= n
}
