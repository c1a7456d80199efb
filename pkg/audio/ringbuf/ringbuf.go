// ABOUTME: Lock-free single-producer single-consumer byte ring buffer
// ABOUTME: Exposes two-span read vectors so the render path never copies the backlog
package ringbuf

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrInvalidCapacity is returned for non-positive capacities
var ErrInvalidCapacity = errors.New("ring buffer capacity must be positive")

// Buffer is a fixed-capacity circular byte store shared by exactly one
// producer and one consumer.
//
// Both cursors increase monotonically and are reduced modulo the capacity
// on access, so occupancy is always write-read and the full capacity is
// usable. The producer publishes writePos after copying data and the
// consumer publishes readPos after it is done with the bytes.
//
// Thread assignment:
//   - Write, Free: producer only
//   - ReadVector, AdvanceRead, Reset: consumer only
//   - ReadAvailable, Capacity: either side
type Buffer struct {
	writePos atomic.Uint64
	_pad1    [56]byte
	readPos  atomic.Uint64
	_pad2    [56]byte

	buf  []byte
	size uint64
}

// New allocates a ring buffer holding capacity bytes
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{
		buf:  make([]byte, capacity),
		size: uint64(capacity),
	}, nil
}

// Capacity returns the total number of bytes the buffer can hold
func (b *Buffer) Capacity() int {
	return int(b.size)
}

// ReadAvailable returns the number of unread bytes
func (b *Buffer) ReadAvailable() int {
	return int(b.writePos.Load() - b.readPos.Load())
}

// Free returns the number of bytes that can be written without overwriting unread data
func (b *Buffer) Free() int {
	return int(b.size - (b.writePos.Load() - b.readPos.Load()))
}

// Write copies the prefix of p that fits into the free region and returns
// its length. It never blocks and never overwrites unread data.
func (b *Buffer) Write(p []byte) int {
	w := b.writePos.Load()
	r := b.readPos.Load()

	free := b.size - (w - r)
	n := uint64(len(p))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	pos := w % b.size
	first := b.size - pos
	if first >= n {
		copy(b.buf[pos:pos+n], p[:n])
	} else {
		copy(b.buf[pos:], p[:first])
		copy(b.buf[:n-first], p[first:n])
	}

	b.writePos.Store(w + n)
	return int(n)
}

// ReadVector returns up to two contiguous spans covering the unread region.
// The second span is non-empty only when the region wraps past the end of
// the backing array. Spans alias the buffer and stay valid until the
// consumer advances past them.
func (b *Buffer) ReadVector() [2][]byte {
	var vec [2][]byte

	r := b.readPos.Load()
	w := b.writePos.Load()
	avail := w - r
	if avail == 0 {
		return vec
	}

	pos := r % b.size
	first := b.size - pos
	if first >= avail {
		vec[0] = b.buf[pos : pos+avail]
		return vec
	}

	vec[0] = b.buf[pos:]
	vec[1] = b.buf[:avail-first]
	return vec
}

// AdvanceRead marks n bytes as consumed. n must not exceed ReadAvailable.
func (b *Buffer) AdvanceRead(n int) {
	if n == 0 {
		return
	}
	r := b.readPos.Load()
	avail := b.writePos.Load() - r
	if n < 0 || uint64(n) > avail {
		panic(fmt.Sprintf("ringbuf: advance of %d bytes with %d readable", n, avail))
	}
	b.readPos.Store(r + uint64(n))
}

// Reset discards everything currently readable. Consumer side only.
func (b *Buffer) Reset() int {
	r := b.readPos.Load()
	w := b.writePos.Load()
	b.readPos.Store(w)
	return int(w - r)
}
