// ABOUTME: Ring buffer package documentation
// ABOUTME: Describes the SPSC cursor protocol shared by feeder and render callback
// Package ringbuf implements the byte ring shared by the feeder and the
// real-time render callback.
//
// The producer appends with Write, which only ever accepts the prefix of the
// input that fits. The consumer inspects the unread region with ReadVector,
// which returns at most two spans because the region may wrap around the end
// of the backing array, then releases bytes with AdvanceRead.
//
// Example:
//
//	rb, _ := ringbuf.New(16)
//	rb.Write(pcm)
//
//	vec := rb.ReadVector()
//	n := consume(vec[0])
//	rb.AdvanceRead(n)
package ringbuf
