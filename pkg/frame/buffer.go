package frame

// Buffer carries the bytes of a partially received frame between Feed
// calls and keeps the consumption counters of the owning decoder in step.
type Buffer struct {
	stats *Stats
	data  []byte
}

// NewBuffer creates a Buffer with room for size bytes.
func NewBuffer(size int, stats *Stats) *Buffer {
	return &Buffer{stats: stats, data: make([]byte, 0, size)}
}

// Bytes returns the buffered bytes. The slice is only valid until the
// next call that modifies the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Append adds freshly received bytes.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
	b.stats.BytesIn.Add(uint64(len(p)))
	b.stats.Pending.Store(int64(len(b.data)))
}

// Consume drops n bytes from the front.
func (b *Buffer) Consume(n int) {
	if n > len(b.data) {
		n = len(b.data)
	}
	if n <= 0 {
		return
	}
	rest := copy(b.data, b.data[n:])
	b.data = b.data[:rest]
	b.stats.BytesConsumed.Add(uint64(n))
	b.stats.Pending.Store(int64(rest))
}

// Reset drops everything buffered.
func (b *Buffer) Reset() {
	b.Consume(len(b.data))
}

// ShouldLog rate-limits error logging: it is true for the first
// occurrence and then every 100th.
func ShouldLog(count uint64) bool {
	return count == 1 || count%100 == 0
}
