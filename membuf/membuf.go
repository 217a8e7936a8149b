package membuf

import (
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

var ErrOutOfRange = errors.New("write outside buffer")

// Buffer is a fixed-size, zero-filled memory image. It remembers which
// offsets have been written so that gaps and overlapping writes can be
// reported.
type Buffer struct {
	buf      []byte
	written  *bitset.BitSet
	overlaps uint64
	sum      uint16
}

func New(size int) *Buffer {
	return &Buffer{
		buf:     make([]byte, size),
		written: bitset.New(uint(size)),
	}
}

// WriteAt never grows the buffer: a write that does not fit entirely is
// rejected without modifying any byte.
func (m *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.buf)) || int64(len(p)) > int64(len(m.buf))-off {
		return 0, errors.Wrapf(ErrOutOfRange, "[%d, %d) not within [0, %d)", off, off+int64(len(p)), len(m.buf))
	}

	for i, b := range p {
		pos := uint(off) + uint(i)
		if m.written.Test(pos) {
			m.overlaps++
		}
		m.written.Set(pos)
		m.sum += uint16(b)
	}

	copy(m.buf[off:], p)
	return len(p), nil
}

func (m *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.Errorf("negative offset %d", off)
	}
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}

	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Buffer) Reader() io.Reader {
	return io.NewSectionReader(m, 0, int64(len(m.buf)))
}

// Bytes returns the underlying image without copying.
func (m *Buffer) Bytes() []byte {
	return m.buf
}

func (m *Buffer) Len() int {
	return len(m.buf)
}

// Covered returns the number of distinct offsets that have been written.
func (m *Buffer) Covered() uint64 {
	return uint64(m.written.Count())
}

// Overlaps returns the number of byte writes that landed on an offset
// already written earlier.
func (m *Buffer) Overlaps() uint64 {
	return m.overlaps
}

// Sum is the 16-bit additive checksum of every byte written, overlapping
// writes included.
func (m *Buffer) Sum() uint16 {
	return m.sum
}

// Gaps returns the half-open ranges of offsets that were never written.
func (m *Buffer) Gaps() [][2]int {
	var gaps [][2]int
	size := uint(len(m.buf))
	for i := uint(0); i < size; {
		start, ok := m.written.NextClear(i)
		if !ok || start >= size {
			break
		}
		end, ok := m.written.NextSet(start)
		if !ok || end > size {
			end = size
		}
		gaps = append(gaps, [2]int{int(start), int(end)})
		i = end
	}
	return gaps
}

var _ io.WriterAt = (*Buffer)(nil)
var _ io.ReaderAt = (*Buffer)(nil)
