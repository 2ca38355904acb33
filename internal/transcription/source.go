package transcription

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Source is an immutable byte sequence of known length.
// Slices are views over the underlying reader and never copy it.
type Source struct {
	r    io.ReaderAt
	size int64
}

// NewSource wraps r, which must hold at least size readable bytes.
func NewSource(r io.ReaderAt, size int64) *Source {
	if size < 0 {
		size = 0
	}
	return &Source{r: r, size: size}
}

// NewBytesSource wraps an in-memory buffer.
func NewBytesSource(data []byte) *Source {
	return NewSource(bytes.NewReader(data), int64(len(data)))
}

// OpenFileSource opens path as a Source. The returned file must be closed by the caller.
func OpenFileSource(path string) (*Source, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}
	return NewSource(f, info.Size()), f, nil
}

// Size returns the total length in bytes.
func (s *Source) Size() int64 {
	if s == nil {
		return 0
	}
	return s.size
}

// Slice returns a reader over [start, end), clamped to the source bounds.
func (s *Source) Slice(start, end int64) *io.SectionReader {
	if start < 0 {
		start = 0
	}
	if end > s.size {
		end = s.size
	}
	if end < start {
		end = start
	}
	return io.NewSectionReader(s.r, start, end-start)
}
