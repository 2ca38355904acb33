package transcription

import (
	"bytes"
	"fmt"
	"io"
)

// DefaultMaxSegmentBytes keeps every request well under the inline payload limit of the remote API.
const DefaultMaxSegmentBytes int64 = 10 * 1024 * 1024

// Segment is a contiguous byte range of a Source, transcribed independently.
type Segment struct {
	Index    int
	Start    int64
	End      int64
	MIMEType string

	data *io.SectionReader
}

// Len returns the segment size in bytes.
func (s Segment) Len() int64 {
	return s.End - s.Start
}

// Position returns the 1-based position of the segment.
func (s Segment) Position() int {
	return s.Index + 1
}

// Reader returns a fresh reader over the segment bytes.
func (s Segment) Reader() io.Reader {
	if s.data == nil {
		return bytes.NewReader(nil)
	}
	return io.NewSectionReader(s.data, 0, s.data.Size())
}

// SegmentCount returns ceil(total / maxSegmentBytes), or 0 for an empty source.
func SegmentCount(total, maxSegmentBytes int64) int {
	if total <= 0 || maxSegmentBytes <= 0 {
		return 0
	}
	return int((total + maxSegmentBytes - 1) / maxSegmentBytes)
}

// Split partitions src into ordered segments of at most maxSegmentBytes.
// The last segment may be shorter; nothing is padded.
func Split(src *Source, maxSegmentBytes int64, mimeType string) ([]Segment, error) {
	if maxSegmentBytes <= 0 {
		return nil, fmt.Errorf("max segment size must be positive, got %d", maxSegmentBytes)
	}

	total := src.Size()
	count := SegmentCount(total, maxSegmentBytes)
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := int64(i) * maxSegmentBytes
		end := min(start+maxSegmentBytes, total)
		segments = append(segments, Segment{
			Index:    i,
			Start:    start,
			End:      end,
			MIMEType: mimeType,
			data:     src.Slice(start, end),
		})
	}
	return segments, nil
}
