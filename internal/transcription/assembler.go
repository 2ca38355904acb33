package transcription

import (
	"cmp"
	"slices"
	"strings"
)

// Separator is placed between consecutive segment transcripts.
const Separator = "\n\n"

// Assemble orders results by index and joins their text. Empty texts are kept,
// so two empty neighbours still produce a blank paragraph.
func Assemble(results []SegmentResult) string {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b SegmentResult) int {
		return cmp.Compare(a.Index, b.Index)
	})

	texts := make([]string, len(sorted))
	for i, r := range sorted {
		texts[i] = r.Text
	}
	return strings.Join(texts, Separator)
}
