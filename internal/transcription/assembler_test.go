package transcription

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssemble_OrdersByIndex(t *testing.T) {
	results := []SegmentResult{
		{Index: 2, Text: "third"},
		{Index: 0, Text: "first"},
		{Index: 1, Text: "second"},
	}
	assert.Equal(t, "first\n\nsecond\n\nthird", Assemble(results))
	assert.Equal(t, 2, results[0].Index, "input must not be reordered")
}

func TestAssemble_PermutationInvariant(t *testing.T) {
	base := make([]SegmentResult, 12)
	for i := range base {
		base[i] = SegmentResult{Index: i, Text: string(rune('A' + i))}
	}
	want := Assemble(base)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]SegmentResult(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Assemble(shuffled))
	}
}

func TestAssemble_KeepsEmptySegments(t *testing.T) {
	results := []SegmentResult{
		{Index: 0, Text: "text0"},
		{Index: 1, Text: ""},
		{Index: 2, Text: "text2"},
	}
	assert.Equal(t, "text0\n\n\n\ntext2", Assemble(results))

	assert.Equal(t, "\n\n", Assemble([]SegmentResult{{Index: 0}, {Index: 1}}))
}

func TestAssemble_Empty(t *testing.T) {
	assert.Equal(t, "", Assemble(nil))
}
