package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignToReference(t *testing.T) {
	t.Run("empty reference", func(t *testing.T) {
		assert.Nil(t, AlignToReference("", "abc"))
	})

	t.Run("empty text yields all gaps", func(t *testing.T) {
		got := AlignToReference("abc", "")
		assert.Equal(t, []rune{Gap, Gap, Gap}, got)
	})

	t.Run("identical strings align one to one", func(t *testing.T) {
		got := AlignToReference("abc", "abc")
		assert.Equal(t, []rune("abc"), got)
	})

	t.Run("missing character leaves a gap", func(t *testing.T) {
		got := AlignToReference("abc", "ac")
		assert.Equal(t, []rune{'a', Gap, 'c'}, got)
	})

	t.Run("extra character is skipped", func(t *testing.T) {
		got := AlignToReference("ab", "xab")
		assert.Equal(t, []rune("ab"), got)
	})

	t.Run("substitution keeps position", func(t *testing.T) {
		got := AlignToReference("abcd", "abXd")
		assert.Equal(t, []rune("abXd"), got)
	})
}

func TestPositionVote(t *testing.T) {
	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Equal(t, "", PositionVote(nil))
		assert.Equal(t, "solo", PositionVote([]Weighted{{Text: "solo", Weight: 1.0}}))
	})

	t.Run("plurality wins per position", func(t *testing.T) {
		got := PositionVote([]Weighted{
			{Text: "hello", Weight: 1.0},
			{Text: "hellp", Weight: 1.0},
			{Text: "hello", Weight: 1.0},
		})
		assert.Equal(t, "hello", got)
	})

	t.Run("weight outvotes count", func(t *testing.T) {
		got := PositionVote([]Weighted{
			{Text: "cat", Weight: 5.0},
			{Text: "car", Weight: 1.0},
			{Text: "car", Weight: 1.0},
		})
		assert.Equal(t, "cat", got)
	})

	t.Run("off-length variants are down-weighted", func(t *testing.T) {
		got := PositionVote([]Weighted{
			{Text: "T3*1-B?+AcJ3@_9L", Weight: 1.0},
			{Text: "T3*1-B?+AcJ3@_9L", Weight: 1.0},
			{Text: "T3*1-B?+AcJ3@_9Lxx", Weight: 1.0},
		})
		assert.Equal(t, "T3*1-B?+AcJ3@_9L", got)
	})
}
