package ranking_test

import (
	"testing"

	"school-service/internal/ranking"

	"github.com/stretchr/testify/assert"
)

func total(v float64) *float64 { return &v }

func TestDenseRank(t *testing.T) {
	t.Run("TiesShareRankAndNullsGoLast", func(t *testing.T) {
		ranked := ranking.DenseRank([]ranking.Entry{
			{StudentID: 4, Name: "D"},
			{StudentID: 3, Name: "C", Total: total(80)},
			{StudentID: 1, Name: "A", Total: total(90)},
			{StudentID: 2, Name: "B", Total: total(90)},
		})

		assert.Equal(t, 1, ranking.PositionOf(ranked, 1))
		assert.Equal(t, 1, ranking.PositionOf(ranked, 2))
		assert.Equal(t, 2, ranking.PositionOf(ranked, 3))
		assert.Equal(t, 3, ranking.PositionOf(ranked, 4))
	})

	t.Run("TiesKeepInputOrder", func(t *testing.T) {
		ranked := ranking.DenseRank([]ranking.Entry{
			{StudentID: 9, Total: total(50)},
			{StudentID: 2, Total: total(50)},
		})

		assert.Equal(t, int64(9), ranked[0].StudentID)
		assert.Equal(t, int64(2), ranked[1].StudentID)
	})

	t.Run("NullBelowZeroTotal", func(t *testing.T) {
		ranked := ranking.DenseRank([]ranking.Entry{
			{StudentID: 1},
			{StudentID: 2, Total: total(0)},
		})

		assert.Equal(t, 1, ranking.PositionOf(ranked, 2))
		assert.Equal(t, 2, ranking.PositionOf(ranked, 1))
	})

	t.Run("AllWithoutTestsShareFirstRank", func(t *testing.T) {
		ranked := ranking.DenseRank([]ranking.Entry{{StudentID: 1}, {StudentID: 2}})

		assert.Equal(t, 1, ranked[0].Position)
		assert.Equal(t, 1, ranked[1].Position)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, ranking.DenseRank(nil))
	})

	t.Run("DoesNotReorderInput", func(t *testing.T) {
		in := []ranking.Entry{{StudentID: 1}, {StudentID: 2, Total: total(1)}}
		ranking.DenseRank(in)
		assert.Equal(t, int64(1), in[0].StudentID)
	})
}

func TestPositionOf_Missing(t *testing.T) {
	assert.Equal(t, 0, ranking.PositionOf(nil, 42))
}
