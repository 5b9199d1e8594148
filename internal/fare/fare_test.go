package fare

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Run("base fare for same station", func(t *testing.T) {
		assert.True(t, Calculate(4, 4).Equal(BaseFare))
		assert.True(t, Calculate(0, 0).Equal(BaseFare))
	})

	t.Run("symmetric in direction", func(t *testing.T) {
		pairs := [][2]int64{{1, 5}, {0, 9}, {7, 2}, {3, 3}}
		for _, p := range pairs {
			assert.True(t, Calculate(p[0], p[1]).Equal(Calculate(p[1], p[0])),
				"fare(%d,%d) must equal fare(%d,%d)", p[0], p[1], p[1], p[0])
		}
	})

	t.Run("known values", func(t *testing.T) {
		// 13 + 1.3 * 3
		assert.True(t, Calculate(2, 5).Equal(decimal.RequireFromString("16.9")))
		// 13 + 1.3 * 10
		assert.True(t, Calculate(10, 0).Equal(decimal.RequireFromString("26")))
	})

	t.Run("per station increments", func(t *testing.T) {
		prev := Calculate(0, 0)
		for d := int64(1); d <= 5; d++ {
			cur := Calculate(0, d)
			assert.True(t, cur.Sub(prev).Equal(PerStationRate))
			prev = cur
		}
	})
}
