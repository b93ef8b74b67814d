package enumerator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SharpeSentinel/internal/model"
)

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(0, 10)
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))

	_, err = New(3, -1)
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestEnumerator_CountAndSum(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for units := 0; units <= 10; units++ {
			e, err := New(n, units)
			require.NoError(t, err)

			all := e.All()
			require.Len(t, all, Count(n, units), "n=%d units=%d", n, units)
			for _, c := range all {
				require.Len(t, c, n)
				sum := 0
				for _, v := range c {
					assert.GreaterOrEqual(t, v, 0)
					sum += v
				}
				assert.Equal(t, units, sum, "composition %v", c)
			}
		}
	}
}

func TestCount_DefaultGrid(t *testing.T) {
	assert.Equal(t, 286, Count(4, 10))
	assert.Equal(t, 11, Count(2, 10))
	assert.Equal(t, 1, Count(1, 10))
	assert.Equal(t, 1, Count(5, 0))
	assert.Equal(t, 0, Count(0, 10))
}

func TestEnumerator_LexicographicOrder(t *testing.T) {
	e, err := New(3, 2)
	require.NoError(t, err)

	want := [][]int{
		{0, 0, 2}, {0, 1, 1}, {0, 2, 0},
		{1, 0, 1}, {1, 1, 0},
		{2, 0, 0},
	}
	assert.Equal(t, want, e.All())
}

// recursive reference definition of the ordering
func genComb(remaining, amount int) [][]int {
	if remaining == 1 {
		return [][]int{{amount}}
	}
	var out [][]int
	for i := 0; i <= amount; i++ {
		for _, tail := range genComb(remaining-1, amount-i) {
			out = append(out, append([]int{i}, tail...))
		}
	}
	return out
}

func TestEnumerator_MatchesRecursiveDefinition(t *testing.T) {
	for _, tc := range []struct{ n, units int }{{1, 10}, {2, 10}, {3, 5}, {4, 10}, {5, 4}} {
		e, err := New(tc.n, tc.units)
		require.NoError(t, err)
		assert.Equal(t, genComb(tc.n, tc.units), e.All(), "n=%d units=%d", tc.n, tc.units)
	}
}

func TestEnumerator_EdgeCases(t *testing.T) {
	e, err := New(1, 10)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{10}}, e.All())

	e, err = New(4, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 0, 0, 0}}, e.All())
}

func TestEnumerator_Restartable(t *testing.T) {
	e, err := New(4, 10)
	require.NoError(t, err)

	first := e.All()
	_, ok := e.Next()
	assert.False(t, ok, "exhausted enumerator must stay exhausted")

	e.Reset()
	second := e.All()
	assert.Equal(t, first, second)
}

func TestEnumerator_ReturnsCopies(t *testing.T) {
	e, err := New(2, 3)
	require.NoError(t, err)

	c, ok := e.Next()
	require.True(t, ok)
	c[0] = 99

	next, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, next)
}

func TestWeights(t *testing.T) {
	w := Weights([]int{2, 3, 5}, 10)
	assert.InDeltaSlice(t, []float64{0.2, 0.3, 0.5}, []float64(w), 1e-12)
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)

	zero := Weights([]int{0, 0}, 0)
	assert.Equal(t, model.Allocation{0, 0}, zero)
}
