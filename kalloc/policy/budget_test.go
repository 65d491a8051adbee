package policy

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func Test_Apply_MinimumPerClass(t *testing.T) {
	res, err := Apply([]int{0, 1, 2, 5, 10}, 85)
	require.NoError(t, err)
	require.False(t, res.Degraded)

	require.Equal(t, 0, res.Zones[0])
	require.Equal(t, 1, res.Zones[1])
	require.Equal(t, 2, res.Zones[2])
	require.GreaterOrEqual(t, res.Zones[3], 2)
	require.GreaterOrEqual(t, res.Zones[4], 2)
}

func Test_Apply_BudgetAboveSignaturesGivesOneZonePerGroup(t *testing.T) {
	freq := []int{3, 7, 1, 12}
	res, err := Apply(freq, 200)
	require.NoError(t, err)
	require.Equal(t, freq, res.Zones)
	require.Equal(t, 0, res.Wasted)
	require.Equal(t, sum(freq), res.Assigned)
}

func Test_Apply_ProportionalWithCarry(t *testing.T) {
	// minimums use 6, 4 left, spread over (10-2) + (6-2) + (2-2) = 12.
	res, err := Apply([]int{10, 6, 2}, 10)
	require.NoError(t, err)
	// 8*4/12 = 2 rem 8; 4*4/12 = 1 rem 4, carry 12 -> +1.
	require.Equal(t, []int{4, 4, 2}, res.Zones)
	require.Equal(t, 10, res.Assigned)
	require.Equal(t, 0, res.Wasted)
}

func Test_Apply_AllClassesAtMinimum(t *testing.T) {
	res, err := Apply([]int{2, 2, 1, 0}, 50)
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 1, 0}, res.Zones)
	require.Equal(t, 0, res.Wasted)
}

func Test_Apply_Degrades(t *testing.T) {
	res, err := Apply([]int{5, 5, 5}, 4)
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Equal(t, []int{2, 1, 1}, res.Zones)
	require.Equal(t, 4, res.Assigned)
}

func Test_Apply_BudgetTooSmall(t *testing.T) {
	_, err := Apply([]int{5, 5, 5}, 2)
	require.ErrorIs(t, err, ErrBudgetTooSmall)
}

func Test_Apply_RejectsNegative(t *testing.T) {
	_, err := Apply([]int{1, -1}, 10)
	require.Error(t, err)
}

func Test_Apply_Empty(t *testing.T) {
	res, err := Apply(nil, 85)
	require.NoError(t, err)
	require.Empty(t, res.Zones)
	require.Zero(t, res.Assigned)
}

// Randomized properties: conservation, minimum rule, no more zones than
// groups, and the whole budget is used when it covers the minimums.
func Test_Apply_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 500; iter++ {
		classes := 1 + rng.IntN(30)
		freq := make([]int, classes)
		for i := range freq {
			freq[i] = rng.IntN(25)
		}
		budget := 2*classes + rng.IntN(100)

		res, err := Apply(freq, budget)
		require.NoError(t, err)
		require.False(t, res.Degraded)
		require.LessOrEqual(t, res.Assigned, budget)
		require.Equal(t, sum(res.Zones), res.Assigned)

		for i, f := range freq {
			require.GreaterOrEqual(t, res.Zones[i], min(f, MinZonesPerClass), "class %d", i)
			require.LessOrEqual(t, res.Zones[i], f, "class %d", i)
		}
		require.Equal(t, 0, res.Wasted, "freq=%v budget=%d", freq, budget)
		require.Equal(t, min(budget, sum(freq)), res.Assigned)
	}
}
