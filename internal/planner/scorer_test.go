package planner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreAttractionsAdditiveFormula(t *testing.T) {
	candidates := []CandidateAttraction{
		{
			ID:             "museum",
			Name:           "City Museum",
			Category:       CategoryCulture,
			RatingEstimate: 4.2,
			Popularity:     PopularityLow,
		},
	}

	ranked := ScoreAttractions(candidates, []Category{CategoryCulture}, BudgetLow)
	require.Len(t, ranked, 1)

	// 4.2*5 rating + 30 interest + 15 low popularity + 10 budget fit (culture=15 < 20).
	require.InDelta(t, 76.0, ranked[0].Score, 1e-9)
	require.InDelta(t, 15.0, ranked[0].EstimatedCost, 1e-9)
	require.True(t, ranked[0].HiddenGem)
	require.Equal(t, CrowdLow, ranked[0].CrowdLevel)
}

func TestScoreAttractionsNoBonusesOutsideInterestAndBudget(t *testing.T) {
	candidates := []CandidateAttraction{
		{
			ID:             "mall",
			Name:           "Grand Mall",
			Category:       CategoryShopping,
			RatingEstimate: 3.0,
			Popularity:     PopularityHigh,
		},
	}

	// Shopping costs 40, which is outside the low band, and the traveler asked
	// for nature only.
	ranked := ScoreAttractions(candidates, []Category{CategoryNature}, BudgetLow)
	require.Len(t, ranked, 1)
	require.InDelta(t, 15.0, ranked[0].Score, 1e-9)
	require.False(t, ranked[0].HiddenGem)
	require.Equal(t, CrowdHigh, ranked[0].CrowdLevel)
}

func TestScoreAttractionsOrdersDescendingWithStableTies(t *testing.T) {
	candidates := []CandidateAttraction{
		{ID: "a", Category: CategoryHistory, RatingEstimate: 3.0, Popularity: PopularityMedium},
		{ID: "b", Category: CategoryHistory, RatingEstimate: 3.0, Popularity: PopularityMedium},
		{ID: "c", Category: CategoryHistory, RatingEstimate: 5.0, Popularity: PopularityMedium},
	}

	ranked := ScoreAttractions(candidates, nil, BudgetMedium)
	require.Len(t, ranked, 3)
	require.Equal(t, "c", ranked[0].ID)
	// Equal scores keep input order.
	require.Equal(t, "a", ranked[1].ID)
	require.Equal(t, "b", ranked[2].ID)
}

func TestScoreAttractionsEmptyInput(t *testing.T) {
	ranked := ScoreAttractions(nil, []Category{CategoryFood}, BudgetHigh)
	require.Empty(t, ranked)
}

func TestEstimateCostFallsBackForUnknownCategory(t *testing.T) {
	require.InDelta(t, 25.0, EstimateCost(Category("street-art")), 1e-9)
	require.InDelta(t, 50.0, EstimateCost(CategoryAdventure), 1e-9)
}

func TestBudgetBandsOverlap(t *testing.T) {
	// Culture (15) satisfies both low and medium.
	require.True(t, budgetFits(BudgetLow, 15))
	require.True(t, budgetFits(BudgetMedium, 15))
	require.False(t, budgetFits(BudgetHigh, 15))

	// Shopping (40) satisfies both medium and high.
	require.True(t, budgetFits(BudgetMedium, 40))
	require.True(t, budgetFits(BudgetHigh, 40))
	require.False(t, budgetFits(BudgetLow, 40))
}

func TestSustainabilityScoreBounds(t *testing.T) {
	// Low popularity nature caps at 100: 50+15+15+10+10 = 100.
	nature := sustainabilityScore(CandidateAttraction{Category: CategoryNature, Popularity: PopularityLow})
	require.Equal(t, 100, nature)

	// High popularity non-nature: 50+15-10 = 55.
	crowded := sustainabilityScore(CandidateAttraction{Category: CategoryShopping, Popularity: PopularityHigh})
	require.Equal(t, 55, crowded)

	// Medium popularity non-nature: 50+15+15+10 = 90.
	medium := sustainabilityScore(CandidateAttraction{Category: CategoryFood, Popularity: PopularityMedium})
	require.Equal(t, 90, medium)
}

func TestHiddenGemRequiresLowPopularityAndHighRating(t *testing.T) {
	cases := []struct {
		popularity PopularityTier
		rating     float64
		want       bool
	}{
		{PopularityLow, 4.0, true},
		{PopularityLow, 4.9, true},
		{PopularityLow, 3.9, false},
		{PopularityMedium, 5.0, false},
		{PopularityHigh, 5.0, false},
	}

	for _, tc := range cases {
		ranked := ScoreAttractions([]CandidateAttraction{{
			ID:             "x",
			Popularity:     tc.popularity,
			RatingEstimate: tc.rating,
		}}, nil, BudgetMedium)
		require.Len(t, ranked, 1)
		require.Equal(t, tc.want, ranked[0].HiddenGem, "popularity=%s rating=%v", tc.popularity, tc.rating)
	}
}
