package planner

import (
	"sort"
)

// Scoring weights for the additive ranking formula.
const (
	interestMatchBonus   = 30.0
	ratingWeight         = 5.0
	lowPopularityBonus   = 15.0
	budgetFitBonus       = 10.0
	defaultCategoryCost  = 25.0
	hiddenGemRatingFloor = 4.0
)

// baseCosts maps each category to an estimated visit cost in cost units.
var baseCosts = map[Category]float64{
	CategoryCulture:   15,
	CategoryFood:      30,
	CategoryNature:    10,
	CategoryHistory:   12,
	CategoryShopping:  40,
	CategoryAdventure: 50,
}

// ScoreAttractions ranks candidates against the requested interests and budget
// tier, descending by score. The sort is stable so ties keep input order.
// An empty candidate list yields an empty ranked list; callers must handle it.
func ScoreAttractions(candidates []CandidateAttraction, interests []Category, budget BudgetTier) []ScoredAttraction {
	interestSet := make(map[Category]struct{}, len(interests))
	for _, interest := range interests {
		interestSet[interest] = struct{}{}
	}

	scored := make([]ScoredAttraction, 0, len(candidates))
	for _, candidate := range candidates {
		cost := EstimateCost(candidate.Category)

		score := candidate.RatingEstimate * ratingWeight
		if _, ok := interestSet[candidate.Category]; ok {
			score += interestMatchBonus
		}
		if candidate.Popularity == PopularityLow {
			score += lowPopularityBonus
		}
		if budgetFits(budget, cost) {
			score += budgetFitBonus
		}

		scored = append(scored, ScoredAttraction{
			CandidateAttraction: candidate,
			Score:               score,
			EstimatedCost:       cost,
			SustainabilityScore: sustainabilityScore(candidate),
			CrowdLevel:          crowdLevel(candidate.Popularity),
			HiddenGem:           candidate.Popularity == PopularityLow && candidate.RatingEstimate >= hiddenGemRatingFloor,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// EstimateCost looks up the per-category base cost; unknown categories fall
// back to a mid-range constant.
func EstimateCost(category Category) float64 {
	if cost, ok := baseCosts[category]; ok {
		return cost
	}
	return defaultCategoryCost
}

// budgetFits reports whether the estimated cost falls in the tier's expected
// band. The bands overlap on purpose: a place can weakly satisfy two tiers.
func budgetFits(budget BudgetTier, cost float64) bool {
	switch budget {
	case BudgetLow:
		return cost < 20
	case BudgetMedium:
		return cost >= 10 && cost <= 50
	case BudgetHigh:
		return cost > 30
	}
	return false
}

// sustainabilityScore derives a 0-100 score from popularity and category.
// Base 50, +15 for assumed public-transport accessibility, +15 for spots away
// from mass tourism, +10/-10 depending on crowding, +10 for nature.
func sustainabilityScore(candidate CandidateAttraction) int {
	score := 50 + 15

	if candidate.Popularity == PopularityLow || candidate.Popularity == PopularityMedium {
		score += 15
	}
	if candidate.Popularity == PopularityHigh {
		score -= 10
	} else {
		score += 10
	}
	if candidate.Category == CategoryNature {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func crowdLevel(popularity PopularityTier) CrowdLevel {
	switch popularity {
	case PopularityHigh:
		return CrowdHigh
	case PopularityMedium:
		return CrowdMedium
	}
	return CrowdLow
}
