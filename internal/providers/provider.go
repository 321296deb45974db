// Package providers adapts external travel data services (places, weather)
// behind typed interfaces. Raw data fetching is an upstream concern; the
// engine only depends on the interfaces defined here, so tests substitute
// in-memory fakes.
package providers

import (
	"context"

	"github.com/wayfarer-app/backend/internal/planner"
)

// CandidateSource returns raw points of interest around a coordinate.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, lat, lng float64, radiusMeters int) ([]planner.CandidateAttraction, error)
}

// ForecastSource returns a per-day weather forecast for a coordinate.
type ForecastSource interface {
	FetchForecast(ctx context.Context, lat, lng float64, days int) ([]planner.DailyForecast, error)
}
