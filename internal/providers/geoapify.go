package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wayfarer-app/backend/internal/planner"
)

const defaultGeoapifyURL = "https://api.geoapify.com"

// geoapifyCategories maps our attraction categories to Geoapify place
// category filters.
var geoapifyCategories = map[string]planner.Category{
	"entertainment.culture": planner.CategoryCulture,
	"entertainment.museum":  planner.CategoryCulture,
	"catering":              planner.CategoryFood,
	"natural":               planner.CategoryNature,
	"leisure.park":          planner.CategoryNature,
	"heritage":              planner.CategoryHistory,
	"building.historic":     planner.CategoryHistory,
	"commercial.shopping":   planner.CategoryShopping,
	"sport":                 planner.CategoryAdventure,
	"activity":              planner.CategoryAdventure,
}

// GeoapifyClient fetches candidate attractions from the Geoapify Places API.
type GeoapifyClient struct {
	baseURL string
	apiKey  string
	limit   int
	client  *http.Client
	retry   RetryPolicy
}

// NewGeoapifyClient builds a places client. An empty baseURL selects the
// public Geoapify endpoint.
func NewGeoapifyClient(baseURL, apiKey string, limit int, retry RetryPolicy) (*GeoapifyClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("geoapify: api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGeoapifyURL
	}
	if limit <= 0 {
		limit = 50
	}

	return &GeoapifyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limit:   limit,
		client:  &http.Client{},
		retry:   retry,
	}, nil
}

type geoapifyResponse struct {
	Features []struct {
		Properties struct {
			PlaceID    string   `json:"place_id"`
			Name       string   `json:"name"`
			Formatted  string   `json:"formatted"`
			Lat        float64  `json:"lat"`
			Lon        float64  `json:"lon"`
			Categories []string `json:"categories"`
			Website    string   `json:"website"`
			Phone      string   `json:"phone"`
			Rank       struct {
				Popularity float64 `json:"popularity"`
			} `json:"rank"`
		} `json:"properties"`
	} `json:"features"`
}

// FetchCandidates returns points of interest within the radius around the
// coordinate, mapped onto the planner's candidate shape.
func (c *GeoapifyClient) FetchCandidates(ctx context.Context, lat, lng float64, radiusMeters int) ([]planner.CandidateAttraction, error) {
	if radiusMeters <= 0 {
		radiusMeters = 5000
	}

	filters := make([]string, 0, len(geoapifyCategories))
	for key := range geoapifyCategories {
		filters = append(filters, key)
	}

	query := url.Values{}
	query.Set("categories", strings.Join(filters, ","))
	query.Set("filter", fmt.Sprintf("circle:%s,%s,%d",
		strconv.FormatFloat(lng, 'f', 6, 64),
		strconv.FormatFloat(lat, 'f', 6, 64),
		radiusMeters,
	))
	query.Set("limit", strconv.Itoa(c.limit))
	query.Set("apiKey", c.apiKey)

	endpoint := fmt.Sprintf("%s/v2/places?%s", c.baseURL, query.Encode())

	var payload geoapifyResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("geoapify: build request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("geoapify: request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("geoapify: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		payload = geoapifyResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("geoapify: decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]planner.CandidateAttraction, 0, len(payload.Features))
	for _, feature := range payload.Features {
		props := feature.Properties
		if strings.TrimSpace(props.Name) == "" {
			continue
		}

		candidates = append(candidates, planner.CandidateAttraction{
			ID:             props.PlaceID,
			Name:           props.Name,
			Category:       mapCategory(props.Categories),
			Latitude:       props.Lat,
			Longitude:      props.Lon,
			Address:        props.Formatted,
			RatingEstimate: ratingFromPopularity(props.Rank.Popularity),
			Popularity:     tierFromPopularity(props.Rank.Popularity),
			ContactPhone:   props.Phone,
			Website:        props.Website,
		})
	}

	return candidates, nil
}

func mapCategory(categories []string) planner.Category {
	for _, raw := range categories {
		for prefix, category := range geoapifyCategories {
			if strings.HasPrefix(raw, prefix) {
				return category
			}
		}
	}
	return planner.CategoryCulture
}

// ratingFromPopularity projects Geoapify's 0-10 popularity rank onto the 0-5
// rating band the scorer expects.
func ratingFromPopularity(popularity float64) float64 {
	if popularity <= 0 {
		return 3.0
	}
	rating := popularity / 2
	if rating > 5 {
		rating = 5
	}
	return rating
}

func tierFromPopularity(popularity float64) planner.PopularityTier {
	switch {
	case popularity >= 7:
		return planner.PopularityHigh
	case popularity >= 3.5:
		return planner.PopularityMedium
	default:
		return planner.PopularityLow
	}
}
