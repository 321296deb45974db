package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wayfarer-app/backend/internal/planner"
)

const defaultOpenMeteoURL = "https://api.open-meteo.com"

// OpenMeteoClient fetches daily forecasts from the Open-Meteo API.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
	retry   RetryPolicy
}

// NewOpenMeteoClient builds a forecast client. An empty baseURL selects the
// public Open-Meteo endpoint.
func NewOpenMeteoClient(baseURL string, retry RetryPolicy) *OpenMeteoClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenMeteoURL
	}
	return &OpenMeteoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		retry:   retry,
	}
}

type openMeteoResponse struct {
	Daily struct {
		Time                        []string `json:"time"`
		PrecipitationProbabilityMax []int    `json:"precipitation_probability_max"`
		WeatherCode                 []int    `json:"weather_code"`
	} `json:"daily"`
}

// FetchForecast returns up to the requested number of daily forecasts.
func (c *OpenMeteoClient) FetchForecast(ctx context.Context, lat, lng float64, days int) ([]planner.DailyForecast, error) {
	if days <= 0 {
		return nil, fmt.Errorf("openmeteo: days must be positive, got %d", days)
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(lng, 'f', 4, 64))
	query.Set("daily", "precipitation_probability_max,weather_code")
	query.Set("forecast_days", strconv.Itoa(days))
	query.Set("timezone", "UTC")

	endpoint := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, query.Encode())

	var payload openMeteoResponse
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("openmeteo: build request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("openmeteo: request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("openmeteo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		payload = openMeteoResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("openmeteo: decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	forecasts := make([]planner.DailyForecast, 0, len(payload.Daily.Time))
	for i, raw := range payload.Daily.Time {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("openmeteo: parse date %q: %w", raw, err)
		}

		forecast := planner.DailyForecast{Date: date}
		if i < len(payload.Daily.PrecipitationProbabilityMax) {
			forecast.PrecipitationProbability = payload.Daily.PrecipitationProbabilityMax[i]
		}
		if i < len(payload.Daily.WeatherCode) {
			forecast.Description = describeWeatherCode(payload.Daily.WeatherCode[i])
		}
		forecasts = append(forecasts, forecast)
	}

	return forecasts, nil
}

// describeWeatherCode maps WMO weather codes to short labels.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	default:
		return "thunderstorm"
	}
}
