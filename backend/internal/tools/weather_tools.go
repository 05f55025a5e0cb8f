package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"thoth/backend/pkg/logger"
)

const weatherBaseURL = "http://wttr.in"

// WeatherTools exposes the wttr.in weather forecast tool.
type WeatherTools struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWeatherTools creates the weather tool set.
func NewWeatherTools() *WeatherTools {
	return &WeatherTools{
		baseURL: weatherBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Get(),
	}
}

// Definitions returns the weather tool definitions for registration.
func (t *WeatherTools) Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolGetWeather,
			Description: "Finds information the forecast of a specific location and provides a simple interpretation like, is going to rain, it's hot, it's super hot instead of warmer",
			Params: []Param{
				{Name: "location"},
			},
			Required: []string{"location"},
			Handler:  t.getForecast,
		},
	}
}

func (t *WeatherTools) getForecast(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
	location := argString(args, "location")

	failure := func(err error) map[string]interface{} {
		t.logger.Warn("Weather lookup failed",
			zap.String("location", location),
			zap.Error(err),
		)
		return map[string]interface{}{
			"location": location,
			"forecast": "",
			"success":  false,
			"error":    fmt.Sprintf("Error getting weather data: %v", err),
		}
	}

	reqURL := fmt.Sprintf("%s/%s?format=3", t.baseURL, url.PathEscape(location))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return failure(err), nil
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return failure(err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(err), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(fmt.Errorf("unexpected status %d", resp.StatusCode)), nil
	}

	return map[string]interface{}{
		"location": location,
		"forecast": strings.TrimSpace(string(body)),
		"success":  true,
	}, nil
}
