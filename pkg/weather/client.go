package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Cache stores raw forecast payloads by coordinate key.
type Cache interface {
	Get(key string) (json.RawMessage, bool)
	Save(key string, payload json.RawMessage)
}

// Client queries the Open-Meteo forecast API.
type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
}

func NewClient(baseURL string, cache Cache) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

// Current returns the raw forecast for the coordinates: current and hourly temperature plus
// daily sunrise and sunset in the location's timezone.
func (c *Client) Current(ctx context.Context, latitude, longitude float64) (json.RawMessage, error) {
	// ~1km grid; the query uses the same rounding so a cached payload matches its key
	lat := strconv.FormatFloat(latitude, 'f', 2, 64)
	lon := strconv.FormatFloat(longitude, 'f', 2, 64)
	key := lat + "," + lon
	if c.cache != nil {
		if payload, ok := c.cache.Get(key); ok {
			return payload, nil
		}
	}

	params := url.Values{}
	params.Set("latitude", lat)
	params.Set("longitude", lon)
	params.Set("current", "temperature_2m")
	params.Set("hourly", "temperature_2m")
	params.Set("daily", "sunrise,sunset")
	params.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather lookup returned %d: %s", resp.StatusCode, body)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("weather lookup returned invalid JSON")
	}

	payload := json.RawMessage(body)
	if c.cache != nil {
		c.cache.Save(key, payload)
	}
	return payload, nil
}
