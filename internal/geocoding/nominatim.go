package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/venuemap/internal/models"
	"golang.org/x/time/rate"
)

// NominatimBaseURL is the public Nominatim search endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// nominatimUserAgent identifies the client as the Nominatim usage policy requires.
const nominatimUserAgent = "venuemap/1.0 (https://github.com/UnknownOlympus/venuemap)"

// NominatimProvider geocodes through OpenStreetMap's Nominatim API.
type NominatimProvider struct {
	client  HTTPClient
	baseURL string
	limiter *rate.Limiter
	log     *slog.Logger
}

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type nominatimResponse struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// NewNominatimProvider creates a provider for the public endpoint.
// The public instance allows one request per second, which is also the default limit.
func NewNominatimProvider(rateLimit int, log *slog.Logger) *NominatimProvider {
	const timeout = 10 * time.Second

	if rateLimit <= 0 {
		rateLimit = 1
	}

	return NewNominatimProviderWithClient(
		&http.Client{Timeout: timeout},
		rate.NewLimiter(rate.Limit(rateLimit), 1),
		log,
	)
}

// NewNominatimProviderWithClient creates a provider with a custom HTTP client and limiter.
func NewNominatimProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:  client,
		baseURL: NominatimBaseURL,
		limiter: limiter,
		log:     log,
	}
}

// Geocode locates a "name, address, city, country" style query.
// Venue names rarely geocode on their own, so when a query finds nothing the
// leading component is dropped and the rest is tried again, down to the last component.
func (np *NominatimProvider) Geocode(ctx context.Context, query string) (*models.Point, error) {
	variations := queryFallbacks(query)
	if len(variations) == 0 {
		return nil, ErrEmptyQuery
	}

	for idx, variation := range variations {
		point, err := np.search(ctx, variation)
		if err == nil {
			if idx > 0 {
				np.log.InfoContext(ctx, "Geocoded using fallback query",
					"original", query,
					"fallback", variation,
					"fallback_level", idx)
			}
			return point, nil
		}

		if !errors.Is(err, ErrEmptyResponse) {
			return nil, err
		}
	}

	np.log.WarnContext(ctx, "All geocoding fallbacks exhausted", "query", query, "variations_tried", len(variations))
	return nil, ErrEmptyResponse
}

// queryFallbacks returns the query followed by its suffixes, one leading component shorter each time.
func queryFallbacks(query string) []string {
	parts := []string{}
	for _, part := range strings.Split(query, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}

	variations := make([]string, 0, len(parts))
	for i := range parts {
		variations = append(variations, strings.Join(parts[i:], ", "))
	}

	return variations
}

func (np *NominatimProvider) search(ctx context.Context, query string) (*models.Point, error) {
	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	params := reqURL.Query()
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrInvalidCoords, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrInvalidCoords, results[0].Lon)
	}

	return &models.Point{Latitude: lat, Longitude: lon}, nil
}
