package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"mediabot/internal/domain"
)

// FlightAPI queries an external flight-search service over HTTP. When no
// APIBase is configured Search returns a bare offer with the requested route
// so the tool stays usable without a flight data subscription.
type FlightAPI struct {
	apiBase string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

type FlightAPIConfig struct {
	APIBase string
	APIKey  string
	Logger  *slog.Logger
}

func NewFlightAPI(cfg FlightAPIConfig) *FlightAPI {
	return &FlightAPI{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		client:  sharedHTTPClient(defaultHTTPTimeout),
		logger:  cfg.Logger,
	}
}

type flightSearchResponse struct {
	Offers []struct {
		Airline  string  `json:"airline"`
		Price    float64 `json:"price"`
		Currency string  `json:"currency"`
	} `json:"offers"`
}

func (f *FlightAPI) Search(ctx context.Context, origin, destination, date string) (*domain.FlightOffer, error) {
	offer := &domain.FlightOffer{
		Origin:      origin,
		Destination: destination,
		Date:        date,
	}
	if f.apiBase == "" {
		return offer, nil
	}

	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("date", date)

	resp, err := doWithRetry(ctx, f.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiBase+"/flights/search?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		if f.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+f.apiKey)
		}
		return req, nil
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("flight search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("flight API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed flightSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("flight search decode: %w", err)
	}
	if len(parsed.Offers) > 0 {
		best := parsed.Offers[0]
		offer.Airline = best.Airline
		offer.Price = best.Price
		offer.Currency = best.Currency
	}
	return offer, nil
}
