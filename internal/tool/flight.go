package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"mediabot/internal/domain"
)

// FlightTool picks a random destination from a configured pool and searches a
// flight there for tomorrow. Every call is an independent draw, so it opts
// out of conversation history entirely.
type FlightTool struct {
	searcher     domain.FlightSearcher
	destinations []string
	now          func() time.Time
	logger       *slog.Logger
}

func NewFlightTool(searcher domain.FlightSearcher, destinations []string, logger *slog.Logger) *FlightTool {
	return &FlightTool{
		searcher:     searcher,
		destinations: destinations,
		now:          time.Now,
		logger:       logger,
	}
}

func (t *FlightTool) Name() string { return "random_flight" }

func (t *FlightTool) Description() string {
	return "Find a flight from a given origin to a surprise destination, departing tomorrow."
}

func (t *FlightTool) Parameters() map[string]any {
	return Params(map[string]Param{
		"origin": {Type: "string", Description: "Departure airport code (e.g. SGN)"},
	}, []string{"origin"})
}

func (t *FlightTool) IgnoreHistory() (bool, string) {
	return true, "each call is an independent random draw; prior results must not bias it"
}

func (t *FlightTool) Execute(ctx context.Context, args map[string]any, _ *domain.Invocation) domain.ToolResult {
	origin := ArgString(args, "origin")
	if len(t.destinations) == 0 {
		return domain.Failure("no destinations configured for random flight")
	}

	// Draw from the pool minus the origin. A pool that holds nothing else
	// keeps the origin rather than looping forever on redraws.
	pool := t.destinations
	filtered := make([]string, 0, len(pool))
	for _, d := range pool {
		if d != origin {
			filtered = append(filtered, d)
		}
	}
	if len(filtered) > 0 {
		pool = filtered
	}
	destination := pool[rand.IntN(len(pool))]
	date := t.now().AddDate(0, 0, 1).Format("2006-01-02")

	offer, err := t.searcher.Search(ctx, origin, destination, date)
	if err != nil {
		return domain.Failure("flight search failed: " + err.Error())
	}

	summary := fmt.Sprintf("Surprise trip: %s -> %s on %s", offer.Origin, offer.Destination, offer.Date)
	if offer.Airline != "" {
		summary += fmt.Sprintf(" with %s", offer.Airline)
	}
	if offer.Price > 0 {
		summary += fmt.Sprintf(" (%.2f %s)", offer.Price, offer.Currency)
	}

	data, _ := json.Marshal(offer)
	return domain.ToolResult{
		Success: true,
		Data:    summary,
		Normalized: map[string]any{
			"offer": json.RawMessage(data),
		},
	}
}
