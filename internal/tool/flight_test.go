package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediabot/internal/domain"
)

type stubFlightSearcher struct {
	lastOrigin      string
	lastDestination string
	lastDate        string
	err             error
}

func (s *stubFlightSearcher) Search(ctx context.Context, origin, destination, date string) (*domain.FlightOffer, error) {
	s.lastOrigin, s.lastDestination, s.lastDate = origin, destination, date
	if s.err != nil {
		return nil, s.err
	}
	return &domain.FlightOffer{Origin: origin, Destination: destination, Date: date, Airline: "VJ", Price: 99, Currency: "USD"}, nil
}

func TestFlightToolSearchesTomorrow(t *testing.T) {
	searcher := &stubFlightSearcher{}
	ft := NewFlightTool(searcher, []string{"HAN"}, testLogger())
	ft.now = func() time.Time { return time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC) }

	res := ft.Execute(context.Background(), map[string]any{"origin": "SGN"}, &domain.Invocation{ChatID: "42"})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if searcher.lastDate != "2026-03-02" {
		t.Fatalf("expected tomorrow's date, got %q", searcher.lastDate)
	}
	if searcher.lastOrigin != "SGN" || searcher.lastDestination != "HAN" {
		t.Fatalf("unexpected route: %s -> %s", searcher.lastOrigin, searcher.lastDestination)
	}
}

func TestFlightToolPicksDestinationFromPool(t *testing.T) {
	pool := []string{"HAN", "DAD", "PQC"}
	searcher := &stubFlightSearcher{}
	ft := NewFlightTool(searcher, pool, testLogger())

	res := ft.Execute(context.Background(), map[string]any{"origin": "SGN"}, &domain.Invocation{ChatID: "42"})
	if !res.Success {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	found := false
	for _, d := range pool {
		if searcher.lastDestination == d {
			found = true
		}
	}
	if !found {
		t.Fatalf("destination %q not from configured pool", searcher.lastDestination)
	}
}

func TestFlightToolAvoidsOriginAsDestination(t *testing.T) {
	searcher := &stubFlightSearcher{}
	ft := NewFlightTool(searcher, []string{"SGN", "HAN"}, testLogger())

	// Many draws: the origin must never come back as the destination.
	for i := 0; i < 50; i++ {
		res := ft.Execute(context.Background(), map[string]any{"origin": "SGN"}, &domain.Invocation{ChatID: "42"})
		if !res.Success {
			t.Fatalf("unexpected failure: %s", res.Error)
		}
		if searcher.lastDestination == "SGN" {
			t.Fatal("destination equals origin despite alternatives in the pool")
		}
	}
}

func TestFlightToolPoolOfOnlyOrigin(t *testing.T) {
	searcher := &stubFlightSearcher{}
	ft := NewFlightTool(searcher, []string{"TLV", "TLV"}, testLogger())

	done := make(chan domain.ToolResult, 1)
	go func() {
		done <- ft.Execute(context.Background(), map[string]any{"origin": "TLV"}, &domain.Invocation{ChatID: "42"})
	}()

	select {
	case res := <-done:
		if !res.Success {
			t.Fatalf("unexpected failure: %s", res.Error)
		}
		if searcher.lastDestination != "TLV" {
			t.Fatalf("with no alternatives the origin is the only destination, got %q", searcher.lastDestination)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return with a pool containing only the origin")
	}
}

func TestFlightToolEmptyPool(t *testing.T) {
	ft := NewFlightTool(&stubFlightSearcher{}, nil, testLogger())
	res := ft.Execute(context.Background(), map[string]any{"origin": "SGN"}, &domain.Invocation{ChatID: "42"})
	if res.Success {
		t.Fatal("expected failure with no destinations configured")
	}
}

func TestFlightToolSearchError(t *testing.T) {
	searcher := &stubFlightSearcher{err: errors.New("api down")}
	ft := NewFlightTool(searcher, []string{"HAN"}, testLogger())
	res := ft.Execute(context.Background(), map[string]any{"origin": "SGN"}, &domain.Invocation{ChatID: "42"})
	if res.Success {
		t.Fatal("expected failure when search errors")
	}
}

func TestFlightToolOptsOutOfHistory(t *testing.T) {
	ft := NewFlightTool(&stubFlightSearcher{}, []string{"HAN"}, testLogger())
	ignore, reason := ft.IgnoreHistory()
	if !ignore {
		t.Fatal("random_flight must opt out of history")
	}
	if reason == "" {
		t.Fatal("opt-out must carry a reason")
	}
}
