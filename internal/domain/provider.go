package domain

import (
	"context"
	"io"
)

// TaskProvider is the interface all generation providers implement. Generate
// performs exactly one external call chain and parses the response into a
// TaskResult at the adapter boundary.
type TaskProvider interface {
	Name() ProviderName
	Supports(t TaskType) bool
	Generate(ctx context.Context, req TaskRequest) (*TaskResult, error)
}

// TaskDispatcher runs a normalized task against the ranked provider chain
// for its capability, falling back between providers as needed.
type TaskDispatcher interface {
	Do(ctx context.Context, req TaskRequest) (*TaskResult, error)
}

// SpeechClient is the capability interface for speech-to-speech remixing.
// Injected into the voice tool at construction time.
type SpeechClient interface {
	RemixVoice(ctx context.Context, audioPath, voiceID string) (io.ReadCloser, error)
}

// FlightSearcher backs the random_flight tool.
type FlightSearcher interface {
	Search(ctx context.Context, origin, destination, date string) (*FlightOffer, error)
}

// FlightOffer is a normalized flight search result.
type FlightOffer struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Date        string  `json:"date"`
	Airline     string  `json:"airline,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
}
