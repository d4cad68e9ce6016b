package provider

import (
	"context"
	"fmt"

	"VolSentinel/internal/model"
)

// Provider defines the market-data operations the scorer needs. All methods
// must return after bounded retry rather than hanging; GetBookSummary returns
// (nil, nil) when no book exists for the instrument.
type Provider interface {
	ListOptions(ctx context.Context, currency string) ([]model.Instrument, error)
	GetIndexPrice(ctx context.Context, currency string) (float64, error)
	GetBookSummary(ctx context.Context, instrument string) (*model.MarketQuote, error)
	Name() string
}

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	Instruments map[string][]model.Instrument
	Spot        map[string]float64
	Quotes      map[string]*model.MarketQuote
	Err         error
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) ListOptions(_ context.Context, currency string) ([]model.Instrument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Instruments[currency], nil
}

func (m *MockProvider) GetIndexPrice(_ context.Context, currency string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	spot, ok := m.Spot[currency]
	if !ok {
		return 0, fmt.Errorf("no spot configured for %s", currency)
	}
	return spot, nil
}

func (m *MockProvider) GetBookSummary(_ context.Context, instrument string) (*model.MarketQuote, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Quotes[instrument], nil
}
