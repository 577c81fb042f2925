package weather

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name    string
	reading ProviderReading
	err     error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(ctx context.Context, loc Location) (ProviderReading, error) {
	if p.err != nil {
		return ProviderReading{}, p.err
	}
	return p.reading, nil
}

func TestFetchAll(t *testing.T) {
	s := NewService([]Provider{
		&stubProvider{name: "alpha", reading: ProviderReading{ProviderName: "alpha", TemperatureC: 18}},
		&stubProvider{name: "beta", reading: ProviderReading{ProviderName: "beta", TemperatureC: 19}},
	})

	readings, err := s.FetchAll(context.Background(), Location{City: "Seoul", Country: "KR"})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.InDelta(t, 18, readings["alpha"].TemperatureC, 1e-9)
	assert.InDelta(t, 19, readings["beta"].TemperatureC, 1e-9)
}

func TestFetchAllFailsWhenAnyProviderFails(t *testing.T) {
	s := NewService([]Provider{
		&stubProvider{name: "alpha", reading: ProviderReading{ProviderName: "alpha"}},
		&stubProvider{name: "beta", err: errors.New("upstream timeout")},
	})

	_, err := s.FetchAll(context.Background(), Location{City: "Seoul", Country: "KR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider beta")
}

func TestFetchAllNoProviders(t *testing.T) {
	s := NewService(nil)
	_, err := s.FetchAll(context.Background(), Location{City: "Seoul", Country: "KR"})
	assert.Error(t, err)
}

func TestCollectReadingsRecordsFailures(t *testing.T) {
	s := NewService([]Provider{
		&stubProvider{name: "alpha", reading: ProviderReading{ProviderName: "alpha", TemperatureC: 18}},
		&stubProvider{name: "beta", err: errors.New("upstream timeout")},
	})

	records := s.CollectReadings(context.Background(), Location{City: "Seoul", Country: "KR"})
	require.Len(t, records, 2)

	assert.True(t, records["alpha"].OK())
	assert.InDelta(t, 18, records["alpha"].Reading.TemperatureC, 1e-9)

	assert.False(t, records["beta"].OK())
	assert.Contains(t, records["beta"].Error, "upstream timeout")
}
