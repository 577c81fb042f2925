package weather

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Service orchestrates concurrent fetching from the configured providers.
type Service struct {
	providers []Provider
}

// NewService creates a new Service.
func NewService(providers []Provider) *Service {
	return &Service{providers: providers}
}

// Providers returns the names of the configured providers.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// FetchAll fetches current readings from every provider concurrently and
// returns them keyed by provider name. If any provider fails the whole fetch
// fails: the ensemble has no partial-readings mode, so a real-time prediction
// either sees the full provider set or nothing.
func (s *Service) FetchAll(ctx context.Context, loc Location) (map[string]ProviderReading, error) {
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("no weather providers configured")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings = make(map[string]ProviderReading, len(s.providers))
		firstErr error
	)

	for _, p := range s.providers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("provider %s: %w", p.Name(), err)
				}
				return
			}
			readings[p.Name()] = r
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return readings, nil
}

// CollectReadings fetches current readings from every provider concurrently,
// recording per-provider failures as error payloads instead of dropping them.
// Used by the daily collection jobs: one broken provider must not cost the
// other providers their sample for the day.
func (s *Service) CollectReadings(ctx context.Context, loc Location) map[string]ReadingRecord {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		records = make(map[string]ReadingRecord, len(s.providers))
	)

	for _, p := range s.providers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Str("provider", p.Name()).Str("location", loc.Key()).
					Err(err).Msg("collection fetch failed; recording error payload")
				records[p.Name()] = ReadingRecord{Error: err.Error()}
				return
			}
			records[p.Name()] = ReadingRecord{Reading: &r}
		}()
	}

	wg.Wait()
	return records
}
