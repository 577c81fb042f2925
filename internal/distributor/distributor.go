package distributor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/neisii/weather-forecast-accuracy/internal/ensemble"
	"github.com/neisii/weather-forecast-accuracy/internal/store"
)

// ErrInvalidSnapshot is returned internally when a fetched snapshot lacks
// required fields or carries a weight table that fails validation. It never
// propagates out of Load: the loader silently degrades to the built-in
// defaults instead, trading transparency for availability.
var ErrInvalidSnapshot = errors.New("fetched weight snapshot is invalid")

// DefaultCacheTTL is how long a cached snapshot is served before a fetch is
// attempted on the caller's path.
const DefaultCacheTTL = time.Hour

var validate = validator.New()

// Loader resolves the current prediction weights for consumers with
// cache-first, fetch-fallback, default-fallback precedence. The ordering
// guarantee is "caller always gets a value immediately", not "caller always
// gets the freshest value".
type Loader struct {
	url     string
	client  *http.Client
	ttl     time.Duration
	circuit *gobreaker.CircuitBreaker

	mu         sync.RWMutex
	cached     *store.AIWeightsSnapshot
	cachedAt   time.Time
	refreshing bool
}

// NewLoader creates a Loader fetching published snapshots from url.
// A ttl of 0 uses DefaultCacheTTL.
func NewLoader(client *http.Client, url string, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weights-fetch",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Loader{
		url:     url,
		client:  client,
		ttl:     ttl,
		circuit: cb,
	}
}

// Load returns the weight table to use for the next prediction. It never
// fails: a fresh cache entry is returned immediately (kicking off a
// non-blocking background refresh), an expired or empty cache triggers a
// synchronous fetch, and any fetch failure falls back to the build-time
// default weights.
func (l *Loader) Load(ctx context.Context) ensemble.PredictionWeights {
	if snapshot, ok := l.readCache(); ok {
		go l.refreshIfStale()
		return snapshot.Weights
	}

	snapshot, err := l.fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("weights fetch failed; using default weights")
		return ensemble.DefaultWeights()
	}

	l.store(snapshot)
	return snapshot.Weights
}

// Snapshot returns the cached snapshot, if any.
func (l *Loader) Snapshot() (store.AIWeightsSnapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cached == nil {
		return store.AIWeightsSnapshot{}, false
	}
	return *l.cached, true
}

// readCache returns the cached snapshot when it is younger than the TTL.
func (l *Loader) readCache() (store.AIWeightsSnapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cached == nil || time.Since(l.cachedAt) > l.ttl {
		return store.AIWeightsSnapshot{}, false
	}
	return *l.cached, true
}

// refreshIfStale fetches the published snapshot in the background and swaps
// the cache only when the version actually changed, avoiding redundant cache
// writes and spurious update churn. At most one refresh runs at a time.
func (l *Loader) refreshIfStale() {
	l.mu.Lock()
	if l.refreshing {
		l.mu.Unlock()
		return
	}
	l.refreshing = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.refreshing = false
		l.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, err := l.fetch(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("background weights refresh failed; keeping cached version")
		return
	}

	l.mu.RLock()
	sameVersion := l.cached != nil && l.cached.Version == snapshot.Version
	l.mu.RUnlock()
	if sameVersion {
		return
	}

	l.store(snapshot)
	log.Info().Str("version", snapshot.Version).Msg("weights updated in background")
}

func (l *Loader) store(snapshot store.AIWeightsSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = &snapshot
	l.cachedAt = time.Now()
}

// fetch performs a single idempotent unauthenticated GET of the published
// latest snapshot and validates its required fields.
func (l *Loader) fetch(ctx context.Context) (store.AIWeightsSnapshot, error) {
	result, err := l.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d fetching weights", resp.StatusCode)
		}

		var snapshot store.AIWeightsSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		return snapshot, nil
	})
	if err != nil {
		return store.AIWeightsSnapshot{}, err
	}

	snapshot, ok := result.(store.AIWeightsSnapshot)
	if !ok {
		return store.AIWeightsSnapshot{}, fmt.Errorf("unexpected result type from circuit breaker")
	}

	if err := validate.Struct(snapshot); err != nil {
		return store.AIWeightsSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := snapshot.Weights.Validate(); err != nil {
		return store.AIWeightsSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return snapshot, nil
}
