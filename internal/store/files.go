package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/neisii/weather-forecast-accuracy/internal/accuracy"
	"github.com/neisii/weather-forecast-accuracy/internal/weather"
)

// ErrNotFound is returned when no artifact exists for a requested key.
var ErrNotFound = errors.New("no data for requested key")

// DateLayout is the calendar-date key used for all dated artifacts.
const DateLayout = "2006-01-02"

const (
	predictionsDir  = "predictions"
	observationsDir = "observations"
)

// DailyArtifact is one day's per-provider records as persisted on disk,
// either predictions or observations.
type DailyArtifact struct {
	Date        string                           `json:"date"`
	CollectedAt time.Time                        `json:"collectedAt"`
	Providers   map[string]weather.ReadingRecord `json:"providers"`
}

// FileStore reads and writes dated JSON artifacts under a base directory:
// predictions/YYYY-MM-DD.json and observations/YYYY-MM-DD.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// SavePredictions writes the day's prediction records.
func (s *FileStore) SavePredictions(date string, records map[string]weather.ReadingRecord) error {
	return s.save(predictionsDir, date, records)
}

// SaveObservations writes the day's observation records.
func (s *FileStore) SaveObservations(date string, records map[string]weather.ReadingRecord) error {
	return s.save(observationsDir, date, records)
}

func (s *FileStore) save(kind, date string, records map[string]weather.ReadingRecord) error {
	dir := filepath.Join(s.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", kind, err)
	}

	artifact := DailyArtifact{
		Date:        date,
		CollectedAt: time.Now().UTC(),
		Providers:   records,
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s artifact: %w", kind, err)
	}

	path := filepath.Join(dir, date+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s artifact: %w", kind, err)
	}
	return nil
}

func (s *FileStore) load(kind, date string) (DailyArtifact, error) {
	path := filepath.Join(s.dir, kind, date+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DailyArtifact{}, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, date)
		}
		return DailyArtifact{}, err
	}

	var artifact DailyArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return DailyArtifact{}, fmt.Errorf("decode %s artifact %s: %w", kind, date, err)
	}
	return artifact, nil
}

// LoadWindow pairs the most recent prediction and observation artifacts by
// calendar date, newest first, up to days entries. A date missing either side
// is dropped from the window entirely; per-provider gaps inside a day are
// preserved as-is and handled downstream.
func (s *FileStore) LoadWindow(days int) ([]accuracy.PairedDay, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, predictionsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, predictionsDir)
		}
		return nil, err
	}

	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var window []accuracy.PairedDay
	for _, date := range dates {
		if len(window) >= days {
			break
		}

		predictions, err := s.load(predictionsDir, date)
		if err != nil {
			log.Warn().Str("date", date).Err(err).Msg("skipping day: unreadable predictions")
			continue
		}
		observations, err := s.load(observationsDir, date)
		if err != nil {
			log.Warn().Str("date", date).Err(err).Msg("skipping day: no matching observations")
			continue
		}

		window = append(window, accuracy.PairedDay{
			Date:         date,
			Predictions:  predictions.Providers,
			Observations: observations.Providers,
		})
	}

	return window, nil
}
