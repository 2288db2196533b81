// Package scenarios loads demand realizations from JSON files. A scenario
// file scenario_<id>.json holds per-zone demand/drop/stop series; optional
// sampling_<id>.json and evaluation.json files pin which scenario ids make
// up a sample.
package scenarios

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
)

type zoneRealization struct {
	Demand []float64 `json:"demand"`
	Drop   []float64 `json:"drop"`
	Stop   []float64 `json:"stop"`
}

type scenarioFile struct {
	Zones map[string]zoneRealization `json:"zones"`
}

// JSONLoader realizes scenarios against the static zone set. Each scenario
// gets fresh zone copies; realizations attach write-once per copy.
type JSONLoader struct {
	dir   string
	zones ports.ZoneLoader
}

func NewJSONLoader(dir string, zones ports.ZoneLoader) *JSONLoader {
	return &JSONLoader{dir: dir, zones: zones}
}

func (l *JSONLoader) LoadScenario(ctx context.Context, scenarioID string, periods int) (*domain.Scenario, error) {
	static, err := l.zones.LoadZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenarioID, err)
	}

	path := filepath.Join(l.dir, "scenario_"+scenarioID+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: read %s: %w", scenarioID, path, err)
	}
	var file scenarioFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("scenario %s: parse %s: %w", scenarioID, path, err)
	}

	zones := make(map[string]*domain.DeliveryZone, len(file.Zones))
	for id, r := range file.Zones {
		base, ok := static[id]
		if !ok {
			// Realizations may cover a wider region than this instance.
			log.Warn().Str("scenario", scenarioID).Str("zone", id).Msg("skipping unknown zone")
			continue
		}
		if len(r.Demand) < periods {
			return nil, fmt.Errorf("scenario %s: zone %q has %d periods, need %d",
				scenarioID, id, len(r.Demand), periods)
		}
		zone := domain.NewDeliveryZone(base.ID, base.Location, base.K)
		if err := zone.SetScenarioData(r.Demand, r.Drop, r.Stop); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenarioID, err)
		}
		zones[id] = zone
	}

	return domain.NewScenario(scenarioID, zones, periods), nil
}

// SampleIDs prefers the held-out evaluation sample, then a persisted
// sampling file, then the 1..n default. Persisted samples must be at least
// n ids long; the first n are used.
func (l *JSONLoader) SampleIDs(ctx context.Context, n int, evaluation bool, samplingID int) ([]string, error) {
	if evaluation {
		ids, err := l.readIDList(filepath.Join(l.dir, "evaluation.json"))
		if err != nil {
			return nil, fmt.Errorf("evaluation sample: %w", err)
		}
		return ids, nil
	}

	path := filepath.Join(l.dir, "sampling_"+strconv.Itoa(samplingID)+".json")
	ids, err := l.readIDList(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		ids = make([]string, n)
		for i := range ids {
			ids[i] = strconv.Itoa(i + 1)
		}
		return ids, nil
	case err != nil:
		return nil, fmt.Errorf("sampling %d: %w", samplingID, err)
	}

	if len(ids) < n {
		return nil, fmt.Errorf("sampling %d: has %d scenario ids, need %d", samplingID, len(ids), n)
	}
	return ids[:n], nil
}

func (l *JSONLoader) readIDList(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: empty id list", path)
	}
	return ids, nil
}
