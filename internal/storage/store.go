// Package storage keeps finished runs on disk: one directory per run with a
// metadata.json and a states.csv trace.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Target     float64            `json:"target"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Solver     string             `json:"solver"`
	Liftoff    string             `json:"liftoff"`
	Steps      int                `json:"steps"`
	Cycles     int                `json:"cycles"`
	Warnings   int                `json:"warnings"`
	Aborted    string             `json:"aborted,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Describe fills the trace-derived fields of meta from result. Warnings
// and metrics already in meta are kept when result has none, as for a
// result rebuilt from a stored trace.
func Describe(meta RunMetadata, result *dynamo.Result) RunMetadata {
	meta.Steps = result.StepsTaken
	if result.Warnings > 0 {
		meta.Warnings = result.Warnings
	}
	if len(result.Metrics) > 0 {
		meta.Metrics = result.Metrics
	}
	for _, c := range result.Cycles {
		if c > meta.Cycles {
			meta.Cycles = c
		}
	}
	return meta
}

// Save writes a new run directory and returns its ID.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("run_v%.2f_%s", meta.Target, now.Format("20060102-150405.000000000"))
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta = Describe(meta, result)
	meta.ID = runID
	meta.Timestamp = now

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", errors.Wrap(err, "write metadata")
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result); err != nil {
		return "", errors.Wrap(err, "write states")
	}
	return runID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "run %s", runID)
	}
	return &meta, nil
}

// LoadTrace reads the states.csv of a run.
func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

// LoadStates returns the state rows and their times.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	tr, err := s.LoadTrace(runID)
	if err != nil {
		return nil, nil, err
	}
	return tr.States, tr.Times, nil
}
