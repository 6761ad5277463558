// Package storage keeps numeric runs on disk: one directory per run holding
// metadata.json and trace.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/metrics"
	"github.com/san-kum/odelab/internal/solver"
)

var ErrNoTrace = errors.New("storage: result has no numeric trace")

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
	ID          string             `json:"id"`
	Equation    string             `json:"equation"`
	Canonical   string             `json:"canonical"`
	Method      string             `json:"method"`
	Timestamp   time.Time          `json:"timestamp"`
	Step        float64            `json:"step"`
	Steps       int                `json:"steps"`
	X0          float64            `json:"x0"`
	Names       []string           `json:"names"`
	Diagnostics map[string]string  `json:"diagnostics,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	EscapeX     *float64           `json:"escape_x,omitempty"`
}

// Escape formats the x where the run first left the stability bound, or "-".
func (m RunMetadata) Escape() string {
	if m.EscapeX == nil {
		return "-"
	}
	return strconv.FormatFloat(*m.EscapeX, 'g', 4, 64)
}

// Save writes a numeric result and returns its run id.
func (s *Store) Save(res *solver.Result) (string, error) {
	t := res.Trace
	if t == nil || t.Len() == 0 {
		return "", ErrNoTrace
	}
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Equation:    res.Original,
		Canonical:   res.Canonical,
		Method:      string(res.Method),
		Timestamp:   time.Now(),
		Steps:       t.Len() - 1,
		X0:          t.Samples[0].X,
		Names:       t.Names,
		Diagnostics: res.Diagnostics,
		Warnings:    res.Warnings,
	}
	ms := metrics.Defaults()
	meta.Metrics = metrics.Evaluate(t, ms...)
	if x, ok := metrics.FirstEscape(ms...); ok {
		meta.EscapeX = &x
	}
	if v, err := strconv.ParseFloat(res.Diagnostics["step"], 64); err == nil {
		meta.Step = v
	}

	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	if err := writeTrace(filepath.Join(runDir, "trace.csv"), t); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeTrace(path string, t *dynamo.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"x"}, t.Names...)); err != nil {
		return err
	}
	for i, sm := range t.Samples {
		if len(sm.State) != len(t.Names) {
			return fmt.Errorf("storage: sample %d has %d values for %d names", i, len(sm.State), len(t.Names))
		}
		row := make([]string, 0, len(sm.State)+1)
		row = append(row, strconv.FormatFloat(sm.X, 'g', -1, 64))
		for _, v := range sm.State {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every stored run, oldest first. Directories without readable
// metadata are skipped.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrace(runID string) (*dynamo.Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trace.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("run %s: empty trace", runID)
	}

	t := &dynamo.Trace{Names: records[0][1:]}
	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s: row %d: %w", runID, i+1, err)
			}
			vals[j] = v
		}
		t.Samples = append(t.Samples, dynamo.Sample{X: vals[0], State: dynamo.State(vals[1:])})
	}
	return t, nil
}
