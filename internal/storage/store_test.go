package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/solver"
)

func numericResult() *solver.Result {
	trace := &dynamo.Trace{
		Names: []string{"y", "y'"},
		Samples: []dynamo.Sample{
			{X: 0, State: dynamo.State{1, 0}},
			{X: 0.1, State: dynamo.State{0.995, -0.0998}},
			{X: 0.2, State: dynamo.State{math.Inf(1), math.NaN()}},
		},
	}
	return &solver.Result{
		Original:    "y'' + y = 0; y(0)=1; y'(0)=0",
		Canonical:   "Derivative(y(x),x,2)+y(x)=0",
		Method:      solver.NumericRK4,
		Trace:       trace,
		Records:     trace.Records(),
		Diagnostics: map[string]string{"step": "0.1", "steps": "2"},
		Warnings:    []string{"NumericInstabilityWarning: trace contains non-finite values from x=0.2"},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(numericResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Method != "numeric-rk4" {
		t.Errorf("expected method numeric-rk4, got %s", meta.Method)
	}
	if meta.Step != 0.1 || meta.Steps != 2 {
		t.Errorf("expected step 0.1 and 2 steps, got %g and %d", meta.Step, meta.Steps)
	}
	if len(meta.Warnings) != 1 {
		t.Errorf("expected the warning to be kept, got %v", meta.Warnings)
	}
	if f := meta.Metrics["finite"]; math.Abs(f-2.0/3.0) > 1e-12 {
		t.Errorf("expected two of three samples finite, got %g", f)
	}
	if meta.EscapeX == nil || *meta.EscapeX != 0.2 {
		t.Errorf("expected escape at x=0.2, got %v", meta.EscapeX)
	}
	if meta.Escape() != "0.2" {
		t.Errorf("expected escape column 0.2, got %s", meta.Escape())
	}
	if (RunMetadata{}).Escape() != "-" {
		t.Error("expected - without an escape point")
	}

	trace, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	if trace.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", trace.Len())
	}
	if trace.Names[1] != "y'" {
		t.Errorf("expected column y', got %s", trace.Names[1])
	}
	if trace.Samples[1].State[1] != -0.0998 {
		t.Errorf("value not preserved: %g", trace.Samples[1].State[1])
	}
	last := trace.Samples[2].State
	if !math.IsInf(last[0], 1) || !math.IsNaN(last[1]) {
		t.Errorf("non-finite values not preserved: %v", last)
	}
}

func TestStoreSave_RequiresTrace(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Save(&solver.Result{Method: solver.Symbolic}); err != ErrNoTrace {
		t.Errorf("expected ErrNoTrace, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, _ := st.Save(numericResult())
	second, _ := st.Save(numericResult())
	if err := os.Mkdir(filepath.Join(tmpDir, "stray"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != first || runs[1].ID != second {
		t.Errorf("expected runs oldest first, got %s then %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreList_MissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(numericResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "trace.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(numericResult())
	if err != nil {
		t.Fatal(err)
	}
	meta, _ := st.Load(runID)
	trace, _ := st.LoadTrace(runID)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, meta, trace); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Run   RunMetadata      `json:"run"`
		Trace []map[string]any `json:"trace"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Run.ID != runID {
		t.Errorf("expected run id %s, got %s", runID, doc.Run.ID)
	}
	if len(doc.Trace) != 3 {
		t.Fatalf("expected 3 records, got %d", len(doc.Trace))
	}
	if doc.Trace[2]["y"] != "+Inf" || doc.Trace[2]["y'"] != "NaN" {
		t.Errorf("non-finite values not exported as strings: %v", doc.Trace[2])
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, meta, trace); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file not written: %v", err)
	}
}

func TestSaveRemovesPartialRun(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res := numericResult()
	res.Trace.Samples[1].State = dynamo.State{0.995}
	if _, err := st.Save(res); err == nil {
		t.Fatal("expected an error for a short sample")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no run directory to remain, got %d entries", len(entries))
	}
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no listed runs, got %d", len(runs))
	}
}
