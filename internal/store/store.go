// Package store persists solve runs to disk as a metadata.json plus
// CSV side files, the on-disk run format of the teacher's
// internal/storage generalized from one simulation result to one solve
// result (trajectory + history, not states-over-time).
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/arnewlabs/trajopt/internal/alqr"
	"github.com/arnewlabs/trajopt/internal/solver"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// Store is a directory of run subdirectories, one per solve.
type Store struct {
	baseDir string
}

// New builds a Store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the base directory if it doesn't exist.
func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata is the JSON side file spec.md §3's run record distills to:
// identity, the scenario it came from, and the solve stats (not the full
// trajectory, which lives in trajectory.csv).
type RunMetadata struct {
	ID          string    `json:"id"`
	Model       string    `json:"model"`
	Timestamp   time.Time `json:"timestamp"`
	Converged   bool      `json:"converged"`
	FinalState  string    `json:"final_state"`
	OuterIters  int       `json:"outer_iterations"`
	TotalInner  int       `json:"total_inner_iterations"`
}

// Save writes metadata.json, history.csv (the per-outer-iteration
// record), and trajectory.csv (the stripped state/control trajectory)
// for one solver.Result.
func (s *Store) Save(model string, res *solver.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      model,
		Timestamp:  time.Now(),
		Converged:  res.Converged,
		FinalState: res.FinalState.String(),
		OuterIters: res.OuterIterations,
		TotalInner: res.TotalInner,
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeHistoryCSV(filepath.Join(runDir, "history.csv"), res.History); err != nil {
		return "", err
	}
	if err := writeTrajectoryCSV(filepath.Join(runDir, "trajectory.csv"), res.X, res.U); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeHistoryCSV(path string, history []alqr.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"outer", "state", "cost", "c_max", "max_penalty", "inner_iterations"}); err != nil {
		return err
	}
	for _, r := range history {
		row := []string{
			strconv.Itoa(r.Outer),
			r.State.String(),
			strconv.FormatFloat(r.Cost, 'f', 6, 64),
			strconv.FormatFloat(r.CMax, 'e', 6, 64),
			strconv.FormatFloat(r.MaxPenalty, 'e', 6, 64),
			strconv.Itoa(r.InnerIterations),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeTrajectoryCSV(path string, x []traj.State, u []traj.Control) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if len(x) == 0 {
		return nil
	}
	header := []string{"knot"}
	for i := range x[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if len(u) > 0 {
		for i := range u[0] {
			header = append(header, fmt.Sprintf("u%d", i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for k := range x {
		row := []string{strconv.Itoa(k)}
		for _, v := range x[k] {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if k < len(u) {
			for _, v := range u[k] {
				row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns every run's metadata, skipping entries whose
// metadata.json is missing or unparseable.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, e.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// Load reads back one run's metadata.
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

// LoadTrajectory reads back a run's trajectory.csv as parallel x/u
// column slices (one slice per state/control component, across knots),
// the shape the plot/watch CLI commands want for a terminal line chart.
func (s *Store) LoadTrajectory(runID string) (columns map[string][]float64, err error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return map[string][]float64{}, nil
	}

	header := records[0]
	columns = make(map[string][]float64, len(header)-1)
	for _, row := range records[1:] {
		for j := 1; j < len(row) && j < len(header); j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				continue
			}
			columns[header[j]] = append(columns[header[j]], v)
		}
	}
	return columns, nil
}
