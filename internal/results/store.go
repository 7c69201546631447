package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/qudyn/internal/ensemble"
	"github.com/san-kum/qudyn/internal/evolution"
	"github.com/san-kum/qudyn/internal/operator"
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
	ID           string    `json:"id"`
	Formalism    string    `json:"formalism"`
	Timestamp    time.Time `json:"timestamp"`
	Horizon      float64   `json:"horizon"`
	Dimension    int       `json:"dimension"`
	Seed         int64     `json:"seed,omitempty"`
	Trajectories int       `json:"trajectories,omitempty"`
	Truncated    bool      `json:"truncated,omitempty"`
	TruncatedAt  float64   `json:"truncated_at,omitempty"`
}

// Observable names an operator whose expectation value gets a CSV column.
type Observable struct {
	Name string
	Op   operator.Matrix
}

// SaveTrajectory writes metadata.json and expectations.csv for one run,
// sampling the observables at the trajectory's own grid.
func (s *Store) SaveTrajectory(formalism string, tr *evolution.Trajectory, obs []Observable) (string, error) {
	runID := fmt.Sprintf("%s_%d", formalism, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Formalism: formalism,
		Timestamp: time.Now(),
		Horizon:   tr.Horizon(),
		Dimension: tr.Dim(),
	}
	if truncated, at, _ := tr.Truncated(); truncated {
		meta.Truncated = true
		meta.TruncatedAt = at
	}
	if err := writeMetadata(runDir, meta); err != nil {
		return "", err
	}

	times := tr.Times()
	header := []string{"time"}
	for _, o := range obs {
		header = append(header, o.Name)
	}
	rows := make([][]float64, len(times))
	for i, t := range times {
		row := make([]float64, len(obs))
		for j, o := range obs {
			row[j] = tr.Expect(t, o.Op)
		}
		rows[i] = row
	}
	if err := writeCSV(filepath.Join(runDir, "expectations.csv"), header, times, rows); err != nil {
		return "", err
	}
	return runID, nil
}

// SaveEnsemble writes metadata.json and expectations.csv with mean, standard
// error, and sample count columns per named series.
func (s *Store) SaveEnsemble(formalism string, seed int64, n, dim int, horizon float64, series map[string]*ensemble.Series) (string, error) {
	runID := fmt.Sprintf("%s_ens_%d", formalism, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Formalism:    formalism,
		Timestamp:    time.Now(),
		Horizon:      horizon,
		Dimension:    dim,
		Seed:         seed,
		Trajectories: n,
	}
	if err := writeMetadata(runDir, meta); err != nil {
		return "", err
	}

	var times []float64
	names := sortedKeys(series)
	header := []string{"time"}
	for _, name := range names {
		sr := series[name]
		if times == nil {
			times = sr.Times
		}
		header = append(header, name, name+"_stderr", name+"_count")
	}

	rows := make([][]float64, len(times))
	for i := range times {
		row := make([]float64, 0, 3*len(names))
		for _, name := range names {
			sr := series[name]
			row = append(row, sr.Mean[i], sr.StdErr[i], float64(sr.Count[i]))
		}
		rows[i] = row
	}
	if err := writeCSV(filepath.Join(runDir, "expectations.csv"), header, times, rows); err != nil {
		return "", err
	}
	return runID, nil
}

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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
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

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTable reads expectations.csv back: column names (time excluded), query
// times, and one row of values per time.
func (s *Store) LoadTable(runID string) ([]string, []float64, [][]float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "expectations.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(records) < 1 {
		return nil, nil, nil, fmt.Errorf("results: %s has no header", csvPath)
	}

	names := records[0][1:]
	times := make([]float64, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("results: bad time %q: %w", record[0], err)
		}
		row := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("results: bad value %q: %w", field, err)
			}
			row[j] = v
		}
		times = append(times, t)
		rows = append(rows, row)
	}
	return names, times, rows, nil
}

func writeMetadata(runDir string, meta RunMetadata) error {
	file, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeCSV(path string, header []string, times []float64, rows [][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return err
	}
	for i, t := range times {
		row := []string{strconv.FormatFloat(t, 'g', 12, 64)}
		for _, v := range rows[i] {
			row = append(row, strconv.FormatFloat(v, 'g', 12, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func sortedKeys(m map[string]*ensemble.Series) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
