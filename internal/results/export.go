package results

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/qudyn/internal/evolution"
)

type ExportData struct {
	Formalism   string               `json:"formalism"`
	Horizon     float64              `json:"horizon"`
	Dimension   int                  `json:"dimension"`
	Steps       int                  `json:"steps"`
	Truncated   bool                 `json:"truncated,omitempty"`
	TruncatedAt float64              `json:"truncated_at,omitempty"`
	Times       []float64            `json:"times"`
	Observables map[string][]float64 `json:"observables"`
}

func exportData(formalism string, tr *evolution.Trajectory, obs []Observable) ExportData {
	times := tr.Times()
	data := ExportData{
		Formalism:   formalism,
		Horizon:     tr.Horizon(),
		Dimension:   tr.Dim(),
		Steps:       len(times),
		Times:       times,
		Observables: make(map[string][]float64, len(obs)),
	}
	if truncated, at, _ := tr.Truncated(); truncated {
		data.Truncated = true
		data.TruncatedAt = at
	}
	for _, o := range obs {
		vals := make([]float64, len(times))
		for i, t := range times {
			vals[i] = tr.Expect(t, o.Op)
		}
		data.Observables[o.Name] = vals
	}
	return data
}

func ExportJSON(path string, formalism string, tr *evolution.Trajectory, obs []Observable) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeJSON(file, exportData(formalism, tr, obs))
}

func ExportJSONStdout(formalism string, tr *evolution.Trajectory, obs []Observable) error {
	return writeJSON(os.Stdout, exportData(formalism, tr, obs))
}

func writeJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
