package artifacts

import (
	"encoding/gob"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/errors"
	"hotelcancel/internal/pipeline"
	"hotelcancel/internal/preprocess"
)

// Paths locates every intermediate artifact of the pipeline
type Paths struct {
	ProcessedTable string `json:"processed_table"`
	Preprocessor   string `json:"preprocessor"`
	Features       string `json:"features"`
	Labels         string `json:"labels"`
	Profile        string `json:"profile"`
	CVResults      string `json:"cv_results"`
	Model          string `json:"model"`
	Metrics        string `json:"metrics"`
	MetricsReport  string `json:"metrics_report"`
	MetricsHTML    string `json:"metrics_html"`
}

// DefaultPaths returns the on-disk layout relative to root
func DefaultPaths(root string) Paths {
	return Paths{
		ProcessedTable: filepath.Join(root, "data", "processed", "processed_data.gob"),
		Preprocessor:   filepath.Join(root, "models", "preprocessor.json"),
		Features:       filepath.Join(root, "data", "processed", "X.gob"),
		Labels:         filepath.Join(root, "data", "processed", "y.gob"),
		Profile:        filepath.Join(root, "data", "processed", "feature_profile.json"),
		CVResults:      filepath.Join(root, "models", "cv_results.bin"),
		Model:          filepath.Join(root, "models", "model_pipe.gob"),
		Metrics:        filepath.Join(root, "results", "metrics.json"),
		MetricsReport:  filepath.Join(root, "results", "metrics.md"),
		MetricsHTML:    filepath.Join(root, "results", "metrics.html"),
	}
}

// Store reads and writes pipeline artifacts. Every write goes to a temporary
// file in the target directory and is renamed into place.
type Store struct {
	paths Paths
}

// NewStore creates a store over the given layout
func NewStore(paths Paths) *Store {
	return &Store{paths: paths}
}

// Paths returns the layout the store writes to
func (s *Store) Paths() Paths {
	return s.paths
}

// SaveTable writes the processed table
func (s *Store) SaveTable(t *dataset.Table) error {
	return s.saveGob(s.paths.ProcessedTable, t)
}

// LoadTable reads the processed table
func (s *Store) LoadTable() (*dataset.Table, error) {
	var t dataset.Table
	if err := s.loadGob(s.paths.ProcessedTable, &t); err != nil {
		return nil, err
	}
	return dataset.NewTable(t.Headers, t.Rows)
}

// SaveFeatures writes the feature table and the label vector
func (s *Store) SaveFeatures(X *dataset.Table, y []int) error {
	if X.NumRows() != len(y) {
		return errors.DimensionMismatch("label count", X.NumRows(), len(y))
	}
	if err := s.saveGob(s.paths.Features, X); err != nil {
		return err
	}
	return s.saveGob(s.paths.Labels, y)
}

// LoadFeatures reads the feature table and label vector and checks they align
func (s *Store) LoadFeatures() (*dataset.Table, []int, error) {
	var X dataset.Table
	if err := s.loadGob(s.paths.Features, &X); err != nil {
		return nil, nil, err
	}
	var y []int
	if err := s.loadGob(s.paths.Labels, &y); err != nil {
		return nil, nil, err
	}
	table, err := dataset.NewTable(X.Headers, X.Rows)
	if err != nil {
		return nil, nil, err
	}
	if table.NumRows() != len(y) {
		return nil, nil, errors.DimensionMismatch("label count", table.NumRows(), len(y))
	}
	return table, y, nil
}

// SavePreprocessor writes the preprocessing plan as JSON
func (s *Store) SavePreprocessor(ct *preprocess.ColumnTransformer) error {
	return s.SaveJSON(s.paths.Preprocessor, ct)
}

// LoadPreprocessor reads the preprocessing plan
func (s *Store) LoadPreprocessor() (*preprocess.ColumnTransformer, error) {
	var ct preprocess.ColumnTransformer
	err := s.read(s.paths.Preprocessor, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&ct)
	})
	if err != nil {
		return nil, err
	}
	if err := ct.Spec.Validate(); err != nil {
		return nil, errors.Wrap(err, "preprocessor plan")
	}
	return &ct, nil
}

// SaveScores writes cross-validation scores as a gonum vector
func (s *Store) SaveScores(scores []float64) error {
	if len(scores) == 0 {
		return errors.InvalidInput("no cross-validation scores to save")
	}
	data, err := mat.NewVecDense(len(scores), append([]float64(nil), scores...)).MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encoding cross-validation scores")
	}
	return s.write(s.paths.CVResults, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// LoadScores reads cross-validation scores
func (s *Store) LoadScores() ([]float64, error) {
	var v mat.VecDense
	err := s.read(s.paths.CVResults, func(r io.Reader) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return v.UnmarshalBinary(data)
	})
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, &v), nil
}

// SavePipeline writes the fitted pipeline
func (s *Store) SavePipeline(p *pipeline.Pipeline) error {
	return s.write(s.paths.Model, p.Encode)
}

// LoadPipeline reads the fitted pipeline
func (s *Store) LoadPipeline() (*pipeline.Pipeline, error) {
	var p *pipeline.Pipeline
	err := s.read(s.paths.Model, func(r io.Reader) error {
		var err error
		p, err = pipeline.Decode(r)
		return err
	})
	return p, err
}

// SaveMetrics writes the metrics record as JSON
func (s *Store) SaveMetrics(m map[string]float64) error {
	return s.SaveJSON(s.paths.Metrics, m)
}

// LoadMetrics reads the metrics record
func (s *Store) LoadMetrics() (map[string]float64, error) {
	var m map[string]float64
	err := s.read(s.paths.Metrics, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(&m)
	})
	return m, err
}

// SaveJSON writes any value as indented JSON
func (s *Store) SaveJSON(path string, v interface{}) error {
	return s.write(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// SaveText writes an arbitrary text artifact such as a rendered report
func (s *Store) SaveText(path string, content []byte) error {
	return s.write(path, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
}

func (s *Store) saveGob(path string, v interface{}) error {
	return s.write(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(v)
	})
}

func (s *Store) loadGob(path string, v interface{}) error {
	return s.read(path, func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(v)
	})
}

func (s *Store) write(path string, encode func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating artifact directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "creating temporary file for %s", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "committing %s", path)
	}
	return nil
}

func (s *Store) read(path string, decode func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound(path, err)
		}
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	if err := decode(f); err != nil {
		if errors.IsAppError(err) {
			return errors.Wrapf(err, "reading %s", path)
		}
		return errors.MalformedInput("reading "+path, err)
	}
	return nil
}
