// Package modelstore persists trained models and their metadata as
// JSON documents under the model directory. Writes are atomic
// (temp file plus rename) so a crashed run never leaves a partial
// artifact that a later forecast could load.
package modelstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/severitech/prueba-b/forecast"
)

// ErrNotFound reports a missing artifact. Callers treat it as the
// signal to degrade to fallback forecasting rather than fail.
var ErrNotFound = errors.New("model artifact not found")

const (
	aggregateModelFile = "modelo_cantidades.json"
	aggregateMetaFile  = "metadata_cantidades.json"
)

// Store reads and writes model artifacts in a single directory
type Store struct {
	Dir string
	Log logrus.FieldLogger
}

// New returns a store rooted at dir, creating it if needed
func New(dir string, log logrus.FieldLogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating model directory: %w", err)
	}
	return &Store{Dir: dir, Log: log}, nil
}

// SaveAggregate persists the aggregate model and its metadata
func (s *Store) SaveAggregate(model *forecast.LinearModel, meta *forecast.Metadata) error {
	if err := s.writeJSON(aggregateModelFile, model); err != nil {
		return err
	}
	if err := s.writeJSON(aggregateMetaFile, meta); err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"dir": s.Dir, "scope": meta.Scope}).Info("aggregate model saved")
	return nil
}

// LoadAggregate loads the aggregate model and metadata, or ErrNotFound
func (s *Store) LoadAggregate() (*forecast.LinearModel, *forecast.Metadata, error) {
	var model forecast.LinearModel
	if err := s.readJSON(aggregateModelFile, &model); err != nil {
		return nil, nil, err
	}
	var meta forecast.Metadata
	if err := s.readJSON(aggregateMetaFile, &meta); err != nil {
		return nil, nil, err
	}
	return &model, &meta, nil
}

// SavePanel persists a pooled panel model for one scope
func (s *Store) SavePanel(model *forecast.LinearModel, meta *forecast.PanelMetadata) error {
	if err := s.writeJSON(panelModelFile(meta.Scope), model); err != nil {
		return err
	}
	if err := s.writeJSON(panelMetaFile(meta.Scope), meta); err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"dir": s.Dir, "scope": meta.Scope}).Info("panel model saved")
	return nil
}

// LoadPanel loads a scope's pooled panel model, or ErrNotFound
func (s *Store) LoadPanel(scope string) (*forecast.LinearModel, *forecast.PanelMetadata, error) {
	var model forecast.LinearModel
	if err := s.readJSON(panelModelFile(scope), &model); err != nil {
		return nil, nil, err
	}
	var meta forecast.PanelMetadata
	if err := s.readJSON(panelMetaFile(scope), &meta); err != nil {
		return nil, nil, err
	}
	return &model, &meta, nil
}

func panelModelFile(scope string) string {
	return fmt.Sprintf("panel_%s_cantidades.json", scope)
}

func panelMetaFile(scope string) string {
	return fmt.Sprintf("panel_%s_cantidades_metadata.json", scope)
}

func (s *Store) writeJSON(name string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(s.Dir, name)
	tmp, err := os.CreateTemp(s.Dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, doc interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
