/*
File: model_store.go
Version: 1.1.0
Description: JSON persistence of fitted models.
             UPDATED: Writes go through a temp file + rename so a crash never leaves a
             half-written artifact behind.
*/

package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const modelFormatVersion = 1

// modelArtifact is the on-disk representation of a Model.
type modelArtifact struct {
	FormatVersion    int       `json:"format_version"`
	FeatureNames     []string  `json:"feature_names"`
	Weights          []float64 `json:"weights"`
	Bias             float64   `json:"bias"`
	TrainedAt        time.Time `json:"trained_at"`
	TrainingExamples int       `json:"training_examples"`
	Iterations       int       `json:"iterations"`
}

// SaveModel writes m to path atomically.
func SaveModel(path string, m *Model) error {
	art := modelArtifact{
		FormatVersion:    modelFormatVersion,
		FeatureNames:     m.FeatureNames,
		Weights:          m.Weights,
		Bias:             m.Bias,
		TrainedAt:        m.TrainedAt,
		TrainingExamples: m.TrainingExamples,
		Iterations:       m.Iterations,
	}

	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	return writeFileAtomic(path, data, 0644)
}

// LoadModel reads and validates a model artifact. A missing file yields an error
// satisfying errors.Is(err, os.ErrNotExist); an artifact built for a different feature
// layout yields ErrIncompatibleModel.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var art modelArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}

	if art.FormatVersion != modelFormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrIncompatibleModel, art.FormatVersion, modelFormatVersion)
	}
	if !slices.Equal(art.FeatureNames, FeatureNames[:]) {
		return nil, fmt.Errorf("%w: feature names %v", ErrIncompatibleModel, art.FeatureNames)
	}
	if len(art.Weights) != numFeatures {
		return nil, fmt.Errorf("%w: %d weights for %d features", ErrIncompatibleModel, len(art.Weights), numFeatures)
	}
	for i, w := range art.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %s is not finite", ErrIncompatibleModel, art.FeatureNames[i])
		}
	}
	if math.IsNaN(art.Bias) || math.IsInf(art.Bias, 0) {
		return nil, fmt.Errorf("%w: bias is not finite", ErrIncompatibleModel)
	}

	return &Model{
		FeatureNames:     art.FeatureNames,
		Weights:          art.Weights,
		Bias:             art.Bias,
		TrainedAt:        art.TrainedAt,
		TrainingExamples: art.TrainingExamples,
		Iterations:       art.Iterations,
	}, nil
}

// writeFileAtomic replaces path with data via a temp file in the same directory.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
