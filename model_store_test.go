package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadModel_RoundTrip(t *testing.T) {
	m := fitBuiltin(t)
	path := filepath.Join(t.TempDir(), "nested", "model.json")

	require.NoError(t, SaveModel(path, m))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, m.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, m.TrainingExamples, loaded.TrainingExamples)
	assert.True(t, m.TrainedAt.Equal(loaded.TrainedAt))

	for _, u := range sampleURLs {
		v := ExtractFeatures(u)
		assert.InDelta(t, m.PredictProba(v), loaded.PredictProba(v), 1e-9, u)
		assert.Equal(t, m.PredictLabel(v), loaded.PredictLabel(v), u)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSaveModel_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	m := fitBuiltin(t)
	require.NoError(t, SaveModel(path, m))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, m.Bias, loaded.Bias)
}

func TestLoadModel_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := LoadModel(filepath.Join(dir, "absent.json"))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"format_version":1,"weights":[`), 0644))
		_, err := LoadModel(path)
		require.Error(t, err)
		assert.False(t, errors.Is(err, os.ErrNotExist))
	})

	valid := func() modelArtifact {
		return modelArtifact{
			FormatVersion: modelFormatVersion,
			FeatureNames:  append([]string(nil), FeatureNames[:]...),
			Weights:       make([]float64, numFeatures),
		}
	}

	tests := []struct {
		name   string
		mutate func(a *modelArtifact)
	}{
		{"format version", func(a *modelArtifact) { a.FormatVersion = 99 }},
		{"renamed feature", func(a *modelArtifact) { a.FeatureNames[0] = "url_length" }},
		{"reordered features", func(a *modelArtifact) {
			a.FeatureNames[0], a.FeatureNames[1] = a.FeatureNames[1], a.FeatureNames[0]
		}},
		{"missing feature", func(a *modelArtifact) { a.FeatureNames = a.FeatureNames[:numFeatures-1] }},
		{"short weights", func(a *modelArtifact) { a.Weights = a.Weights[:3] }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			art := valid()
			tc.mutate(&art)
			data, err := json.Marshal(art)
			require.NoError(t, err)

			path := filepath.Join(dir, "incompatible.json")
			require.NoError(t, os.WriteFile(path, data, 0644))

			_, err = LoadModel(path)
			assert.ErrorIs(t, err, ErrIncompatibleModel)
		})
	}
}
