/*
File: model_manager.go
Version: 1.2.0
Description: Owns the process-wide classifier. The first EnsureModel call loads the
             persisted artifact or, failing that, trains from the corpus and persists the
             result. Every later call returns the same *Model.
             UPDATED: Persist failures are kept as warnings instead of failing startup.
*/

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"
)

// Where the ready model came from.
const (
	SourceLoaded  = "loaded"
	SourceTrained = "trained"
)

// ModelManager moves from uninitialized to ready exactly once.
type ModelManager struct {
	cfg ModelConfig

	once     sync.Once
	model    *Model
	err      error
	source   string
	warnings []string
	eval     *EvalReport

	// trainings counts fits of the served model; used to verify single initialization.
	trainings atomic.Int32
}

func NewModelManager(cfg ModelConfig) *ModelManager {
	if cfg.Path == "" {
		cfg.Path = defaultModelPath
	}
	return &ModelManager{cfg: cfg}
}

// EnsureModel returns the ready model, initializing it on first use. Concurrent callers
// block until initialization finishes. A training failure is permanent for the process.
func (mm *ModelManager) EnsureModel() (*Model, error) {
	mm.once.Do(mm.initialize)
	return mm.model, mm.err
}

// Source reports whether the model was loaded or trained.
func (mm *ModelManager) Source() string {
	mm.once.Do(mm.initialize)
	return mm.source
}

// Warnings returns the non-fatal problems hit during initialization.
func (mm *ModelManager) Warnings() []string {
	mm.once.Do(mm.initialize)
	return append([]string(nil), mm.warnings...)
}

// Evaluation returns the hold-out report computed after training, if any.
func (mm *ModelManager) Evaluation() *EvalReport {
	mm.once.Do(mm.initialize)
	return mm.eval
}

func (mm *ModelManager) initialize() {
	if !mm.cfg.Retrain {
		m, err := LoadModel(mm.cfg.Path)
		if err == nil {
			mm.model, mm.source = m, SourceLoaded
			LogInfo("[MODEL] Loaded persisted model from %s (trained %s on %d examples)",
				mm.cfg.Path, m.TrainedAt.Format(time.RFC3339), m.TrainingExamples)
			return
		}
		if errors.Is(err, fs.ErrNotExist) {
			LogInfo("[MODEL] No persisted model at %s, training a new one", mm.cfg.Path)
		} else {
			LogWarn("[MODEL] Ignoring unusable model at %s: %v", mm.cfg.Path, err)
		}
	} else {
		LogInfo("[MODEL] Retrain requested, ignoring %s", mm.cfg.Path)
	}

	examples, err := mm.corpus()
	if err != nil {
		mm.err = fmt.Errorf("model unavailable: %w", err)
		return
	}

	start := time.Now()
	opts := TrainOptions{C: mm.cfg.C}
	m, err := Fit(examples, opts)
	if err != nil {
		mm.err = fmt.Errorf("model unavailable: training failed: %w", err)
		return
	}
	mm.trainings.Add(1)
	mm.model, mm.source = m, SourceTrained

	LogInfo("[MODEL] Training complete in %v (%d examples, %d Newton iterations, bias %.4f)",
		time.Since(start), len(examples), m.Iterations, m.Bias)

	if err := SaveModel(mm.cfg.Path, m); err != nil {
		msg := fmt.Sprintf("model trained but not persisted: %v", err)
		mm.warnings = append(mm.warnings, msg)
		LogWarn("[MODEL] %s", msg)
	} else {
		LogInfo("[MODEL] Saved model to %s", mm.cfg.Path)
	}

	if !mm.cfg.SkipEvaluation {
		report, err := Evaluate(examples, opts)
		if err != nil {
			LogInfo("[MODEL] Evaluation skipped: %v", err)
			return
		}
		mm.eval = &report
		LogInfo("[MODEL] Hold-out evaluation (train=%d, test=%d, accuracy=%.3f)\n%s",
			report.Train, report.Test, report.Accuracy, report)
	}
}

// corpus is the built-in dataset plus the optional extra corpus file.
func (mm *ModelManager) corpus() ([]LabeledExample, error) {
	examples := BuildDataset()
	if mm.cfg.ExtraCorpus == "" {
		return examples, nil
	}

	extra, err := LoadCorpusFile(mm.cfg.ExtraCorpus)
	if err != nil {
		return nil, err
	}
	LogInfo("[MODEL] Loaded %d extra examples from %s", len(extra), mm.cfg.ExtraCorpus)
	return append(examples, extra...), nil
}
