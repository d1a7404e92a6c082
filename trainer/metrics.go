// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// EpochMetrics are the measurements of one training epoch.
type EpochMetrics struct {
	Epoch      int   `json:"epoch"`
	GlobalStep int64 `json:"global_step"`

	TrainLoss     float64 `json:"train_loss"`
	TrainAccuracy float64 `json:"train_accuracy"`
	TestLoss      float64 `json:"test_loss"`
	TestAccuracy  float64 `json:"test_accuracy"`

	DurationSecs float64 `json:"duration_secs"`
}

// Metrics aggregates the results of one evaluation run.
type Metrics struct {
	// RunID uniquely identifies the run across metric files.
	RunID string `json:"run_id"`

	// Model and Dataset name the evaluated combination.
	Model   string `json:"model"`
	Dataset string `json:"dataset"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Epochs in training order.
	Epochs []EpochMetrics `json:"epochs"`

	// BestTestAccuracy and the epoch it was observed at.
	BestTestAccuracy float64 `json:"best_test_accuracy"`
	BestEpoch        int     `json:"best_epoch"`
}

// NewMetrics starts a metrics record for one run.
func NewMetrics(modelName, datasetName string) *Metrics {
	return &Metrics{
		RunID:     uuid.NewString(),
		Model:     modelName,
		Dataset:   datasetName,
		StartTime: time.Now(),
		BestEpoch: -1,
	}
}

// Append records one epoch and updates the best-accuracy tracking.
func (m *Metrics) Append(em EpochMetrics) {
	m.Epochs = append(m.Epochs, em)
	if m.BestEpoch < 0 || em.TestAccuracy > m.BestTestAccuracy {
		m.BestTestAccuracy = em.TestAccuracy
		m.BestEpoch = em.Epoch
	}
}

// Save writes the metrics as JSON to the given path, overwriting previous
// contents and creating the parent directory if needed.
func (m *Metrics) Save(path string) error {
	contents, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "serializing metrics for %q", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0770); err != nil {
			return errors.Wrapf(err, "creating directory for metrics file %q", path)
		}
	}
	if err := os.WriteFile(path, contents, 0660); err != nil {
		return errors.Wrapf(err, "writing metrics file %q", path)
	}
	return nil
}

// LoadMetrics reads a metrics file saved by Save.
func LoadMetrics(path string) (*Metrics, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading metrics file %q", path)
	}
	m := &Metrics{}
	if err := json.Unmarshal(contents, m); err != nil {
		return nil, errors.Wrapf(err, "parsing metrics file %q", path)
	}
	return m, nil
}
