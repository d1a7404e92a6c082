// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAppend(t *testing.T) {
	m := NewMetrics("resnet56", "cifar10")
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, "resnet56", m.Model)
	assert.Equal(t, "cifar10", m.Dataset)
	assert.Equal(t, -1, m.BestEpoch, "no epoch recorded yet")

	m.Append(EpochMetrics{Epoch: 0, TestAccuracy: 0.50})
	assert.Equal(t, 0, m.BestEpoch)
	assert.InDelta(t, 0.50, m.BestTestAccuracy, 1e-9)

	m.Append(EpochMetrics{Epoch: 1, TestAccuracy: 0.72})
	assert.Equal(t, 1, m.BestEpoch)
	assert.InDelta(t, 0.72, m.BestTestAccuracy, 1e-9)

	// Ties and regressions keep the earlier best.
	m.Append(EpochMetrics{Epoch: 2, TestAccuracy: 0.72})
	m.Append(EpochMetrics{Epoch: 3, TestAccuracy: 0.60})
	assert.Equal(t, 1, m.BestEpoch)
	assert.InDelta(t, 0.72, m.BestTestAccuracy, 1e-9)
	assert.Len(t, m.Epochs, 4)
}

func TestMetricsSaveLoad(t *testing.T) {
	m := NewMetrics("densenet40", "cifar100")
	m.Append(EpochMetrics{Epoch: 0, GlobalStep: 390, TrainLoss: 1.9, TrainAccuracy: 0.31,
		TestLoss: 1.7, TestAccuracy: 0.38, DurationSecs: 12.5})

	path := filepath.Join(t.TempDir(), "results", "metrics.json")
	require.NoError(t, m.Save(path))

	loaded, err := LoadMetrics(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.Equal(t, m.Model, loaded.Model)
	assert.Equal(t, m.Dataset, loaded.Dataset)
	assert.Equal(t, m.BestEpoch, loaded.BestEpoch)
	require.Len(t, loaded.Epochs, 1)
	assert.Equal(t, int64(390), loaded.Epochs[0].GlobalStep)
	assert.InDelta(t, 0.38, loaded.Epochs[0].TestAccuracy, 1e-9)
}

func TestLoadMetricsMissing(t *testing.T) {
	_, err := LoadMetrics(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
