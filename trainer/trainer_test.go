// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
)

func TestPickLossAndAccuracy(t *testing.T) {
	interfaces := []metrics.Interface{
		metrics.NewSparseCategoricalAccuracy("Mean Accuracy", "#acc"),
		metrics.NewBaseMetric("Mean Loss", "#loss", metrics.LossMetricType, nil, nil),
	}
	values := []*tensors.Tensor{
		tensors.FromScalar(float32(0.81)),
		tensors.FromScalar(0.42),
	}

	loss, accuracy := pickLossAndAccuracy(interfaces, values)
	assert.InDelta(t, 0.42, loss, 1e-6)
	assert.InDelta(t, 0.81, accuracy, 1e-6)

	// Fewer values than metric interfaces: only the matched prefix counts.
	loss, accuracy = pickLossAndAccuracy(interfaces, values[:1])
	assert.InDelta(t, 0.0, loss, 1e-9)
	assert.InDelta(t, 0.81, accuracy, 1e-6)
}

func TestScalarToFloat(t *testing.T) {
	assert.InDelta(t, 1.5, scalarToFloat(tensors.FromScalar(1.5)), 1e-9)
	assert.InDelta(t, 2.5, scalarToFloat(tensors.FromScalar(float32(2.5))), 1e-6)
	assert.Equal(t, 0.0, scalarToFloat(nil))
	assert.Equal(t, 0.0, scalarToFloat(tensors.FromScalar(int64(7))), "non-float dtypes are ignored")
}
