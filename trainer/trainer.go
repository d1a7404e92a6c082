// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package trainer runs the training of an evaluation candidate on top of the
// GoMLX training stack, and owns the metrics produced by a run.
package trainer

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gonas/gonas/config"
	"github.com/gonas/gonas/model"
)

// Trainer trains one model with one configuration and an optional
// checkpoint. It is the training collaborator of the evaluation pipeline.
type Trainer struct {
	backend    backends.Backend
	cfg        config.Trainer
	model      *model.Model
	checkpoint *checkpoints.Handler
	savePeriod time.Duration
}

// New creates a Trainer for the given model and optional checkpoint (nil
// disables checkpoint saving).
func New(backend backends.Backend, cfg config.Trainer, m *model.Model, checkpoint *checkpoints.Handler) *Trainer {
	return &Trainer{
		backend:    backend,
		cfg:        cfg,
		model:      m,
		checkpoint: checkpoint,
		savePeriod: 3 * time.Minute,
	}
}

// WithSavePeriod overrides the period between automatic checkpoint saves
// during training.
func (t *Trainer) WithSavePeriod(period time.Duration) *Trainer {
	if period > 0 {
		t.savePeriod = period
	}
	return t
}

// Fit trains the model on trainDS for the configured number of epochs,
// evaluating on testDS after each epoch, and returns the collected metrics.
func (t *Trainer) Fit(trainDS, testDS train.Dataset) (*Metrics, error) {
	ctx := t.model.Context()
	ctx.SetParam(optimizers.ParamOptimizer, t.cfg.OptimizerName())
	ctx.SetParam(optimizers.ParamLearningRate, t.cfg.LR())

	modelCtx := ctx.In("model")
	gomlxTrainer := train.NewTrainer(t.backend, modelCtx, t.model.GraphFn(),
		losses.SparseCategoricalCrossEntropyLogits,
		optimizers.FromContext(ctx),
		[]metrics.Interface{metrics.NewMovingAverageSparseCategoricalAccuracy("Moving Average Accuracy", "~acc", 0.01)},
		[]metrics.Interface{metrics.NewSparseCategoricalAccuracy("Mean Accuracy", "#acc")})

	loop := train.NewLoop(gomlxTrainer)
	commandline.AttachProgressBar(loop)
	if t.checkpoint != nil {
		train.PeriodicCallback(loop, t.savePeriod, true, "saving checkpoint", 100,
			func(loop *train.Loop, metrics []*tensors.Tensor) error {
				return t.checkpoint.Save()
			})
	}

	record := NewMetrics(t.model.Name, trainDS.Name())
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		epochStart := time.Now()
		trainValues, err := loop.RunEpochs(trainDS, 1)
		if err != nil {
			return nil, errors.WithMessagef(err, "training epoch %d of %q", epoch, t.model.Name)
		}
		em := EpochMetrics{
			Epoch:        epoch,
			GlobalStep:   int64(optimizers.GetGlobalStep(ctx)),
			DurationSecs: time.Since(epochStart).Seconds(),
		}
		em.TrainLoss, em.TrainAccuracy = pickLossAndAccuracy(gomlxTrainer.TrainMetrics(), trainValues)

		testValues, err := gomlxTrainer.Eval(testDS)
		if err != nil {
			return nil, errors.WithMessagef(err, "evaluating epoch %d of %q", epoch, t.model.Name)
		}
		testDS.Reset()
		em.TestLoss, em.TestAccuracy = pickLossAndAccuracy(gomlxTrainer.EvalMetrics(), testValues)

		record.Append(em)
		klog.Infof("epoch %d: train_loss=%.4f train_acc=%.2f%% test_loss=%.4f test_acc=%.2f%% (%.1fs)",
			epoch, em.TrainLoss, 100*em.TrainAccuracy, em.TestLoss, 100*em.TestAccuracy, em.DurationSecs)
	}
	record.EndTime = time.Now()

	if t.checkpoint != nil {
		if err := t.checkpoint.Save(); err != nil {
			return nil, errors.WithMessagef(err, "saving final checkpoint of %q", t.model.Name)
		}
	}
	klog.V(1).Infof("trained %q: %s parameters, best test accuracy %.2f%% at epoch %d",
		t.model.Name, humanize.Comma(int64(t.model.NumParams())),
		100*record.BestTestAccuracy, record.BestEpoch)
	return record, nil
}

// pickLossAndAccuracy scans metric interfaces and their last values for the
// loss and accuracy entries, matching by metric name.
func pickLossAndAccuracy(interfaces []metrics.Interface, values []*tensors.Tensor) (loss, accuracy float64) {
	count := len(interfaces)
	if len(values) < count {
		count = len(values)
	}
	for i := 0; i < count; i++ {
		name := strings.ToLower(interfaces[i].Name())
		switch {
		case strings.Contains(name, "loss"):
			loss = scalarToFloat(values[i])
		case strings.Contains(name, "acc"):
			accuracy = scalarToFloat(values[i])
		}
	}
	return
}

func scalarToFloat(t *tensors.Tensor) float64 {
	if t == nil {
		return 0
	}
	switch t.DType() {
	case dtypes.Float64:
		return tensors.ToScalar[float64](t)
	case dtypes.Float32:
		return float64(tensors.ToScalar[float32](t))
	default:
		return 0
	}
}
