// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package eval evaluates a neural-architecture-search candidate: it resolves
// a model (from a factory spec or from a saved architecture description),
// trains it on the configured dataset and persists metrics and the trained
// model.
package eval

import (
	"path/filepath"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/train"

	"github.com/gonas/gonas/config"
	"github.com/gonas/gonas/dataset"
	"github.com/gonas/gonas/desc"
	"github.com/gonas/gonas/model"
	"github.com/gonas/gonas/trainer"
)

// ErrDataUnavailable signifies a dataset loader that did not provide the
// train or test dataset. It is a precondition violation, never recovered.
var ErrDataUnavailable = errors.New("train or test dataset unavailable")

// Fitter is the training collaborator: it trains a model and reports the
// metrics. Satisfied by *trainer.Trainer.
type Fitter interface {
	Fit(trainDS, testDS train.Dataset) (*trainer.Metrics, error)
}

// Evaluater runs the evaluate-and-persist sequence.
//
// The collaborator factories have working defaults (the GoMLX-backed trainer
// and the dataset registry) and exist as fields so callers and tests can
// substitute them.
type Evaluater struct {
	backend backends.Backend

	// NewTrainer builds the training collaborator.
	NewTrainer func(cfg *config.Eval, m *model.Model, checkpoint *checkpoints.Handler) Fitter

	// GetData provides the train/validation/test datasets.
	GetData func(cfg config.Loader) (trainDS, validDS, testDS train.Dataset, err error)
}

// New creates an Evaluater on the given backend, with the default
// collaborators.
func New(backend backends.Backend) *Evaluater {
	e := &Evaluater{backend: backend}
	e.NewTrainer = func(cfg *config.Eval, m *model.Model, checkpoint *checkpoints.Handler) Fitter {
		return trainer.New(backend, cfg.Trainer, m, checkpoint).
			WithSavePeriod(cfg.Checkpoint.SavePeriod())
	}
	e.GetData = func(cfg config.Loader) (train.Dataset, train.Dataset, train.Dataset, error) {
		return dataset.GetData(backend, cfg)
	}
	return e
}

// Evaluate runs one full evaluation: model creation, checkpoint setup,
// training, and persistence of metrics and (optionally) the trained model.
//
// It performs no local recovery: every failure propagates to the caller with
// its diagnostic context attached.
func (e *Evaluater) Evaluate(cfg *config.Eval, builder desc.Builder) (*trainer.Metrics, error) {
	m, err := e.CreateModel(cfg, builder)
	if err != nil {
		return nil, err
	}

	checkpoint, err := trainer.CreateCheckpoint(m.Context(), cfg.Checkpoint, cfg.Resume)
	if err != nil {
		return nil, err
	}

	metrics, err := e.trainModel(cfg, m, checkpoint)
	if err != nil {
		return nil, err
	}

	if err := metrics.Save(cfg.MetricFilename); err != nil {
		return nil, err
	}

	modelPath := ""
	if cfg.ModelFilename != "" {
		modelPath, err = filepath.Abs(cfg.ModelFilename)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving model save path %q", cfg.ModelFilename)
		}
		if err := m.Save(modelPath); err != nil {
			return nil, err
		}
	}
	klog.Infof("model_save_path=%q", modelPath)

	return metrics, nil
}

// CreateModel obtains the model for this run: from the factory spec when one
// is configured, otherwise from the saved architecture description. Exactly
// one of the two paths is taken.
func (e *Evaluater) CreateModel(cfg *config.Eval, builder desc.Builder) (*model.Model, error) {
	datasetName := cfg.Loader.Dataset.Name
	if cfg.ModelFactorySpec != "" {
		return ResolveModel(cfg.ModelFactorySpec, datasetName)
	}
	return e.modelFromDesc(cfg, builder)
}

// modelFromDesc loads the template description, composes the full
// description through the builder collaborator, saves it for reference, and
// instantiates the model with drop-path and batch-norm affine enabled (fixed
// at this layer).
func (e *Evaluater) modelFromDesc(cfg *config.Eval, builder desc.Builder) (*model.Model, error) {
	template, err := desc.Load(cfg.FinalDescFilename)
	if err != nil {
		return nil, err
	}

	full, err := builder.Build(cfg.ModelDesc, template)
	if err != nil {
		return nil, errors.WithMessage(err, "building full description from template")
	}

	// Saved for reference: reproducibility audits read this file back.
	if err := full.Save(cfg.FullDescFilename); err != nil {
		return nil, err
	}

	m, err := model.FromDesc(full, true, true)
	if err != nil {
		return nil, err
	}

	klog.Infof("model_factory=false cells=%d init_node_ch=%d n_cells=%d n_reductions=%d n_nodes=%d",
		full.CellCount(), cfg.ModelDesc.InitNodeCh, cfg.ModelDesc.NCells,
		cfg.ModelDesc.NReductions, cfg.ModelDesc.NNodes)
	if full.CellCount() != cfg.ModelDesc.NCells ||
		full.ReductionCount() != cfg.ModelDesc.NReductions ||
		full.NodesPerCell() != cfg.ModelDesc.NNodes {
		// Builder/config drift is reported, never auto-corrected.
		klog.Warningf("description drift: built cells=%d reductions=%d nodes=%d, configured %d/%d/%d",
			full.CellCount(), full.ReductionCount(), full.NodesPerCell(),
			cfg.ModelDesc.NCells, cfg.ModelDesc.NReductions, cfg.ModelDesc.NNodes)
	}
	return m, nil
}

// trainModel obtains the data iterators and delegates training to the
// trainer collaborator.
func (e *Evaluater) trainModel(cfg *config.Eval, m *model.Model, checkpoint *checkpoints.Handler) (*trainer.Metrics, error) {
	trainDS, _, testDS, err := e.GetData(cfg.Loader)
	if err != nil {
		return nil, err
	}
	if trainDS == nil || testDS == nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "dataset %q", cfg.Loader.Dataset.Name)
	}
	return e.NewTrainer(cfg, m, checkpoint).Fit(trainDS, testDS)
}
