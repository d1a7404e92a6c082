// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package config defines the typed configuration tree for an evaluation run
// and its loading from a YAML file.
//
// The configuration is hierarchical: the top-level Eval holds sub-configs for
// checkpointing, the architecture description, the dataset loader and the
// trainer. All fields are validated once at load time, so downstream code can
// assume a well-formed configuration.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Eval is the top-level configuration of one evaluation run.
type Eval struct {
	// Checkpoint configures resumable-training state. An empty directory
	// disables checkpointing.
	Checkpoint Checkpoint `mapstructure:"checkpoint"`

	// Resume indicates whether a previous checkpoint (if any) should be
	// loaded before training starts.
	Resume bool `mapstructure:"resume"`

	// ModelFilename is where to save the trained model weights.
	// Empty skips the save.
	ModelFilename string `mapstructure:"model_filename"`

	// MetricFilename is where the training metrics are saved. Required.
	MetricFilename string `mapstructure:"metric_filename"`

	// FinalDescFilename points at the saved architecture description used as
	// template when building a model from a description.
	FinalDescFilename string `mapstructure:"final_desc_filename"`

	// FullDescFilename is where the built (full) description is saved for
	// reference before training.
	FullDescFilename string `mapstructure:"full_desc_filename"`

	// ModelFactorySpec names a zero-argument model factory, either
	// "function" or "module.function". Empty means "build the model from the
	// architecture description" instead.
	ModelFactorySpec string `mapstructure:"model_factory_spec"`

	// ModelDesc parameterizes the description builder.
	ModelDesc Desc `mapstructure:"model_desc"`

	Loader  Loader  `mapstructure:"loader"`
	Trainer Trainer `mapstructure:"trainer"`
}

// Checkpoint configures the checkpoint factory.
type Checkpoint struct {
	// Dir is the checkpoint directory. Empty disables checkpointing.
	Dir string `mapstructure:"dir"`

	// Keep is how many past checkpoints to keep around.
	Keep int `mapstructure:"keep"`

	// SaveEverySecs is the period between checkpoint saves during training.
	SaveEverySecs int `mapstructure:"save_every_secs"`
}

// SavePeriod returns the checkpoint save period, with a default of 3 minutes.
func (c Checkpoint) SavePeriod() time.Duration {
	if c.SaveEverySecs <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(c.SaveEverySecs) * time.Second
}

// KeepCount returns how many checkpoints to keep, defaulting to 3.
func (c Checkpoint) KeepCount() int {
	if c.Keep <= 0 {
		return 3
	}
	return c.Keep
}

// Desc configures the architecture-description builder.
type Desc struct {
	// InitNodeCh is the number of channels of the nodes of the first cell.
	InitNodeCh int `mapstructure:"init_node_ch"`

	// NCells is the total number of cells of the built description.
	NCells int `mapstructure:"n_cells"`

	// NReductions is the number of reduction cells among NCells.
	NReductions int `mapstructure:"n_reductions"`

	// NNodes is the number of nodes per cell.
	NNodes int `mapstructure:"n_nodes"`
}

// Loader configures dataset loading.
type Loader struct {
	Dataset Dataset `mapstructure:"dataset"`

	// DataDir is the directory downloaded/unpacked datasets live in.
	DataDir string `mapstructure:"data_dir"`

	// BatchSize used for training batches.
	BatchSize int `mapstructure:"batch_size"`

	// EvalBatchSize used for evaluation batches. Defaults to BatchSize.
	EvalBatchSize int `mapstructure:"eval_batch_size"`
}

// Dataset identifies the dataset family by name, e.g. "cifar10".
type Dataset struct {
	Name string `mapstructure:"name"`
}

// EvalBatch returns the evaluation batch size, falling back to the training
// batch size when unset.
func (l Loader) EvalBatch() int {
	if l.EvalBatchSize <= 0 {
		return l.BatchSize
	}
	return l.EvalBatchSize
}

// Trainer configures the training collaborator.
type Trainer struct {
	// Epochs to train for.
	Epochs int `mapstructure:"epochs"`

	// Optimizer name, e.g. "adam" or "sgd". Defaults to "adam".
	Optimizer string `mapstructure:"optimizer"`

	// LearningRate for the optimizer. Defaults to 1e-3.
	LearningRate float64 `mapstructure:"learning_rate"`
}

// OptimizerName returns the configured optimizer, defaulting to "adam".
func (t Trainer) OptimizerName() string {
	if strings.TrimSpace(t.Optimizer) == "" {
		return "adam"
	}
	return t.Optimizer
}

// LR returns the configured learning rate, defaulting to 1e-3.
func (t Trainer) LR() float64 {
	if t.LearningRate <= 0 {
		return 1e-3
	}
	return t.LearningRate
}

// Load reads and validates an Eval configuration from a YAML file.
func Load(path string) (*Eval, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading configuration from %q", path)
	}
	cfg := &Eval{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling configuration from %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid configuration in %q", path)
	}
	return cfg, nil
}

// Validate checks the configuration invariants that every evaluation run
// relies on. It is called by Load, and exported for configurations built
// programmatically.
func (cfg *Eval) Validate() error {
	if cfg.MetricFilename == "" {
		return errors.New("metric_filename must be set")
	}
	if cfg.Loader.Dataset.Name == "" {
		return errors.New("loader.dataset.name must be set")
	}
	if cfg.Loader.BatchSize <= 0 {
		return errors.Errorf("loader.batch_size must be > 0, got %d", cfg.Loader.BatchSize)
	}
	if cfg.Trainer.Epochs <= 0 {
		return errors.Errorf("trainer.epochs must be > 0, got %d", cfg.Trainer.Epochs)
	}
	if cfg.ModelFactorySpec == "" {
		// Description-based path: both description files are needed.
		if cfg.FinalDescFilename == "" {
			return errors.New("final_desc_filename must be set when model_factory_spec is empty")
		}
		if cfg.FullDescFilename == "" {
			return errors.New("full_desc_filename must be set when model_factory_spec is empty")
		}
		d := cfg.ModelDesc
		if d.NCells <= 0 || d.NNodes <= 0 || d.InitNodeCh <= 0 {
			return errors.Errorf("model_desc must set n_cells, n_nodes and init_node_ch (got %+v)", d)
		}
		if d.NReductions < 0 || d.NReductions >= d.NCells {
			return errors.Errorf("model_desc.n_reductions must be in [0, n_cells), got %d of %d cells",
				d.NReductions, d.NCells)
		}
	}
	return nil
}
