// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package dataset loads the datasets used for evaluation and exposes them as
// GoMLX train.Dataset values.
//
// Loaders are registered by dataset name; GetData dispatches on the
// configured loader.dataset.name. The validation dataset may be nil for
// datasets that only ship train and test partitions.
package dataset

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/train"

	"github.com/gonas/gonas/config"
)

// LoaderFunc produces the train/validation/test datasets for one dataset
// family. The validation dataset may be nil.
type LoaderFunc func(backend backends.Backend, cfg config.Loader) (trainDS, validDS, testDS train.Dataset, err error)

var (
	muLoaders sync.Mutex
	loaders   = make(map[string]LoaderFunc)
)

// RegisterLoader registers the loader for a dataset name. Registering the
// same name twice panics: it is a programming error.
func RegisterLoader(name string, fn LoaderFunc) {
	muLoaders.Lock()
	defer muLoaders.Unlock()
	if _, found := loaders[name]; found {
		panic(errors.Errorf("dataset loader %q registered twice", name))
	}
	loaders[name] = fn
}

// GetData returns the train, validation and test datasets for the configured
// dataset. The validation dataset may be nil.
func GetData(backend backends.Backend, cfg config.Loader) (trainDS, validDS, testDS train.Dataset, err error) {
	muLoaders.Lock()
	fn, found := loaders[cfg.Dataset.Name]
	muLoaders.Unlock()
	if !found {
		return nil, nil, nil, errors.Errorf("no loader registered for dataset %q (have %v)",
			cfg.Dataset.Name, Names())
	}
	return fn(backend, cfg)
}

// Names returns the registered dataset names, sorted.
func Names() []string {
	muLoaders.Lock()
	defer muLoaders.Unlock()
	names := make([]string, 0, len(loaders))
	for name := range loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
