// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package eval

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gonas/gonas/model"
	"github.com/gonas/gonas/zoo"
)

var (
	// ErrUnsupportedConfig signifies a dataset/function combination the
	// default-module heuristic cannot map.
	ErrUnsupportedConfig = errors.New("unsupported dataset/function configuration")

	// ErrModelConstruction signifies a model factory that failed while
	// constructing its model.
	ErrModelConstruction = errors.New("model construction failed")
)

// DefaultModule returns the module expected to hold functionName when a
// factory spec omits the module, based on the dataset family.
//
// The detection is by name prefix, first match wins:
//   - cifar* datasets: "res*" functions map to the resnet module (which also
//     covers resnext-style names), "dense*" to the densenet module;
//   - imagenet* and sport8* datasets map to the generic vision zoo.
//
// TODO: prefix detection is weak; encode the input image size in the
// configuration and select on that instead.
func DefaultModule(datasetName, functionName string) (string, error) {
	moduleName := ""
	if strings.HasPrefix(datasetName, "cifar") {
		if strings.HasPrefix(functionName, "res") {
			moduleName = zoo.CifarResNetModule
		} else if strings.HasPrefix(functionName, "dense") {
			moduleName = zoo.CifarDenseNetModule
		}
	} else if strings.HasPrefix(datasetName, "imagenet") || strings.HasPrefix(datasetName, "sport8") {
		moduleName = zoo.VisionModule
	}
	if moduleName == "" {
		return "", errors.Wrapf(ErrUnsupportedConfig,
			"cannot pick a default module for function %q and dataset %q", functionName, datasetName)
	}
	return moduleName, nil
}

// ResolveModel turns a factory spec of the form "function" or
// "module.function" into a constructed model.
//
// The spec is split on its last "." -- "a.b.resnet34" names function
// "resnet34" in module "a.b". Without a module, DefaultModule picks one from
// the dataset name. Failures surface as zoo.ErrModuleNotFound,
// zoo.ErrFunctionNotFound or ErrModelConstruction (wrapping the cause).
func ResolveModel(factorySpec, datasetName string) (*model.Model, error) {
	moduleName, functionName := splitFactorySpec(factorySpec)
	if moduleName == "" {
		var err error
		moduleName, err = DefaultModule(datasetName, functionName)
		if err != nil {
			return nil, err
		}
	}
	factory, err := zoo.Resolve(moduleName, functionName)
	if err != nil {
		return nil, err
	}

	// Factories return errors; graph-building code inside them may panic.
	// Both surface as ErrModelConstruction.
	var m *model.Model
	var factoryErr error
	err = exceptions.TryCatch[error](func() {
		m, factoryErr = factory()
	})
	if err == nil {
		err = factoryErr
	}
	if err != nil {
		return nil, errors.Wrapf(ErrModelConstruction, "factory %s.%s: %v", moduleName, functionName, err)
	}

	klog.Infof("model_factory=true module=%q function=%q params=%s",
		moduleName, functionName, humanize.Comma(int64(m.NumParams())))
	return m, nil
}

// splitFactorySpec splits on the last ".". With no "." the module part is
// empty.
func splitFactorySpec(spec string) (moduleName, functionName string) {
	idx := strings.LastIndex(spec, ".")
	if idx < 0 {
		return "", spec
	}
	return spec[:idx], spec[idx+1:]
}
