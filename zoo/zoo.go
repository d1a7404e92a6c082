// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package zoo is the model-factory registry: it maps dotted module
// identifiers (e.g. "zoo.cifar.resnet") to namespaces of named zero-argument
// model factories (e.g. "resnet56").
//
// Modules register themselves from package init() of the zoo subpackages, so
// a program enables a family of models with a blank import:
//
//	import _ "github.com/gonas/gonas/zoo/resnet"
//
// A namespace's factories are populated lazily, on first lookup, guarded by a
// sync.Once -- registering a module is cheap even if its models are never
// used.
package zoo

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/gonas/gonas/model"
)

// Module identifiers of the built-in namespaces. The dotted form matters:
// factory specs are split on their last ".".
const (
	// CifarResNetModule holds the resnet-family CIFAR models (the prefix
	// convention also covers resnext-style names).
	CifarResNetModule = "zoo.cifar.resnet"

	// CifarDenseNetModule holds the densenet-family CIFAR models.
	CifarDenseNetModule = "zoo.cifar.densenet"

	// VisionModule is the generic vision model zoo used for imagenet-class
	// datasets.
	VisionModule = "zoo.vision"
)

var (
	// ErrModuleNotFound signifies a factory-spec module with no registered
	// namespace.
	ErrModuleNotFound = errors.New("model module not found")

	// ErrFunctionNotFound signifies a factory function name absent from its
	// module's namespace.
	ErrFunctionNotFound = errors.New("model function not found")
)

// Factory is a zero-argument model constructor.
type Factory func() (*model.Model, error)

// Registrar is handed to a module's initialization function to populate its
// factories.
type Registrar interface {
	// Register adds a named factory to the namespace being initialized.
	// Registering the same name twice panics: it is a programming error.
	Register(functionName string, factory Factory)
}

type namespace struct {
	name      string
	initOnce  sync.Once
	initFn    func(Registrar)
	factories map[string]Factory
}

// Register implements Registrar.
func (ns *namespace) Register(functionName string, factory Factory) {
	if _, found := ns.factories[functionName]; found {
		panic(errors.Errorf("factory %q registered twice in module %q", functionName, ns.name))
	}
	ns.factories[functionName] = factory
}

var (
	muModules sync.Mutex
	modules   = make(map[string]*namespace)
)

// RegisterModule registers a module namespace with the function that will
// populate its factories on first use. It is meant to be called from the
// init() of zoo subpackages. Registering the same module twice panics.
func RegisterModule(moduleName string, initFn func(Registrar)) {
	muModules.Lock()
	defer muModules.Unlock()
	if _, found := modules[moduleName]; found {
		panic(errors.Errorf("module %q registered twice", moduleName))
	}
	modules[moduleName] = &namespace{
		name:      moduleName,
		initFn:    initFn,
		factories: make(map[string]Factory),
	}
}

// Resolve finds the factory functionName in moduleName, initializing the
// namespace if this is its first use.
func Resolve(moduleName, functionName string) (Factory, error) {
	muModules.Lock()
	ns, found := modules[moduleName]
	muModules.Unlock()
	if !found {
		return nil, errors.Wrapf(ErrModuleNotFound, "module %q (have %v)", moduleName, Modules())
	}
	ns.initOnce.Do(func() { ns.initFn(ns) })
	factory, found := ns.factories[functionName]
	if !found {
		return nil, errors.Wrapf(ErrFunctionNotFound, "function %q in module %q (have %v)",
			functionName, moduleName, functionNames(ns))
	}
	return factory, nil
}

// Modules returns the registered module names, sorted.
func Modules() []string {
	muModules.Lock()
	defer muModules.Unlock()
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func functionNames(ns *namespace) []string {
	names := make([]string, 0, len(ns.factories))
	for name := range ns.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
