// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package zoo

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/gomlx/pkg/ml/context"

	"github.com/gonas/gonas/model"
)

func fakeFactory(name string) Factory {
	return func() (*model.Model, error) {
		return model.New(name, context.New(), nil), nil
	}
}

func TestResolve(t *testing.T) {
	initCalls := 0
	RegisterModule("test.resolve", func(r Registrar) {
		initCalls++
		r.Register("alpha", fakeFactory("alpha"))
		r.Register("beta", fakeFactory("beta"))
	})
	assert.Equal(t, 0, initCalls, "namespaces initialize lazily")

	factory, err := Resolve("test.resolve", "alpha")
	require.NoError(t, err)
	m, err := factory()
	require.NoError(t, err)
	assert.Equal(t, "alpha", m.Name)
	assert.Equal(t, 1, initCalls)

	// A second lookup reuses the initialized namespace.
	_, err = Resolve("test.resolve", "beta")
	require.NoError(t, err)
	assert.Equal(t, 1, initCalls)
}

func TestResolveErrors(t *testing.T) {
	RegisterModule("test.errors", func(r Registrar) {
		r.Register("only", fakeFactory("only"))
	})

	_, err := Resolve("no.such.module", "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModuleNotFound), "got %v", err)

	_, err = Resolve("test.errors", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFunctionNotFound), "got %v", err)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	RegisterModule("test.dup", func(r Registrar) {
		r.Register("twice", fakeFactory("twice"))
		r.Register("twice", fakeFactory("twice"))
	})
	assert.Panics(t, func() {
		_, _ = Resolve("test.dup", "twice")
	})

	assert.Panics(t, func() {
		RegisterModule("test.dup", func(Registrar) {})
	})
}

func TestModules(t *testing.T) {
	RegisterModule("test.list.b", func(Registrar) {})
	RegisterModule("test.list.a", func(Registrar) {})
	names := Modules()
	assert.Contains(t, names, "test.list.a")
	assert.Contains(t, names, "test.list.b")
	assert.IsIncreasing(t, names)
}
