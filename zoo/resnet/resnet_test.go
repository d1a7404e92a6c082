// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package resnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"

	"github.com/gonas/gonas/zoo"
)

func TestRegistered(t *testing.T) {
	for _, name := range []string{"resnet20", "resnet32", "resnet56", "resnext29_8x16"} {
		factory, err := zoo.Resolve(zoo.CifarResNetModule, name)
		require.NoErrorf(t, err, "factory %q", name)
		m, err := factory()
		require.NoErrorf(t, err, "factory %q", name)
		assert.Equal(t, name, m.Name)
		assert.NotNil(t, m.GraphFn())
	}
}

func TestGraphFnForward(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	// A reduced variant keeps the test fast while still passing through a
	// stem, all three stages and both skip-connection forms.
	ctx := context.New()
	modelFn := GraphFn(1, 4, 10)
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, images *graph.Node) *graph.Node {
		return modelFn(ctx, nil, []*graph.Node{images})[0]
	})
	images := tensors.FromFlatDataAndDimensions(make([]float32, 2*8*8*3), 2, 8, 8, 3)
	logits := exec.MustExec1(images)
	assert.Equal(t, []int{2, 10}, logits.Shape().Dimensions)
}

func TestResNextGraphFnForward(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	ctx := context.New()
	modelFn := ResNextGraphFn(1, 2, 2, 10)
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, images *graph.Node) *graph.Node {
		return modelFn(ctx, nil, []*graph.Node{images})[0]
	})
	images := tensors.FromFlatDataAndDimensions(make([]float32, 2*8*8*3), 2, 8, 8, 3)
	logits := exec.MustExec1(images)
	assert.Equal(t, []int{2, 10}, logits.Shape().Dimensions)
}
