// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package vision

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
	for _, name := range []string{"resnet18", "resnet34", "vgg11"} {
		factory, err := zoo.Resolve(zoo.VisionModule, name)
		require.NoErrorf(t, err, "factory %q", name)
		m, err := factory()
		require.NoErrorf(t, err, "factory %q", name)
		assert.Equal(t, name, m.Name)
		assert.NotNil(t, m.GraphFn())
	}
}

func TestVGGGraphFnForward(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	// Two small stages: 16x16 pools down to 4x4 before the head.
	ctx := context.New()
	modelFn := vggGraphFn([]int{4, 8})
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, images *graph.Node) *graph.Node {
		return modelFn(ctx, nil, []*graph.Node{images})[0]
	})
	images := tensors.FromFlatDataAndDimensions(make([]float32, 2*16*16*3), 2, 16, 16, 3)
	logits := exec.MustExec1(images)
	assert.Equal(t, []int{2, numClasses}, logits.Shape().Dimensions)
}
