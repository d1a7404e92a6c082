// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"

	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// A small forward pass, enough to check the assembled graph: stem, both
// cells (one reduction) and the classifier head.
func TestDescGraphForward(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	m := must.M1(FromDesc(smallDesc(), false, true))

	exec := context.MustNewExec(backend, m.Context(), func(ctx *context.Context, images *graph.Node) *graph.Node {
		return m.GraphFn()(ctx, nil, []*graph.Node{images})[0]
	})
	images := tensors.FromFlatDataAndDimensions(make([]float32, 2*32*32*3), 2, 32, 32, 3)
	logits := exec.MustExec1(images)

	assert.Equal(t, []int{2, 10}, logits.Shape().Dimensions)
	assert.Greater(t, m.NumParams(), 0, "variables materialize on the first execution")
}
