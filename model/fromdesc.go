// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/layers/batchnorm"

	"github.com/gonas/gonas/desc"
)

// ParamDropPathRate is the context parameter with the drop-path rate applied
// to cell node outputs while training, when drop-path is enabled.
const ParamDropPathRate = "droppath_rate"

// DefaultDropPathRate used when ParamDropPathRate is not set.
const DefaultDropPathRate = 0.1

// FromDesc instantiates a Model from an architecture description.
//
// The graph is assembled as stem convolution → cells → global average pool →
// dense classifier head. Reduction cells halve the spatial resolution with a
// stride-2 convolution and operate on doubled channels, per the description.
//
// dropPath and affine are training-behavior flags: drop-path randomly zeroes
// node outputs while training (stochastic depth), and affine makes the
// batch-normalization layers learn scale and offset.
func FromDesc(d *desc.ModelDesc, dropPath, affine bool) (*Model, error) {
	if err := d.Validate(); err != nil {
		return nil, errors.WithMessage(err, "cannot build model from description")
	}
	ctx := context.New()
	m := &Model{
		Name:     fmt.Sprintf("desc:%s", d.Dataset),
		DropPath: dropPath,
		Affine:   affine,
		ctx:      ctx,
		desc:     d,
	}
	m.graphFn = func(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
		return descGraph(ctx, d, dropPath, affine, inputs)
	}
	return m, nil
}

// descGraph interprets the description into the model graph.
// It implements train.ModelFn and, as all graph-building code, panics on
// invalid inputs.
func descGraph(ctx *context.Context, d *desc.ModelDesc, dropPath, affine bool, inputs []*graph.Node) []*graph.Node {
	if len(inputs) == 0 {
		exceptions.Panicf("description-derived model requires an image input, got none")
	}
	x := inputs[0]
	if x.Rank() != 4 {
		exceptions.Panicf("description-derived model requires inputs shaped [batch, height, width, depth], got %s",
			x.Shape())
	}
	batchSize := x.Shape().Dimensions[0]

	layerIdx := 0
	nextCtx := func(name string) *context.Context {
		newCtx := ctx.Inf("%03d_%s", layerIdx, name)
		layerIdx++
		return newCtx
	}

	// Stem: one convolution bringing the image to the stem channels.
	x = layers.Convolution(nextCtx("stem_conv"), x).
		Channels(d.StemChannels()).KernelSize(3).PadSame().UseBias(false).Done()
	x = normalize(nextCtx("stem_norm"), x, affine)

	for _, cell := range d.Cells {
		x = cellGraph(nextCtx("cell"), cell, x, dropPath, affine)
	}

	// Head: global average pooling over the spatial axes, then the classifier.
	x = graph.ReduceMean(x, 1, 2)
	logits := layers.Dense(nextCtx("head"), x, true, d.NumClasses)
	logits.AssertDims(batchSize, d.NumClasses)
	return []*graph.Node{logits}
}

// cellGraph builds one cell: its nodes in topological order, each applying
// its op to a previous output. The cell output is the last node's output.
func cellGraph(ctx *context.Context, cell desc.CellDesc, input *graph.Node, dropPath, affine bool) *graph.Node {
	if cell.Reduction {
		// Stride-2 projection halves the resolution and sets the doubled
		// channel count for the whole cell.
		input = layers.Convolution(ctx.In("reduce"), input).
			Channels(cell.Channels).KernelSize(3).PadSame().Strides(2).UseBias(false).Done()
		input = normalize(ctx.In("reduce_norm"), input, affine)
	}

	// outputs[0] is the cell input, outputs[i>0] the output of node i-1.
	outputs := []*graph.Node{input}
	for nodeIdx, node := range cell.Nodes {
		nodeCtx := ctx.Inf("node_%02d", nodeIdx)
		nodeIn := gatherNodeInput(outputs, node)
		out := opGraph(nodeCtx, node.Op, nodeIn, cell.Channels, affine)
		if dropPath {
			rate := context.GetParamOr(nodeCtx, ParamDropPathRate, DefaultDropPathRate)
			out = layers.DropoutStatic(nodeCtx, out, rate)
		}
		outputs = append(outputs, out)
	}
	return outputs[len(outputs)-1]
}

// gatherNodeInput sums the node's configured inputs; with no inputs
// configured it takes the immediately preceding output.
func gatherNodeInput(outputs []*graph.Node, node desc.NodeDesc) *graph.Node {
	if len(node.Inputs) == 0 {
		return outputs[len(outputs)-1]
	}
	in := outputs[node.Inputs[0]]
	for _, idx := range node.Inputs[1:] {
		in = graph.Add(in, outputs[idx])
	}
	return in
}

// opGraph applies one node op. All ops are resolution-preserving; channel
// changes happen through the convolutions.
func opGraph(ctx *context.Context, op string, x *graph.Node, channels int, affine bool) *graph.Node {
	switch op {
	case desc.OpConv3x3:
		x = layers.Convolution(ctx, x).Channels(channels).KernelSize(3).PadSame().UseBias(false).Done()
		x = activations.Relu(x)
		return normalize(ctx.In("norm"), x, affine)
	case desc.OpConv1x1:
		x = layers.Convolution(ctx, x).Channels(channels).KernelSize(1).PadSame().UseBias(false).Done()
		x = activations.Relu(x)
		return normalize(ctx.In("norm"), x, affine)
	case desc.OpMaxPool3x3:
		return graph.MaxPool(x).Window(3).Strides(1).PadSame().Done()
	case desc.OpAvgPool3x3:
		return graph.MeanPool(x).Window(3).Strides(1).PadSame().Done()
	case desc.OpIdentity:
		// Project only if the channel count doesn't match yet.
		if x.Shape().Dimensions[3] != channels {
			x = layers.Convolution(ctx, x).Channels(channels).KernelSize(1).PadSame().UseBias(false).Done()
		}
		return x
	default:
		exceptions.Panicf("unknown op %q in architecture description", op)
		panic(nil) // Unreachable.
	}
}

// normalize applies batch normalization over the feature axis; affine toggles
// the learned scale and offset.
func normalize(ctx *context.Context, x *graph.Node, affine bool) *graph.Node {
	return batchnorm.New(ctx, x, -1).Center(affine).Scale(affine).Done()
}
