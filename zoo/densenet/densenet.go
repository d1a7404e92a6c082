// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package densenet registers the densenet-family CIFAR model factories in
// the zoo, under the module identifier zoo.CifarDenseNetModule.
//
// The architectures follow "Densely Connected Convolutional Networks"
// (Huang et al.) in their CIFAR form: three dense blocks of depth
// (depth-4)/3 connected by 1x1-convolution + mean-pool transitions, with
// every layer concatenating its growth-rate channels onto the block state.
package densenet

import (
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/layers/batchnorm"
	"github.com/gomlx/gomlx/pkg/ml/train"

	"github.com/gonas/gonas/model"
	"github.com/gonas/gonas/zoo"
)

const numClasses = 10

func init() {
	zoo.RegisterModule(zoo.CifarDenseNetModule, registerAll)
}

func registerAll(r zoo.Registrar) {
	r.Register("densenet40", factory("densenet40", 40, 12))
	r.Register("densenet100", factory("densenet100", 100, 12))
}

func factory(name string, depth, growthRate int) zoo.Factory {
	return func() (*model.Model, error) {
		return model.New(name, context.New(), GraphFn(depth, growthRate, numClasses)), nil
	}
}

// GraphFn returns a train.ModelFn for a CIFAR densenet of the given depth
// and growth rate.
func GraphFn(depth, growthRate, numClasses int) train.ModelFn {
	layersPerBlock := (depth - 4) / 3
	return func(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
		x := inputs[0]
		batchSize := x.Shape().Dimensions[0]

		x = layers.Convolution(ctx.In("stem"), x).
			Channels(2*growthRate).KernelSize(3).PadSame().UseBias(false).Done()

		for block := 0; block < 3; block++ {
			blockCtx := ctx.Inf("dense_block_%d", block)
			x = denseBlock(blockCtx, x, layersPerBlock, growthRate)
			if block < 2 {
				x = transition(ctx.Inf("transition_%d", block), x)
			}
		}

		x = batchnorm.New(ctx.In("final_norm"), x, -1).Done()
		x = activations.Relu(x)
		x = graph.ReduceMean(x, 1, 2)
		logits := layers.Dense(ctx.In("head"), x, true, numClasses)
		logits.AssertDims(batchSize, numClasses)
		return []*graph.Node{logits}
	}
}

// denseBlock concatenates growthRate new channels per layer onto the block
// state.
func denseBlock(ctx *context.Context, x *graph.Node, numLayers, growthRate int) *graph.Node {
	for layer := 0; layer < numLayers; layer++ {
		layerCtx := ctx.Inf("layer_%02d", layer)
		out := batchnorm.New(layerCtx.In("norm"), x, -1).Done()
		out = activations.Relu(out)
		out = layers.Convolution(layerCtx, out).
			Channels(growthRate).KernelSize(3).PadSame().UseBias(false).Done()
		x = graph.Concatenate([]*graph.Node{x, out}, -1)
	}
	return x
}

// transition halves both the channels (1x1 convolution) and the resolution
// (2x2 mean-pooling).
func transition(ctx *context.Context, x *graph.Node) *graph.Node {
	channels := x.Shape().Dimensions[3] / 2
	x = batchnorm.New(ctx.In("norm"), x, -1).Done()
	x = activations.Relu(x)
	x = layers.Convolution(ctx, x).
		Channels(channels).KernelSize(1).PadSame().UseBias(false).Done()
	return graph.MeanPool(x).Window(2).Done()
}
