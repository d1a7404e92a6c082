// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package resnet registers the resnet-family CIFAR model factories in the
// zoo, under the module identifier zoo.CifarResNetModule.
//
// The residual architectures follow "Deep Residual Learning for Image
// Recognition" (He et al.), in their CIFAR form: a 16-channel stem and three
// stages whose blocks keep [16, 32, 64] channels, depth = 6n+2. A
// resnext-style grouped-convolution variant is included, sharing the "res"
// name prefix the default-module heuristic relies on.
package resnet

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
	zoo.RegisterModule(zoo.CifarResNetModule, registerAll)
}

func registerAll(r zoo.Registrar) {
	r.Register("resnet20", factory("resnet20", 3))
	r.Register("resnet32", factory("resnet32", 5))
	r.Register("resnet56", factory("resnet56", 9))
	r.Register("resnext29_8x16", func() (*model.Model, error) {
		return model.New("resnext29_8x16", context.New(), ResNextGraphFn(3, 8, 16, numClasses)), nil
	})
}

func factory(name string, blocksPerStage int) zoo.Factory {
	return func() (*model.Model, error) {
		return model.New(name, context.New(), GraphFn(blocksPerStage, 16, numClasses)), nil
	}
}

// GraphFn returns a train.ModelFn for a CIFAR-style residual network:
// blocksPerStage basic blocks in each of three stages, starting at
// baseChannels and doubling per stage with stride-2 transitions. The head is
// a global average pool and a dense layer, which makes the graph agnostic to
// the input resolution.
func GraphFn(blocksPerStage, baseChannels, numClasses int) train.ModelFn {
	return func(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
		x := inputs[0]
		batchSize := x.Shape().Dimensions[0]

		x = convBN(ctx.In("stem"), x, baseChannels, 3, 1)
		x = activations.Relu(x)

		channels := baseChannels
		for stage := 0; stage < 3; stage++ {
			stageCtx := ctx.Inf("stage_%d", stage)
			stride := 2
			if stage == 0 {
				stride = 1
			}
			for block := 0; block < blocksPerStage; block++ {
				blockStride := 1
				if block == 0 {
					blockStride = stride
				}
				x = basicBlock(stageCtx.Inf("block_%02d", block), x, channels, blockStride)
			}
			if stage < 2 {
				channels *= 2
			}
		}

		x = graph.ReduceMean(x, 1, 2)
		logits := layers.Dense(ctx.In("head"), x, true, numClasses)
		logits.AssertDims(batchSize, numClasses)
		return []*graph.Node{logits}
	}
}

// ResNextGraphFn returns a train.ModelFn for a resnext-style network:
// blocksPerStage grouped-bottleneck blocks per stage, with the given
// cardinality (number of convolution groups) and per-group width.
func ResNextGraphFn(blocksPerStage, cardinality, groupWidth, numClasses int) train.ModelFn {
	return func(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
		x := inputs[0]
		batchSize := x.Shape().Dimensions[0]

		x = convBN(ctx.In("stem"), x, cardinality*groupWidth/2, 3, 1)
		x = activations.Relu(x)

		width := cardinality * groupWidth
		for stage := 0; stage < 3; stage++ {
			stageCtx := ctx.Inf("stage_%d", stage)
			stride := 2
			if stage == 0 {
				stride = 1
			}
			for block := 0; block < blocksPerStage; block++ {
				blockStride := 1
				if block == 0 {
					blockStride = stride
				}
				x = groupedBlock(stageCtx.Inf("block_%02d", block), x, width, cardinality, blockStride)
			}
			width *= 2
		}

		x = graph.ReduceMean(x, 1, 2)
		logits := layers.Dense(ctx.In("head"), x, true, numClasses)
		logits.AssertDims(batchSize, numClasses)
		return []*graph.Node{logits}
	}
}

// basicBlock is the two-convolution residual block; a 1x1 projection aligns
// the skip connection when the stride or channel count changes.
func basicBlock(ctx *context.Context, x *graph.Node, channels, stride int) *graph.Node {
	skip := x
	out := convBN(ctx.In("conv_a"), x, channels, 3, stride)
	out = activations.Relu(out)
	out = convBN(ctx.In("conv_b"), out, channels, 3, 1)
	if stride != 1 || x.Shape().Dimensions[3] != channels {
		skip = convBN(ctx.In("proj"), x, channels, 1, stride)
	}
	return activations.Relu(graph.Add(out, skip))
}

// groupedBlock is the resnext bottleneck: 1x1 reduce, grouped 3x3, 1x1 expand.
func groupedBlock(ctx *context.Context, x *graph.Node, width, cardinality, stride int) *graph.Node {
	skip := x
	out := convBN(ctx.In("reduce"), x, width, 1, 1)
	out = activations.Relu(out)
	out = layers.Convolution(ctx.In("grouped"), out).
		Channels(width).KernelSize(3).PadSame().Strides(stride).
		ChannelGroupCount(cardinality).UseBias(false).Done()
	out = batchnorm.New(ctx.In("grouped_norm"), out, -1).Done()
	out = activations.Relu(out)
	out = convBN(ctx.In("expand"), out, 2*width, 1, 1)
	if stride != 1 || x.Shape().Dimensions[3] != 2*width {
		skip = convBN(ctx.In("proj"), x, 2*width, 1, stride)
	}
	return activations.Relu(graph.Add(out, skip))
}

func convBN(ctx *context.Context, x *graph.Node, channels, kernel, stride int) *graph.Node {
	x = layers.Convolution(ctx, x).
		Channels(channels).KernelSize(kernel).PadSame().Strides(stride).UseBias(false).Done()
	return batchnorm.New(ctx.In("norm"), x, -1).Done()
}
