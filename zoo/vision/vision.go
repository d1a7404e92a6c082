// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package vision registers the generic vision model zoo, under the module
// identifier zoo.VisionModule. It serves the imagenet-class datasets
// (imagenet*, sport8) the default-module heuristic routes here.
//
// The residual architectures reuse the resnet package graph builders -- the
// global-average-pool head makes them agnostic to the input resolution, so
// the same graphs serve larger images.
package vision

import (
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/train"

	"github.com/gonas/gonas/model"
	"github.com/gonas/gonas/zoo"
	"github.com/gonas/gonas/zoo/resnet"
)

// numClasses of the vision zoo heads. ImageNet's 1000 classes; datasets with
// fewer classes only use the leading logits.
const numClasses = 1000

func init() {
	zoo.RegisterModule(zoo.VisionModule, registerAll)
}

func registerAll(r zoo.Registrar) {
	r.Register("resnet18", func() (*model.Model, error) {
		return model.New("resnet18", context.New(), resnet.GraphFn(2, 64, numClasses)), nil
	})
	r.Register("resnet34", func() (*model.Model, error) {
		return model.New("resnet34", context.New(), resnet.GraphFn(5, 64, numClasses)), nil
	})
	r.Register("vgg11", func() (*model.Model, error) {
		return model.New("vgg11", context.New(), vggGraphFn([]int{64, 128, 256, 512, 512})), nil
	})
}

// vggGraphFn builds a VGG-style plain convolutional network: one 3x3
// convolution stage per entry of stageChannels, each followed by 2x2
// max-pooling, with a global-average-pool classifier head.
func vggGraphFn(stageChannels []int) train.ModelFn {
	return func(ctx *context.Context, spec any, inputs []*graph.Node) []*graph.Node {
		x := inputs[0]
		batchSize := x.Shape().Dimensions[0]
		for stage, channels := range stageChannels {
			stageCtx := ctx.Inf("stage_%d", stage)
			x = layers.Convolution(stageCtx, x).
				Channels(channels).KernelSize(3).PadSame().UseBias(false).Done()
			x = activations.Relu(x)
			x = graph.MaxPool(x).Window(2).Done()
		}
		x = graph.ReduceMean(x, 1, 2)
		logits := layers.Dense(ctx.In("head"), x, true, numClasses)
		logits.AssertDims(batchSize, numClasses)
		return []*graph.Node{logits}
	}
}
