// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package model defines the trainable entity of an evaluation run: a GoMLX
// graph-building function plus the context holding its variables.
//
// A Model is created exactly once per evaluation, either by a zoo factory
// (see the zoo package) or from an architecture description (FromDesc), and
// then handed to the trainer.
package model

import (
	"github.com/pkg/errors"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/train"

	"github.com/gonas/gonas/desc"
)

// Model wraps a network so it can be trained: its graph-building function and
// the context with its variables and hyperparameters.
type Model struct {
	// Name of the model, for logs and reports.
	Name string

	// DropPath indicates drop-path (stochastic depth) is applied while
	// training. Only meaningful for description-derived models.
	DropPath bool

	// Affine indicates batch-normalization layers learn scale and offset.
	// Only meaningful for description-derived models.
	Affine bool

	ctx     *context.Context
	graphFn train.ModelFn
	desc    *desc.ModelDesc
}

// New creates a Model from a name, a context and a graph-building function.
// Zoo factories use this.
func New(name string, ctx *context.Context, graphFn train.ModelFn) *Model {
	return &Model{Name: name, ctx: ctx, graphFn: graphFn}
}

// Context returns the context holding the model variables.
func (m *Model) Context() *context.Context { return m.ctx }

// GraphFn returns the graph-building function of the model.
func (m *Model) GraphFn() train.ModelFn { return m.graphFn }

// Desc returns the architecture description the model was built from, or nil
// for factory-built models.
func (m *Model) Desc() *desc.ModelDesc { return m.desc }

// NumParams returns the total number of parameters of the variables
// materialized so far. Variables are created lazily on the first graph
// execution, so before training this may be 0.
func (m *Model) NumParams() int {
	total := 0
	m.ctx.EnumerateVariables(func(v *context.Variable) {
		total += v.Shape().Size()
	})
	return total
}

// Save writes the model weights (the context variables) as a checkpoint at
// the given directory path.
func (m *Model) Save(path string) error {
	handler, err := checkpoints.Build(m.ctx).Dir(path).Keep(1).Done()
	if err != nil {
		return errors.WithMessagef(err, "preparing model save to %q", path)
	}
	if err := handler.Save(); err != nil {
		return errors.WithMessagef(err, "saving model to %q", path)
	}
	return nil
}
