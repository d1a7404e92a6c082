// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// Package desc defines architecture descriptions: serializable structural
// specifications of a network (cells, nodes, channel counts) produced by an
// architecture search and consumed by evaluation.
//
// A description is distinct from the instantiated trainable model: see the
// model package for turning a ModelDesc into something that can be trained.
package desc

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrLoad signifies a description file that is missing or malformed.
var ErrLoad = errors.New("architecture description load failed")

// Op names understood by the model builder.
const (
	OpConv3x3    = "conv3x3"
	OpConv1x1    = "conv1x1"
	OpMaxPool3x3 = "maxpool3x3"
	OpAvgPool3x3 = "avgpool3x3"
	OpIdentity   = "identity"
)

// ModelDesc describes a full network: a stem, a sequence of cells and a
// classifier head implied by NumClasses.
type ModelDesc struct {
	// Dataset this description was searched/built for.
	Dataset string `json:"dataset"`

	// NumClasses of the classifier head.
	NumClasses int `json:"num_classes"`

	// InitNodeCh is the number of channels of the first cell's nodes.
	InitNodeCh int `json:"init_node_ch"`

	// StemMultiplier scales InitNodeCh for the stem convolution output.
	StemMultiplier int `json:"stem_multiplier"`

	// Cells in network order.
	Cells []CellDesc `json:"cells"`
}

// CellDesc describes one cell: a small DAG of nodes.
type CellDesc struct {
	// Index of the cell in the network.
	Index int `json:"index"`

	// Reduction cells halve the spatial resolution and double channels.
	Reduction bool `json:"reduction"`

	// Channels of every node in this cell.
	Channels int `json:"channels"`

	// Nodes in topological order.
	Nodes []NodeDesc `json:"nodes"`
}

// NodeDesc describes one node: an op applied to earlier outputs.
//
// Inputs index into the cell inputs and preceding nodes: 0 is the cell input
// and i>0 is the output of node i-1. Absent inputs default to the immediately
// preceding output.
type NodeDesc struct {
	Op     string `json:"op"`
	Inputs []int  `json:"inputs,omitempty"`
}

// CellCount returns the number of cells in the description.
func (d *ModelDesc) CellCount() int { return len(d.Cells) }

// ReductionCount returns the number of reduction cells.
func (d *ModelDesc) ReductionCount() int {
	count := 0
	for _, c := range d.Cells {
		if c.Reduction {
			count++
		}
	}
	return count
}

// NodesPerCell returns the node count of the first cell, or 0 if there are
// no cells. Built descriptions are homogeneous in node count.
func (d *ModelDesc) NodesPerCell() int {
	if len(d.Cells) == 0 {
		return 0
	}
	return len(d.Cells[0].Nodes)
}

// StemChannels returns the stem output channels.
func (d *ModelDesc) StemChannels() int {
	mult := d.StemMultiplier
	if mult <= 0 {
		mult = 3
	}
	return mult * d.InitNodeCh
}

// Validate checks the description is structurally sound.
func (d *ModelDesc) Validate() error {
	if d.NumClasses <= 0 {
		return errors.Errorf("description has num_classes=%d, must be > 0", d.NumClasses)
	}
	if d.InitNodeCh <= 0 {
		return errors.Errorf("description has init_node_ch=%d, must be > 0", d.InitNodeCh)
	}
	if len(d.Cells) == 0 {
		return errors.New("description has no cells")
	}
	for _, cell := range d.Cells {
		if cell.Channels <= 0 {
			return errors.Errorf("cell %d has channels=%d, must be > 0", cell.Index, cell.Channels)
		}
		if len(cell.Nodes) == 0 {
			return errors.Errorf("cell %d has no nodes", cell.Index)
		}
		for nodeIdx, node := range cell.Nodes {
			switch node.Op {
			case OpConv3x3, OpConv1x1, OpMaxPool3x3, OpAvgPool3x3, OpIdentity:
			default:
				return errors.Errorf("cell %d node %d has unknown op %q", cell.Index, nodeIdx, node.Op)
			}
			for _, input := range node.Inputs {
				if input < 0 || input > nodeIdx {
					return errors.Errorf("cell %d node %d refers to input %d, valid range is [0, %d]",
						cell.Index, nodeIdx, input, nodeIdx)
				}
			}
		}
	}
	return nil
}

// Load reads a description from a JSON file.
// Missing or malformed files are reported wrapping ErrLoad.
func Load(path string) (*ModelDesc, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrLoad, "reading description file %q: %v", path, err)
	}
	d := &ModelDesc{}
	if err := json.Unmarshal(contents, d); err != nil {
		return nil, errors.Wrapf(ErrLoad, "parsing description file %q: %v", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrapf(ErrLoad, "invalid description in %q: %v", path, err)
	}
	return d, nil
}

// Save writes the description as JSON to the given path, overwriting any
// previous contents. The parent directory is created if needed.
func (d *ModelDesc) Save(path string) error {
	contents, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "serializing description for %q", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0770); err != nil {
			return errors.Wrapf(err, "creating directory for description file %q", path)
		}
	}
	if err := os.WriteFile(path, contents, 0660); err != nil {
		return errors.Wrapf(err, "writing description file %q", path)
	}
	return nil
}
