// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package desc

import (
	"github.com/pkg/errors"

	"github.com/gonas/gonas/config"
)

// Builder composes a final architecture description out of configuration and
// a template description previously saved by the search.
type Builder interface {
	Build(cfg config.Desc, template *ModelDesc) (*ModelDesc, error)
}

// ConfigBuilder is the default Builder: it takes the cell blueprint (the node
// ops of the template's first cell) and replicates it into the configured
// number of cells, spacing reductions evenly and doubling channels at each
// reduction, starting from the configured initial node channels.
type ConfigBuilder struct{}

var _ Builder = ConfigBuilder{}

// Build implements Builder.
func (ConfigBuilder) Build(cfg config.Desc, template *ModelDesc) (*ModelDesc, error) {
	if template == nil || len(template.Cells) == 0 {
		return nil, errors.New("template description has no cells to use as blueprint")
	}
	if cfg.NCells <= 0 || cfg.NNodes <= 0 || cfg.InitNodeCh <= 0 {
		return nil, errors.Errorf("description config must set n_cells, n_nodes and init_node_ch, got %+v", cfg)
	}
	if cfg.NReductions < 0 || cfg.NReductions >= cfg.NCells {
		return nil, errors.Errorf("n_reductions=%d must be in [0, n_cells=%d)", cfg.NReductions, cfg.NCells)
	}

	blueprint := template.Cells[0].Nodes
	reductions := reductionPositions(cfg.NCells, cfg.NReductions)

	built := &ModelDesc{
		Dataset:        template.Dataset,
		NumClasses:     template.NumClasses,
		InitNodeCh:     cfg.InitNodeCh,
		StemMultiplier: template.StemMultiplier,
	}
	channels := cfg.InitNodeCh
	for cellIdx := 0; cellIdx < cfg.NCells; cellIdx++ {
		reduction := reductions[cellIdx]
		if reduction {
			channels *= 2
		}
		cell := CellDesc{
			Index:     cellIdx,
			Reduction: reduction,
			Channels:  channels,
			Nodes:     make([]NodeDesc, cfg.NNodes),
		}
		for nodeIdx := 0; nodeIdx < cfg.NNodes; nodeIdx++ {
			// Cycle through the blueprint when the configured node count
			// exceeds the template's.
			cell.Nodes[nodeIdx] = blueprint[nodeIdx%len(blueprint)]
		}
		built.Cells = append(built.Cells, cell)
	}
	if err := built.Validate(); err != nil {
		return nil, errors.WithMessage(err, "built description is invalid")
	}
	return built, nil
}

// reductionPositions marks which of nCells are reduction cells, spacing the
// nReductions evenly through the network: one reduction at each boundary of
// the nReductions+1 segments. For the usual nReductions=2 this yields the
// thirds placement used by cell-based search spaces.
func reductionPositions(nCells, nReductions int) []bool {
	marks := make([]bool, nCells)
	for r := 1; r <= nReductions; r++ {
		pos := r * nCells / (nReductions + 1)
		if pos >= nCells {
			pos = nCells - 1
		}
		marks[pos] = true
	}
	return marks
}
