// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package desc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonas/gonas/config"
)

func TestConfigBuilderBuild(t *testing.T) {
	template := testDesc()
	cfg := config.Desc{InitNodeCh: 16, NCells: 8, NReductions: 2, NNodes: 4}

	built, err := ConfigBuilder{}.Build(cfg, template)
	require.NoError(t, err)

	assert.Equal(t, 8, built.CellCount())
	assert.Equal(t, 2, built.ReductionCount())
	assert.Equal(t, 4, built.NodesPerCell())
	assert.Equal(t, 16, built.InitNodeCh)
	assert.Equal(t, template.Dataset, built.Dataset)
	assert.Equal(t, template.NumClasses, built.NumClasses)

	// Reductions land at the thirds: cells 2 and 5 of 8.
	for cellIdx, cell := range built.Cells {
		assert.Equal(t, cellIdx, cell.Index)
		assert.Equal(t, cellIdx == 2 || cellIdx == 5, cell.Reduction, "cell %d", cellIdx)
	}

	// Channels start at InitNodeCh and double at each reduction.
	assert.Equal(t, 16, built.Cells[0].Channels)
	assert.Equal(t, 16, built.Cells[1].Channels)
	assert.Equal(t, 32, built.Cells[2].Channels)
	assert.Equal(t, 32, built.Cells[4].Channels)
	assert.Equal(t, 64, built.Cells[5].Channels)
	assert.Equal(t, 64, built.Cells[7].Channels)

	// Nodes cycle through the blueprint of the template's first cell.
	blueprint := template.Cells[0].Nodes
	for _, cell := range built.Cells {
		for nodeIdx, node := range cell.Nodes {
			assert.Equal(t, blueprint[nodeIdx%len(blueprint)], node)
		}
	}
}

func TestConfigBuilderErrors(t *testing.T) {
	cfg := config.Desc{InitNodeCh: 16, NCells: 8, NReductions: 2, NNodes: 4}

	_, err := ConfigBuilder{}.Build(cfg, nil)
	assert.Error(t, err)
	_, err = ConfigBuilder{}.Build(cfg, &ModelDesc{})
	assert.Error(t, err)

	template := testDesc()
	_, err = ConfigBuilder{}.Build(config.Desc{NCells: 8, NNodes: 4}, template)
	assert.Error(t, err, "missing init_node_ch")
	_, err = ConfigBuilder{}.Build(config.Desc{InitNodeCh: 16, NCells: 4, NReductions: 4, NNodes: 2}, template)
	assert.Error(t, err, "as many reductions as cells")
}

func TestReductionPositions(t *testing.T) {
	assert.Equal(t, []bool{false, false, false}, reductionPositions(3, 0))

	// One reduction at the midpoint.
	marks := reductionPositions(4, 1)
	assert.Equal(t, []bool{false, false, true, false}, marks)

	// Two reductions at the thirds.
	marks = reductionPositions(9, 2)
	assert.Equal(t, []bool{false, false, false, true, false, false, true, false, false}, marks)
}
