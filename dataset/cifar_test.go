// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// writeRecords writes CIFAR-format binary records: labelBytes label bytes
// followed by a channel-major image filled with the given byte value.
func writeRecords(t *testing.T, dir, fileName string, labelBytes int, labels []byte, fill byte) {
	t.Helper()
	var contents []byte
	for _, label := range labels {
		for i := 0; i < labelBytes-1; i++ {
			contents = append(contents, 0)
		}
		contents = append(contents, label)
		for i := 0; i < cifarImageBytes; i++ {
			contents = append(contents, fill)
		}
	}
	require.NoError(t, os.WriteFile(path.Join(dir, fileName), contents, 0660))
}

func TestLoadPartition(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir, "batch_1.bin", 1, []byte{3, 7}, 255)
	writeRecords(t, dir, "batch_2.bin", 1, []byte{9}, 51)

	part, err := loadPartition(dir, []string{"batch_1.bin", "batch_2.bin"}, 1)
	require.NoError(t, err)

	assert.Equal(t, []int{3, cifarHeight, cifarWidth, cifarDepth}, part.images.Shape().Dimensions)
	assert.Equal(t, []int{3, 1}, part.labels.Shape().Dimensions)
	assert.Equal(t, []int64{3, 7, 9}, tensors.MustCopyFlatData[int64](part.labels))

	// Pixels normalize to [0, 1]: 255 -> 1.0 and 51 -> 0.2.
	images := tensors.MustCopyFlatData[float32](part.images)
	assert.InDelta(t, 1.0, images[0], 1e-6)
	assert.InDelta(t, 0.2, images[2*cifarImageBytes], 1e-6)
}

func TestLoadPartitionFineLabel(t *testing.T) {
	dir := t.TempDir()
	// Two label bytes per record: coarse then fine, the fine one is kept.
	writeRecords(t, dir, "train.bin", 2, []byte{5}, 0)

	part, err := loadPartition(dir, []string{"train.bin"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, tensors.MustCopyFlatData[int64](part.labels))
}

func TestLoadPartitionErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadPartition(dir, []string{"missing.bin"}, 1)
	assert.Error(t, err)

	// A truncated record is data corruption, not a silent EOF.
	require.NoError(t, os.WriteFile(path.Join(dir, "truncated.bin"), make([]byte, 100), 0660))
	_, err = loadPartition(dir, []string{"truncated.bin"}, 1)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path.Join(dir, "empty.bin"), nil, 0660))
	_, err = loadPartition(dir, []string{"empty.bin"}, 1)
	assert.Error(t, err, "a partition with no examples is an error")
}
