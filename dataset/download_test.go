// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChecksum(t *testing.T) {
	contents := []byte("cifar bytes")
	filePath := path.Join(t.TempDir(), "data.tar.gz")
	require.NoError(t, os.WriteFile(filePath, contents, 0660))

	sum := sha256.Sum256(contents)
	require.NoError(t, validateChecksum(filePath, hex.EncodeToString(sum[:])))

	err := validateChecksum(filePath, "00000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, fileExists(dir))
	assert.False(t, fileExists(path.Join(dir, "nope")))
}

func TestDownloadAndUntarIfMissingSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	target := "unpacked"
	require.NoError(t, os.MkdirAll(path.Join(dir, target), 0770))

	// Target already unpacked: no download is attempted, the bogus URL is
	// never hit.
	err := downloadAndUntarIfMissing("http://invalid.localhost/none.tar.gz", dir, "none.tar.gz", target, "")
	assert.NoError(t, err)
}
