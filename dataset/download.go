// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// downloadAndUntarIfMissing downloads tarFile from url into baseDir and
// unpacks it, unless the unpacked targetDir already exists. If checkHash is
// non-empty the downloaded file's sha256 must match.
func downloadAndUntarIfMissing(url, baseDir, tarFile, targetDir, checkHash string) error {
	if !path.IsAbs(tarFile) {
		tarFile = path.Join(baseDir, tarFile)
	}
	if !path.IsAbs(targetDir) {
		targetDir = path.Join(baseDir, targetDir)
	}
	if fileExists(targetDir) {
		return nil
	}
	if !fileExists(tarFile) {
		fmt.Printf("Downloading %s ...\n", url)
		if err := download(url, tarFile); err != nil {
			return err
		}
	}
	if checkHash != "" {
		if err := validateChecksum(tarFile, checkHash); err != nil {
			return err
		}
	}
	if err := untar(baseDir, tarFile); err != nil {
		return err
	}
	if !fileExists(targetDir) {
		return errors.Errorf("downloaded %q and unpacked %q, but directory %q did not appear",
			url, tarFile, targetDir)
	}
	return nil
}

// download url to filePath, displaying a progress bar.
func download(url, filePath string) error {
	if err := os.MkdirAll(path.Dir(filePath), 0770); err != nil {
		return errors.Wrapf(err, "creating directory for %q", filePath)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "creating file %q", filePath)
	}
	defer func() { _ = file.Close() }()

	resp, err := http.Get(url)
	if err != nil {
		return errors.Wrapf(err, "downloading %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("downloading %q: unexpected status %s", url, resp.Status)
	}

	bar := progressbar.DefaultBytes(resp.ContentLength, path.Base(filePath))
	if _, err := io.Copy(io.MultiWriter(file, bar), resp.Body); err != nil {
		return errors.Wrapf(err, "downloading %q to %q", url, filePath)
	}
	_ = bar.Close()
	return nil
}

// untar unpacks tarFile inside baseDir, picking the decompression flag from
// the file suffix.
func untar(baseDir, tarFile string) error {
	compressionFlag := ""
	if strings.HasSuffix(tarFile, ".gz") || strings.HasSuffix(tarFile, ".tgz") {
		compressionFlag = "z"
	} else if strings.HasSuffix(tarFile, ".bz2") {
		compressionFlag = "j"
	}
	cmd := exec.Command("tar", fmt.Sprintf("x%sf", compressionFlag), tarFile)
	cmd.Dir = baseDir
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "failed to run %q", cmd)
	}
	return nil
}

func validateChecksum(filePath, wantHash string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "opening %q for checksum", filePath)
	}
	defer func() { _ = file.Close() }()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return errors.Wrapf(err, "hashing %q", filePath)
	}
	gotHash := hex.EncodeToString(hasher.Sum(nil))
	if gotHash != wantHash {
		return errors.Errorf("checksum mismatch for %q: got %s, want %s", filePath, gotHash, wantHash)
	}
	return nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
