// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"io"
	"os"
	"path"

	"github.com/pkg/errors"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"

	"github.com/gonas/gonas/config"
)

// CIFAR datasets: 32x32x3 images, binary record format from
// https://www.cs.toronto.edu/~kriz/cifar.html
const (
	cifarWidth  = 32
	cifarHeight = 32
	cifarDepth  = 3

	cifarImageBytes = cifarWidth * cifarHeight * cifarDepth

	cifar10URL    = "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz"
	cifar10Tar    = "cifar-10-binary.tar.gz"
	cifar10SubDir = "cifar-10-batches-bin"
	cifar10Hash   = "c4a38c50a1bc5f3a1c5537f2155ab9d68f9f25eb1ed8d9ddda3db29a59bca1dd"

	cifar100URL    = "https://www.cs.toronto.edu/~kriz/cifar-100-binary.tar.gz"
	cifar100Tar    = "cifar-100-binary.tar.gz"
	cifar100SubDir = "cifar-100-binary"
	cifar100Hash   = "58a81ae192c23a4be8b1804d68e518ed807d710a4eb253b1f2a199162a40d8ec"
)

func init() {
	RegisterLoader("cifar10", cifar10Loader)
	RegisterLoader("cifar100", cifar100Loader)
}

// imagesAndLabels is one loaded partition, kept as tensors ready for an
// in-memory dataset.
type imagesAndLabels struct {
	images, labels *tensors.Tensor
}

// Loaded partitions are cached so several datasets (train + eval views) share
// the same tensors. Keyed by dataset name + partition.
var (
	cifarCache = make(map[string]imagesAndLabels)
)

func cifar10Loader(backend backends.Backend, cfg config.Loader) (trainDS, validDS, testDS train.Dataset, err error) {
	if err = downloadAndUntarIfMissing(cifar10URL, cfg.DataDir, cifar10Tar, cifar10SubDir, cifar10Hash); err != nil {
		return nil, nil, nil, errors.WithMessage(err, "fetching cifar10")
	}
	dir := path.Join(cfg.DataDir, cifar10SubDir)
	trainFiles := []string{"data_batch_1.bin", "data_batch_2.bin", "data_batch_3.bin", "data_batch_4.bin", "data_batch_5.bin"}
	trainPart, err := cachedPartition("cifar10-train", dir, trainFiles, 1)
	if err != nil {
		return nil, nil, nil, err
	}
	testPart, err := cachedPartition("cifar10-test", dir, []string{"test_batch.bin"}, 1)
	if err != nil {
		return nil, nil, nil, err
	}
	return buildDatasets(backend, cfg, trainPart, testPart)
}

func cifar100Loader(backend backends.Backend, cfg config.Loader) (trainDS, validDS, testDS train.Dataset, err error) {
	if err = downloadAndUntarIfMissing(cifar100URL, cfg.DataDir, cifar100Tar, cifar100SubDir, cifar100Hash); err != nil {
		return nil, nil, nil, errors.WithMessage(err, "fetching cifar100")
	}
	dir := path.Join(cfg.DataDir, cifar100SubDir)
	// Records carry a coarse and a fine label byte; the fine label is the
	// last one before the image, and the one used.
	trainPart, err := cachedPartition("cifar100-train", dir, []string{"train.bin"}, 2)
	if err != nil {
		return nil, nil, nil, err
	}
	testPart, err := cachedPartition("cifar100-test", dir, []string{"test.bin"}, 2)
	if err != nil {
		return nil, nil, nil, err
	}
	return buildDatasets(backend, cfg, trainPart, testPart)
}

// buildDatasets wraps the partitions into GoMLX datasets: shuffled dropped
// batches for training, sequential full batches for test evaluation. CIFAR
// ships no validation partition, so validDS is nil.
func buildDatasets(backend backends.Backend, cfg config.Loader, trainPart, testPart imagesAndLabels) (trainDS, validDS, testDS train.Dataset, err error) {
	base, err := datasets.InMemoryFromData(backend, cfg.Dataset.Name+"-train",
		[]any{trainPart.images}, []any{trainPart.labels})
	if err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "building train dataset for %q", cfg.Dataset.Name)
	}
	trainDS = base.BatchSize(cfg.BatchSize, true).Shuffle()

	testBase, err := datasets.InMemoryFromData(backend, cfg.Dataset.Name+"-test",
		[]any{testPart.images}, []any{testPart.labels})
	if err != nil {
		return nil, nil, nil, errors.WithMessagef(err, "building test dataset for %q", cfg.Dataset.Name)
	}
	testDS = testBase.BatchSize(cfg.EvalBatch(), false)
	return trainDS, nil, testDS, nil
}

func cachedPartition(cacheKey, dir string, files []string, labelBytes int) (imagesAndLabels, error) {
	if part, found := cifarCache[cacheKey]; found {
		return part, nil
	}
	part, err := loadPartition(dir, files, labelBytes)
	if err != nil {
		return imagesAndLabels{}, err
	}
	cifarCache[cacheKey] = part
	return part, nil
}

// loadPartition reads the given binary record files into image and label
// tensors. Each record is labelBytes label bytes followed by the image bytes
// in channel-major planes; only the last label byte (the fine label) is kept,
// and images convert to HWC float32 in [0, 1].
func loadPartition(dir string, files []string, labelBytes int) (imagesAndLabels, error) {
	var images []float32
	var labels []int64
	record := make([]byte, labelBytes+cifarImageBytes)
	for _, fileName := range files {
		filePath := path.Join(dir, fileName)
		f, err := os.Open(filePath)
		if err != nil {
			return imagesAndLabels{}, errors.Wrapf(err, "opening data file %q", filePath)
		}
		for recordIdx := 0; ; recordIdx++ {
			bytesRead, err := io.ReadFull(f, record)
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = f.Close()
				return imagesAndLabels{}, errors.Wrapf(err, "reading example %d from %q (read %d bytes)",
					recordIdx, filePath, bytesRead)
			}
			labels = append(labels, int64(record[labelBytes-1]))
			images = appendImage(images, record[labelBytes:])
		}
		if err := f.Close(); err != nil {
			return imagesAndLabels{}, errors.Wrapf(err, "closing %q", filePath)
		}
	}
	numExamples := len(labels)
	if numExamples == 0 {
		return imagesAndLabels{}, errors.Errorf("no examples found in %q (files %v)", dir, files)
	}
	return imagesAndLabels{
		images: tensors.FromFlatDataAndDimensions(images, numExamples, cifarHeight, cifarWidth, cifarDepth),
		labels: tensors.FromFlatDataAndDimensions(labels, numExamples, 1),
	}, nil
}

// appendImage converts one record's channel-major image bytes to HWC floats.
func appendImage(images []float32, raw []byte) []float32 {
	for h := 0; h < cifarHeight; h++ {
		for w := 0; w < cifarWidth; w++ {
			for d := 0; d < cifarDepth; d++ {
				images = append(images, float32(raw[d*(cifarHeight*cifarWidth)+h*cifarWidth+w])/255)
			}
		}
	}
	return images
}
