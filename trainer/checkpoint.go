// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

package trainer

import (
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"

	"github.com/gonas/gonas/config"
)

// CreateCheckpoint builds the resumable-training state for a run from the
// checkpoint configuration and the resume flag.
//
// With an empty checkpoint directory it returns nil: checkpointing disabled.
// With resume=false any previous state under the directory is removed first,
// so training starts fresh; with resume=true the existing checkpoint (if
// any) is loaded into ctx.
func CreateCheckpoint(ctx *context.Context, cfg config.Checkpoint, resume bool) (*checkpoints.Handler, error) {
	if cfg.Dir == "" {
		return nil, nil
	}
	if !resume {
		if err := os.RemoveAll(cfg.Dir); err != nil {
			return nil, errors.Wrapf(err, "clearing checkpoint directory %q", cfg.Dir)
		}
	}
	handler, err := checkpoints.Build(ctx).Dir(cfg.Dir).Keep(cfg.KeepCount()).Done()
	if err != nil {
		return nil, errors.WithMessagef(err, "building checkpoint at %q", cfg.Dir)
	}
	klog.V(1).Infof("checkpoint: dir=%q keep=%d resume=%v", handler.Dir(), cfg.KeepCount(), resume)
	return handler, nil
}
