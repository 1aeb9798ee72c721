// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/engine"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// SeedPipelines registers the pipelines listed in a YAML seed file.
//
// ============================================================
// DEVELOPER: Seed pipelines
// ============================================================
// Seeds go through the same admission path as POST /api/pipeline:
// each entry gets a fresh id and is validated and persisted by the
// engine. The caller only seeds an empty store, so a restart does
// not register the same pipelines twice.
// ============================================================
func SeedPipelines(ctx context.Context, client *engine.Client, path string, now time.Time) (int, error) {
	seed, err := pipeline.LoadSeedFile(path)
	if err != nil {
		return 0, err
	}

	for i := range seed.Pipelines {
		p := seed.Pipelines[i].ToPipeline(now)
		if err := client.Add(ctx, p); err != nil {
			return i, fmt.Errorf("seed pipeline %d (user %s): %w", i, p.UserID, err)
		}
		logrus.WithFields(logrus.Fields{"pipeline_id": p.ID, "user_id": p.UserID}).Info("seeded pipeline")
	}

	logrus.Infof("seeded %d pipelines from %s", len(seed.Pipelines), path)
	return len(seed.Pipelines), nil
}
