// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/internal/config"
	"github.com/listen-rs/listen-engine/pkg/action"
	actionBuiltin "github.com/listen-rs/listen-engine/pkg/action/builtin"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// InitDispatcher creates the action dispatcher with one executor per action kind.
//
// ============================================================
// DEVELOPER: Register custom executor types here.
// ============================================================
// Executors carry out a step's action once its conditions hold.
// Exactly one executor serves each action kind; which one is
// chosen by NOTIFICATION_EXECUTOR and SWAP_EXECUTOR.
//
// Steps to add a new executor:
// 1. Create your executor in pkg/action/builtin/
// 2. Implement the Executor interface
// 3. Register the executor type in pkg/action/builtin/init.go
// 4. Select it through configuration
//
// IMPORTANT: Executors may need connections (Redis, NATS).
// Pass them through the Dependencies struct.
// ============================================================
func InitDispatcher(cfg *config.Config, deps *actionBuiltin.Dependencies) (*action.Dispatcher, error) {
	actionBuiltin.RegisterExecutors(deps)

	registry := action.NewRegistry()
	if err := action.RegisterExecutors(registry, executorConfigs(cfg)); err != nil {
		return nil, fmt.Errorf("failed to register executors: %w", err)
	}

	for _, kind := range []pipeline.ActionKind{pipeline.KindNotification, pipeline.KindSwap} {
		if registry.Get(kind) == nil {
			return nil, fmt.Errorf("no executor configured for %s actions", kind)
		}
	}
	logrus.Infof("registered %d executors: %v", registry.Count(), registry.Kinds())

	notificationRetry := action.DefaultRetry(pipeline.KindNotification)
	notificationRetry.MaxAttempts = cfg.NotificationAttempts

	dispatcher := action.NewDispatcher(registry,
		action.WithRetry(pipeline.KindNotification, notificationRetry),
		action.WithAttemptTimeout(cfg.DispatchTimeout),
	)
	logrus.Infof("initialized action dispatcher")

	return dispatcher, nil
}

func executorConfigs(cfg *config.Config) []action.ExecutorConfig {
	return []action.ExecutorConfig{
		{
			Type:    cfg.NotificationExecutor,
			Enabled: true,
		},
		{
			Type:    cfg.SwapExecutor,
			Enabled: true,
			Parameters: map[string]interface{}{
				"queue": cfg.OrderQueue,
			},
		},
	}
}
