// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/listen-rs/listen-engine/internal/app"
	"github.com/listen-rs/listen-engine/internal/bootstrap"
	"github.com/listen-rs/listen-engine/internal/config"
	"github.com/listen-rs/listen-engine/pkg/common"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "listen-engine",
	Short: "Condition-triggered pipeline engine",
	Long: `listen-engine runs user pipelines: graphs of steps guarded by price
conditions that fire notifications or swap orders when their conditions hold.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine with its HTTP and gRPC servers",
	RunE:  runServe,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <pipeline-id>",
	Short: "Print a pipeline snapshot from the configured store",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var validateCmd = &cobra.Command{
	Use:   "validate <seed.yaml>",
	Short: "Check the pipelines in a seed file without starting the engine",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(serveCmd, inspectCmd, validateCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := common.ConfigureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logrus.Infof("starting %s (environment %s)", cfg.ServiceName, cfg.Environment)

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// only the store backend matters here
	inspectCfg := *cfg
	inspectCfg.PriceFeed = "none"
	inspectCfg.NotificationExecutor = "log_notification"
	inspectCfg.SwapExecutor = "log_swap"

	redisClient, err := bootstrap.InitRedis(ctx, &inspectCfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	s, _, err := bootstrap.InitStore(&inspectCfg, redisClient)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("pipeline %s not found", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func runValidate(cmd *cobra.Command, args []string) error {
	seed, err := pipeline.LoadSeedFile(args[0])
	if err != nil {
		return err
	}

	failed := 0
	now := time.Now().UTC()
	for i := range seed.Pipelines {
		p := seed.Pipelines[i].ToPipeline(now)
		if err := pipeline.Validate(p); err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "pipeline %d (user %s): %v\n", i, p.UserID, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d pipelines checked, %d invalid\n", len(seed.Pipelines), failed)
	if failed > 0 {
		return fmt.Errorf("%d invalid pipelines in %s", failed, args[0])
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
