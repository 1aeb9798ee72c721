package builtin

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/listen-rs/listen-engine/pkg/action"
	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// LogNotifier delivers notifications by writing them to the service log.
// It is the default when no notification backend is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Kind() pipeline.ActionKind { return pipeline.KindNotification }

func (n *LogNotifier) Name() string { return LogNotificationType }

func (n *LogNotifier) Execute(ctx context.Context, req action.Request) error {
	msg, ok := req.Action.(pipeline.Notification)
	if !ok {
		return action.Permanent(fmt.Errorf("%w: %T", action.ErrUnsupportedAction, req.Action))
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     req.UserID,
		"pipeline_id": req.PipelineID,
		"step_id":     req.StepID,
	}).Infof("notification: %s", msg.Message)
	return nil
}

// LogSwapper accepts swaps without submitting them anywhere. It keeps local
// runs usable without a swap executor.
type LogSwapper struct{}

func NewLogSwapper() *LogSwapper {
	return &LogSwapper{}
}

func (s *LogSwapper) Kind() pipeline.ActionKind { return pipeline.KindSwap }

func (s *LogSwapper) Name() string { return LogSwapType }

func (s *LogSwapper) Execute(ctx context.Context, req action.Request) error {
	swap, ok := req.Action.(pipeline.Swap)
	if !ok {
		return action.Permanent(fmt.Errorf("%w: %T", action.ErrUnsupportedAction, req.Action))
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     req.UserID,
		"pipeline_id": req.PipelineID,
		"step_id":     req.StepID,
	}).Warnf("[DRY-RUN] swap %s %s -> %s (slippage %d bps) not submitted",
		swap.Amount, swap.InputToken, swap.OutputToken, swap.SlippageBps)
	return nil
}
