package builtin

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/listen-rs/listen-engine/pkg/action"
)

// Executor type names accepted in ExecutorConfig.Type.
const (
	LogNotificationType   = "log_notification"
	RedisNotificationType = "redis_notification"
	NATSNotificationType  = "nats_notification"
	LogSwapType           = "log_swap"
	OrderQueueType        = "redis_order_queue"
)

// Dependencies holds the connections builtin executors publish through.
// Either may be nil when the corresponding backend is not configured.
type Dependencies struct {
	Redis *redis.Client
	NATS  Publisher
}

// RegisterExecutors registers builtin executor factories with dependencies.
func RegisterExecutors(deps *Dependencies) {
	action.RegisterExecutorType(LogNotificationType, func(config action.ExecutorConfig) (action.Executor, error) {
		return NewLogNotifier(), nil
	})

	action.RegisterExecutorType(LogSwapType, func(config action.ExecutorConfig) (action.Executor, error) {
		return NewLogSwapper(), nil
	})

	action.RegisterExecutorType(RedisNotificationType, func(config action.ExecutorConfig) (action.Executor, error) {
		if deps.Redis == nil {
			return nil, fmt.Errorf("%w: %s requires a redis connection", action.ErrInvalidConfig, config.Type)
		}
		prefix := config.GetParameterString("channel_prefix", DefaultNotificationChannelPrefix)
		return NewRedisNotifier(deps.Redis, prefix), nil
	})

	action.RegisterExecutorType(OrderQueueType, func(config action.ExecutorConfig) (action.Executor, error) {
		if deps.Redis == nil {
			return nil, fmt.Errorf("%w: %s requires a redis connection", action.ErrInvalidConfig, config.Type)
		}
		queue := config.GetParameterString("queue", DefaultOrderQueue)
		return NewOrderQueue(deps.Redis, queue), nil
	})

	action.RegisterExecutorType(NATSNotificationType, func(config action.ExecutorConfig) (action.Executor, error) {
		if deps.NATS == nil {
			return nil, fmt.Errorf("%w: %s requires a nats connection", action.ErrInvalidConfig, config.Type)
		}
		prefix := config.GetParameterString("subject_prefix", DefaultNotificationSubjectPrefix)
		return NewNATSNotifier(deps.NATS, prefix), nil
	})
}
