package action

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ExecutorFactory is a function that creates an executor from a configuration.
type ExecutorFactory func(config ExecutorConfig) (Executor, error)

var (
	factoriesMu sync.RWMutex
	// factories stores registered executor factories by type
	factories = make(map[string]ExecutorFactory)
)

// RegisterExecutorType registers a factory function for an executor type.
// This allows the builtin package to register its executors without creating import cycles.
func RegisterExecutorType(executorType string, factory ExecutorFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[executorType] = factory
	logrus.Debugf("registered executor type: %s", executorType)
}

// CreateExecutor creates an executor instance based on the configuration.
// Returns ErrExecutorDisabled for disabled configurations.
func CreateExecutor(config ExecutorConfig) (Executor, error) {
	if !config.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrExecutorDisabled, config.Type)
	}

	factoriesMu.RLock()
	factory, exists := factories[config.Type]
	factoriesMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: unknown executor type %q", ErrInvalidConfig, config.Type)
	}

	logrus.Infof("creating executor: type=%s", config.Type)
	return factory(config)
}

// RegisterExecutors creates executors from configs and registers them with the
// registry. Disabled configurations are skipped; any other error aborts.
func RegisterExecutors(registry *Registry, configs []ExecutorConfig) error {
	count := 0
	for _, config := range configs {
		if !config.Enabled {
			logrus.Infof("skipping disabled executor: %s", config.Type)
			continue
		}

		exec, err := CreateExecutor(config)
		if err != nil {
			return fmt.Errorf("failed to create executor %s: %w", config.Type, err)
		}
		if err := registry.Register(exec); err != nil {
			return fmt.Errorf("failed to register executor %s: %w", config.Type, err)
		}
		count++
	}

	logrus.Infof("registered %d executors", count)
	return nil
}
