package injector

import (
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/core/engine"
	"github.com/zeusync/engine/internal/core/observability/log"
)

var ProviderSet = wire.NewSet(ProvideConfig, ProvideLogger, engine.New)

// ProvideConfig loads path, or returns the defaults when path is empty.
func ProvideConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// ProvideLogger builds the zap logger described by cfg. The cleanup flushes
// buffered entries.
func ProvideLogger(cfg *config.Config) (log.Log, func(), error) {
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.NewFromConfig(level, cfg.Logging.Encoding)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}
