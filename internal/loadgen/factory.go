package loadgen

import (
	"context"
	"fmt"
)

// NewExecutor returns an uninitialized executor for the given type.
// Call Init before Run.
func NewExecutor(typ Type) (Executor, error) {
	switch typ {
	case TypeBenchmark:
		return NewBenchmark(), nil
	case TypeTimed:
		return NewTimed(), nil
	}
	return nil, fmt.Errorf("unknown executor type %q", typ)
}

// CreateAndInitExecutor builds the executor for cfg.Type and runs its
// Init, which validates cfg.
func CreateAndInitExecutor(ctx context.Context, cfg *Config) (Executor, error) {
	exec, err := NewExecutor(cfg.Type)
	if err != nil {
		return nil, err
	}
	if err := exec.Init(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize executor: %w", err)
	}
	return exec, nil
}

// IsValidExecutorType reports whether s names a known executor.
func IsValidExecutorType(s string) bool {
	_, err := NewExecutor(Type(s))
	return err == nil
}
