package logstore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// AdapterInfo describes a registered dialect adapter.
type AdapterInfo struct {
	Driver      string // "postgres", "mssql"
	DisplayName string
	Description string
}

// Registration holds info plus the factory for creating executors.
type Registration struct {
	Info    AdapterInfo
	Factory func(ctx context.Context, cfg *Config, logger *zap.Logger) (Executor, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Driver] = reg
}

// RegisteredAdapters returns info for all registered adapters, for the
// validate command's output.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// Open creates an executor for the configured driver.
func Open(ctx context.Context, cfg *Config, logger *zap.Logger) (Executor, error) {
	registryMu.RLock()
	reg, ok := registry[cfg.Driver]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no log store adapter registered for driver %q", cfg.Driver)
	}
	return reg.Factory(ctx, cfg, logger)
}

// IsRegistered checks if an adapter driver is available.
func IsRegistered(driver string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[driver]
	return ok
}
