package datasource

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/querylens/querylens-engine/pkg/models"
)

// DriverInfo describes a registered engine driver.
type DriverInfo struct {
	Engine      models.EngineKind `json:"engine"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description"`
}

// DriverRegistration contains info plus the factory for creating drivers.
type DriverRegistration struct {
	Info    DriverInfo
	Factory func(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (Driver, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.EngineKind]DriverRegistration)
)

// Register is called by each driver package's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg DriverRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Engine] = reg
}

// Open creates a driver for the descriptor's engine.
func Open(ctx context.Context, desc models.ConnectionDescriptor, logger *zap.Logger) (Driver, error) {
	registryMu.RLock()
	reg, ok := registry[desc.Engine]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no driver registered for engine %q", desc.Engine)
	}
	return reg.Factory(ctx, desc, logger)
}

// RegisteredDrivers returns info for all registered drivers.
func RegisteredDrivers() []DriverInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DriverInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// IsRegistered checks if a driver is available for an engine.
func IsRegistered(engine models.EngineKind) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[engine]
	return ok
}
