// internal/driver/registry.go
package driver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/pkg/driver"
)

// DriverFactory creates a disconnected printer driver
type DriverFactory func(identity string, cfg model.PrinterConfig, logger *zap.Logger) (driver.PrinterDriver, error)

// InstanceKey identifies a live driver: one per identity and printer class
type InstanceKey struct {
	Identity string
	Class    model.PrinterClass
}

// Registry manages driver factories and the live driver instances built from them
type Registry struct {
	drivers   map[model.PrinterKind]DriverFactory
	instances map[InstanceKey]driver.PrinterDriver
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRegistry creates a new driver registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		drivers:   make(map[model.PrinterKind]DriverFactory),
		instances: make(map[InstanceKey]driver.PrinterDriver),
		logger:    logger,
	}
}

// Register registers a driver factory
func (r *Registry) Register(kind model.PrinterKind, factory DriverFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drivers[kind] = factory
	r.logger.Info("Driver registered",
		zap.String("kind", string(kind)),
		zap.String("class", string(kind.Class())),
	)
}

// IsSupported checks if a kind has a registered factory
func (r *Registry) IsSupported(kind model.PrinterKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.drivers[kind]
	return exists
}

// ListKinds returns all registered kinds, sorted
func (r *Registry) ListKinds() []model.PrinterKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]model.PrinterKind, 0, len(r.drivers))
	for kind := range r.drivers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Create returns the live driver for (identity, class), building it on first use.
// It never connects. The cached instance is returned unchanged even when cfg differs.
func (r *Registry) Create(identity string, class model.PrinterClass, cfg model.PrinterConfig) (driver.PrinterDriver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := InstanceKey{Identity: identity, Class: class}
	if instance, exists := r.instances[key]; exists {
		return instance, nil
	}

	if cfg.Kind.Class() != class {
		return nil, driver.NewConfigError(driver.KindInvalidRange, "kind",
			fmt.Sprintf("kind %q does not serve the %s class", cfg.Kind, class))
	}

	factory, exists := r.drivers[cfg.Kind]
	if !exists {
		return nil, driver.NewConfigError(driver.KindNotConfigured, "kind",
			fmt.Sprintf("no driver registered for kind %q", cfg.Kind))
	}

	instance, err := factory(identity, cfg, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver for %s: %w", cfg.Kind, identity, err)
	}

	r.instances[key] = instance
	r.logger.Info("Driver instance created",
		zap.String("printer_id", identity),
		zap.String("class", string(class)),
		zap.String("kind", string(cfg.Kind)),
	)
	return instance, nil
}

// Get returns the live driver for (identity, class), if any
func (r *Registry) Get(identity string, class model.PrinterClass) (driver.PrinterDriver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, exists := r.instances[InstanceKey{Identity: identity, Class: class}]
	return instance, exists
}

// Disconnect disconnects and forgets the driver for (identity, class).
// An absent instance is not an error.
func (r *Registry) Disconnect(ctx context.Context, identity string, class model.PrinterClass) error {
	r.mu.Lock()
	key := InstanceKey{Identity: identity, Class: class}
	instance, exists := r.instances[key]
	delete(r.instances, key)
	r.mu.Unlock()

	if !exists {
		return nil
	}
	if err := instance.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect %s/%s: %w", identity, class, err)
	}
	return nil
}

// DisconnectAll disconnects every live driver, logging failures, and clears the cache
func (r *Registry) DisconnectAll(ctx context.Context) {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[InstanceKey]driver.PrinterDriver)
	r.mu.Unlock()

	for key, instance := range instances {
		if err := instance.Disconnect(ctx); err != nil {
			r.logger.Warn("Failed to disconnect driver",
				zap.String("printer_id", key.Identity),
				zap.String("class", string(key.Class)),
				zap.Error(err),
			)
		}
	}
}

// Len returns the number of live drivers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
