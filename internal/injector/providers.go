// Package injector wires the runtime services a rigsmith command needs.
package injector

import (
	"github.com/zeusync/rigsmith/internal/config"
	"github.com/zeusync/rigsmith/internal/core/events/bus"
	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/parts"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/internal/core/widget"
	"github.com/zeusync/rigsmith/internal/store"
)

// Runtime holds the services shared by one command invocation.
type Runtime struct {
	Config   config.Config
	Logger   *log.Logger
	Events   bus.EventBus
	Backend  *scene.Memory
	Registry *widget.Registry
	// Store is nil when no store path is configured.
	Store *store.Store
}

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	return cfg.Logger()
}

// ProvideEventBus returns a bus with a logging observer attached. The
// observer also turns on delivery metrics.
func ProvideEventBus(logger log.Log) (bus.EventBus, func()) {
	events := bus.New()
	obs := bus.NewLogObserver(logger)
	events.AddObserver(obs)
	return events, func() { events.RemoveObserver(obs) }
}

func ProvideBackend(events bus.EventBus, logger log.Log) *scene.Memory {
	return scene.NewMemory(scene.WithEventBus(events), scene.WithLogger(logger))
}

func ProvideRegistry() (*widget.Registry, error) {
	return parts.NewRegistry()
}

// ProvideStore opens the diff store named by the config, if any.
func ProvideStore(cfg config.Config, logger log.Log) (*store.Store, func(), error) {
	if cfg.StorePath == "" {
		return nil, func() {}, nil
	}
	s, err := store.Open(cfg.StorePath, store.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			logger.Error("close diff store", log.Error(err))
		}
	}, nil
}
