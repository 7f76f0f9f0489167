//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/rigsmith/internal/config"
	"github.com/zeusync/rigsmith/internal/core/observability/log"
)

func InitializeRuntime(cfg config.Config) (*Runtime, func(), error) {
	wire.Build(
		ProvideLogger,
		wire.Bind(new(log.Log), new(*log.Logger)),
		ProvideEventBus,
		ProvideBackend,
		ProvideRegistry,
		ProvideStore,
		wire.Struct(new(Runtime), "*"),
	)
	return nil, nil, nil
}
