//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/engine/internal/core/engine"
	"github.com/zeusync/engine/internal/core/render"
)

func InitializeGame(configPath string, renderer render.Renderer) (*engine.Game, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
