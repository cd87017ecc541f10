package usage

import (
	"github.com/songsmith/songsmith/internal/usage/repository"
	"github.com/songsmith/songsmith/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
