package credit

import (
	"github.com/songsmith/songsmith/internal/credit/repository"
	"github.com/songsmith/songsmith/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
