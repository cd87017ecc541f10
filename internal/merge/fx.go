package merge

import (
	"github.com/songsmith/songsmith/internal/merge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("merge.service",
	fx.Provide(service.NewService),
)
