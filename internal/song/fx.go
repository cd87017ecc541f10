package song

import (
	"github.com/songsmith/songsmith/internal/song/repository"
	"github.com/songsmith/songsmith/internal/song/service"
	"go.uber.org/fx"
)

var Module = fx.Module("song.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
