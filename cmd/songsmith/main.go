package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/songsmith/songsmith/internal/clock"
	"github.com/songsmith/songsmith/internal/config"
	"github.com/songsmith/songsmith/internal/credit"
	"github.com/songsmith/songsmith/internal/gate"
	"github.com/songsmith/songsmith/internal/logger"
	"github.com/songsmith/songsmith/internal/merge"
	"github.com/songsmith/songsmith/internal/metrics"
	"github.com/songsmith/songsmith/internal/migration"
	"github.com/songsmith/songsmith/internal/server"
	"github.com/songsmith/songsmith/internal/song"
	"github.com/songsmith/songsmith/internal/usage"
	"github.com/songsmith/songsmith/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		// Functional domains
		usage.Module,
		credit.Module,
		song.Module,
		merge.Module,
		gate.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
