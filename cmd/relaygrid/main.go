package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/clock"
	"github.com/smallbiznis/relaygrid/internal/config"
	"github.com/smallbiznis/relaygrid/internal/extension/categoryblock"
	"github.com/smallbiznis/relaygrid/internal/logger"
	"github.com/smallbiznis/relaygrid/internal/metrics"
	"github.com/smallbiznis/relaygrid/internal/migration"
	"github.com/smallbiznis/relaygrid/internal/server"
	"github.com/smallbiznis/relaygrid/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,
		server.Module,
		categoryblock.Module,
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
