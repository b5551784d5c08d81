package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/exporta/internal/clock"
	"github.com/smallbiznis/exporta/internal/config"
	"github.com/smallbiznis/exporta/internal/migration"
	"github.com/smallbiznis/exporta/internal/observability"
	"github.com/smallbiznis/exporta/internal/server"
	"github.com/smallbiznis/exporta/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema first, routes after.
		migration.Module,
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
