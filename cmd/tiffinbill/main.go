package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tiffinbill/internal/activitylog"
	"github.com/smallbiznis/tiffinbill/internal/billing"
	"github.com/smallbiznis/tiffinbill/internal/clock"
	"github.com/smallbiznis/tiffinbill/internal/config"
	"github.com/smallbiznis/tiffinbill/internal/delivery"
	"github.com/smallbiznis/tiffinbill/internal/metrics"
	"github.com/smallbiznis/tiffinbill/internal/migration"
	"github.com/smallbiznis/tiffinbill/internal/ratelimit"
	"github.com/smallbiznis/tiffinbill/internal/server"
	"github.com/smallbiznis/tiffinbill/internal/settings"
	"github.com/smallbiznis/tiffinbill/internal/sheet"
	"github.com/smallbiznis/tiffinbill/pkg/db"
	"github.com/smallbiznis/tiffinbill/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// core infrastructure
		config.Module,
		log.Module,
		db.Module,
		clock.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),

		// functional domains
		settings.Module,
		sheet.Module,
		delivery.Module,
		activitylog.Module,
		billing.Module,
		ratelimit.Module,

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
