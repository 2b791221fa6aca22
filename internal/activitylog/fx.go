package activitylog

import (
	"github.com/smallbiznis/tiffinbill/internal/activitylog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activitylog.service",
	fx.Provide(service.New),
)
