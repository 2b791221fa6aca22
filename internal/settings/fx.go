package settings

import (
	"github.com/smallbiznis/tiffinbill/internal/settings/repository"
	"github.com/smallbiznis/tiffinbill/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewDefaultsHolder),
	fx.Provide(service.New),
)
