package sheet

import (
	"github.com/smallbiznis/tiffinbill/internal/sheet/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("sheet.store",
	fx.Provide(repository.Provide),
)
