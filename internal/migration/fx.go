package migration

import (
	activitydomain "github.com/smallbiznis/tiffinbill/internal/activitylog/domain"
	"github.com/smallbiznis/tiffinbill/internal/config"
	settingsrepo "github.com/smallbiznis/tiffinbill/internal/settings/repository"
	sheetrepo "github.com/smallbiznis/tiffinbill/internal/sheet/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// sqlite has no versioned migration path; the schema is small enough
		// to let gorm materialize it directly.
		return conn.AutoMigrate(
			&settingsrepo.Property{},
			&sheetrepo.SheetRow{},
			&activitydomain.Entry{},
		)
	}),
)
