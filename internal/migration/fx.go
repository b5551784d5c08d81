package migration

import (
	calculationdomain "github.com/smallbiznis/exporta/internal/calculation/domain"
	"github.com/smallbiznis/exporta/internal/config"
	"github.com/smallbiznis/exporta/internal/seed"
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
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql deployments lean on gorm's schema sync,
			// the versioned SQL targets postgres only.
			if err := conn.AutoMigrate(
				&seed.User{},
				&calculationdomain.CalculationRecord{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultOwner(conn, cfg.DefaultOwnerID)
	}),
)
