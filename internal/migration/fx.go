package migration

import (
	"github.com/songsmith/songsmith/internal/config"
	creditdomain "github.com/songsmith/songsmith/internal/credit/domain"
	songdomain "github.com/songsmith/songsmith/internal/song/domain"
	usagedomain "github.com/songsmith/songsmith/internal/usage/domain"
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

		// Non-postgres modes are for local development; the model tags carry
		// the same indexes the SQL migrations create.
		return conn.AutoMigrate(
			&usagedomain.UsageRecord{},
			&creditdomain.CreditTransaction{},
			&songdomain.Song{},
		)
	}),
)
