package infra

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/presale/infra/repository"
	"github.com/amirasaad/presale/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDBConnection opens the configured database. Development environments
// log SQL statements; AutoMigrate creates the presale tables when enabled.
func NewDBConnection(
	cnf *config.DB,
	appEnv string,
) (*gorm.DB, error) {
	if cnf == nil || cnf.Url == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	var logMode logger.LogLevel
	if appEnv == "development" {
		logMode = logger.Info
	} else {
		logMode = logger.Silent
	}

	var dialector gorm.Dialector
	switch cnf.Driver {
	case "sqlite":
		dialector = sqlite.Open(cnf.Url)
	case "", "postgres":
		dialector = postgres.Open(cnf.Url)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cnf.Driver)
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	maxConns := cnf.MaxConns
	if maxConns <= 0 {
		maxConns = 25
	}
	lifetime := time.Hour
	if cnf.Driver == "sqlite" {
		// A single long-lived connection keeps ":memory:" databases alive
		// and avoids SQLITE_BUSY between writers.
		maxConns, lifetime = 1, 0
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(lifetime)

	if cnf.AutoMigrate {
		if err := connection.AutoMigrate(repository.Models()...); err != nil {
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return connection, nil
}
