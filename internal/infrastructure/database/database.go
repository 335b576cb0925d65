package database

import (
	"time"

	"ppm-backend/internal/domain"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SlowQuery is the threshold above which GORM logs a statement.
const SlowQuery = 200 * time.Millisecond

// Open opens Postgres from DSN. PreferSimpleProtocol disables prepared
// statement caching to avoid 42P05 behind poolers such as PgBouncer.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: NewLogger(log.Logger)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// NewLogger routes GORM's logger through zerolog. Record-not-found is routine
// for lookups and is not logged.
func NewLogger(zl zerolog.Logger) logger.Interface {
	level := logger.Warn
	if zl.GetLevel() <= zerolog.DebugLevel {
		level = logger.Info
	}
	return logger.New(zerologWriter{zl}, logger.Config{
		SlowThreshold:             SlowQuery,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

type zerologWriter struct{ zl zerolog.Logger }

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.zl.Warn().Str("component", "gorm").Msgf(format, args...)
}

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.ResourcePool{},
		&domain.Project{},
		&domain.ResourceRequirement{},
		&domain.PhysicalResource{},
		&domain.Booking{},
		&domain.ReplacementRecord{},
		&domain.ResourceEvent{},
	}
}

// AutoMigrate creates or updates the schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
