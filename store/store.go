package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

// Open connects to Postgres for postgres:// DSNs and to SQLite for file: DSNs (local dev).
func Open(dsn string, logg *logger.Logger) (*gorm.DB, error) {
	gormLog := gormLogger.New(
		gormWriter{log: logg.With("component", "gorm")},
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	case strings.HasPrefix(dsn, "file:"):
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", schemeOf(dsn))
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY under concurrent awards.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	logg.Info("database connected", "dialect", dialector.Name())
	return db, nil
}

// Migrate creates or updates the ledger schema and seeds the badge catalog.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Profile{},
		&models.XPLog{},
		&models.Progress{},
		&models.ChapterReview{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return SeedBadges(ctx, db)
}

// SeedBadges upserts the static badge catalog so names and icons follow code changes.
func SeedBadges(ctx context.Context, db *gorm.DB) error {
	badges := make([]models.Badge, len(models.BadgeCatalog))
	copy(badges, models.BadgeCatalog)
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "icon", "description", "rarity", "rule", "part"}),
	}).Create(&badges).Error
}

// gormWriter feeds gorm's formatted trace lines into the service logger.
type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	for _, a := range args {
		if _, ok := a.(error); ok {
			w.log.Error(msg)
			return
		}
	}
	w.log.Warn(msg)
}

func schemeOf(dsn string) string {
	if i := strings.Index(dsn, ":"); i > 0 {
		return dsn[:i]
	}
	return dsn
}
