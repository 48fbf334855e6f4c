package database

import (
	"errors"
	"fmt"
	"strings"

	"retail-backend/internal/config"
	"retail-backend/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects with the configured driver and brings the schema up to date.
func Open(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if cfg.DatabaseDriver == config.DriverSQLite {
		// SQLite allows one writer; a single connection serializes transactions instead of
		// failing them with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("database connected, migration complete", zap.String("driver", cfg.DatabaseDriver))
	return db, nil
}

// Migrate creates or updates every table plus the indexes AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Account{},
		&models.Store{},
		&models.StoreStaff{},
		&models.InventoryItem{},
		&models.Sale{},
		&models.SaleLine{},
		&models.JoinRequest{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}

	// One pending request per (staff, store). Partial indexes work on both Postgres and SQLite.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_join_requests_pending
		ON join_requests (staff_id, store_id) WHERE status = 'pending'`).Error; err != nil {
		return fmt.Errorf("could not create pending join request index: %w", err)
	}

	return nil
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds a lower-cased LIKE pattern matching s anywhere. Use it with
// LOWER(column) LIKE ? ESCAPE '\'.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
