package dbmysql

import (
	"fmt"
	"strings"
	"time"

	"gosocialmsg/internal/config"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AutoMaintainRange lists every table owned by the messaging service
var AutoMaintainRange = []any{
	&Member{},
	&MessageType{},
	&Message{},
	&MessageSendList{},
}

// NewMySQL returns a GORM DB instance connected to MySQL
func NewMySQL(cnf *config.Config) (*gorm.DB, error) {
	dsn := cnf.DSN()
	if cnf.Database.Username == "" || cnf.Database.DatabaseName == "" {
		return nil, fmt.Errorf("mysql username and database name are required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:      NewGormLogger(cnf.Logging.Level),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB error: %w", err)
	}
	sqlDB.SetMaxOpenConns(cnf.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cnf.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if cnf.Database.AutoMigrate {
		if err := RunMigration(db); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("host", cnf.Database.Host).
		Str("database", cnf.Database.DatabaseName).
		Msg("Connected to MySQL successfully")

	return db, nil
}

// RunMigration creates or updates the messaging tables and seeds the default message type.
func RunMigration(db *gorm.DB) error {
	if err := db.AutoMigrate(AutoMaintainRange...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return SeedMessageTypes(db, DefaultMessageType)
}

// SeedMessageTypes makes sure each named type has a lookup row.
func SeedMessageTypes(db *gorm.DB, names ...string) error {
	for _, name := range names {
		var messageType MessageType
		if err := db.Where(MessageType{TypeName: name}).FirstOrCreate(&messageType).Error; err != nil {
			return fmt.Errorf("failed to seed message type %q: %w", name, err)
		}
	}
	return nil
}

// NewGormLogger routes gorm's SQL log through zerolog.
func NewGormLogger(level string) logger.Interface {
	return logger.New(&log.Logger, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogLevel(level),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent", "disabled":
		return logger.Silent
	default:
		return logger.Warn
	}
}
