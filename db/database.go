package db

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize sets up the local database connection with WAL mode for concurrency
// and foreign keys enabled so interaction rows cascade with their client.
func Initialize(dbPath string, environment string) error {
	dsn := dbPath + "?_journal_mode=WAL&_foreign_keys=on"

	conn, err := gorm.Open(sqlite.Open(dsn), gormConfig(environment))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = conn
	log.Println("Database connection established (WAL mode enabled)")
	return nil
}

// InitializeRemote connects to a Turso (libSQL) database through gorm's sqlite dialector
func InitializeRemote(databaseURL, authToken, environment string) error {
	dsn := databaseURL
	if authToken != "" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn = dsn + sep + "authToken=" + authToken
	}

	sqlDB, err := sql.Open("libsql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open libsql connection: %w", err)
	}

	conn, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "libsql",
		Conn:       sqlDB,
	}), gormConfig(environment))
	if err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to connect to remote database: %w", err)
	}

	if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		log.Printf("[WARNING] Could not enable foreign keys on remote database: %v", err)
	}

	DB = conn
	log.Println("Database connection established (Turso/libSQL)")
	return nil
}

func gormConfig(environment string) *gorm.Config {
	// Determine log level based on environment
	logLevel := logger.Info
	if environment == "production" {
		logLevel = logger.Warn
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(models...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
