package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// databaseDSN builds the MySQL DSN from DB_* variables.
func databaseDSN() string {
	cfg := gomysql.NewConfig()
	cfg.User = os.Getenv("DB_USERNAME")
	cfg.Passwd = os.Getenv("DB_PASSWORD")
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(EnvOrDefault("DB_HOST", "127.0.0.1"), EnvOrDefault("DB_PORT", "3306"))
	cfg.DBName = os.Getenv("DB_DATABASE")
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func gormLogLevel() logger.LogLevel {
	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	debugSQL := strings.ToLower(os.Getenv("DEBUG_SQL"))

	// Production keeps SQL quiet unless DEBUG_SQL=true.
	if environment == "production" && debugSQL != "true" {
		return logger.Warn
	}
	return logger.Info
}

// OpenDB connects to MySQL, sizes the pool and stores the handle in DB.
func OpenDB() (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseDSN()), &gorm.Config{
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			logger.Config{LogLevel: gormLogLevel(), SlowThreshold: 500 * time.Millisecond},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(envInt("DB_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(envInt("DB_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(time.Duration(envInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute)

	DB = db
	log.Println("Database connected successfully")
	return db, nil
}
