package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"manuscript-review-api/config"
)

// Migrator is implemented by stores that own a schema.
type Migrator interface {
	AutoMigrate() error
}

// Pinger is implemented by stores backed by a remote database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open builds the store selected by STORE_DRIVER. The mysql driver connects
// through config.OpenDB.
func Open() (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	switch driver {
	case "", "mysql":
		db, err := config.OpenDB()
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q (want mysql or memory)", driver)
}

// Ping checks the underlying connection pool.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
