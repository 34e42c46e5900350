package services

import (
	"os"

	"gorm.io/gorm"
)

// Store is satisfied by both storage services so domain services stay
// driver-agnostic.
type Store interface {
	Db() *gorm.DB
	HandleError(err error) error
}

// resolveStore picks the active storage backend: Postgres when configured,
// SQLite otherwise. Callers hand in both looked-up services.
func resolveStore(pg, lite interface{}) Store {
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_DRIVER") == "postgres" {
		return pg.(*PostgresService)
	}
	return lite.(*SqliteService)
}
