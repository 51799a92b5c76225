package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/dbcache/internal/models"
)

// MigrateCache creates or updates the cache table named table.
func MigrateCache(db *gorm.DB, table string) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errors.New("cache table name is required")
	}
	if err := db.Table(table).AutoMigrate(&models.CacheEntry{}); err != nil {
		return fmt.Errorf("auto migrate %s: %w", table, err)
	}
	return nil
}
