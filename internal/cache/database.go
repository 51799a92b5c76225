package cache

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/dbcache/internal/models"
)

// DefaultTable is the table used when no name is configured.
const DefaultTable = "cache"

var (
	keyColumn        = clause.Column{Name: "key"}
	expirationColumn = clause.Column{Name: "expiration"}
)

// DatabaseRows implements RowStore and Sweeper on a SQL table through GORM.
type DatabaseRows struct {
	db    *gorm.DB
	table string
}

var (
	_ RowStore = (*DatabaseRows)(nil)
	_ Sweeper  = (*DatabaseRows)(nil)
)

// NewDatabaseRows constructs a database-backed row store on table.
func NewDatabaseRows(db *gorm.DB, table string) (*DatabaseRows, error) {
	if db == nil {
		return nil, errors.New("cache: database handle is required")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}
	return &DatabaseRows{db: db, table: table}, nil
}

// Table returns the backing table name.
func (s *DatabaseRows) Table() string { return s.table }

// SelectWhereKeyIn loads the rows whose key is in keys.
func (s *DatabaseRows) SelectWhereKeyIn(ctx context.Context, keys []string) ([]models.CacheEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var rows []models.CacheEntry
	err := s.query(ctx).
		Where(clause.IN{Column: keyColumn, Values: toValues(keys)}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert adds rows in a single statement.
func (s *DatabaseRows) Insert(ctx context.Context, rows []models.CacheEntry) error {
	if len(rows) == 0 {
		return nil
	}

	err := s.query(ctx).Create(&rows).Error
	if isDuplicateKey(err) {
		keys := make([]string, 0, len(rows))
		for _, row := range rows {
			keys = append(keys, row.Key)
		}
		return &ConstraintError{Keys: keys, Err: err}
	}
	return err
}

// DeleteWhereKeyIn removes the rows whose key is in keys.
func (s *DatabaseRows) DeleteWhereKeyIn(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	return s.query(ctx).
		Where(clause.IN{Column: keyColumn, Values: toValues(keys)}).
		Delete(&models.CacheEntry{}).Error
}

// DeleteExpired removes rows under prefix with expiration <= now.
func (s *DatabaseRows) DeleteExpired(ctx context.Context, prefix string, now int64) (int64, error) {
	result := s.withPrefix(s.query(ctx), prefix).
		Where(clause.Lte{Column: expirationColumn, Value: now}).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

// DeletePrefix removes every row under prefix. An empty prefix empties the table.
func (s *DatabaseRows) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	tx := s.query(ctx)
	if prefix == "" {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	result := s.withPrefix(tx, prefix).Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (s *DatabaseRows) query(ctx context.Context) *gorm.DB {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx).Table(s.table)
}

func (s *DatabaseRows) withPrefix(tx *gorm.DB, prefix string) *gorm.DB {
	if prefix == "" {
		return tx
	}
	return tx.Where(clause.Expr{
		SQL:  "? LIKE ? ESCAPE '!'",
		Vars: []interface{}{keyColumn, escapeLike(prefix) + "%"},
	})
}

func escapeLike(value string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(value)
}

func toValues(keys []string) []interface{} {
	values := make([]interface{}, len(keys))
	for i, key := range keys {
		values[i] = key
	}
	return values
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
