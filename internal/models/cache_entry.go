package models

// CacheEntry is a single cached value persisted in the cache table.
// Key already carries the namespace prefix, Value holds ciphertext only.
type CacheEntry struct {
	Key        string `gorm:"column:key;primaryKey;size:255"`
	Value      string `gorm:"column:value;type:text;not null"`
	Expiration int64  `gorm:"column:expiration;not null;index"`
}
