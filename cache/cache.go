package cache

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache_entry_not_found")

// Cache is the process-local backing for rawdb.MemoryDB.
type Cache struct {
	Cache ICache
}

type ICache interface {
	Set(key string, entry []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Len() int
	Close() error
}

// NewLocalCache evicts every entry once it is older than life.
func NewLocalCache(life time.Duration) (*Cache, error) {
	c, err := NewBigCache(life)
	if err != nil {
		return nil, err
	}
	return &Cache{Cache: c}, nil
}
