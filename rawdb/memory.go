package rawdb

import (
	"errors"
	"sync"
	"time"

	"github.com/tachi-labs/paygate/cache"
	"github.com/tachi-labs/paygate/schema"
)

const MemoryType = "memory"

// MemoryDB keeps records in a process-local bigcache. It does not share state between instances and is
// meant for a single gateway process or tests.
type MemoryDB struct {
	c    *cache.Cache
	lock sync.Mutex // serialises PutNX check-and-set
}

// NewMemoryDB evicts every entry after maxTTL regardless of its own ttl, so maxTTL must cover the
// longest ttl written (the proof reuse window).
func NewMemoryDB(maxTTL time.Duration) (*MemoryDB, error) {
	c, err := cache.NewLocalCache(maxTTL)
	if err != nil {
		return nil, err
	}
	return &MemoryDB{c: c}, nil
}

func memKey(bucket, key string) string {
	return bucket + "/" + key
}

func (s *MemoryDB) Type() string {
	return MemoryType
}

func (s *MemoryDB) Put(bucket, key string, value []byte, ttl time.Duration) error {
	return s.c.Cache.Set(memKey(bucket, key), wrap(value, ttl, time.Now()))
}

func (s *MemoryDB) PutNX(bucket, key string, value []byte, ttl time.Duration) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := time.Now()
	raw, err := s.c.Cache.Get(memKey(bucket, key))
	if err == nil {
		if _, live := unwrap(raw, now); live {
			return false, nil
		}
	} else if !errors.Is(err, cache.ErrNotFound) {
		return false, err
	}
	return true, s.c.Cache.Set(memKey(bucket, key), wrap(value, ttl, now))
}

func (s *MemoryDB) Get(bucket, key string) ([]byte, error) {
	raw, err := s.c.Cache.Get(memKey(bucket, key))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, schema.ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	value, live := unwrap(raw, time.Now())
	if !live {
		return nil, schema.ErrNotExist
	}
	return value, nil
}

func (s *MemoryDB) Delete(bucket, key string) error {
	return s.c.Cache.Delete(memKey(bucket, key))
}

func (s *MemoryDB) Exist(bucket, key string) bool {
	_, err := s.Get(bucket, key)
	return err == nil
}

// Len counts raw entries, expired records stay until bigcache evicts them.
func (s *MemoryDB) Len() int {
	return s.c.Cache.Len()
}

func (s *MemoryDB) Close() error {
	return s.c.Cache.Close()
}
