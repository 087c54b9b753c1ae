package cache

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

// proof and rate window records are small json blobs
const maxEntrySize = 1024

type BigCache struct {
	c *bigcache.BigCache
}

func NewBigCache(life time.Duration) (*BigCache, error) {
	cfg := bigcache.DefaultConfig(life)
	cfg.MaxEntrySize = maxEntrySize
	cfg.CleanWindow = cleanWindow(life)
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &BigCache{c: c}, nil
}

func cleanWindow(life time.Duration) time.Duration {
	w := life / 4
	if w < time.Second {
		w = time.Second
	}
	if w > time.Minute {
		w = time.Minute
	}
	return w
}

func (s *BigCache) Set(key string, entry []byte) error {
	return s.c.Set(key, entry)
}

func (s *BigCache) Get(key string) ([]byte, error) {
	data, err := s.c.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// Delete of a missing key is not an error.
func (s *BigCache) Delete(key string) error {
	err := s.c.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *BigCache) Len() int {
	return s.c.Len()
}

func (s *BigCache) Close() error {
	return s.c.Close()
}
