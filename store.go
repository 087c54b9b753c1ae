package paygate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tachi-labs/paygate/rawdb"
	"github.com/tachi-labs/paygate/schema"
)

type Store struct {
	KVDb rawdb.KeyValueDB
}

func NewBoltStore(boltDirPath string) (*Store, error) {
	Db, err := rawdb.NewBoltDB(boltDirPath)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: Db}, nil
}

func NewRedisStore(addr, password string, db int) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	Db, err := rawdb.NewRedisDB(ctx, addr, password, db)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: Db}, nil
}

func NewMongoStore(uri string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	Db, err := rawdb.NewMongoDB(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: Db}, nil
}

// NewMemoryStore keeps state in process; only correct for a single gateway instance.
func NewMemoryStore(maxTTL time.Duration) (*Store, error) {
	Db, err := rawdb.NewMemoryDB(maxTTL)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: Db}, nil
}

// NewStoreFromConfig opens the backend named by kvBackend.
func NewStoreFromConfig(cfg schema.Config, maxTTL time.Duration) (*Store, error) {
	switch strings.ToLower(cfg.KVBackend) {
	case schema.KVRedis:
		return NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case schema.KVBolt:
		return NewBoltStore(cfg.BoltDir)
	case schema.KVMongo:
		return NewMongoStore(cfg.MongoUri)
	case schema.KVMemory, "":
		return NewMemoryStore(maxTTL)
	default:
		return nil, fmt.Errorf("unknown kv backend: %q", cfg.KVBackend)
	}
}

func (s *Store) Close() error {
	return s.KVDb.Close()
}

// IsProofUsed reports whether txHash has a live used-proof record.
func (s *Store) IsProofUsed(txHash string) (bool, error) {
	_, err := s.KVDb.Get(schema.UsedProofBucket, txHash)
	if errors.Is(err, schema.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkProofUsed records txHash for ttl; ok is false when a live record already existed.
func (s *Store) MarkProofUsed(txHash string, ttl time.Duration) (ok bool, err error) {
	val, err := json.Marshal(schema.UsedProof{TxHash: txHash, FirstUsedAt: time.Now().Unix()})
	if err != nil {
		return false, err
	}
	return s.KVDb.PutNX(schema.UsedProofBucket, txHash, val, ttl)
}

func (s *Store) LoadRateWindow(key string) (schema.RateWindow, error) {
	w := schema.RateWindow{}
	data, err := s.KVDb.Get(schema.RateLimitBucket, key)
	if errors.Is(err, schema.ErrNotExist) {
		return w, nil
	}
	if err != nil {
		return w, err
	}
	err = json.Unmarshal(data, &w)
	return w, err
}

func (s *Store) SaveRateWindow(key string, w schema.RateWindow, ttl time.Duration) error {
	val, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.KVDb.Put(schema.RateLimitBucket, key, val, ttl)
}
