package rawdb

import (
	"errors"
	"os"
	"path"
	"time"

	"github.com/tachi-labs/paygate/schema"
	bolt "go.etcd.io/bbolt"
)

const (
	boltAllocSize = 8 * 1024 * 1024
	boltName      = "paygate.db"
	BoltType      = "boltdb"
)

type BoltDB struct {
	Db *bolt.DB
}

func NewBoltDB(boltDirPath string) (*BoltDB, error) {
	if len(boltDirPath) == 0 {
		return nil, errors.New("boltDb dir path can not null")
	}
	if err := os.MkdirAll(boltDirPath, os.ModePerm); err != nil {
		return nil, err
	}

	Db, err := bolt.Open(path.Join(boltDirPath, boltName), 0660, &bolt.Options{Timeout: 2 * time.Second, InitialMmapSize: 10e6})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	Db.AllocSize = boltAllocSize
	boltDB := &BoltDB{
		Db: Db,
	}
	if err := boltDB.Db.Update(func(tx *bolt.Tx) error {
		bucketNames := []string{
			schema.UsedProofBucket,
			schema.RateLimitBucket,
		}
		return createBuckets(tx, bucketNames)
	}); err != nil {
		return nil, err
	}
	return boltDB, nil
}

func (s *BoltDB) Type() string {
	return BoltType
}

func (s *BoltDB) Put(bucket, key string, value []byte, ttl time.Duration) (err error) {
	err = s.Db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return bkt.Put([]byte(key), wrap(value, ttl, time.Now()))
	})
	return
}

func (s *BoltDB) PutNX(bucket, key string, value []byte, ttl time.Duration) (ok bool, err error) {
	err = s.Db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		now := time.Now()
		if raw := bkt.Get([]byte(key)); raw != nil {
			if _, live := unwrap(raw, now); live {
				return nil
			}
		}
		ok = true
		return bkt.Put([]byte(key), wrap(value, ttl, now))
	})
	return
}

func (s *BoltDB) Get(bucket, key string) (data []byte, err error) {
	err = s.Db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return schema.ErrNotExist
		}
		raw := bkt.Get([]byte(key))
		if raw == nil {
			return schema.ErrNotExist
		}
		value, live := unwrap(raw, time.Now())
		if !live {
			return schema.ErrNotExist
		}
		data = value
		return nil
	})
	return
}

func (s *BoltDB) Delete(bucket, key string) (err error) {
	err = s.Db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return nil
		}
		return bkt.Delete([]byte(key))
	})
	return
}

func (s *BoltDB) Exist(bucket, key string) bool {
	_, err := s.Get(bucket, key)
	return err == nil
}

// PruneExpired drops expired records of bucket; bolt has no native expiry.
func (s *BoltDB) PruneExpired(bucket string) (n int, err error) {
	now := time.Now()
	err = s.Db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucket))
		if bkt == nil {
			return nil
		}
		expired := make([][]byte, 0)
		if err := bkt.ForEach(func(k, v []byte) error {
			if _, live := unwrap(v, now); !live {
				expired = append(expired, append([]byte{}, k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range expired {
			if err := bkt.Delete(k); err != nil {
				return err
			}
		}
		n = len(expired)
		return nil
	})
	return
}

func (s *BoltDB) Close() (err error) {
	return s.Db.Close()
}

func createBuckets(tx *bolt.Tx, buckets []string) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
			return err
		}
	}
	return nil
}
