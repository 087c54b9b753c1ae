package rawdb

import (
	"encoding/binary"
	"time"

	"github.com/tachi-labs/paygate/common"
)

var log = common.NewLog("rawdb")

// KeyValueDB is the shared state store. ttl <= 0 means the record never expires.
// Get must report schema.ErrNotExist for missing and expired records alike.
type KeyValueDB interface {
	Put(bucket, key string, value []byte, ttl time.Duration) (err error)

	// PutNX writes only when no live record exists and reports whether it wrote.
	PutNX(bucket, key string, value []byte, ttl time.Duration) (ok bool, err error)

	Get(bucket, key string) (data []byte, err error)

	Delete(bucket, key string) (err error)

	Close() (err error)

	Type() string

	Exist(bucket, key string) bool
}

// envelope layout: 8 bytes big-endian expiry in unix nanos (0 = never) followed by the value.
const envelopeHeader = 8

func wrap(value []byte, ttl time.Duration, now time.Time) []byte {
	buf := make([]byte, envelopeHeader+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf[:envelopeHeader], uint64(now.Add(ttl).UnixNano()))
	}
	copy(buf[envelopeHeader:], value)
	return buf
}

// unwrap returns the value and whether it is still live at now.
func unwrap(raw []byte, now time.Time) ([]byte, bool) {
	if len(raw) < envelopeHeader {
		return nil, false
	}
	exp := binary.BigEndian.Uint64(raw[:envelopeHeader])
	if exp != 0 && now.UnixNano() >= int64(exp) {
		return nil, false
	}
	value := make([]byte, len(raw)-envelopeHeader)
	copy(value, raw[envelopeHeader:])
	return value, true
}
