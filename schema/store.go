package schema

import "time"

var (
	// bucket
	UsedProofBucket = "used-proof-bucket" // key: txHash, val: UsedProof
	RateLimitBucket = "rate-limit-bucket" // key: clientIp:path, val: RateWindow
)

const (
	DefaultReuseWindow = time.Hour
)

type UsedProof struct {
	TxHash      string `json:"txHash"`
	FirstUsedAt int64  `json:"firstUsedAt"` // unix seconds
}
