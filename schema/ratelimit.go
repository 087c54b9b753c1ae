package schema

import "time"

const (
	RouteGeneral = "general"
	RouteApi     = "api"
	RouteDeploy  = "deploy"

	DefaultRateLimit       = 100
	DefaultApiRateLimit    = 60
	DefaultDeployRateLimit = 10
	DefaultRateWindow      = time.Minute
)

type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateWindow is the fallback limiter record: recent request times in unix millis, oldest first.
type RateWindow struct {
	Timestamps []int64 `json:"timestamps"`
}
