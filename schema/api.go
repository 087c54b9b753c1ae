package schema

const (
	DefaultMaxRequestSize = 10 * 1024 * 1024 // 10 MB
	MaxUserAgentLen       = 512
	MaxAuthorizationLen   = 256
	MaxOriginLen          = 512
	MaxRefererLen         = 512

	BearerPrefix = "Bearer "
)

// response headers
const (
	HeaderPrice    = "x402-price"
	HeaderCurrency = "x402-currency"
	HeaderNetwork  = "x402-network"
	HeaderRecip    = "x402-recipient"
	HeaderContract = "x402-contract"
	HeaderChainId  = "x402-chain-id"
	HeaderTokenId  = "x402-token-id"

	HeaderCrawlerVerified = "X-Crawler-Verified"
	HeaderPaymentHash     = "X-Payment-Hash"
	HeaderRateLimit       = "X-RateLimit-Limit"
	HeaderRateRemaining   = "X-RateLimit-Remaining"
	HeaderRateReset       = "X-RateLimit-Reset"
	HeaderRetryAfter      = "Retry-After"
)

type SanitizedHeaders struct {
	UserAgent     string
	Authorization string
	Origin        string
	Referer       string
}

type RespPayment struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Network      string `json:"network"`
	ChainId      int64  `json:"chainId"`
	Recipient    string `json:"recipient"`
	TokenAddress string `json:"tokenAddress"`
	TokenId      string `json:"tokenId"`
}

type RespPaymentRequired struct {
	Err          string      `json:"error"`
	Message      string      `json:"message"`
	Payment      RespPayment `json:"payment"`
	Instructions []string    `json:"instructions"`
}

type RespErr struct {
	Err     string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (r RespErr) Error() string {
	return r.Err
}

type RespHealth struct {
	Status  string `json:"status"`
	Network string `json:"network"`
	ChainId int64  `json:"chainId"`
}
