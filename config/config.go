package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-co-op/gocron"
	"github.com/shopspring/decimal"
	"github.com/tachi-labs/paygate/schema"
)

// Config is the validated, immutable view of schema.Config plus the rate whitelist refreshed from wdb.
type Config struct {
	Raw schema.Config

	Origin             *url.URL
	PaymentToken       common.Address
	CollectionContract common.Address
	PublisherAddress   common.Address
	LedgerContract     common.Address
	SignerKey          *ecdsa.PrivateKey // nil disables ledger writes
	CrawlTokenId       *big.Int

	RateWindow    time.Duration
	ReuseWindow   time.Duration
	RpcTimeout    time.Duration
	OriginTimeout time.Duration
	LedgerTimeout time.Duration

	requirement schema.PaymentRequirement

	wdb         *Wdb
	scheduler   *gocron.Scheduler
	ipWhiteList map[string]struct{}
	lock        sync.RWMutex
}

func New(raw schema.Config, wdb *Wdb) (*Config, error) {
	raw = WithDefaults(raw)
	c := &Config{
		Raw:           raw,
		RateWindow:    time.Duration(raw.RateWindow) * time.Second,
		ReuseWindow:   time.Duration(raw.ReuseWindow) * time.Second,
		RpcTimeout:    time.Duration(raw.RpcTimeout) * time.Second,
		OriginTimeout: time.Duration(raw.OriginTimeout) * time.Second,
		LedgerTimeout: time.Duration(raw.LedgerTimeout) * time.Second,
		wdb:           wdb,
		scheduler:     gocron.NewScheduler(time.UTC),
		ipWhiteList:   make(map[string]struct{}),
	}

	origin, err := url.Parse(raw.OriginUrl)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid origin url: %q", raw.OriginUrl)
	}
	c.Origin = origin

	if c.PaymentToken, err = parseAddress("paymentToken", raw.PaymentToken); err != nil {
		return nil, err
	}
	if c.CollectionContract, err = parseAddress("collectionContract", raw.CollectionContract); err != nil {
		return nil, err
	}
	if c.PublisherAddress, err = parseAddress("publisherAddress", raw.PublisherAddress); err != nil {
		return nil, err
	}
	if raw.LedgerContract != "" {
		if c.LedgerContract, err = parseAddress("ledgerContract", raw.LedgerContract); err != nil {
			return nil, err
		}
	}
	if raw.SignerKey != "" {
		c.SignerKey, err = crypto.HexToECDSA(strings.TrimPrefix(raw.SignerKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid signer key: %w", err)
		}
	}

	tokenId, ok := new(big.Int).SetString(raw.CrawlTokenId, 10)
	if !ok || tokenId.Sign() < 0 {
		return nil, fmt.Errorf("invalid crawl token id: %q", raw.CrawlTokenId)
	}
	c.CrawlTokenId = tokenId

	amount, err := SmallestUnit(raw.Price, raw.TokenDecimals)
	if err != nil {
		return nil, err
	}
	c.requirement = schema.PaymentRequirement{
		Amount:             raw.Price,
		SmallestUnitAmount: amount,
		Currency:           raw.Currency,
		Network:            raw.Network,
		ChainId:            raw.ChainId,
		Recipient:          c.CollectionContract,
		TokenAddress:       c.PaymentToken,
		CrawlTokenId:       tokenId,
	}
	return c, nil
}

// WithDefaults fills every unset key; the result is what the gateway runs with.
func WithDefaults(raw schema.Config) schema.Config {
	if raw.Port == "" {
		raw.Port = ":8080"
	}
	if raw.Env == "" {
		raw.Env = schema.EnvProduction
	}
	if raw.MaxRequestSize <= 0 {
		raw.MaxRequestSize = schema.DefaultMaxRequestSize
	}
	if raw.RateLimit <= 0 {
		raw.RateLimit = schema.DefaultRateLimit
	}
	if raw.ApiRateLimit <= 0 {
		raw.ApiRateLimit = schema.DefaultApiRateLimit
	}
	if raw.DeployRateLimit <= 0 {
		raw.DeployRateLimit = schema.DefaultDeployRateLimit
	}
	if raw.RateWindow <= 0 {
		raw.RateWindow = int(schema.DefaultRateWindow / time.Second)
	}
	if raw.ClientIpHeader == "" {
		raw.ClientIpHeader = "CF-Connecting-IP"
	}
	if raw.OriginTimeout <= 0 {
		raw.OriginTimeout = 30
	}
	if raw.RpcTimeout <= 0 {
		raw.RpcTimeout = 15
	}
	if raw.RpcRetries < 0 {
		raw.RpcRetries = 0
	}
	if raw.ChainId == 0 {
		raw.ChainId = 8453
	}
	if raw.Network == "" {
		raw.Network = "Base"
	}
	if raw.Currency == "" {
		raw.Currency = "USDC"
	}
	if raw.TokenDecimals == 0 {
		raw.TokenDecimals = 6
	}
	if raw.CrawlTokenId == "" {
		raw.CrawlTokenId = "1"
	}
	if raw.Price == "" {
		raw.Price = "0.005"
	}
	if raw.ReuseWindow <= 0 {
		raw.ReuseWindow = int(schema.DefaultReuseWindow / time.Second)
	}
	if raw.KVBackend == "" {
		raw.KVBackend = schema.KVMemory
	}
	if raw.LoggerWorkers <= 0 {
		raw.LoggerWorkers = 32
	}
	if raw.LoggerQueue <= 0 {
		raw.LoggerQueue = 1024
	}
	if raw.LedgerTimeout <= 0 {
		raw.LedgerTimeout = 60
	}
	return raw
}

// SmallestUnit converts a human price into integer token units; fractional remainders are rejected.
func SmallestUnit(price string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("price must be positive: %q", price)
	}
	units := d.Mul(decimal.New(1, decimals))
	if !units.Equal(units.Truncate(0)) {
		return nil, fmt.Errorf("price %q has more than %d decimals", price, decimals)
	}
	return units.BigInt(), nil
}

func parseAddress(name, addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", name, addr)
	}
	return common.HexToAddress(addr), nil
}

func (c *Config) Requirement() schema.PaymentRequirement {
	return c.requirement
}

func (c *Config) IsProduction() bool {
	return c.Raw.Env == schema.EnvProduction
}

// RouteLimit maps a request path to its route class limit.
func (c *Config) RouteLimit(path string) (class string, limit int) {
	switch {
	case strings.HasPrefix(path, "/api/"):
		return schema.RouteApi, c.Raw.ApiRateLimit
	case strings.HasPrefix(path, "/deploy"), strings.HasPrefix(path, "/onboarding"):
		return schema.RouteDeploy, c.Raw.DeployRateLimit
	default:
		return schema.RouteGeneral, c.Raw.RateLimit
	}
}

// IsWhitelisted reports whether the resolved client ip skips rate limiting.
func (c *Config) IsWhitelisted(ip string) bool {
	if ip == "" {
		return false
	}
	c.lock.RLock()
	defer c.lock.RUnlock()
	_, ok := c.ipWhiteList[ip]
	return ok
}

func (c *Config) Run() {
	if c.wdb == nil {
		return
	}
	c.updateIPWhiteList()
	c.runJobs()
}

func (c *Config) Close() {
	c.scheduler.Stop()
}

var ErrNoSigner = errors.New("ledger signer not configured")

func (c *Config) LedgerEnabled() error {
	if c.SignerKey == nil || c.LedgerContract == (common.Address{}) {
		return ErrNoSigner
	}
	return nil
}
