package config

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tachi-labs/paygate/schema"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testRaw() schema.Config {
	return schema.Config{
		OriginUrl:          "https://blog.example.com",
		PaymentToken:       "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		CollectionContract: "0x5555555555555555555555555555555555555555",
		PublisherAddress:   "0x6666666666666666666666666666666666666666",
	}
}

func TestSmallestUnit(t *testing.T) {
	cases := map[string]int64{
		"0.005":    5000,
		"1":        1000000,
		"1.5":      1500000,
		"0.000001": 1,
	}
	for price, want := range cases {
		got, err := SmallestUnit(price, 6)
		require.NoError(t, err, price)
		assert.Equal(t, want, got.Int64(), price)
	}

	for _, bad := range []string{"", "abc", "0", "-1", "0.0000001"} {
		_, err := SmallestUnit(bad, 6)
		assert.Error(t, err, bad)
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(testRaw(), nil)
	require.NoError(t, err)

	req := c.Requirement()
	assert.Equal(t, "0.005", req.Amount)
	assert.Equal(t, int64(5000), req.SmallestUnitAmount.Int64())
	assert.Equal(t, "USDC", req.Currency)
	assert.Equal(t, "Base", req.Network)
	assert.Equal(t, int64(8453), req.ChainId)
	assert.Equal(t, "0x5555555555555555555555555555555555555555", req.Recipient.Hex())
	assert.Equal(t, int64(1), req.CrawlTokenId.Int64())

	assert.True(t, c.IsProduction())
	assert.Equal(t, ":8080", c.Raw.Port)
	assert.Equal(t, int64(schema.DefaultMaxRequestSize), c.Raw.MaxRequestSize)
	assert.Equal(t, schema.DefaultRateWindow, c.RateWindow)
	assert.Equal(t, schema.DefaultReuseWindow, c.ReuseWindow)
	assert.ErrorIs(t, c.LedgerEnabled(), ErrNoSigner)
}

func TestNew_Invalid(t *testing.T) {
	mutations := map[string]func(*schema.Config){
		"origin":    func(r *schema.Config) { r.OriginUrl = "not a url" },
		"token":     func(r *schema.Config) { r.PaymentToken = "0x12" },
		"recipient": func(r *schema.Config) { r.CollectionContract = "" },
		"publisher": func(r *schema.Config) { r.PublisherAddress = "publisher" },
		"ledger":    func(r *schema.Config) { r.LedgerContract = "0xzz" },
		"signer":    func(r *schema.Config) { r.SignerKey = "0x1234" },
		"token id":  func(r *schema.Config) { r.CrawlTokenId = "-1" },
		"price":     func(r *schema.Config) { r.Price = "free" },
	}
	for name, mutate := range mutations {
		raw := testRaw()
		mutate(&raw)
		_, err := New(raw, nil)
		assert.Error(t, err, name)
	}
}

func TestRouteLimit(t *testing.T) {
	c, err := New(testRaw(), nil)
	require.NoError(t, err)

	class, limit := c.RouteLimit("/api/v1/posts")
	assert.Equal(t, schema.RouteApi, class)
	assert.Equal(t, 60, limit)

	class, limit = c.RouteLimit("/deploy")
	assert.Equal(t, schema.RouteDeploy, class)
	assert.Equal(t, 10, limit)

	class, limit = c.RouteLimit("/onboarding/step-1")
	assert.Equal(t, schema.RouteDeploy, class)
	assert.Equal(t, 10, limit)

	class, limit = c.RouteLimit("/blog/post")
	assert.Equal(t, schema.RouteGeneral, class)
	assert.Equal(t, 100, limit)
}

func TestIPWhiteList(t *testing.T) {
	c, err := New(testRaw(), nil)
	require.NoError(t, err)
	assert.False(t, c.IsWhitelisted("1.2.3.4"))

	c.ipWhiteList = map[string]struct{}{"1.2.3.4": {}}
	assert.True(t, c.IsWhitelisted("1.2.3.4"))
	assert.False(t, c.IsWhitelisted("9.9.9.9"))
	assert.False(t, c.IsWhitelisted(""))
}

func TestWhiteListFromWdb(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(path.Join(t.TempDir(), "config.sqlite")), &gorm.Config{})
	require.NoError(t, err)
	wdb := NewWdb(db)
	require.NoError(t, wdb.Migrate())
	require.NoError(t, wdb.AddIpRateWhitelist("10.1.1.1"))
	require.NoError(t, db.Create(&schema.RateWhitelist{IP: "10.2.2.2", Available: false}).Error)
	require.NoError(t, wdb.AddIpRateWhitelist("https://partner.example"))

	c, err := New(testRaw(), wdb)
	require.NoError(t, err)
	c.updateIPWhiteList()

	assert.True(t, c.IsWhitelisted("10.1.1.1"))
	assert.False(t, c.IsWhitelisted("10.2.2.2"))
	// origins are not client identities
	assert.False(t, c.IsWhitelisted("https://partner.example"))
}
