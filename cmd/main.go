package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tachi-labs/paygate"
	"github.com/tachi-labs/paygate/common"
	"github.com/tachi-labs/paygate/schema"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name: "paygate",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
			&cli.StringFlag{Name: "env", Value: schema.EnvProduction, Usage: "production | development", EnvVars: []string{"ENVIRONMENT"}},
			&cli.BoolFlag{Name: "enable_logging", Value: false, Usage: "apache style access log", EnvVars: []string{"ENABLE_LOGGING"}},
			&cli.Int64Flag{Name: "max_request_size", Value: schema.DefaultMaxRequestSize, Usage: "bytes", EnvVars: []string{"MAX_REQUEST_SIZE"}},

			&cli.IntFlag{Name: "rate_limit", Value: schema.DefaultRateLimit, EnvVars: []string{"RATE_LIMIT_REQUESTS"}},
			&cli.IntFlag{Name: "api_rate_limit", Value: schema.DefaultApiRateLimit, EnvVars: []string{"API_RATE_LIMIT"}},
			&cli.IntFlag{Name: "deploy_rate_limit", Value: schema.DefaultDeployRateLimit, EnvVars: []string{"DEPLOY_RATE_LIMIT"}},
			&cli.IntFlag{Name: "rate_window", Value: 60, Usage: "seconds", EnvVars: []string{"RATE_WINDOW"}},
			&cli.StringFlag{Name: "client_ip_header", Value: "CF-Connecting-IP", EnvVars: []string{"CLIENT_IP_HEADER"}},

			&cli.StringFlag{Name: "origin_url", Usage: "publisher origin", EnvVars: []string{"ORIGIN_URL"}, Required: true},
			&cli.IntFlag{Name: "origin_timeout", Value: 30, Usage: "seconds", EnvVars: []string{"ORIGIN_TIMEOUT"}},

			&cli.StringFlag{Name: "rpc_url", Value: "https://mainnet.base.org", EnvVars: []string{"BASE_RPC_URL"}},
			&cli.IntFlag{Name: "rpc_timeout", Value: 15, Usage: "seconds", EnvVars: []string{"RPC_TIMEOUT"}},
			&cli.IntFlag{Name: "rpc_retries", Value: 0, EnvVars: []string{"RPC_RETRIES"}},
			&cli.Int64Flag{Name: "chain_id", Value: 8453, EnvVars: []string{"CHAIN_ID"}},
			&cli.StringFlag{Name: "network", Value: "Base", EnvVars: []string{"NETWORK"}},
			&cli.StringFlag{Name: "currency", Value: "USDC", EnvVars: []string{"CURRENCY"}},
			&cli.IntFlag{Name: "token_decimals", Value: 6, EnvVars: []string{"TOKEN_DECIMALS"}},
			&cli.StringFlag{Name: "payment_token", Value: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", EnvVars: []string{"USDC_ADDRESS"}},
			&cli.StringFlag{Name: "collection_contract", EnvVars: []string{"PAYMENT_PROCESSOR_ADDRESS"}, Required: true},
			&cli.StringFlag{Name: "publisher_address", EnvVars: []string{"PUBLISHER_ADDRESS"}, Required: true},
			&cli.StringFlag{Name: "ledger_contract", EnvVars: []string{"PROOF_OF_CRAWL_LEDGER_ADDRESS"}},
			&cli.StringFlag{Name: "signer_key", Usage: "hex private key for ledger writes", EnvVars: []string{"PRIVATE_KEY"}},
			&cli.StringFlag{Name: "crawl_token_id", Value: "1", EnvVars: []string{"CRAWL_NFT_TOKEN_ID"}},
			&cli.StringFlag{Name: "price", Value: "0.005", Usage: "human units", EnvVars: []string{"PRICE_USDC"}},
			&cli.IntFlag{Name: "reuse_window", Value: 3600, Usage: "seconds", EnvVars: []string{"REUSE_WINDOW"}},
			&cli.BoolFlag{Name: "skip_forwarding", Value: false, EnvVars: []string{"SKIP_FORWARDING"}},
			&cli.StringSliceFlag{Name: "crawler_pattern", Usage: "extra user agent regexp", EnvVars: []string{"CRAWLER_PATTERNS"}},

			&cli.StringFlag{Name: "kv_backend", Value: schema.KVMemory, Usage: "redis | bolt | mongo | memory", EnvVars: []string{"KV_BACKEND"}},
			&cli.StringFlag{Name: "redis_addr", Value: "127.0.0.1:6379", EnvVars: []string{"REDIS_ADDR"}},
			&cli.StringFlag{Name: "redis_password", EnvVars: []string{"REDIS_PASSWORD"}},
			&cli.IntFlag{Name: "redis_db", Value: 0, EnvVars: []string{"REDIS_DB"}},
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mongo_uri", Value: "mongodb://localhost:27017", EnvVars: []string{"MONGO_URI"}},
			&cli.StringFlag{Name: "mysql", Usage: "audit db mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "sqlite_dir", Usage: "audit db sqlite dir", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "kafka", Value: false, EnvVars: []string{"KAFKA"}},
			&cli.StringFlag{Name: "kafka_uri", Value: "127.0.0.1:9092", EnvVars: []string{"KAFKA_URI"}},

			&cli.StringFlag{Name: "metric_port", Value: ":9090", EnvVars: []string{"METRIC_PORT"}},
			&cli.StringFlag{Name: "sentry_dsn", EnvVars: []string{"SENTRY_DSN"}},
			&cli.IntFlag{Name: "logger_workers", Value: 32, EnvVars: []string{"LOGGER_WORKERS"}},
			&cli.IntFlag{Name: "logger_queue", Value: 1024, Usage: "pending ledger writes kept before dropping", EnvVars: []string{"LOGGER_QUEUE"}},
			&cli.IntFlag{Name: "ledger_timeout", Value: 60, Usage: "seconds", EnvVars: []string{"LEDGER_TIMEOUT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	cfg := schema.Config{
		Port:           c.String("port"),
		Env:            c.String("env"),
		EnableLogging:  c.Bool("enable_logging"),
		MaxRequestSize: c.Int64("max_request_size"),

		RateLimit:       c.Int("rate_limit"),
		ApiRateLimit:    c.Int("api_rate_limit"),
		DeployRateLimit: c.Int("deploy_rate_limit"),
		RateWindow:      c.Int("rate_window"),
		ClientIpHeader:  c.String("client_ip_header"),

		OriginUrl:     c.String("origin_url"),
		OriginTimeout: c.Int("origin_timeout"),

		RpcUrl:             c.String("rpc_url"),
		RpcTimeout:         c.Int("rpc_timeout"),
		RpcRetries:         c.Int("rpc_retries"),
		ChainId:            c.Int64("chain_id"),
		Network:            c.String("network"),
		Currency:           c.String("currency"),
		TokenDecimals:      int32(c.Int("token_decimals")),
		PaymentToken:       c.String("payment_token"),
		CollectionContract: c.String("collection_contract"),
		PublisherAddress:   c.String("publisher_address"),
		LedgerContract:     c.String("ledger_contract"),
		SignerKey:          c.String("signer_key"),
		CrawlTokenId:       c.String("crawl_token_id"),
		Price:              c.String("price"),
		ReuseWindow:        c.Int("reuse_window"),
		SkipForwarding:     c.Bool("skip_forwarding"),

		ExtraCrawlerPatterns: c.StringSlice("crawler_pattern"),

		KVBackend: c.String("kv_backend"),
		Redis: schema.Redis{
			Addr:     c.String("redis_addr"),
			Password: c.String("redis_password"),
			DB:       c.Int("redis_db"),
		},
		BoltDir:   c.String("db_dir"),
		MongoUri:  c.String("mongo_uri"),
		Mysql:     c.String("mysql"),
		SqliteDir: c.String("sqlite_dir"),
		Kafka: schema.Kafka{
			Start: c.Bool("kafka"),
			Uri:   c.String("kafka_uri"),
		},

		MetricPort:    c.String("metric_port"),
		SentryDsn:     c.String("sentry_dsn"),
		LoggerWorkers: c.Int("logger_workers"),
		LoggerQueue:   c.Int("logger_queue"),
		LedgerTimeout: c.Int("ledger_timeout"),
	}

	common.SetLogLevel(cfg.Env != schema.EnvProduction)
	s, err := paygate.New(cfg)
	if err != nil {
		return err
	}
	s.Run()

	<-signals
	s.Close()

	return nil
}
