package paygate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/tachi-labs/paygate/chain"
	"github.com/tachi-labs/paygate/common"
	"github.com/tachi-labs/paygate/config"
	"github.com/tachi-labs/paygate/schema"
)

const shutdownTimeout = 30 * time.Second

type Paygate struct {
	config *config.Config
	engine *gin.Engine
	store  *Store

	classifier *Classifier
	limiter    RateLimiter
	responder  *Responder
	verifier   *Verifier
	crawlLog   *CrawlLogger // nil when ledger writes are disabled
	forwarder  *Forwarder

	chainCli  *chain.Client
	wdb       *Wdb
	kafka     *KWriter
	scheduler *gocron.Scheduler

	srv       *http.Server
	metricSrv *http.Server
}

// New opens every backend named in raw and assembles the gateway.
func New(raw schema.Config) (*Paygate, error) {
	if err := common.InitSentry(raw.SentryDsn, raw.Env); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	var (
		wdb    *Wdb
		cfgWdb *config.Wdb
		err    error
	)
	switch {
	case raw.Mysql != "":
		wdb, err = NewMysqlDb(raw.Mysql)
	case raw.SqliteDir != "":
		wdb, err = NewSqliteDb(raw.SqliteDir)
	}
	if err != nil {
		return nil, err
	}
	if wdb != nil {
		if err = wdb.Migrate(); err != nil {
			return nil, err
		}
		cfgWdb = config.NewWdb(wdb.Db)
		if err = cfgWdb.Migrate(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.New(raw, cfgWdb)
	if err != nil {
		return nil, err
	}

	store, err := NewStoreFromConfig(cfg.Raw, maxDuration(cfg.ReuseWindow, cfg.RateWindow))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Raw.KVBackend, err)
	}

	eth, err := chain.NewEthClient(cfg.Raw.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	chainCli, err := chain.New(eth, cfg.Raw.ChainId, cfg.SignerKey, cfg.LedgerContract)
	if err != nil {
		return nil, err
	}

	limiter, err := NewStoreLimiter(store)
	if err != nil {
		return nil, err
	}

	var kw *KWriter
	if cfg.Raw.Kafka.Start {
		if kw, err = NewKWriter(CrawlTopic, cfg.Raw.Kafka.Uri); err != nil {
			return nil, err
		}
	}

	p, err := newPaygate(cfg, store, chainCli, limiter, wdb, kw)
	if err != nil {
		return nil, err
	}
	p.chainCli = chainCli
	return p, nil
}

// newPaygate wires already opened dependencies; tests enter here.
func newPaygate(cfg *config.Config, store *Store, chainCli ChainClient, limiter RateLimiter, wdb *Wdb, kw *KWriter) (*Paygate, error) {
	classifier, err := NewClassifier(cfg.Raw.ExtraCrawlerPatterns...)
	if err != nil {
		return nil, err
	}
	responder, err := NewResponder(cfg.Requirement())
	if err != nil {
		return nil, err
	}

	var crawlLog *CrawlLogger
	if err := cfg.LedgerEnabled(); err == nil {
		crawlLog, err = NewCrawlLogger(chainCli, cfg.Raw.LoggerWorkers, cfg.Raw.LoggerQueue, cfg.LedgerTimeout, wdb, kw)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("ledger writes disabled", "err", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	p := &Paygate{
		config:     cfg,
		engine:     gin.New(),
		store:      store,
		classifier: classifier,
		limiter:    limiter,
		responder:  responder,
		verifier: NewVerifier(chainCli, store, cfg.Requirement(), VerifierOptions{
			Publisher:      cfg.PublisherAddress,
			SkipForwarding: cfg.Raw.SkipForwarding,
			ReuseWindow:    cfg.ReuseWindow,
			RpcTimeout:     cfg.RpcTimeout,
			RpcRetries:     cfg.Raw.RpcRetries,
		}),
		crawlLog:  crawlLog,
		forwarder: NewForwarder(cfg.Origin, cfg.OriginTimeout, cfg.IsProduction()),
		wdb:       wdb,
		kafka:     kw,
		scheduler: gocron.NewScheduler(time.UTC),
	}
	p.setupRouter()
	return p, nil
}

// Run starts background jobs and the listeners; it does not block.
func (p *Paygate) Run() {
	p.config.Run()
	p.runJobs()
	p.metricSrv = common.NewMetricServer(p.config.Raw.MetricPort)

	var handler http.Handler = p.engine
	if p.config.Raw.EnableLogging {
		handler = common.AccessLog(handler)
	}
	p.srv = &http.Server{
		Addr:              p.config.Raw.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("paygate listening", "port", p.config.Raw.Port, "origin", p.config.Origin.String())
		if err := p.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("paygate server stopped", "err", err)
		}
	}()
}

// Close drains in-flight requests and ledger writes, then releases every backend.
func (p *Paygate) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if p.srv != nil {
		if err := p.srv.Shutdown(ctx); err != nil {
			log.Error("p.srv.Shutdown(ctx)", "err", err)
		}
	}
	if p.metricSrv != nil {
		p.metricSrv.Shutdown(ctx)
	}
	if p.crawlLog != nil {
		p.crawlLog.Close()
	}
	p.scheduler.Stop()
	p.config.Close()
	if p.kafka != nil {
		if err := p.kafka.Close(); err != nil {
			log.Error("p.kafka.Close()", "err", err)
		}
	}
	if err := p.store.Close(); err != nil {
		log.Error("p.store.Close()", "err", err)
	}
	if p.wdb != nil {
		if err := p.wdb.Close(); err != nil {
			log.Error("p.wdb.Close()", "err", err)
		}
	}
	log.Info("paygate closed")
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
