package paygate

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/tachi-labs/paygate/schema"
)

type crawlTask struct {
	id      string
	tokenId *big.Int
	crawler common.Address
	proof   string
	path    string
}

// CrawlLogger writes verified crawls to the ledger in the background.
// The request path never waits on it and its failures never reach the caller.
type CrawlLogger struct {
	chain   ChainClient
	timeout time.Duration
	tasks   chan crawlTask
	pool    *ants.PoolWithFunc
	wdb     *Wdb
	kafka   *KWriter

	lock       sync.Mutex
	wg         sync.WaitGroup
	closed     bool
	dispatched chan struct{}
}

// NewCrawlLogger runs at most workers writes at once and keeps up to queue more waiting;
// wdb and kafka are optional sinks.
func NewCrawlLogger(chain ChainClient, workers, queue int, timeout time.Duration, wdb *Wdb, kafka *KWriter) (*CrawlLogger, error) {
	l := &CrawlLogger{
		chain:      chain,
		timeout:    timeout,
		tasks:      make(chan crawlTask, queue),
		wdb:        wdb,
		kafka:      kafka,
		dispatched: make(chan struct{}),
	}
	p, err := ants.NewPoolWithFunc(workers, func(i interface{}) {
		defer l.wg.Done()
		l.process(i.(crawlTask))
	}, ants.WithPanicHandler(func(err interface{}) {
		log.Error("crawl log task panic", "err", err)
	}))
	if err != nil {
		return nil, err
	}
	l.pool = p
	go l.dispatch()
	return l, nil
}

// LogAsync queues logCrawl(tokenId, crawler) and returns immediately.
// The task is dropped only when the queue is full or the logger is closed.
func (l *CrawlLogger) LogAsync(tokenId *big.Int, crawler common.Address, proof, path string) {
	task := crawlTask{
		id:      uuid.NewString(),
		tokenId: tokenId,
		crawler: crawler,
		proof:   proof,
		path:    path,
	}

	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		l.record(task, common.Hash{}, schema.CrawlLogDropped, ants.ErrPoolClosed)
		return
	}
	select {
	case l.tasks <- task:
		l.lock.Unlock()
	default:
		l.lock.Unlock()
		l.record(task, common.Hash{}, schema.CrawlLogDropped, schema.ErrLogQueueFull)
	}
}

// dispatch feeds queued tasks to the pool, waiting for a free worker, until the queue is closed.
func (l *CrawlLogger) dispatch() {
	defer close(l.dispatched)
	for task := range l.tasks {
		l.wg.Add(1)
		if err := l.pool.Invoke(task); err != nil {
			l.wg.Done()
			l.record(task, common.Hash{}, schema.CrawlLogDropped, err)
		}
	}
}

func (l *CrawlLogger) process(task crawlTask) {
	ctx := context.Background()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	hash, err := l.chain.SubmitLogCrawl(ctx, task.tokenId, task.crawler)
	if err != nil {
		l.record(task, hash, schema.CrawlLogFailed, err)
		return
	}
	l.record(task, hash, schema.CrawlLogSuccess, nil)
}

func (l *CrawlLogger) record(task crawlTask, ledgerTx common.Hash, status string, err error) {
	metricCrawlLog(status)

	rec := schema.CrawlLogRecord{
		TaskId:       task.id,
		ProofTxHash:  task.proof,
		CrawlTokenId: task.tokenId.String(),
		Crawler:      task.crawler.Hex(),
		Status:       status,
	}
	if ledgerTx != (common.Hash{}) {
		rec.LedgerTxHash = ledgerTx.Hex()
	}
	if err != nil {
		rec.Error = err.Error()
		log.Error("crawl log failed", "taskId", task.id, "crawler", rec.Crawler, "proof", task.proof, "status", status, "err", err)
	} else {
		log.Info("crawl logged", "taskId", task.id, "crawler", rec.Crawler, "ledgerTx", rec.LedgerTxHash)
	}

	if l.wdb != nil {
		if err := l.wdb.InsertCrawlLog(rec); err != nil {
			log.Error("l.wdb.InsertCrawlLog(rec)", "taskId", task.id, "err", err)
		}
	}
	if l.kafka != nil {
		ev := schema.KafkaCrawlEvent{
			TaskId:       task.id,
			ProofTxHash:  task.proof,
			LedgerTxHash: rec.LedgerTxHash,
			CrawlTokenId: rec.CrawlTokenId,
			Crawler:      rec.Crawler,
			Path:         task.path,
			Status:       status,
			Timestamp:    time.Now().Unix(),
		}
		if err := l.kafka.WriteCrawlEvent(ev); err != nil {
			log.Error("l.kafka.WriteCrawlEvent(ev)", "taskId", task.id, "err", err)
		}
	}
}

// Close stops accepting tasks and waits for the queued and running ones to finish.
func (l *CrawlLogger) Close() {
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		return
	}
	l.closed = true
	close(l.tasks)
	l.lock.Unlock()

	<-l.dispatched
	l.wg.Wait()
	l.pool.Release()
}
