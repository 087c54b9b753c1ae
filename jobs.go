package paygate

import (
	"context"
	"time"

	"github.com/tachi-labs/paygate/rawdb"
	"github.com/tachi-labs/paygate/schema"
)

func (p *Paygate) runJobs() {
	if _, ok := p.store.KVDb.(*rawdb.BoltDB); ok {
		p.scheduler.Every(5).Minutes().SingletonMode().Do(p.pruneExpired)
	}
	if _, ok := p.store.KVDb.(*rawdb.MemoryDB); ok {
		p.scheduler.Every(1).Minute().SingletonMode().Do(p.reportMemoryStore)
	}
	if p.chainCli != nil && p.crawlLog != nil {
		p.scheduler.Every(5).Minutes().SingletonMode().Do(p.updateSignerBalance)
	}

	p.scheduler.StartAsync()
}

// pruneExpired reclaims bolt records whose ttl passed; reads already ignore them.
func (p *Paygate) pruneExpired() {
	boltDb, ok := p.store.KVDb.(*rawdb.BoltDB)
	if !ok {
		return
	}
	for _, bucket := range []string{schema.UsedProofBucket, schema.RateLimitBucket} {
		n, err := boltDb.PruneExpired(bucket)
		if err != nil {
			log.Error("boltDb.PruneExpired(bucket)", "bucket", bucket, "err", err)
			continue
		}
		if n > 0 {
			log.Debug("pruned expired records", "bucket", bucket, "number", n)
		}
	}
}

func (p *Paygate) reportMemoryStore() {
	if memDb, ok := p.store.KVDb.(*rawdb.MemoryDB); ok {
		metricMemoryStoreEntries(memDb.Len())
	}
}

func (p *Paygate) updateSignerBalance() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	bal, err := p.chainCli.SignerBalance(ctx)
	if err != nil {
		log.Error("p.chainCli.SignerBalance(ctx)", "err", err)
		return
	}
	metricSignerBalance(bal, p.chainCli.SignerAddress().Hex())
}
