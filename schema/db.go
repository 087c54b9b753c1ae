package schema

import (
	"time"
)

const (
	// crawl log status
	CrawlLogSuccess = "success"
	CrawlLogFailed  = "failed"
	CrawlLogDropped = "dropped"
)

// CrawlLogRecord audits one background ledger write attempt.
type CrawlLogRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	TaskId       string `gorm:"uniqueIndex;size:64" json:"taskId"`
	ProofTxHash  string `gorm:"index:idx_proof;size:66" json:"proofTxHash"`
	CrawlTokenId string `json:"crawlTokenId"`
	Crawler      string `gorm:"index:idx_crawler;size:42" json:"crawler"`
	LedgerTxHash string `json:"ledgerTxHash"`
	Status       string `json:"status"`
	Error        string `json:"error"`
}

// RateWhitelist entries skip rate limiting. IP is matched against the resolved client ip only,
// never against caller supplied headers such as Origin.
type RateWhitelist struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	IP        string `gorm:"column:ip;uniqueIndex;size:64" json:"ip"`
	Available bool   `json:"available"`
}
