package schema

type KafkaCrawlEvent struct {
	TaskId       string `json:"taskId"`
	ProofTxHash  string `json:"proofTxHash"`
	LedgerTxHash string `json:"ledgerTxHash,omitempty"`
	CrawlTokenId string `json:"crawlTokenId"`
	Crawler      string `json:"crawler"`
	Path         string `json:"path"`
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp"`
}
