package chain

const (
	EventTransfer    = "Transfer"
	FunctionLogCrawl = "logCrawl"
	EventCrawlLogged = "CrawlLogged"
)

var (
	// ERC20TransferABI only carries the Transfer event, all we read from the payment token.
	ERC20TransferABI = `[{
		"anonymous": false,
		"type": "event",
		"name": "Transfer",
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "value", "type": "uint256"}
		]
	}]`

	// ProofOfCrawlLedgerABI is the append-only ledger write entry point and its confirmation event.
	ProofOfCrawlLedgerABI = `[{
		"type": "function",
		"name": "logCrawl",
		"inputs": [
			{"name": "crawlTokenId", "type": "uint256"},
			{"name": "crawlerAddress", "type": "address"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	}, {
		"anonymous": false,
		"type": "event",
		"name": "CrawlLogged",
		"inputs": [
			{"indexed": true, "name": "crawlTokenId", "type": "uint256"},
			{"indexed": true, "name": "crawlerAddress", "type": "address"},
			{"indexed": false, "name": "timestamp", "type": "uint256"},
			{"indexed": false, "name": "logId", "type": "uint256"}
		]
	}]`
)
