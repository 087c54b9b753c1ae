package schema

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PaymentRequirement is derived from configuration and never persisted.
type PaymentRequirement struct {
	Amount             string // human units, e.g. "0.005"
	SmallestUnitAmount *big.Int
	Currency           string
	Network            string
	ChainId            int64
	Recipient          common.Address // payment collection contract
	TokenAddress       common.Address
	CrawlTokenId       *big.Int
}

type VerificationResult struct {
	IsValid        bool
	CrawlerAddress common.Address
	FailureReason  string
}

func InvalidResult(reason string) VerificationResult {
	return VerificationResult{IsValid: false, FailureReason: reason}
}

// TransferEvent is an ERC-20 Transfer(from, to, value) log emitted by Token.
type TransferEvent struct {
	Token common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
}

// verification failure reasons
const (
	ReasonReplay            = "Transaction hash already used recently"
	ReasonNotFound          = "Transaction not found"
	ReasonTxFailed          = "Transaction failed"
	ReasonNoValidTransfer   = "No valid payment transfer found to the payment processor"
	ReasonNotForwarded      = "Payment was not forwarded to the publisher"
	ReasonReceiptFetch      = "Failed to fetch transaction receipt"
	ReasonMarkUsed          = "Failed to record transaction hash"
	ReasonReplayCheck       = "Failed to check transaction hash"
	ReasonInvalidAuthFormat = "Invalid authorization format. Expected: Bearer <transaction_hash>"
)
