package schema

import (
	"errors"
	"math/big"
	"net/http"
)

var (
	ErrInvalidPaymentInfo = errors.New("invalid payment information in 402 response")
	ErrNoPayer            = errors.New("payment required but no payer configured")
	ErrPaymentRejected    = errors.New("payment verification failed")

	ErrWrongChain          = errors.New("payment requested on another chain")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrNoPublisher         = errors.New("neither publisher nor crawl nft configured")
	ErrTxReverted          = errors.New("transaction reverted")
)

// PaymentInfo is what a 402 response asks for.
type PaymentInfo struct {
	Amount             string // human units
	SmallestUnitAmount *big.Int
	Currency           string
	Network            string
	ChainId            int64
	Recipient          string
	TokenAddress       string
	TokenId            string
}

type FetchResult struct {
	Content         []byte
	StatusCode      int
	Header          http.Header
	PaymentRequired bool
	PaymentAmount   string
	TxHash          string
}
