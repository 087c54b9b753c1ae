package paygate

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tachi-labs/paygate/schema"
)

var proofRegexp = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ChainClient is the blockchain surface the gateway depends on; chain.Client implements it.
type ChainClient interface {
	GetReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	DecodeTransferEvents(receipt *types.Receipt) []schema.TransferEvent
	SubmitLogCrawl(ctx context.Context, tokenId *big.Int, crawler common.Address) (common.Hash, error)
}

// ParseProof extracts the transaction hash from an "Authorization: Bearer <hash>" value.
func ParseProof(authorization string) (string, error) {
	if len(authorization) < len(schema.BearerPrefix) ||
		!strings.EqualFold(authorization[:len(schema.BearerPrefix)], schema.BearerPrefix) {
		return "", schema.ErrInvalidProof
	}
	proof := strings.TrimSpace(authorization[len(schema.BearerPrefix):])
	if !proofRegexp.MatchString(proof) {
		return "", schema.ErrInvalidProof
	}
	return strings.ToLower(proof), nil
}

type VerifierOptions struct {
	Publisher      common.Address
	SkipForwarding bool
	ReuseWindow    time.Duration
	RpcTimeout     time.Duration
	RpcRetries     int
}

type Verifier struct {
	chain ChainClient
	store *Store
	req   schema.PaymentRequirement
	opts  VerifierOptions
}

func NewVerifier(chain ChainClient, store *Store, req schema.PaymentRequirement, opts VerifierOptions) *Verifier {
	if opts.ReuseWindow <= 0 {
		opts.ReuseWindow = schema.DefaultReuseWindow
	}
	return &Verifier{chain: chain, store: store, req: req, opts: opts}
}

// Verify checks that proof pays the requirement and was not used within the reuse window.
// A successful call consumes the proof.
func (v *Verifier) Verify(ctx context.Context, proof string) schema.VerificationResult {
	res := v.verify(ctx, proof)
	if res.IsValid {
		metricVerification("valid")
	} else {
		metricVerification(res.FailureReason)
		log.Debug("payment verification failed", "proof", proof, "reason", res.FailureReason)
	}
	return res
}

func (v *Verifier) verify(ctx context.Context, proof string) schema.VerificationResult {
	used, err := v.store.IsProofUsed(proof)
	if err != nil {
		log.Error("v.store.IsProofUsed(proof)", "proof", proof, "err", err)
		return schema.InvalidResult(schema.ReasonReplayCheck)
	}
	if used {
		return schema.InvalidResult(schema.ReasonReplay)
	}

	receipt, err := v.getReceipt(ctx, common.HexToHash(proof))
	if errors.Is(err, schema.ErrReceiptNotFound) {
		return schema.InvalidResult(schema.ReasonNotFound)
	}
	if err != nil {
		log.Warn("fetch receipt failed", "proof", proof, "err", err)
		return schema.InvalidResult(schema.ReasonReceiptFetch)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return schema.InvalidResult(schema.ReasonTxFailed)
	}

	events := v.chain.DecodeTransferEvents(receipt)
	crawler, ok := v.primaryTransfer(events)
	if !ok {
		return schema.InvalidResult(schema.ReasonNoValidTransfer)
	}
	if !v.opts.SkipForwarding && !v.forwarded(events) {
		return schema.InvalidResult(schema.ReasonNotForwarded)
	}

	marked, err := v.store.MarkProofUsed(proof, v.opts.ReuseWindow)
	if err != nil {
		log.Error("v.store.MarkProofUsed(proof)", "proof", proof, "err", err)
		return schema.InvalidResult(schema.ReasonMarkUsed)
	}
	if !marked {
		// a concurrent request consumed the proof first
		return schema.InvalidResult(schema.ReasonReplay)
	}
	return schema.VerificationResult{IsValid: true, CrawlerAddress: crawler}
}

// primaryTransfer finds the crawler's payment into the collection contract.
func (v *Verifier) primaryTransfer(events []schema.TransferEvent) (common.Address, bool) {
	for _, ev := range events {
		if ev.Token == v.req.TokenAddress && ev.To == v.req.Recipient && ev.Value.Cmp(v.req.SmallestUnitAmount) >= 0 {
			return ev.From, true
		}
	}
	return common.Address{}, false
}

// forwarded finds the collection contract passing the payment on to the publisher.
func (v *Verifier) forwarded(events []schema.TransferEvent) bool {
	for _, ev := range events {
		if ev.Token == v.req.TokenAddress && ev.From == v.req.Recipient && ev.To == v.opts.Publisher &&
			ev.Value.Cmp(v.req.SmallestUnitAmount) >= 0 {
			return true
		}
	}
	return false
}

// getReceipt retries transient rpc errors up to RpcRetries times; a missing receipt is final.
func (v *Verifier) getReceipt(ctx context.Context, hash common.Hash) (receipt *types.Receipt, err error) {
	for attempt := 0; ; attempt++ {
		receipt, err = v.getReceiptOnce(ctx, hash)
		if err == nil || errors.Is(err, schema.ErrReceiptNotFound) || attempt >= v.opts.RpcRetries {
			return
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
}

func (v *Verifier) getReceiptOnce(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if v.opts.RpcTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.opts.RpcTimeout)
		defer cancel()
	}
	return v.chain.GetReceipt(ctx, hash)
}
