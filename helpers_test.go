package paygate

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"github.com/tachi-labs/paygate/schema"
)

var (
	testPublisher = common.HexToAddress("0x6666666666666666666666666666666666666666")
	testCrawler   = common.HexToAddress("0x7777777777777777777777777777777777777777")
)

type submitted struct {
	tokenId *big.Int
	crawler common.Address
}

// fakeChain serves canned receipts whose Transfer events are stored alongside them.
type fakeChain struct {
	lock       sync.Mutex
	receipts   map[common.Hash]*types.Receipt
	events     map[common.Hash][]schema.TransferEvent
	receiptErr error
	calls      int
	failUntil  int

	submits   []submitted
	submitErr error
	submitted chan struct{}
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		receipts:  make(map[common.Hash]*types.Receipt),
		events:    make(map[common.Hash][]schema.TransferEvent),
		submitted: make(chan struct{}, 16),
	}
}

func (f *fakeChain) addPayment(hash string, status uint64, events ...schema.TransferEvent) {
	h := common.HexToHash(hash)
	f.receipts[h] = &types.Receipt{Status: status, TxHash: h}
	f.events[h] = events
}

func (f *fakeChain) GetReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls++
	if f.calls <= f.failUntil {
		return nil, errors.New("connection reset")
	}
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, schema.ErrReceiptNotFound
	}
	return r, nil
}

func (f *fakeChain) DecodeTransferEvents(receipt *types.Receipt) []schema.TransferEvent {
	return f.events[receipt.TxHash]
}

func (f *fakeChain) SubmitLogCrawl(ctx context.Context, tokenId *big.Int, crawler common.Address) (common.Hash, error) {
	f.lock.Lock()
	f.submits = append(f.submits, submitted{tokenId: tokenId, crawler: crawler})
	err := f.submitErr
	f.lock.Unlock()
	select {
	case f.submitted <- struct{}{}:
	default:
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.HexToHash("0xfeed"), nil
}

func (f *fakeChain) submitCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.submits)
}

func transfer(req schema.PaymentRequirement, from, to common.Address, value int64) schema.TransferEvent {
	return schema.TransferEvent{Token: req.TokenAddress, From: from, To: to, Value: big.NewInt(value)}
}

// paidEvents is a valid two-hop payment of amount.
func paidEvents(req schema.PaymentRequirement, amount int64) []schema.TransferEvent {
	return []schema.TransferEvent{
		transfer(req, testCrawler, req.Recipient, amount),
		transfer(req, req.Recipient, testPublisher, amount),
	}
}

func proofHash(b byte) string {
	h := common.Hash{}
	for i := range h {
		h[i] = b
	}
	return h.Hex()
}

func doRequest(t *testing.T, req *http.Request) (*http.Response, string) {
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}
