package paygate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tachi-labs/paygate/schema"
)

func newTestVerifier(t *testing.T, chain ChainClient, opts VerifierOptions) *Verifier {
	store, err := NewMemoryStore(time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	if opts.Publisher == (common.Address{}) {
		opts.Publisher = testPublisher
	}
	return NewVerifier(chain, store, testRequirement(), opts)
}

func TestParseProof(t *testing.T) {
	hash := proofHash(0xAA)
	proof, err := ParseProof("Bearer " + hash)
	assert.NoError(t, err)
	assert.Equal(t, hash, proof)

	proof, err = ParseProof("bearer 0x" + "AB" + hash[4:])
	assert.NoError(t, err)
	assert.Equal(t, "0xab"+hash[4:], proof)

	for _, bad := range []string{
		"",
		"InvalidFormatNoBearer",
		"Bearer",
		"Bearer 0x1234",
		"Bearer " + hash[2:],
		"Basic " + hash,
		"Bearer 0x" + "zz" + hash[4:],
	} {
		_, err := ParseProof(bad)
		assert.ErrorIs(t, err, schema.ErrInvalidProof, bad)
	}
}

func TestVerify_Valid(t *testing.T) {
	req := testRequirement()
	chain := newFakeChain()
	hash := proofHash(0xAA)
	chain.addPayment(hash, types.ReceiptStatusSuccessful, paidEvents(req, 5000)...)

	v := newTestVerifier(t, chain, VerifierOptions{})
	res := v.Verify(context.Background(), hash)
	assert.True(t, res.IsValid)
	assert.Equal(t, testCrawler, res.CrawlerAddress)
	assert.Empty(t, res.FailureReason)
}

func TestVerify_Replay(t *testing.T) {
	req := testRequirement()
	chain := newFakeChain()
	hash := proofHash(0xAA)
	chain.addPayment(hash, types.ReceiptStatusSuccessful, paidEvents(req, 5000)...)

	v := newTestVerifier(t, chain, VerifierOptions{})
	assert.True(t, v.Verify(context.Background(), hash).IsValid)

	for i := 0; i < 3; i++ {
		res := v.Verify(context.Background(), hash)
		assert.False(t, res.IsValid)
		assert.Equal(t, schema.ReasonReplay, res.FailureReason)
	}
}

func TestVerify_ConcurrentReplay(t *testing.T) {
	req := testRequirement()
	chain := newFakeChain()
	hash := proofHash(0xBB)
	chain.addPayment(hash, types.ReceiptStatusSuccessful, paidEvents(req, 5000)...)
	v := newTestVerifier(t, chain, VerifierOptions{})

	var (
		wg    sync.WaitGroup
		lock  sync.Mutex
		valid int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v.Verify(context.Background(), hash).IsValid {
				lock.Lock()
				valid++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, valid)
}

func TestVerify_AmountBoundary(t *testing.T) {
	req := testRequirement()
	chain := newFakeChain()
	exact, short := proofHash(0x01), proofHash(0x02)
	chain.addPayment(exact, types.ReceiptStatusSuccessful, paidEvents(req, 5000)...)
	chain.addPayment(short, types.ReceiptStatusSuccessful,
		transfer(req, testCrawler, req.Recipient, 4999),
		transfer(req, req.Recipient, testPublisher, 5000),
	)

	v := newTestVerifier(t, chain, VerifierOptions{})
	assert.True(t, v.Verify(context.Background(), exact).IsValid)

	res := v.Verify(context.Background(), short)
	assert.False(t, res.IsValid)
	assert.Equal(t, schema.ReasonNoValidTransfer, res.FailureReason)
}

func TestVerify_WrongTokenOrRecipient(t *testing.T) {
	req := testRequirement()
	chain := newFakeChain()
	other := common.HexToAddress("0x8888888888888888888888888888888888888888")
	wrongToken, wrongTo := proofHash(0x03), proofHash(0x04)
	chain.addPayment(wrongToken, types.ReceiptStatusSuccessful,
		schema.TransferEvent{Token: other, From: testCrawler, To: req.Recipient, Value: req.SmallestUnitAmount},
	)
	chain.addPayment(wrongTo, types.ReceiptStatusSuccessful, transfer(req, testCrawler, other, 5000))

	v := newTestVerifier(t, chain, VerifierOptions{})
	assert.Equal(t, schema.ReasonNoValidTransfer, v.Verify(context.Background(), wrongToken).FailureReason)
	assert.Equal(t, schema.ReasonNoValidTransfer, v.Verify(context.Background(), wrongTo).FailureReason)
}

func TestVerify_Forwarding(t *testing.T) {
	req := testRequirement()
	chain := newFakeChain()
	noForward, shortForward := proofHash(0x05), proofHash(0x06)
	chain.addPayment(noForward, types.ReceiptStatusSuccessful, transfer(req, testCrawler, req.Recipient, 5000))
	chain.addPayment(shortForward, types.ReceiptStatusSuccessful,
		transfer(req, testCrawler, req.Recipient, 5000),
		transfer(req, req.Recipient, testPublisher, 4999),
	)

	v := newTestVerifier(t, chain, VerifierOptions{})
	assert.Equal(t, schema.ReasonNotForwarded, v.Verify(context.Background(), noForward).FailureReason)
	assert.Equal(t, schema.ReasonNotForwarded, v.Verify(context.Background(), shortForward).FailureReason)

	// failed checks do not consume the proof
	skip := NewVerifier(chain, v.store, req, VerifierOptions{Publisher: testPublisher, SkipForwarding: true})
	assert.True(t, skip.Verify(context.Background(), noForward).IsValid)
}

func TestVerify_Receipt(t *testing.T) {
	req := testRequirement()
	chain := newFakeChain()
	reverted := proofHash(0x07)
	chain.addPayment(reverted, types.ReceiptStatusFailed, paidEvents(req, 5000)...)

	v := newTestVerifier(t, chain, VerifierOptions{})
	assert.Equal(t, schema.ReasonTxFailed, v.Verify(context.Background(), reverted).FailureReason)
	assert.Equal(t, schema.ReasonNotFound, v.Verify(context.Background(), proofHash(0x08)).FailureReason)

	chain.receiptErr = errors.New("rpc down")
	assert.Equal(t, schema.ReasonReceiptFetch, v.Verify(context.Background(), proofHash(0x09)).FailureReason)
}

func TestVerify_Retries(t *testing.T) {
	req := testRequirement()
	hash := proofHash(0x0A)

	chain := newFakeChain()
	chain.addPayment(hash, types.ReceiptStatusSuccessful, paidEvents(req, 5000)...)
	chain.failUntil = 1
	v := newTestVerifier(t, chain, VerifierOptions{})
	assert.Equal(t, schema.ReasonReceiptFetch, v.Verify(context.Background(), hash).FailureReason)

	chain = newFakeChain()
	chain.addPayment(hash, types.ReceiptStatusSuccessful, paidEvents(req, 5000)...)
	chain.failUntil = 2
	v = newTestVerifier(t, chain, VerifierOptions{RpcRetries: 2})
	assert.True(t, v.Verify(context.Background(), hash).IsValid)
	assert.Equal(t, 3, chain.calls)
}
