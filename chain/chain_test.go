package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tachi-labs/paygate/schema"
)

type fakeEthClient struct {
	receipts map[common.Hash]*types.Receipt
	sendErr  error

	// pendingLag keeps PendingNonceAt at 7 no matter what was sent
	pendingLag bool

	lock sync.Mutex
	sent []*types.Transaction
	used map[uint64]bool
}

func (f *fakeEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if r, ok := f.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeEthClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (f *fakeEthClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.pendingLag {
		return 7, nil
	}
	return 7 + uint64(len(f.sent)), nil
}

func (f *fakeEthClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (f *fakeEthClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(10_000_000)}, nil
}

func (f *fakeEthClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeEthClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.used == nil {
		f.used = make(map[uint64]bool)
	}
	if f.used[tx.Nonce()] {
		return fmt.Errorf("nonce too low: %d", tx.Nonce())
	}
	f.used[tx.Nonce()] = true
	f.sent = append(f.sent, tx)
	return nil
}

func transferLog(token, from, to common.Address, value int64) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(big.NewInt(value).Bytes(), 32),
	}
}

func TestDecodeTransferEvents(t *testing.T) {
	c, err := New(&fakeEthClient{}, 8453, nil, common.Address{})
	require.NoError(t, err)

	token := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	receipt := &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			transferLog(token, from, to, 5000),
			// approval-like log with a different topic is skipped
			{Address: token, Topics: []common.Hash{crypto.Keccak256Hash([]byte("Approval(address,address,uint256)")), {}, {}}},
			// truncated topics are skipped
			{Address: token, Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}},
			transferLog(token, to, from, 1),
		},
	}

	events := c.DecodeTransferEvents(receipt)
	require.Len(t, events, 2)
	assert.Equal(t, token, events[0].Token)
	assert.Equal(t, from, events[0].From)
	assert.Equal(t, to, events[0].To)
	assert.Equal(t, 0, events[0].Value.Cmp(big.NewInt(5000)))
	assert.Equal(t, to, events[1].From)
	assert.Equal(t, int64(1), events[1].Value.Int64())

	assert.Nil(t, c.DecodeTransferEvents(nil))
}

func TestGetReceipt(t *testing.T) {
	hash := common.HexToHash("0xaa")
	eth := &fakeEthClient{receipts: map[common.Hash]*types.Receipt{hash: {Status: 1}}}
	c, err := New(eth, 8453, nil, common.Address{})
	require.NoError(t, err)

	r, err := c.GetReceipt(context.Background(), hash)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), r.Status)

	_, err = c.GetReceipt(context.Background(), common.HexToHash("0xbb"))
	assert.ErrorIs(t, err, schema.ErrReceiptNotFound)
}

func TestSubmitLogCrawl(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	ledger := common.HexToAddress("0x3333333333333333333333333333333333333333")
	crawler := common.HexToAddress("0x4444444444444444444444444444444444444444")

	eth := &fakeEthClient{}
	c, err := New(eth, 84532, key, ledger)
	require.NoError(t, err)

	hash, err := c.SubmitLogCrawl(context.Background(), big.NewInt(9), crawler)
	require.NoError(t, err)
	require.Len(t, eth.sent, 1)

	tx := eth.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, ledger, *tx.To())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, big.NewInt(21_000_000), tx.GasFeeCap())

	sender, err := types.Sender(types.NewLondonSigner(big.NewInt(84532)), tx)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), sender)

	args, err := c.ledgerABI.Methods[FunctionLogCrawl].Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(9).Cmp(args[0].(*big.Int)))
	assert.Equal(t, crawler, args[1])
}

func TestSubmitLogCrawl_Errors(t *testing.T) {
	c, err := New(&fakeEthClient{}, 8453, nil, common.Address{})
	require.NoError(t, err)
	_, err = c.SubmitLogCrawl(context.Background(), big.NewInt(1), common.Address{})
	assert.ErrorIs(t, err, ErrNoSigner)

	key, _ := crypto.GenerateKey()
	boom := errors.New("nonce too low")
	c, err = New(&fakeEthClient{sendErr: boom}, 8453, key, common.Address{})
	require.NoError(t, err)
	_, err = c.SubmitLogCrawl(context.Background(), big.NewInt(1), common.Address{})
	assert.ErrorIs(t, err, boom)
}

func TestSubmitLogCrawl_ConcurrentNonces(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	eth := &fakeEthClient{pendingLag: true}
	c, err := New(eth, 8453, key, common.HexToAddress("0x3333333333333333333333333333333333333333"))
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.SubmitLogCrawl(context.Background(), big.NewInt(1), common.BigToAddress(big.NewInt(int64(i+1))))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	require.Len(t, eth.sent, n)
	nonces := make(map[uint64]bool)
	for _, tx := range eth.sent {
		nonces[tx.Nonce()] = true
	}
	for i := uint64(7); i < 7+n; i++ {
		assert.True(t, nonces[i], "nonce %d", i)
	}
}

func TestSubmitLogCrawl_NonceResetAfterRejectedSend(t *testing.T) {
	key, _ := crypto.GenerateKey()
	eth := &fakeEthClient{pendingLag: true}
	c, err := New(eth, 8453, key, common.Address{})
	require.NoError(t, err)

	_, err = c.SubmitLogCrawl(context.Background(), big.NewInt(1), common.Address{})
	require.NoError(t, err)

	eth.sendErr = errors.New("replacement transaction underpriced")
	_, err = c.SubmitLogCrawl(context.Background(), big.NewInt(1), common.Address{})
	assert.Error(t, err)

	// the node still reports 7, so the next send reuses it and is rejected as a duplicate
	eth.sendErr = nil
	_, err = c.SubmitLogCrawl(context.Background(), big.NewInt(1), common.Address{})
	assert.ErrorContains(t, err, "nonce too low")

	eth.pendingLag = false
	_, err = c.SubmitLogCrawl(context.Background(), big.NewInt(1), common.Address{})
	assert.NoError(t, err)
	assert.Equal(t, uint64(8), eth.sent[1].Nonce())
}
