package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tachi-labs/paygate/schema"
)

var ErrNoSigner = errors.New("ledger signer not configured")

// Client reads payment receipts and writes crawl records for one chain.
type Client struct {
	eth     EthClientInterface
	chainId *big.Int

	signer     *ecdsa.PrivateKey
	signerAddr common.Address
	ledger     common.Address

	erc20ABI  abi.ABI
	ledgerABI abi.ABI

	// nonceLock serialises nonce assignment through send for the signer
	nonceLock sync.Mutex
	nextNonce uint64
	nonceOk   bool
}

// New builds a Client. signer may be nil, in which case SubmitLogCrawl fails with ErrNoSigner.
func New(eth EthClientInterface, chainId int64, signer *ecdsa.PrivateKey, ledger common.Address) (*Client, error) {
	erc20ABI, err := abi.JSON(strings.NewReader(ERC20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	ledgerABI, err := abi.JSON(strings.NewReader(ProofOfCrawlLedgerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger ABI: %w", err)
	}
	c := &Client{
		eth:       eth,
		chainId:   big.NewInt(chainId),
		signer:    signer,
		ledger:    ledger,
		erc20ABI:  erc20ABI,
		ledgerABI: ledgerABI,
	}
	if signer != nil {
		c.signerAddr = crypto.PubkeyToAddress(signer.PublicKey)
	}
	return c, nil
}

func (c *Client) SignerAddress() common.Address {
	return c.signerAddr
}

// GetReceipt returns schema.ErrReceiptNotFound when the node does not know the transaction.
func (c *Client) GetReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) || (err == nil && receipt == nil) {
		return nil, schema.ErrReceiptNotFound
	}
	return receipt, err
}

// DecodeTransferEvents returns every well-formed ERC-20 Transfer log in the receipt, in log order.
func (c *Client) DecodeTransferEvents(receipt *types.Receipt) []schema.TransferEvent {
	if receipt == nil {
		return nil
	}
	transferID := c.erc20ABI.Events[EventTransfer].ID
	events := make([]schema.TransferEvent, 0, len(receipt.Logs))
	for _, lg := range receipt.Logs {
		if lg == nil || len(lg.Topics) != 3 || lg.Topics[0] != transferID {
			continue
		}
		values, err := c.erc20ABI.Unpack(EventTransfer, lg.Data)
		if err != nil || len(values) != 1 {
			continue
		}
		value, ok := values[0].(*big.Int)
		if !ok {
			continue
		}
		events = append(events, schema.TransferEvent{
			Token: lg.Address,
			From:  common.BytesToAddress(lg.Topics[1].Bytes()),
			To:    common.BytesToAddress(lg.Topics[2].Bytes()),
			Value: value,
		})
	}
	return events
}

// SubmitLogCrawl signs and sends logCrawl(tokenId, crawler) to the ledger; it does not wait for mining.
func (c *Client) SubmitLogCrawl(ctx context.Context, tokenId *big.Int, crawler common.Address) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, ErrNoSigner
	}

	txData, err := c.ledgerABI.Pack(FunctionLogCrawl, tokenId, crawler)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack logCrawl: %w", err)
	}

	gasTipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas tip cap: %w", err)
	}

	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get block header: %w", err)
	}
	if header.BaseFee == nil {
		return common.Hash{}, errors.New("block header missing base fee: network may not support EIP-1559")
	}

	// 2x base fee + tip
	gasFeeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), gasTipCap)

	ledger := c.ledger
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.signerAddr,
		To:   &ledger,
		Data: txData,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit = gasLimit * 120 / 100

	c.nonceLock.Lock()
	defer c.nonceLock.Unlock()

	nonce, err := c.reserveNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainId,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &ledger,
		Value:     big.NewInt(0),
		Data:      txData,
	})

	signedTx, err := types.SignTx(tx, types.NewLondonSigner(c.chainId), c.signer)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		// refetch from the node after a rejected send
		c.nonceOk = false
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.nextNonce = nonce + 1
	c.nonceOk = true
	return signedTx.Hash(), nil
}

// reserveNonce returns the higher of the node's pending nonce and the locally tracked next nonce.
// The pending pool of a load balanced rpc may lag behind our own sends. Caller holds nonceLock.
func (c *Client) reserveNonce(ctx context.Context) (uint64, error) {
	pending, err := c.eth.PendingNonceAt(ctx, c.signerAddr)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending nonce: %w", err)
	}
	if c.nonceOk && c.nextNonce > pending {
		return c.nextNonce, nil
	}
	return pending, nil
}

// SignerBalance is the native balance paying for ledger writes.
func (c *Client) SignerBalance(ctx context.Context) (*big.Int, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}
	return c.eth.BalanceAt(ctx, c.signerAddr, nil)
}
