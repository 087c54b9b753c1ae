package sdk

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/tachi-labs/paygate/sdk/schema"
)

const (
	erc20ABI = `[
		{"type":"function","name":"balanceOf","stateMutability":"view",
		 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"allowance","stateMutability":"view",
		 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"approve","stateMutability":"nonpayable",
		 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
	]`

	processorABI = `[
		{"type":"function","name":"payPublisher","stateMutability":"nonpayable",
		 "inputs":[{"name":"publisher","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
		{"type":"function","name":"payPublisherByNFT","stateMutability":"nonpayable",
		 "inputs":[{"name":"crawlNFT","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]}
	]`

	defaultMinedTimeout = 2 * time.Minute
)

// EthBackend is the subset of ethclient.Client the payer needs.
type EthBackend interface {
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EthPayer pays a 402 from a local key: balance check, approve when the allowance is short,
// pay through the collection contract and wait for both to be mined.
// Set Publisher to pay with payPublisher, or CrawlNFT to pay with payPublisherByNFT and the
// token id from the 402.
type EthPayer struct {
	Publisher    common.Address
	CrawlNFT     common.Address
	MinedTimeout time.Duration

	eth     EthBackend
	key     *ecdsa.PrivateKey
	addr    common.Address
	chainId *big.Int

	erc20     abi.ABI
	processor abi.ABI
}

func NewEthPayer(rpcUrl, hexKey string) (*EthPayer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	eth, err := ethclient.Dial(rpcUrl)
	if err != nil {
		return nil, err
	}
	return NewEthPayerWithBackend(context.Background(), eth, key)
}

func NewEthPayerWithBackend(ctx context.Context, eth EthBackend, key *ecdsa.PrivateKey) (*EthPayer, error) {
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}
	processor, err := abi.JSON(strings.NewReader(processorABI))
	if err != nil {
		return nil, err
	}
	chainId, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	return &EthPayer{
		MinedTimeout: defaultMinedTimeout,
		eth:          eth,
		key:          key,
		addr:         crypto.PubkeyToAddress(key.PublicKey),
		chainId:      chainId,
		erc20:        erc20,
		processor:    processor,
	}, nil
}

func (p *EthPayer) Address() common.Address {
	return p.addr
}

// TokenBalance returns the payer's balance of token in smallest units and formatted with decimals.
func (p *EthPayer) TokenBalance(ctx context.Context, token common.Address, decimals int32) (*big.Int, string, error) {
	bal, err := p.callUint(ctx, token, "balanceOf", p.addr)
	if err != nil {
		return nil, "", err
	}
	return bal, decimal.NewFromBigInt(bal, -decimals).String(), nil
}

func (p *EthPayer) Allowance(ctx context.Context, token, spender common.Address) (*big.Int, error) {
	return p.callUint(ctx, token, "allowance", p.addr, spender)
}

// Pay has the Payer signature, hand it to NewSDK.
func (p *EthPayer) Pay(ctx context.Context, info schema.PaymentInfo) (string, error) {
	if info.ChainId != 0 && info.ChainId != p.chainId.Int64() {
		return "", fmt.Errorf("%w: payment on chain %d, rpc is chain %d", schema.ErrWrongChain, info.ChainId, p.chainId.Int64())
	}
	token := common.HexToAddress(info.TokenAddress)
	processor := common.HexToAddress(info.Recipient)
	amount := info.SmallestUnitAmount

	payData, err := p.payCalldata(info, amount)
	if err != nil {
		return "", err
	}

	bal, formatted, err := p.TokenBalance(ctx, token, usdcDecimals)
	if err != nil {
		return "", fmt.Errorf("get balance: %w", err)
	}
	log.Info("token balance", "address", p.addr.Hex(), "balance", formatted, info.Currency, info.Amount)
	if bal.Cmp(amount) < 0 {
		return "", fmt.Errorf("%w: required %s, available %s", schema.ErrInsufficientBalance, info.Amount, formatted)
	}

	allowance, err := p.Allowance(ctx, token, processor)
	if err != nil {
		return "", fmt.Errorf("get allowance: %w", err)
	}
	if allowance.Cmp(amount) < 0 {
		approveData, err := p.erc20.Pack("approve", processor, amount)
		if err != nil {
			return "", err
		}
		tx, err := p.sendAndWait(ctx, token, approveData)
		if err != nil {
			return "", fmt.Errorf("approve: %w", err)
		}
		log.Info("approval confirmed", "tx", tx.Hex())
	}

	tx, err := p.sendAndWait(ctx, processor, payData)
	if err != nil {
		return "", fmt.Errorf("pay: %w", err)
	}
	log.Info("payment confirmed", "tx", tx.Hex())
	return tx.Hex(), nil
}

func (p *EthPayer) payCalldata(info schema.PaymentInfo, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, schema.ErrInvalidPaymentInfo
	}
	switch {
	case p.Publisher != (common.Address{}):
		return p.processor.Pack("payPublisher", p.Publisher, amount)
	case p.CrawlNFT != (common.Address{}):
		tokenId, ok := new(big.Int).SetString(info.TokenId, 10)
		if !ok {
			return nil, fmt.Errorf("%w: token id %q", schema.ErrInvalidPaymentInfo, info.TokenId)
		}
		return p.processor.Pack("payPublisherByNFT", p.CrawlNFT, tokenId, amount)
	default:
		return nil, schema.ErrNoPublisher
	}
}

func (p *EthPayer) callUint(ctx context.Context, contract common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := p.erc20.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := p.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := p.erc20.Unpack(method, out)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result", method)
	}
	return v, nil
}

// sendAndWait signs an EIP-1559 call to `to` and waits until it is mined successfully.
func (p *EthPayer) sendAndWait(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := p.eth.PendingNonceAt(ctx, p.addr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get pending nonce: %w", err)
	}
	tip, err := p.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas tip cap: %w", err)
	}
	header, err := p.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get block header: %w", err)
	}
	if header.BaseFee == nil {
		return common.Hash{}, errors.New("block header missing base fee")
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), tip)

	gas, err := p.eth.EstimateGas(ctx, ethereum.CallMsg{From: p.addr, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx, err := types.SignTx(types.NewTx(&types.DynamicFeeTx{
		ChainID:   p.chainId,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas * 120 / 100,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	}), types.NewLondonSigner(p.chainId), p.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := p.eth.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, p.MinedTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(wctx, p.eth, tx)
	if err != nil {
		return tx.Hash(), fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("%w: %s", schema.ErrTxReverted, tx.Hash().Hex())
	}
	return tx.Hash(), nil
}
