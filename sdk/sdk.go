package sdk

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	paySchema "github.com/tachi-labs/paygate/schema"
	"github.com/tachi-labs/paygate/sdk/schema"
	"github.com/tidwall/gjson"
)

const usdcDecimals = 6

// Payer settles info on chain and returns the payment transaction hash.
type Payer func(ctx context.Context, info schema.PaymentInfo) (txHash string, err error)

type SDK struct {
	Cli   *PaygateCli
	Payer Payer
}

func NewSDK(payer Payer) *SDK {
	return &SDK{
		Cli:   New(),
		Payer: payer,
	}
}

// FetchWithPayment requests url and, on 402, pays once and retries with the payment proof.
func (s *SDK) FetchWithPayment(ctx context.Context, method, url string, header http.Header, body []byte) (*schema.FetchResult, error) {
	log.Info("fetching", "url", url)
	resp, err := s.Cli.Fetch(method, url, header, body)
	if err != nil {
		return nil, err
	}
	content := resp.Bytes()
	resp.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		return &schema.FetchResult{
			Content:    content,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
		}, nil
	}

	info, err := ParsePaymentInfo(resp.Header, content)
	if err != nil {
		return nil, err
	}
	if s.Payer == nil {
		return nil, schema.ErrNoPayer
	}
	log.Info("payment required", "amount", info.Amount, "currency", info.Currency, "recipient", info.Recipient)

	txHash, err := s.Payer(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("pay: %w", err)
	}
	log.Info("payment sent", "txHash", txHash)

	paidHeader := header.Clone()
	if paidHeader == nil {
		paidHeader = http.Header{}
	}
	paidHeader.Set("Authorization", paySchema.BearerPrefix+txHash)
	resp, err = s.Cli.Fetch(method, url, paidHeader, body)
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, tx %s: %s", schema.ErrPaymentRejected, resp.StatusCode, txHash, resp.String())
	}
	return &schema.FetchResult{
		Content:         resp.Bytes(),
		StatusCode:      resp.StatusCode,
		Header:          resp.Header,
		PaymentRequired: true,
		PaymentAmount:   info.Amount,
		TxHash:          txHash,
	}, nil
}

// ParsePaymentInfo reads the x402 headers and falls back to the JSON body for anything missing.
func ParsePaymentInfo(header http.Header, body []byte) (schema.PaymentInfo, error) {
	payment := gjson.GetBytes(body, "payment")
	pick := func(headerKey, bodyPath string) string {
		if v := header.Get(headerKey); v != "" {
			return v
		}
		return payment.Get(bodyPath).String()
	}

	info := schema.PaymentInfo{
		Currency:     pick(paySchema.HeaderCurrency, "currency"),
		Network:      pick(paySchema.HeaderNetwork, "network"),
		Recipient:    pick(paySchema.HeaderRecip, "recipient"),
		TokenAddress: pick(paySchema.HeaderContract, "tokenAddress"),
		TokenId:      pick(paySchema.HeaderTokenId, "tokenId"),
		Amount:       payment.Get("amount").String(),
	}
	if info.Currency == "" {
		info.Currency = "USDC"
	}

	chainId := pick(paySchema.HeaderChainId, "chainId")
	if chainId != "" {
		id, err := strconv.ParseInt(chainId, 10, 64)
		if err != nil {
			return info, fmt.Errorf("%w: chain id %q", schema.ErrInvalidPaymentInfo, chainId)
		}
		info.ChainId = id
	}

	if price := header.Get(paySchema.HeaderPrice); price != "" {
		units, ok := new(big.Int).SetString(price, 10)
		if !ok {
			return info, fmt.Errorf("%w: price %q", schema.ErrInvalidPaymentInfo, price)
		}
		info.SmallestUnitAmount = units
		if info.Amount == "" {
			info.Amount = decimal.NewFromBigInt(units, -usdcDecimals).String()
		}
	} else if info.Amount != "" {
		d, err := decimal.NewFromString(info.Amount)
		if err != nil {
			return info, fmt.Errorf("%w: amount %q", schema.ErrInvalidPaymentInfo, info.Amount)
		}
		info.SmallestUnitAmount = d.Mul(decimal.New(1, usdcDecimals)).BigInt()
	}

	if !common.IsHexAddress(info.Recipient) || !common.IsHexAddress(info.TokenAddress) || info.SmallestUnitAmount == nil {
		return info, schema.ErrInvalidPaymentInfo
	}
	info.Recipient = common.HexToAddress(info.Recipient).Hex()
	info.TokenAddress = common.HexToAddress(info.TokenAddress).Hex()
	return info, nil
}
