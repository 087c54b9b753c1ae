package paygate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tachi-labs/paygate/schema"
)

const (
	errPaymentRequired     = "Payment required"
	errVerificationFailed  = "Payment verification failed"
	msgPaymentRequired     = "This content requires payment for automated access"
	contentTypeJSONCharset = "application/json; charset=utf-8"
)

// Responder renders the 402 challenge. Body and headers are built once so every response is byte identical.
type Responder struct {
	req     schema.PaymentRequirement
	payment schema.RespPayment
	steps   []string
	body    []byte
	headers map[string]string
}

func NewResponder(req schema.PaymentRequirement) (*Responder, error) {
	r := &Responder{
		req: req,
		payment: schema.RespPayment{
			Amount:       req.Amount,
			Currency:     req.Currency,
			Network:      req.Network,
			ChainId:      req.ChainId,
			Recipient:    req.Recipient.Hex(),
			TokenAddress: req.TokenAddress.Hex(),
			TokenId:      req.CrawlTokenId.String(),
		},
		headers: map[string]string{
			schema.HeaderPrice:    req.SmallestUnitAmount.String(),
			schema.HeaderCurrency: req.Currency,
			schema.HeaderNetwork:  req.Network,
			schema.HeaderRecip:    req.Recipient.Hex(),
			schema.HeaderContract: req.TokenAddress.Hex(),
			schema.HeaderChainId:  strconv.FormatInt(req.ChainId, 10),
			schema.HeaderTokenId:  req.CrawlTokenId.String(),
		},
	}
	r.steps = []string{
		fmt.Sprintf("1. Send %s %s (%s smallest units) on %s (chain id %d) to %s using token contract %s",
			req.Amount, req.Currency, req.SmallestUnitAmount.String(), req.Network, req.ChainId, req.Recipient.Hex(), req.TokenAddress.Hex()),
		"2. Wait for the transaction to be confirmed",
		"3. Retry this request with the header: Authorization: Bearer <transaction_hash>",
		"4. Each transaction hash grants a single access",
	}

	body, err := json.Marshal(r.challenge(errPaymentRequired, msgPaymentRequired))
	if err != nil {
		return nil, err
	}
	r.body = body
	return r, nil
}

func (r *Responder) challenge(errMsg, msg string) schema.RespPaymentRequired {
	return schema.RespPaymentRequired{
		Err:          errMsg,
		Message:      msg,
		Payment:      r.payment,
		Instructions: r.steps,
	}
}

func (r *Responder) setHeaders(c *gin.Context) {
	for k, v := range r.headers {
		c.Header(k, v)
	}
}

// PaymentRequired answers a crawler that presented no proof.
func (r *Responder) PaymentRequired(c *gin.Context) {
	r.setHeaders(c)
	c.Data(http.StatusPaymentRequired, contentTypeJSONCharset, r.body)
	c.Abort()
}

// VerificationFailed answers a crawler whose proof did not verify; reason goes in the message.
func (r *Responder) VerificationFailed(c *gin.Context, reason string) {
	r.setHeaders(c)
	c.AbortWithStatusJSON(http.StatusPaymentRequired, r.challenge(errVerificationFailed, reason))
}
