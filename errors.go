package paygate

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tachi-labs/paygate/schema"
)

// GatewayError carries the kind of failure, the status it maps to and the public message.
// Err holds the underlying cause, only exposed outside production.
type GatewayError struct {
	Kind    string
	Status  int
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string, err error) *GatewayError {
	return &GatewayError{Kind: schema.KindValidation, Status: http.StatusBadRequest, Message: msg, Err: err}
}

func NewPaymentError(msg string, err error) *GatewayError {
	return &GatewayError{Kind: schema.KindPayment, Status: http.StatusPaymentRequired, Message: msg, Err: err}
}

func NewRateLimitError() *GatewayError {
	return &GatewayError{Kind: schema.KindRateLimit, Status: http.StatusTooManyRequests, Message: schema.MsgTooManyRequests, Err: schema.ErrLimitExceeded}
}

func NewSizeLimitError() *GatewayError {
	return &GatewayError{Kind: schema.KindSizeLimit, Status: http.StatusRequestEntityTooLarge, Message: schema.MsgRequestTooLarge, Err: schema.ErrRequestTooLarge}
}

func NewInternalError(err error) *GatewayError {
	return &GatewayError{Kind: schema.KindInternal, Status: http.StatusInternalServerError, Message: schema.MsgInternal, Err: err}
}

func NewOriginError(err error) *GatewayError {
	return &GatewayError{Kind: schema.KindInternal, Status: http.StatusBadGateway, Message: schema.MsgOriginFailed, Err: err}
}

// errorResponse aborts c with the structured error body; non GatewayErrors are treated as internal.
func errorResponse(c *gin.Context, err error, production bool) {
	var ge *GatewayError
	if !errors.As(err, &ge) {
		ge = NewInternalError(err)
	}
	if ge.Kind == schema.KindInternal {
		log.Error("request failed", "path", c.Request.URL.Path, "status", ge.Status, "err", ge.Err)
	}
	resp := schema.RespErr{Err: ge.Message}
	if !production && ge.Err != nil {
		resp.Details = ge.Err.Error()
	}
	c.AbortWithStatusJSON(ge.Status, resp)
}
