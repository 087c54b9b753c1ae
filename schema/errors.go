package schema

import (
	"errors"
)

var (
	ErrNotExist     = errors.New("not_exist_record")
	ErrNotImplement = errors.New("method not implement")

	ErrReceiptNotFound = errors.New("receipt_not_found")
	ErrInvalidProof    = errors.New("invalid_proof_reference")
	ErrRequestTooLarge = errors.New("request_too_large")
	ErrLimitExceeded   = errors.New("err_limit_exceeded")
	ErrOriginFailed    = errors.New("origin_unavailable")
	ErrLogQueueFull    = errors.New("crawl_log_queue_full")
	ErrNoLimiter       = errors.New("no_limiter_available")
)

// error kinds
const (
	KindValidation = "validation"
	KindPayment    = "payment"
	KindRateLimit  = "rate_limit"
	KindSizeLimit  = "size_limit"
	KindInternal   = "internal"
)

// user facing messages
const (
	MsgRequestTooLarge = "Request entity too large"
	MsgTooManyRequests = "Too many requests, please try again later"
	MsgInternal        = "Internal server error"
	MsgOriginFailed    = "Origin server unavailable"
	MsgPaymentRequired = "Payment required"
)
