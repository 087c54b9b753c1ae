package common

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const corsMaxAge = 86400

const (
	headerCSP = "Content-Security-Policy"
	// StrictCSP covers responses the gateway writes itself.
	StrictCSP = "default-src 'none'; frame-ancestors 'none'"
	// PassthroughCSP covers origin pages that send no policy of their own.
	PassthroughCSP = "default-src 'self'; frame-ancestors 'none'"
)

var securityHeaders = map[string]string{
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	headerCSP:                   StrictCSP,
	"X-XSS-Protection":          "1; mode=block",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":   "*",
	"Access-Control-Allow-Headers":  "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With",
	"Access-Control-Allow-Methods":  "GET, HEAD, POST, PUT, DELETE, OPTIONS",
	"Access-Control-Expose-Headers": "x402-price, x402-currency, x402-network, x402-recipient, x402-contract, x402-chain-id, x402-token-id, X-Crawler-Verified, X-Payment-Hash, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After",
}

var identifyingHeaders = []string{"Server", "X-Powered-By"}

// ApplySecurityHeaders sets the fixed hardening headers and drops server identification.
func ApplySecurityHeaders(h http.Header) {
	for k, v := range securityHeaders {
		h.Set(k, v)
	}
	for _, k := range identifyingHeaders {
		h.Del(k)
	}
}

// StripSecurityHeaders removes the hardening and identifying headers from h, used on proxied origin
// responses so the values already set on the writer are not duplicated or overridden.
func StripSecurityHeaders(h http.Header) {
	for k := range securityHeaders {
		h.Del(k)
	}
	for _, k := range identifyingHeaders {
		h.Del(k)
	}
}

// PrepareProxiedHeaders drops the origin's copies of the gateway headers before the response is
// copied onto the writer. The origin's own CSP survives and PassthroughCSP fills in when it has none.
// The writer's StrictCSP must be dropped first, see DropGatewayCSP.
func PrepareProxiedHeaders(h http.Header) {
	csp := h.Values(headerCSP)
	StripSecurityHeaders(h)
	for k := range corsHeaders {
		h.Del(k)
	}
	if len(csp) == 0 {
		h.Set(headerCSP, PassthroughCSP)
		return
	}
	h[headerCSP] = csp
}

func DropGatewayCSP(h http.Header) {
	h.Del(headerCSP)
}

// RestoreGatewayCSP puts StrictCSP back when the gateway ends up writing the response itself.
func RestoreGatewayCSP(h http.Header) {
	h.Set(headerCSP, StrictCSP)
}

func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ApplySecurityHeaders(c.Writer.Header())
		c.Next()
	}
}

// CORSHeadersMiddleware must run ahead of every middleware that may reject the request.
func CORSHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range corsHeaders {
			h.Set(k, v)
		}
		c.Next()
	}
}

// PreflightMiddleware answers OPTIONS with 204.
func PreflightMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
