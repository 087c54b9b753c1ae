package paygate

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tachi-labs/paygate/schema"
)

const sanitizedKey = "paygate.sanitized"

func sanitizedHeaders(c *gin.Context) schema.SanitizedHeaders {
	if v, ok := c.Get(sanitizedKey); ok {
		return v.(schema.SanitizedHeaders)
	}
	return SanitizeHeaders(c.Request.Header)
}

func SanitizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sanitizedKey, SanitizeHeaders(c.Request.Header))
		c.Next()
	}
}

// SizeLimitMiddleware rejects declared oversize bodies up front and caps undeclared ones while streaming.
func SizeLimitMiddleware(maxSize int64, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			errorResponse(c, NewSizeLimitError(), production)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}

func (p *Paygate) rateLimitMiddleware() gin.HandlerFunc {
	window := p.config.RateWindow
	production := p.config.IsProduction()
	return func(c *gin.Context) {
		ip := clientIP(c, p.config.Raw.ClientIpHeader)
		if p.config.IsWhitelisted(ip) {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		class, limit := p.config.RouteLimit(path)
		res, err := p.limiter.Check(c.Request.Context(), rateLimitKey(ip, path), limit, window)
		if err != nil {
			// limiters fail open on their own; anything else is unexpected
			log.Error("p.limiter.Check", "ip", ip, "path", path, "err", err)
			c.Next()
			return
		}

		c.Header(schema.HeaderRateLimit, strconv.Itoa(res.Limit))
		c.Header(schema.HeaderRateRemaining, strconv.Itoa(res.Remaining))
		c.Header(schema.HeaderRateReset, strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			metricRateLimited(class)
			c.Header(schema.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			errorResponse(c, NewRateLimitError(), production)
			return
		}
		c.Next()
	}
}

// paymentGate lets humans through and demands a verified payment proof from crawlers.
func (p *Paygate) paymentGate() gin.HandlerFunc {
	production := p.config.IsProduction()
	return func(c *gin.Context) {
		h := sanitizedHeaders(c)
		if !p.classifier.IsCrawler(h.UserAgent) {
			c.Next()
			return
		}

		if h.Authorization == "" {
			metricPaymentChallenge()
			p.responder.PaymentRequired(c)
			return
		}

		proof, err := ParseProof(h.Authorization)
		if err != nil {
			errorResponse(c, NewValidationError(schema.ReasonInvalidAuthFormat, err), production)
			return
		}

		res := p.verifier.Verify(c.Request.Context(), proof)
		if !res.IsValid {
			p.responder.VerificationFailed(c, res.FailureReason)
			return
		}

		c.Header(schema.HeaderCrawlerVerified, "true")
		c.Header(schema.HeaderPaymentHash, proof)
		if p.crawlLog != nil {
			p.crawlLog.LogAsync(p.config.CrawlTokenId, res.CrawlerAddress, proof, c.Request.URL.Path)
		}
		c.Next()
	}
}
