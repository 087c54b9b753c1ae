package paygate

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tachi-labs/paygate/common"
	"github.com/tachi-labs/paygate/schema"
)

const healthPath = "/paygate/health"

func (p *Paygate) setupRouter() {
	production := p.config.IsProduction()

	r := p.engine
	// paths are the origin's business, never rewrite them
	r.RedirectTrailingSlash = false
	r.Use(
		gin.Recovery(),
		common.SecurityHeadersMiddleware(),
		common.CORSHeadersMiddleware(),
		SanitizeMiddleware(),
		SizeLimitMiddleware(p.config.Raw.MaxRequestSize, production),
		p.rateLimitMiddleware(),
		common.PreflightMiddleware(),
	)

	r.GET(healthPath, p.health)

	// everything else belongs to the origin
	r.NoRoute(p.paymentGate(), p.forwarder.Serve)
}

func (p *Paygate) health(c *gin.Context) {
	req := p.config.Requirement()
	c.JSON(http.StatusOK, schema.RespHealth{
		Status:  "ok",
		Network: req.Network,
		ChainId: req.ChainId,
	})
}
