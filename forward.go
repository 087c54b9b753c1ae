package paygate

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tachi-labs/paygate/common"
	"github.com/tachi-labs/paygate/schema"
)

// Forwarder relays requests to the publisher origin unchanged apart from the payment credential.
type Forwarder struct {
	proxy *httputil.ReverseProxy
}

func NewForwarder(origin *url.URL, timeout time.Duration, production bool) *Forwarder {
	proxy := httputil.NewSingleHostReverseProxy(origin)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = origin.Host
		req.Header.Del("Authorization")
	}
	proxy.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	proxy.ModifyResponse = func(resp *http.Response) error {
		common.PrepareProxiedHeaders(resp.Header)
		return nil
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		status, resp := http.StatusBadGateway, schema.RespErr{Err: schema.MsgOriginFailed}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status, resp.Err = http.StatusRequestEntityTooLarge, schema.MsgRequestTooLarge
		} else {
			log.Error("forward to origin failed", "path", req.URL.Path, "err", err)
		}
		if !production {
			resp.Details = err.Error()
		}
		body, _ := json.Marshal(resp)
		common.RestoreGatewayCSP(w.Header())
		w.Header().Set("Content-Type", contentTypeJSONCharset)
		w.WriteHeader(status)
		w.Write(body)
	}
	return &Forwarder{proxy: proxy}
}

func (f *Forwarder) Serve(c *gin.Context) {
	common.DropGatewayCSP(c.Writer.Header())
	f.proxy.ServeHTTP(c.Writer, c.Request)
}
