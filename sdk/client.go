package sdk

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/inconshreveable/log15"
	paySchema "github.com/tachi-labs/paygate/schema"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"
)

const (
	DefaultUserAgent  = "TachiSDK-Go/1.0"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

var log = log15.New("module", "paygate-sdk")

type PaygateCli struct {
	SCli       *gentleman.Client
	UserAgent  string
	MaxRetries int
	Backoff    time.Duration // first retry delay, doubled per attempt
}

func New() *PaygateCli {
	return &PaygateCli{
		SCli:       gentleman.New().Use(timeout.Request(DefaultTimeout)),
		UserAgent:  DefaultUserAgent,
		MaxRetries: DefaultMaxRetries,
		Backoff:    time.Second,
	}
}

// Fetch sends one request, retrying only transport failures.
func (a *PaygateCli) Fetch(method, url string, header http.Header, body []byte) (*gentleman.Response, error) {
	var lastErr error
	attempts := a.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		req := a.SCli.Request()
		req.Method(method)
		req.URL(url)
		for k, vs := range header {
			for _, v := range vs {
				req.AddHeader(k, v)
			}
		}
		req.SetHeader("User-Agent", a.UserAgent)
		if body != nil {
			req.Body(bytes.NewReader(body))
		}

		resp, err := req.Send()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Warn("request attempt failed", "attempt", attempt, "url", url, "err", err)
		if attempt < attempts {
			time.Sleep(a.Backoff << (attempt - 1))
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// Health reads the gateway's own health endpoint at baseUrl.
func (a *PaygateCli) Health(baseUrl string) (paySchema.RespHealth, error) {
	res := paySchema.RespHealth{}
	resp, err := a.Fetch(http.MethodGet, baseUrl+"/paygate/health", nil, nil)
	if err != nil {
		return res, err
	}
	defer resp.Close()
	if !resp.Ok {
		return res, errors.New(fmt.Sprintf("resp failed: %s", resp.String()))
	}
	err = resp.JSON(&res)
	return res, err
}
