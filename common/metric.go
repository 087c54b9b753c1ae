package common

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = NewLog("common")

// NewMetricServer serves /metrics on its own port; an empty port disables it.
func NewMetricServer(port string) *http.Server {
	if port == "" {
		return nil
	}
	log.Info("Starting metric server", "listen", port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: port, Handler: handlers.RecoveryHandler()(mux)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metric server stopped", "err", err)
		}
	}()
	return srv
}

// AccessLog wraps h with an apache combined access log on stdout.
func AccessLog(h http.Handler) http.Handler {
	return handlers.CombinedLoggingHandler(os.Stdout, h)
}
