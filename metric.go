package paygate

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	MetricNameSpace = "paygate"
)

var (
	paymentChallenges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "payment_required_total",
			Help:      "402 challenges sent to crawlers without proof",
		},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "verification_total",
			Help:      "payment verifications by result",
		},
		[]string{"result"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "ratelimit_rejected_total",
			Help:      "requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	rateLimitFailOpen = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "ratelimit_fail_open_total",
			Help:      "requests allowed because no limiter backend was available",
		},
	)

	crawlLogs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "crawl_log_total",
			Help:      "background ledger writes by status",
		},
		[]string{"status"},
	)

	signerBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "signer_balance",
			Help:      "native balance of the ledger signer",
		},
		[]string{"signer"},
	)

	memoryStoreEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "memory_store_entries",
			Help:      "records held by the in-process store, expired ones included until evicted",
		},
	)
)

func init() {
	prometheus.MustRegister(
		paymentChallenges,
		verifications,
		rateLimited,
		rateLimitFailOpen,
		crawlLogs,
		signerBalance,
		memoryStoreEntries,
	)
}

func metricPaymentChallenge() {
	paymentChallenges.Inc()
}

func metricVerification(result string) {
	verifications.WithLabelValues(result).Inc()
}

func metricRateLimited(route string) {
	rateLimited.WithLabelValues(route).Inc()
}

func metricFailOpen() {
	rateLimitFailOpen.Inc()
}

func metricCrawlLog(status string) {
	crawlLogs.WithLabelValues(status).Inc()
}

func metricSignerBalance(bal *big.Int, addr string) {
	amount, _ := decimal.NewFromBigInt(bal, -18).Float64()
	signerBalance.WithLabelValues(addr).Set(amount)
}

func metricMemoryStoreEntries(n int) {
	memoryStoreEntries.Set(float64(n))
}
