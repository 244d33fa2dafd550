package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersIngestedTotal 订单接入结果计数
	OrdersIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_orders_ingested_total",
		Help: "Total number of ingested order events by outcome status",
	}, []string{"status"})

	IngestLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "affiliate_order_ingest_latency_seconds",
		Help:    "Latency of order ingestion attempts",
		Buckets: prometheus.DefBuckets,
	})

	// CommissionLoggedTotal 已记账佣金金额累计
	CommissionLoggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affiliate_commission_logged_total",
		Help: "Total commission amount logged at ingestion",
	})

	AffiliatesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affiliate_affiliates_created_total",
		Help: "Total number of affiliates created during ingestion",
	})

	AffiliateFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_resolution_fallback_total",
		Help: "Total number of affiliate resolutions that fell back to discount code lookup",
	}, []string{"result"})

	PayoutTasksEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "affiliate_payout_tasks_enqueued_total",
		Help: "Total number of payout tasks enqueued",
	})

	PayoutsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "affiliate_payouts_completed_total",
		Help: "Total number of processed payout tasks by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
