// Package metrics exposes Prometheus counters for payment and commission processing.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "studyhub"

var (
	webhookNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payhere",
		Name:      "notifications_total",
		Help:      "Payment notifications received, by outcome",
	}, []string{"outcome"})

	attributions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "commission",
		Name:      "attributions_total",
		Help:      "Finalize calls, by source and result (created, duplicate, unattributed)",
	}, []string{"source", "result"})

	commissionAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "commission",
		Name:      "creator_commission_total",
		Help:      "Sum of creator commission written to the ledger",
	})

	tierChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "commission",
		Name:      "tier_changes_total",
		Help:      "Tier promotions and demotions applied by the evaluator",
	}, []string{"direction"})

	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Batch job runs, by job and result",
	}, []string{"job", "result"})

	refunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payhere",
		Name:      "refunds_total",
		Help:      "Refund attempts, by result",
	}, []string{"result"})
)

func RecordNotification(outcome string) {
	webhookNotifications.WithLabelValues(outcome).Inc()
}

func RecordAttribution(source, result string, commission decimal.Decimal) {
	attributions.WithLabelValues(source, result).Inc()
	if commission.IsPositive() {
		commissionAmount.Add(commission.InexactFloat64())
	}
}

func RecordTierChange(direction string) {
	tierChanges.WithLabelValues(direction).Inc()
}

func RecordJobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobRuns.WithLabelValues(job, result).Inc()
}

func RecordRefund(result string) {
	refunds.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the Prometheus text format
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
