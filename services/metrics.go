package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Data layer Prometheus metrics.
var (
	RepositoryOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_repository_operations_total",
		Help: "Repository operations by entity, operation and result",
	}, []string{"entity", "op", "result"})

	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_notifications_total",
		Help: "Interaction notifications by result",
	}, []string{"result"})

	DashboardRecomputes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_dashboard_recomputes_total",
		Help: "Dashboard aggregate recomputations by trigger",
	}, []string{"trigger"})

	DashboardRecomputeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crm_dashboard_recompute_seconds",
		Help:    "Time spent recomputing dashboard aggregates",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	AttachmentOrphans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_attachment_orphans_total",
		Help: "Attachment halves found or left without their counterpart",
	}, []string{"kind"})
)

// RegisterMetrics registers the data layer metrics on the given registry (or default if nil).
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		RepositoryOps,
		NotificationsSent,
		DashboardRecomputes,
		DashboardRecomputeSeconds,
		AttachmentOrphans,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func observeOp(entity, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RepositoryOps.WithLabelValues(entity, op, result).Inc()
}
