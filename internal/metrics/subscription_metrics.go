package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Daily reconciliation
	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menupro_reconcile_runs_total",
			Help: "Total number of daily reconciliation runs by result",
		},
		[]string{"result"}, // completed, skipped, failed
	)

	ReconcileTenantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menupro_reconcile_tenants_total",
			Help: "Total number of restaurants processed by reconciliation, by outcome",
		},
		[]string{"outcome"}, // unchanged, transitioned, healed, failed
	)

	ReconcileDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "menupro_reconcile_duration_seconds",
			Help:    "Wall time of a full reconciliation pass",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
	)

	// Lifecycle
	SubscriptionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menupro_subscription_transitions_total",
			Help: "Total number of subscription events written, by event type",
		},
		[]string{"event_type"},
	)

	PlanFlagRepairsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "menupro_plan_flag_repairs_total",
			Help: "Total number of restaurant plan flags corrected by reconciliation",
		},
	)

	NotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menupro_notifications_failed_total",
			Help: "Total number of entitlement notifications that could not be delivered, by kind",
		},
		[]string{"kind"},
	)
)

// RecordReconcileRun records the outcome of a full pass
func RecordReconcileRun(result string, elapsed time.Duration) {
	ReconcileRunsTotal.WithLabelValues(result).Inc()
	if result != "skipped" {
		ReconcileDurationSeconds.Observe(elapsed.Seconds())
	}
}

// RecordTenantOutcome records how one restaurant fared in a pass
func RecordTenantOutcome(outcome string) {
	ReconcileTenantsTotal.WithLabelValues(outcome).Inc()
}

func RecordTransition(eventType string) {
	SubscriptionTransitionsTotal.WithLabelValues(eventType).Inc()
}

func RecordPlanRepair() {
	PlanFlagRepairsTotal.Inc()
}

func RecordNotificationFailure(kind string) {
	NotificationsFailedTotal.WithLabelValues(kind).Inc()
}
