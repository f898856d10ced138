package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LevelUps counts level raises recorded by the stats ledger.
	LevelUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialrank_level_ups_total",
		Help: "Total number of user level-ups",
	})

	// IntentsEmitted counts notification intents by kind.
	IntentsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialrank_notification_intents_total",
		Help: "Notification intents emitted by kind",
	}, []string{"kind"})

	// DeliveryResults counts notification deliveries by channel and outcome.
	DeliveryResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialrank_notification_deliveries_total",
		Help: "Notification delivery attempts by channel and outcome",
	}, []string{"channel", "outcome"})

	// RankChecks counts leaderboard evaluations by metric and outcome.
	RankChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialrank_rank_checks_total",
		Help: "Leaderboard rank checks by metric and outcome",
	}, []string{"metric", "outcome"})

	// PushTokensDeactivated counts device tokens dropped after the push provider rejected them.
	PushTokensDeactivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialrank_push_tokens_deactivated_total",
		Help: "Device tokens deactivated after being reported unregistered",
	})
)
