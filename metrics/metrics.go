package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tierChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fightleague_tier_changes_total",
		Help: "Count of tier transitions by direction",
	}, []string{"transition"})

	fightReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fightleague_fight_reports_total",
		Help: "Count of self-reported fight outcomes by result",
	}, []string{"result"})

	disputeResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fightleague_dispute_resolutions_total",
		Help: "Count of dispute resolutions by type and outcome",
	}, []string{"type", "outcome"})

	outboxDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fightleague_outbox_dispatches_total",
		Help: "Count of outbox delivery attempts by result",
	}, []string{"result"})

	openDisputes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fightleague_open_disputes",
		Help: "Number of disputes not yet resolved",
	})
)

// ObserveTierChange records a promotion or demotion.
func ObserveTierChange(transition string) {
	tierChanges.WithLabelValues(transition).Inc()
}

// ObserveFightReport records a self-reported fight outcome.
func ObserveFightReport(result string) {
	fightReports.WithLabelValues(result).Inc()
}

// ObserveResolution records a dispute resolution attempt outcome.
func ObserveResolution(resolutionType, outcome string) {
	disputeResolutions.WithLabelValues(resolutionType, outcome).Inc()
}

// ObserveOutboxDispatch records one delivery attempt result.
func ObserveOutboxDispatch(result string) {
	outboxDispatches.WithLabelValues(result).Inc()
}

// SetOpenDisputes sets the unresolved dispute gauge.
func SetOpenDisputes(count int) {
	if count < 0 {
		count = 0
	}
	openDisputes.Set(float64(count))
}
