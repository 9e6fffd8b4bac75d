/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "quizbox"

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_active",
		Help:      "Number of sessions currently held in memory.",
	})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_created_total",
		Help:      "Number of sessions created.",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "commands_total",
		Help:      "Commands applied to sessions, by command and result.",
	}, []string{"command", "result"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "events_total",
		Help:      "Events emitted by sessions, by type.",
	}, []string{"type"})

	deliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "deliveries_dropped_total",
		Help:      "Subscribers dropped because their send buffer was full.",
	})
)

func recordCommand(cmd Command, err error) {
	result := "ok"
	switch {
	case err == nil:
	case ignored(err):
		result = "ignored"
	default:
		result = "rejected"
	}

	commandsTotal.WithLabelValues(cmd.name(), result).Inc()
}
