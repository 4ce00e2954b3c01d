package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "str_reports_saved_total",
			Help: "Reports written, by operation",
		},
		[]string{"op"}, // create, update
	)

	historyEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "str_history_entries_total",
			Help: "History entries added, by kind",
		},
		[]string{"kind"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "str_notifications_total",
			Help: "Notification emails, by result",
		},
		[]string{"result"}, // sent, failed
	)
)
