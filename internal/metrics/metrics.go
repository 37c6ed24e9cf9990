// Package metrics declares the Prometheus collectors shared by the bot.
//
// Label sets are small and fixed (result / kind / op names), so cardinality
// stays bounded no matter how many orders or users pass through.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// OrdersIngested counts order messages by outcome:
	// accepted | duplicate | no_date.
	OrdersIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_orders_ingested_total",
			Help: "Order messages processed, by result.",
		},
		[]string{"result"},
	)

	// RemindersScheduled counts created reminders by kind: advance | summary | manual | backfill.
	RemindersScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_reminders_scheduled_total",
			Help: "Reminders created or dispatched immediately, by kind.",
		},
		[]string{"kind"},
	)

	// RemindersFired counts sweep transitions by outcome: delivered | failed | skipped.
	RemindersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_reminders_fired_total",
			Help: "Reminders moved to fired by the sweep, by delivery outcome.",
		},
		[]string{"outcome"},
	)

	PendingReminders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderbot_reminders_pending",
			Help: "Reminders not yet fired.",
		},
	)

	CachedOrders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderbot_orders_cached",
			Help: "Orders held in memory.",
		},
	)

	// Evicted counts entries removed by the retention job, by cache: orders | reminders.
	Evicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_cache_evicted_total",
			Help: "Entries removed from memory by the retention job.",
		},
		[]string{"cache"},
	)

	// StoreErrors counts swallowed persistence failures by operation.
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_store_errors_total",
			Help: "Persistence calls that failed and were ignored.",
		},
		[]string{"op"},
	)

	// Commands counts chat commands by name and result: ok | empty | invalid | failed | rate_limited.
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_commands_total",
			Help: "Chat commands handled, by command and result.",
		},
		[]string{"command", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersIngested,
		RemindersScheduled,
		RemindersFired,
		PendingReminders,
		CachedOrders,
		Evicted,
		StoreErrors,
		Commands,
	)
}
