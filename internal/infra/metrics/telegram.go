package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		accountsLinkedTotal,
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
		telegramMessagesSentTotal,
	)
}

var (
	accountsLinkedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_linked_total",
			Help:      "Instagram accounts linked by subscribers.",
		},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_commands_received_total",
			Help:      "Incoming commands, messages and callbacks.",
		},
		[]string{"command"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_rate_limit_triggered_total",
			Help:      "Times a user hit the command rate limit.",
		},
	)

	telegramMessagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_messages_sent_total",
			Help:      "Outgoing messages by result.",
		},
		[]string{"result"}, // ok, error
	)
)

func IncAccountsLinked() {
	accountsLinkedTotal.Inc()
}

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(label(command)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncMessageSent(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	telegramMessagesSentTotal.WithLabelValues(result).Inc()
}
