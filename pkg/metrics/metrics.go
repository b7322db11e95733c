// Package metrics 提供 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 连接指标
var (
	ClientConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "play_client_connections",
		Help: "Number of active session connections",
	}, []string{"tier"}) // lobby, game

	ClientConnectionCloseReason = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "play_client_connection_close_total",
		Help: "Connection close count by reason",
	}, []string{"reason"})

	ClientPendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "play_client_pending_requests",
		Help: "Number of in-flight correlated requests",
	})
)

// 消息指标
var (
	ClientMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "play_client_messages_sent_total",
		Help: "Total frames sent to the server",
	}, []string{"cmd"})

	ClientMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "play_client_messages_received_total",
		Help: "Total frames received from the server",
	}, []string{"cmd"})

	ClientHeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "play_client_heartbeats_sent_total",
		Help: "Total heartbeat frames sent",
	})

	ClientMalformedPushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "play_client_malformed_pushes_total",
		Help: "Total inbound pushes dropped for unexpected shape",
	})
)

// 路由指标
var (
	RouterFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "play_router_fetches_total",
		Help: "Endpoint router fetch count by outcome",
	}, []string{"router", "outcome"}) // router: app, lobby; outcome: ok, error, cached, backoff

	RouterFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "play_router_fetch_duration_seconds",
		Help:    "Endpoint router HTTP fetch duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"router"})
)

// 会话指标
var (
	SessionStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "play_session_state_transitions_total",
		Help: "Session state machine transitions",
	}, []string{"from", "to"})

	SessionHandoffs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "play_session_handoffs_total",
		Help: "Lobby/game connection handoffs by direction and outcome",
	}, []string{"direction", "outcome"})
)
