package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 전역 레지스트리에 등록할 hop-proxy 메트릭들을 정의합니다.
// Prometheus 기본 네임스페이스를 사용하며, 메트릭 이름에 hopproxy_ 접두어를 붙입니다.

var (
	// 수락된 터널 세션 총 수.
	SessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hopproxy_sessions_total",
			Help: "Total number of accepted tunnel sessions.",
		},
	)

	// 클라이언트에 기록된 터널 수립 결과 수 (결과 라벨 포함).
	TunnelResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hopproxy_tunnel_results_total",
			Help: "Total number of tunnel establishment results written to clients, labeled by result.",
		},
		[]string{"result"}, // ok, bad_request, forbidden, timeout, server_error
	)

	// 응답 없이 종료된 세션 수 (중단 단계 라벨 포함).
	SessionAbortsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hopproxy_session_aborts_total",
			Help: "Total number of sessions aborted before a response was written, labeled by phase.",
		},
		[]string{"phase"}, // awaiting_request, resolving
	)

	// 릴레이 방향별 중계된 바이트 수.
	RelayBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hopproxy_relay_bytes_total",
			Help: "Total number of relayed bytes, labeled by direction.",
		},
		[]string{"direction"}, // client_to_dest, dest_to_client
	)

	// 현재 진행 중인 세션 수.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hopproxy_active_sessions",
			Help: "Number of tunnel sessions currently in flight.",
		},
	)
)

// MustRegister 는 위에서 정의한 메트릭들을 전역 Prometheus 레지스트리에 등록합니다.
// 서버 시작 시 한 번만 호출해야 합니다.
func MustRegister() {
	prometheus.MustRegister(
		SessionsTotal,
		TunnelResultsTotal,
		SessionAbortsTotal,
		RelayBytesTotal,
		ActiveSessions,
	)
}
