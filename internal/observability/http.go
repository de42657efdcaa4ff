package observability

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dalbodeule/hop-proxy/internal/logging"
)

// Handler 는 운영용 HTTP 엔드포인트(/metrics, /healthz)를 제공합니다.
// 변경 가능한 상태를 노출하지 않으므로 별도 인증은 두지 않습니다.
type Handler struct {
	Logger logging.Logger
}

// NewHandler 는 새로운 Handler 를 생성합니다.
func NewHandler(logger logging.Logger) *Handler {
	return &Handler{
		Logger: logger.With(logging.Fields{"component": "ops_http"}),
	}
}

// RegisterRoutes 는 전달받은 mux 에 운영 라우트를 등록합니다.
//   - GET /metrics  : Prometheus 스크레이프 엔드포인트
//   - GET /healthz  : liveness 확인
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", http.HandlerFunc(h.handleHealthz))
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"success": false,
			"error":   "method not allowed",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "ok",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to write json response", logging.Fields{"error": err.Error()})
	}
}
