package proxy

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/dalbodeule/hop-proxy/internal/logging"
	"github.com/dalbodeule/hop-proxy/internal/observability"
	"github.com/dalbodeule/hop-proxy/internal/protocol"
	"github.com/dalbodeule/hop-proxy/internal/resolver"
)

// readChunkSize 는 요청 디코드 단계에서 소켓을 한 번에 읽는 크기입니다.
// 누적 버퍼 자체의 상한은 protocol.MaxFrameBytes 가 강제합니다.
const readChunkSize = 512

// Session 은 수락된 클라이언트 연결 하나의 터널 전 과정을 담당합니다:
// 요청 대기 → 해석 → 연결 → 응답 → 릴레이 → 종료.
//
// 릴레이 전 단계에서 실패하면 세션은 응답 없이 즉시 종료하고 연결을 닫습니다.
// 릴레이에 진입한 뒤에는 양방향 복사가 모두 끝났을 때 종료합니다.
// 세션은 자신의 연결 외에 어떤 상태도 다른 세션과 공유하지 않습니다.
type Session struct {
	id       string
	conn     net.Conn
	resolver resolver.Resolver
	dialer   *Establisher
	log      logging.Logger
}

// NewSession 은 수락된 연결에 대한 세션을 생성합니다.
func NewSession(conn net.Conn, res resolver.Resolver, est *Establisher, logger logging.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     conn,
		resolver: res,
		dialer:   est,
		log: logger.With(logging.Fields{
			"session_id":  id,
			"remote_addr": conn.RemoteAddr().String(),
		}),
	}
}

// ID 는 로그/메트릭 상관용 세션 식별자를 반환합니다.
func (s *Session) ID() string { return s.id }

// Run 은 세션 상태 기계를 끝까지 진행합니다. 단계 순서는 엄격합니다:
// 디코드가 끝나기 전에 해석하지 않고, 해석 전에 연결하지 않으며,
// 상태 라인을 쓰기 전에 릴레이를 시작하지 않습니다.
//
// ctx 는 해석 단계에 전달될 뿐 세션을 강제 취소하지 않습니다. 유일한
// 타임아웃은 Establisher 의 연결 데드라인입니다.
func (s *Session) Run(ctx context.Context) {
	observability.SessionsTotal.Inc()
	observability.ActiveSessions.Inc()
	defer observability.ActiveSessions.Dec()

	// Awaiting-Request
	target, err := s.readTarget()
	if err != nil {
		s.abort("awaiting_request", err)
		return
	}

	// Resolving
	addr, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		s.abort("resolving", err)
		return
	}
	s.log.Debug("target resolved", logging.Fields{
		"phase":  "resolving",
		"target": target,
		"addr":   addr.String(),
	})

	// Connecting: 성공/실패/데드라인 초과 모두 결과를 만들어 응답 단계로 간다
	outbound, result := s.dialer.Establish(ctx, addr)

	// Responding
	if err := protocol.EncodeResult(s.conn, result); err != nil {
		s.log.Warn("failed to write status line", logging.Fields{
			"phase": "responding",
			"error": err.Error(),
		})
		if outbound != nil {
			_ = outbound.Close()
		}
		_ = s.conn.Close()
		return
	}
	observability.TunnelResultsTotal.WithLabelValues(result.String()).Inc()

	if result != protocol.ResultOK || outbound == nil {
		code, _ := result.Status()
		s.log.Info("tunnel refused", logging.Fields{
			"phase":  "responding",
			"target": target,
			"result": result.String(),
			"status": code,
		})
		_ = s.conn.Close()
		return
	}

	// Relaying
	s.log.Info("tunnel established", logging.Fields{
		"phase":  "relaying",
		"target": target,
		"addr":   addr.String(),
	})
	Relay(s.conn, outbound, s.log)

	s.log.Info("session closed", logging.Fields{
		"phase":  "closed",
		"target": target,
	})
}

// readTarget 은 완전한 CONNECT 프레임이 모일 때까지 소켓에서 읽어 누적하고
// 대상 문자열을 디코드합니다. 디코드에는 별도 타임아웃이 없습니다.
func (s *Session) readTarget() (string, error) {
	buf := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)
	for {
		target, ok, err := protocol.DecodeConnect(buf)
		if err != nil {
			return "", err
		}
		if ok {
			return target, nil
		}

		n, err := s.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read connect request: %w", err)
		}
	}
}

// abort 는 클라이언트에 아무 응답도 쓰지 않고 세션을 종료합니다.
// 디코드 실패와 해석 실패가 이 경로를 탑니다.
func (s *Session) abort(phase string, err error) {
	observability.SessionAbortsTotal.WithLabelValues(phase).Inc()
	s.log.Warn("session aborted", logging.Fields{
		"phase": phase,
		"error": err.Error(),
	})
	_ = s.conn.Close()
}
