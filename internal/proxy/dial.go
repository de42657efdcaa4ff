package proxy

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"time"

	"github.com/dalbodeule/hop-proxy/internal/protocol"
)

// DefaultConnectTimeout 은 목적지 연결 시도에 적용되는 기본 데드라인입니다.
const DefaultConnectTimeout = 200 * time.Millisecond

// DialFunc 은 아웃바운드 TCP 연결을 여는 함수 타입입니다.
// 테스트에서 가짜 dial 을 주입할 수 있도록 Establisher 의 의존성으로 둡니다.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func defaultDial(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}

// Establisher 는 해석된 주소로 데드라인 내에 아웃바운드 연결을 한 번 시도하고
// 그 결과를 TunnelResult 로 변환합니다. 재시도는 하지 않습니다.
type Establisher struct {
	Timeout time.Duration // 0 이하이면 DefaultConnectTimeout
	Dial    DialFunc      // nil 이면 net.Dialer 사용
}

// Establish 는 addr 로의 TCP 연결을 시도합니다.
//
//   - 데드라인 내 성공: (conn, ResultOK)
//   - 데드라인 초과: (nil, ResultBadRequest)
//   - 그 외 연결 실패(거부, 도달 불가 등): (nil, ResultTimeout)
//
// 데드라인은 연결 시도에만 걸리며, DNS 해석이나 요청 디코드에는 관여하지
// 않습니다. 결과와 HTTP 코드의 대응은 protocol.TunnelResult 테이블을 따릅니다.
func (e *Establisher) Establish(ctx context.Context, addr netip.AddrPort) (net.Conn, protocol.TunnelResult) {
	dial := e.Dial
	if dial == nil {
		dial = defaultDial
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dial(dctx, "tcp", addr.String())
	if err == nil {
		return conn, protocol.ResultOK
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(dctx.Err(), context.DeadlineExceeded) {
		return nil, protocol.ResultBadRequest
	}
	return nil, protocol.ResultTimeout
}
