package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/net/idna"
)

// Resolver 는 "host:port" 형태의 터널 목적지를 단일 소켓 주소로 변환합니다.
//
// 세션은 이 인터페이스에만 의존하므로, 시스템 리졸버/직접 DNS 질의/고정
// 호스트 테이블/캐시 구현을 세션 로직 변경 없이 교체할 수 있습니다.
// 성공 시 반환되는 주소는 이름 조회가 돌려준 후보 중 항상 첫 번째입니다.
type Resolver interface {
	Resolve(ctx context.Context, target string) (netip.AddrPort, error)
}

var (
	// ErrInvalidTarget 은 목적지가 "host:port" 형식이 아니거나 포트가 잘못된 경우입니다.
	ErrInvalidTarget = errors.New("invalid tunnel target")

	// ErrNoAddresses 는 이름 조회가 빈 후보 집합을 반환한 경우입니다.
	ErrNoAddresses = errors.New("no addresses for tunnel target")
)

// splitTarget 은 target 을 host/port 로 분해하고 형식을 검증합니다.
// 포트 누락은 조회 실패가 아니라 입력 오류(ErrInvalidTarget)입니다.
func splitTarget(target string) (host string, port uint16, err error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	if host == "" {
		return "", 0, fmt.Errorf("%w: empty host in %q", ErrInvalidTarget, target)
	}
	n, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad port in %q", ErrInvalidTarget, target)
	}
	return host, uint16(n), nil
}

// asciiHost 는 유니코드 호스트명을 조회용 ASCII(punycode) 형태로 정규화합니다.
// IP 리터럴 등 IDNA 변환이 불가능한 입력은 원문 그대로 반환합니다.
func asciiHost(host string) string {
	if a, err := idna.Lookup.ToASCII(host); err == nil && a != "" {
		return a
	}
	return host
}

// systemResolver 는 OS 설정(net.DefaultResolver)을 따르는 기본 Resolver 입니다.
type systemResolver struct{}

// NewSystemResolver 는 시스템 리졸버 기반 Resolver 를 생성합니다.
func NewSystemResolver() Resolver {
	return &systemResolver{}
}

func (*systemResolver) Resolve(ctx context.Context, target string) (netip.AddrPort, error) {
	host, port, err := splitTarget(target)
	if err != nil {
		return netip.AddrPort{}, err
	}

	// IP 리터럴은 네트워크 조회 없이 그대로 사용
	if ip, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(ip.Unmap(), port), nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", asciiHost(host))
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrNoAddresses, host)
	}
	return netip.AddrPortFrom(addrs[0].Unmap(), port), nil
}
