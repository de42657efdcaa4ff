package resolver

import (
	"context"
	"fmt"
	"net/netip"
)

// staticResolver 는 고정 호스트 테이블로만 조회하는 Resolver 입니다.
// hosts 파일과 비슷하게 동작하며, 테스트와 폐쇄망 구성에서 사용합니다.
type staticResolver struct {
	hosts map[string]netip.Addr
}

// NewStaticResolver 는 host → 주소 테이블 기반 Resolver 를 생성합니다.
// 테이블은 복사하지 않으므로 생성 후 수정하면 안 됩니다.
func NewStaticResolver(hosts map[string]netip.Addr) Resolver {
	return &staticResolver{hosts: hosts}
}

func (r *staticResolver) Resolve(_ context.Context, target string) (netip.AddrPort, error) {
	host, port, err := splitTarget(target)
	if err != nil {
		return netip.AddrPort{}, err
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(ip.Unmap(), port), nil
	}

	addr, ok := r.hosts[host]
	if !ok {
		return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrNoAddresses, host)
	}
	return netip.AddrPortFrom(addr.Unmap(), port), nil
}
