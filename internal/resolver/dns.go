package resolver

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// dnsQueryTimeout 은 업스트림 DNS 서버와의 단일 교환에 적용되는 상한입니다.
const dnsQueryTimeout = 5 * time.Second

// dnsResolver 는 시스템 리졸버를 거치지 않고 지정한 업스트림 DNS 서버에
// 직접 A/AAAA 질의를 보내는 Resolver 구현입니다. /etc/resolv.conf 와 다른
// 업스트림을 강제하고 싶은 구성(HOP_PROXY_DNS_SERVER)에서 사용합니다.
type dnsResolver struct {
	server string // 업스트림 주소, 예: "1.1.1.1:53"
	client *dns.Client
}

// NewDNSResolver 는 server("ip:port")에 UDP 로 질의하는 Resolver 를 생성합니다.
func NewDNSResolver(server string) Resolver {
	return &dnsResolver{
		server: server,
		client: &dns.Client{Timeout: dnsQueryTimeout},
	}
}

func (r *dnsResolver) Resolve(ctx context.Context, target string) (netip.AddrPort, error) {
	host, port, err := splitTarget(target)
	if err != nil {
		return netip.AddrPort{}, err
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(ip.Unmap(), port), nil
	}

	name := dns.Fqdn(asciiHost(host))

	// A 우선, 응답이 비어 있으면 AAAA 로 한 번 더
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addr, err := r.query(ctx, name, qtype)
		if err != nil {
			return netip.AddrPort{}, err
		}
		if addr.IsValid() {
			return netip.AddrPortFrom(addr, port), nil
		}
	}
	return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrNoAddresses, host)
}

// query 는 단일 질의를 보내고 응답의 첫 번째 주소 레코드를 반환합니다.
// 사용할 수 있는 레코드가 없으면 zero Addr 를 반환합니다 (오류 아님).
func (r *dnsResolver) query(ctx context.Context, fqdn string, qtype uint16) (netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(fqdn, qtype)

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("dns query %s: %w", fqdn, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("dns query %s: %s", fqdn, dns.RcodeToString[in.Rcode])
	}

	for _, rr := range in.Answer {
		switch a := rr.(type) {
		case *dns.A:
			if ip, ok := netip.AddrFromSlice(a.A); ok {
				return ip.Unmap(), nil
			}
		case *dns.AAAA:
			if ip, ok := netip.AddrFromSlice(a.AAAA); ok {
				return ip.Unmap(), nil
			}
		}
	}
	return netip.Addr{}, nil
}
