package resolver

import (
	"context"
	"net/netip"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// cachingResolver 는 내부 Resolver 의 성공 결과를 TTL 동안 재사용합니다.
// 실패는 캐시하지 않으므로 일시적 조회 오류는 다음 요청에서 다시 시도됩니다.
type cachingResolver struct {
	inner Resolver
	store *gocache.Cache
}

// NewCachingResolver 는 inner 를 TTL 캐시로 감싼 Resolver 를 생성합니다.
// ttl 이 0 이하이면 캐시 없이 inner 를 그대로 반환합니다.
func NewCachingResolver(inner Resolver, ttl time.Duration) Resolver {
	if ttl <= 0 {
		return inner
	}
	return &cachingResolver{
		inner: inner,
		store: gocache.New(ttl, 2*ttl),
	}
}

func (r *cachingResolver) Resolve(ctx context.Context, target string) (netip.AddrPort, error) {
	if v, found := r.store.Get(target); found {
		return v.(netip.AddrPort), nil
	}

	addr, err := r.inner.Resolve(ctx, target)
	if err != nil {
		return netip.AddrPort{}, err
	}
	r.store.Set(target, addr, gocache.DefaultExpiration)
	return addr, nil
}
