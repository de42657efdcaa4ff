package proxy

import (
	"net"
	"sync"

	"github.com/dalbodeule/hop-proxy/internal/logging"
	"github.com/dalbodeule/hop-proxy/internal/observability"
)

// closeWriter 는 쓰기 방향 half-close(FIN)를 지원하는 연결입니다.
// *net.TCPConn 과 *tls.Conn 이 구현합니다.
type closeWriter interface {
	CloseWrite() error
}

// Relay 는 client ↔ dst 사이의 두 복사 방향을 동시에 실행하고,
// 양쪽 모두 끝난 뒤 두 연결을 완전히 닫습니다.
//
// 두 방향은 서로 연결되어 있지 않습니다. 한 방향이 EOF/오류로 끝나도
// 반대 방향은 취소되지 않고 자기 완료까지 복사를 계속합니다. 끝난 방향은
// 자기가 쓰던 연결에 CloseWrite(FIN)만 보내 피어가 EOF 를 관찰하게 합니다.
// 중계되는 바이트는 불투명하며 재시도하지 않습니다.
func Relay(client, dst net.Conn, log logging.Logger) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		relayDirection(dst, client, "client_to_dest", log)
	}()
	go func() {
		defer wg.Done()
		relayDirection(client, dst, "dest_to_client", log)
	}()

	wg.Wait()
	_ = client.Close()
	_ = dst.Close()
}

// relayDirection 은 src → dst 한 방향을 끝까지 복사합니다. 복사가 끝나면
// (EOF 든 오류든) dst 에 FIN 을 보내고, 오류는 디버그 로그로만 남깁니다.
func relayDirection(dst, src net.Conn, direction string, log logging.Logger) {
	n, err := copyWithBuffer(dst, src)
	observability.RelayBytesTotal.WithLabelValues(direction).Add(float64(n))

	fields := logging.Fields{"direction": direction, "bytes": n}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.Debug("relay direction finished", fields)

	if cw, ok := dst.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
}
