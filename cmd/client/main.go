package main

import (
	"crypto/tls"
	"crypto/x509"
	"flag"
	"io"
	"net"
	"os"
	"strings"

	"github.com/dalbodeule/hop-proxy/internal/config"
	"github.com/dalbodeule/hop-proxy/internal/logging"
	"github.com/dalbodeule/hop-proxy/internal/protocol"
)

// firstNonEmpty 는 앞에서부터 처음으로 non-empty 인 문자열을 반환합니다.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func main() {
	logger := logging.NewStdJSONLogger("client")

	// 1. 환경변수(.env 포함)에서 클라이언트 설정 로드
	// internal/config 패키지가 .env 를 먼저 읽고, 이미 설정된 OS 환경변수를 우선시합니다.
	envCfg, err := config.LoadClientConfigFromEnv()
	if err != nil {
		logger.Error("failed to load client config from env", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// CLI 플래그 정의 (env 보다 우선 적용됨)
	proxyAddrFlag := flag.String("proxy-addr", "", "proxy server address (host:port)")
	targetFlag := flag.String("target", "", "tunnel destination (host:port)")
	tlsFlag := flag.Bool("tls", false, "connect to the proxy over TLS")
	insecureFlag := flag.Bool("insecure", false, "skip TLS certificate verification (for self-signed test certs)")

	flag.Parse()

	// 2. CLI 플래그 우선, env 후순위로 최종 설정 구성
	finalCfg := &config.ClientConfig{
		ProxyAddr: firstNonEmpty(strings.TrimSpace(*proxyAddrFlag), strings.TrimSpace(envCfg.ProxyAddr)),
		Target:    firstNonEmpty(strings.TrimSpace(*targetFlag), strings.TrimSpace(envCfg.Target)),
		UseTLS:    *tlsFlag || envCfg.UseTLS,
		Insecure:  *insecureFlag || envCfg.Insecure,
		Logging:   envCfg.Logging,
	}

	logger = logging.NewStdJSONLoggerAt("client", logging.ParseLevel(finalCfg.Logging.Level))

	// 3. 필수 필드 검증
	missing := []string{}
	if finalCfg.ProxyAddr == "" {
		missing = append(missing, "proxy_addr")
	}
	if finalCfg.Target == "" {
		missing = append(missing, "target")
	}

	if len(missing) > 0 {
		logger.Error("client config missing required fields", logging.Fields{
			"missing": missing,
		})
		os.Exit(1)
	}

	logger.Info("hop-proxy client starting", logging.Fields{
		"proxy_addr": finalCfg.ProxyAddr,
		"target":     finalCfg.Target,
		"tls":        finalCfg.UseTLS,
		"insecure":   finalCfg.Insecure,
	})

	// 4. 프록시 연결 (옵션: TLS)
	conn, err := dialProxy(finalCfg)
	if err != nil {
		logger.Error("failed to connect to proxy", logging.Fields{
			"proxy_addr": finalCfg.ProxyAddr,
			"error":      err.Error(),
		})
		os.Exit(1)
	}
	defer conn.Close()

	// 5. CONNECT 요청 전송 후 상태 라인 대기
	if err := protocol.EncodeConnect(conn, finalCfg.Target); err != nil {
		logger.Error("failed to write connect request", logging.Fields{
			"target": finalCfg.Target,
			"error":  err.Error(),
		})
		os.Exit(1)
	}

	code, reason, err := readResult(conn)
	if err != nil {
		logger.Error("failed to read status line", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	if code != 200 {
		logger.Error("tunnel refused", logging.Fields{
			"target": finalCfg.Target,
			"status": code,
			"reason": reason,
		})
		os.Exit(1)
	}

	logger.Info("tunnel established", logging.Fields{
		"target": finalCfg.Target,
		"status": code,
	})

	// 6. stdin/stdout 을 터널 양 끝에 연결합니다. stdin 이 닫히면 쓰기 방향만
	// half-close 하고, 서버 쪽이 닫힐 때까지 응답을 계속 출력합니다.
	go func() {
		_, _ = io.Copy(conn, os.Stdin)
		if cw, ok := conn.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		}
	}()

	if _, err := io.Copy(os.Stdout, conn); err != nil {
		logger.Warn("tunnel read ended with error", logging.Fields{
			"error": err.Error(),
		})
	}
	logger.Info("tunnel closed", nil)
}

// dialProxy 는 설정에 따라 평문 또는 TLS 로 프록시에 접속합니다.
func dialProxy(cfg *config.ClientConfig) (net.Conn, error) {
	if !cfg.UseTLS {
		return net.Dial("tcp", cfg.ProxyAddr)
	}

	// SNI 에는 host:port 중 host 부분만 넣어야 합니다.
	host := cfg.ProxyAddr
	if h, _, err := net.SplitHostPort(cfg.ProxyAddr); err == nil && strings.TrimSpace(h) != "" {
		host = h
	}

	tlsCfg := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
	if cfg.Insecure {
		// self-signed 테스트 인증서도 신뢰하도록 검증을 스킵합니다.
		tlsCfg.InsecureSkipVerify = true
	} else {
		rootCAs, err := x509.SystemCertPool()
		if err != nil || rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		tlsCfg.RootCAs = rootCAs
	}
	return tls.Dial("tcp", cfg.ProxyAddr, tlsCfg)
}

// readResult 는 상태 라인이 완성될 때까지 읽어 코드/사유를 반환합니다.
// 상태 라인 직후에 이어질 수 있는 중계 바이트를 삼키지 않도록
// 한 바이트씩 읽습니다. 상태 라인은 수십 바이트라 비용은 무시할 수 있습니다.
func readResult(conn net.Conn) (int, string, error) {
	buf := make([]byte, 0, 64)
	one := make([]byte, 1)
	for {
		code, reason, ok, err := protocol.DecodeResult(buf)
		if err != nil {
			return 0, "", err
		}
		if ok {
			return code, reason, nil
		}

		n, err := conn.Read(one)
		if n > 0 {
			buf = append(buf, one[0])
			continue
		}
		if err != nil {
			return 0, "", err
		}
	}
}
