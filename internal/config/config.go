package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dalbodeule/hop-proxy/internal/proxy"
)

// LoggingConfig 는 공통 로그 설정을 담습니다.
type LoggingConfig struct {
	Level string // 예: "debug", "info", "warn", "error"
}

// ServerConfig 는 프록시 서버 프로세스 설정을 담습니다.
//
// ListenAddr / CertFile / KeyFile / TLSEnabled 은 CLI 위치 인자에서 오고
// (ApplyServerArgs 참고), 나머지는 .env/환경변수에서 읽습니다.
type ServerConfig struct {
	ListenAddr string // 예: "0.0.0.0:8443" (위치 인자 1)
	CertFile   string // TLS 모드에서 인증서 PEM 경로 (위치 인자 2)
	KeyFile    string // TLS 모드에서 개인키 PEM 경로 (위치 인자 3)
	TLSEnabled bool   // 위치 인자가 3개일 때 true

	ConnectTimeout time.Duration // 목적지 연결 데드라인 (기본 200ms)
	MetricsListen  string        // 예: ":9100". 비어 있으면 ops HTTP 비활성화
	DNSServer      string        // 예: "1.1.1.1:53". 비어 있으면 시스템 리졸버 사용
	DNSCache       bool          // true 이면 리졸버 결과를 TTL 캐시로 감쌈
	DNSCacheTTL    time.Duration // 캐시 TTL (기본 30s)

	Logging LoggingConfig // 서버용 로그 설정
}

// ClientConfig 는 진단용 CONNECT 클라이언트 설정을 담습니다.
//
// 값은 .env/환경변수와 CLI 플래그를 조합해 구성하며,
// CLI 플래그가 우선, env 가 후순위로 적용됩니다.
type ClientConfig struct {
	ProxyAddr string // 프록시 서버 주소 (host:port)
	Target    string // 터널 목적지 (host:port)
	UseTLS    bool   // true 이면 프록시에 TLS 로 접속
	Insecure  bool   // true 이면 서버 인증서 검증 스킵 (self-signed 테스트용)

	Logging LoggingConfig // 클라이언트용 로그 설정
}

var (
	dotenvOnce sync.Once
	dotenvErr  error
)

// loadDotEnvOnce 는 현재 작업 디렉터리의 .env 파일을 한 번만 읽어서 os.Environ 에 주입합니다.
// - KEY=VALUE, export KEY=VALUE 형식을 지원
// - # 으로 시작하는 줄은 주석으로 간주합니다.
func loadDotEnvOnce() {
	dotenvOnce.Do(func() {
		fi, err := os.Stat(".env")
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// .env 가 없으면 조용히 무시
				return
			}
			dotenvErr = err
			return
		}
		if fi.IsDir() {
			// 디렉터리이면 무시
			return
		}

		f, err := os.Open(".env")
		if err != nil {
			dotenvErr = err
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "export ") {
				line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			// 양 끝의 작은/큰따옴표 제거
			val = strings.Trim(val, `"'`)

			if key != "" {
				// 이미 OS 환경변수에 설정된 값이 있는 경우 이를 우선시하고,
				// 비어 있는 키에 대해서만 .env 값을 주입합니다.
				if _, exists := os.LookupEnv(key); !exists {
					_ = os.Setenv(key, val)
				}
			}
		}
		if err := scanner.Err(); err != nil {
			dotenvErr = err
			return
		}
	})
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// getEnvMillis 는 밀리초 단위 정수 환경변수를 time.Duration 으로 읽습니다.
// 비어 있거나 숫자가 아니거나 음수이면 def 를 반환합니다.
func getEnvMillis(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

// loadLoggingFromEnv 는 공통 로그 설정을 .env/환경변수에서 읽어옵니다.
func loadLoggingFromEnv() LoggingConfig {
	return LoggingConfig{
		Level: getEnvOrDefault("HOP_PROXY_LOG_LEVEL", "info"),
	}
}

// LoadServerConfigFromEnv 는 .env 를 한 번 읽어 현재 환경변수를 보완한 뒤
// "환경변수 > .env" 우선순위로 서버 설정을 구성합니다.
// CLI 위치 인자는 별도로 ApplyServerArgs 로 적용해야 합니다.
func LoadServerConfigFromEnv() (*ServerConfig, error) {
	loadDotEnvOnce()
	if dotenvErr != nil {
		return nil, dotenvErr
	}

	cfg := &ServerConfig{
		ConnectTimeout: getEnvMillis("HOP_PROXY_CONNECT_TIMEOUT_MS", proxy.DefaultConnectTimeout),
		MetricsListen:  os.Getenv("HOP_PROXY_METRICS_LISTEN"),
		DNSServer:      os.Getenv("HOP_PROXY_DNS_SERVER"),
		DNSCache:       getEnvBool("HOP_PROXY_DNS_CACHE", false),
		DNSCacheTTL:    getEnvMillis("HOP_PROXY_DNS_CACHE_TTL_MS", 30*time.Second),
		Logging:        loadLoggingFromEnv(),
	}
	return cfg, nil
}

// ApplyServerArgs 는 CLI 위치 인자를 서버 설정에 적용합니다.
//
//	인자 1개: <listen-addr>                          → 평문 모드
//	인자 3개: <listen-addr> <cert-file> <key-file>   → TLS 모드
//
// 그 외 인자 개수는 기동 실패로 처리합니다.
func ApplyServerArgs(cfg *ServerConfig, args []string) error {
	switch len(args) {
	case 1:
		cfg.ListenAddr = args[0]
		cfg.TLSEnabled = false
	case 3:
		cfg.ListenAddr = args[0]
		cfg.CertFile = args[1]
		cfg.KeyFile = args[2]
		cfg.TLSEnabled = true
	default:
		return fmt.Errorf("expected <listen-addr> or <listen-addr> <cert-file> <key-file>, got %d argument(s)", len(args))
	}
	return nil
}

// LoadClientConfigFromEnv 는 .env 를 한 번 읽어 현재 환경변수를 보완한 뒤
// "환경변수 > .env" 우선순위로 클라이언트 설정을 구성합니다.
// CLI 플래그 오버라이드는 cmd/client 쪽에서 적용합니다.
func LoadClientConfigFromEnv() (*ClientConfig, error) {
	loadDotEnvOnce()
	if dotenvErr != nil {
		return nil, dotenvErr
	}

	cfg := &ClientConfig{
		ProxyAddr: os.Getenv("HOP_PROXY_CLIENT_PROXY_ADDR"),
		Target:    os.Getenv("HOP_PROXY_CLIENT_TARGET"),
		UseTLS:    getEnvBool("HOP_PROXY_CLIENT_TLS", false),
		Insecure:  getEnvBool("HOP_PROXY_CLIENT_INSECURE", false),
		Logging:   loadLoggingFromEnv(),
	}
	return cfg, nil
}
