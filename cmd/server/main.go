package main

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalbodeule/hop-proxy/internal/config"
	"github.com/dalbodeule/hop-proxy/internal/logging"
	"github.com/dalbodeule/hop-proxy/internal/observability"
	"github.com/dalbodeule/hop-proxy/internal/proxy"
	"github.com/dalbodeule/hop-proxy/internal/resolver"
	"github.com/dalbodeule/hop-proxy/internal/tlsconf"
)

func main() {
	logger := logging.NewStdJSONLogger("server")

	// 1. 서버 설정 로드 (.env + 환경변수)
	cfg, err := config.LoadServerConfigFromEnv()
	if err != nil {
		logger.Error("failed to load server config from env", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// 2. CLI 위치 인자 적용: <listen-addr> 또는 <listen-addr> <cert-file> <key-file>
	if err := config.ApplyServerArgs(cfg, os.Args[1:]); err != nil {
		logger.Error("invalid command line arguments", logging.Fields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// 설정이 확정된 뒤 로그 레벨을 다시 적용합니다.
	logger = logging.NewStdJSONLoggerAt("server", logging.ParseLevel(cfg.Logging.Level))

	logger.Info("hop-proxy server starting", logging.Fields{
		"stack":           "prometheus-loki-grafana",
		"listen":          cfg.ListenAddr,
		"tls":             cfg.TLSEnabled,
		"connect_timeout": cfg.ConnectTimeout.String(),
		"metrics_listen":  cfg.MetricsListen,
		"dns_server":      cfg.DNSServer,
		"dns_cache":       cfg.DNSCache,
	})

	// 3. Prometheus 메트릭 등록 + 운영용 HTTP 리스너 (옵션)
	observability.MustRegister()
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		observability.NewHandler(logger).RegisterRoutes(mux)
		go func() {
			if err := http.ListenAndServe(cfg.MetricsListen, mux); err != nil {
				logger.Error("ops http server exited", logging.Fields{
					"error": err.Error(),
				})
			}
		}()
		logger.Info("ops http listening", logging.Fields{
			"addr": cfg.MetricsListen,
		})
	}

	// 4. 리졸버 구성
	//
	// 기본은 시스템 리졸버이고, HOP_PROXY_DNS_SERVER 가 설정되면 해당 서버에
	// 직접 질의합니다. HOP_PROXY_DNS_CACHE=true 이면 결과를 TTL 캐시로 감쌉니다.
	var res resolver.Resolver
	if cfg.DNSServer != "" {
		res = resolver.NewDNSResolver(cfg.DNSServer)
	} else {
		res = resolver.NewSystemResolver()
	}
	if cfg.DNSCache {
		res = resolver.NewCachingResolver(res, cfg.DNSCacheTTL)
	}

	// 5. 리스너 생성. TLS 모드에서는 인증서/키 로드 실패가 곧 기동 실패입니다.
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", logging.Fields{
			"addr":  cfg.ListenAddr,
			"error": err.Error(),
		})
		os.Exit(1)
	}
	if cfg.TLSEnabled {
		src := &tlsconf.FileSource{CertFile: cfg.CertFile, KeyFile: cfg.KeyFile}
		tlsCfg, err := src.TLSConfig()
		if err != nil {
			logger.Error("failed to load tls certificate", logging.Fields{
				"cert_file": cfg.CertFile,
				"key_file":  cfg.KeyFile,
				"error":     err.Error(),
			})
			os.Exit(1)
		}
		ln = tls.NewListener(ln, tlsCfg)
		logger.Info("tls enabled", logging.Fields{
			"cert_file": cfg.CertFile,
		})
	}

	// 6. 시그널 처리: SIGINT/SIGTERM 은 accept 루프만 멈춥니다.
	// 진행 중인 릴레이에는 별도 취소를 걸지 않습니다.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received", nil)
		_ = ln.Close()
	}()

	// 7. Accept 루프: 연결마다 세션 goroutine 을 띄웁니다.
	// 세션은 서로 상태를 공유하지 않으므로 개수 제한 없이 병렬로 돌립니다.
	// 시그널 ctx 는 accept 루프 전용이며, 세션에는 전달하지 않습니다.
	est := &proxy.Establisher{Timeout: cfg.ConnectTimeout}
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn("accept failed", logging.Fields{
				"error": err.Error(),
			})
			continue
		}

		sess := proxy.NewSession(conn, res, est, logger)
		go sess.Run(context.Background())
	}

	logger.Info("server stopped", nil)
}
