package config

import (
	"testing"
	"time"

	"github.com/dalbodeule/hop-proxy/internal/proxy"
)

// TestApplyServerArgs tests the positional argument forms: one argument
// selects plain mode, three select TLS mode, anything else fails startup.
func TestApplyServerArgs(t *testing.T) {
	t.Run("plain mode", func(t *testing.T) {
		cfg := &ServerConfig{}
		if err := ApplyServerArgs(cfg, []string{"0.0.0.0:8443"}); err != nil {
			t.Fatalf("Failed to apply single argument: %v", err)
		}
		if cfg.ListenAddr != "0.0.0.0:8443" {
			t.Errorf("ListenAddr mismatch: got %q", cfg.ListenAddr)
		}
		if cfg.TLSEnabled {
			t.Error("TLSEnabled = true for a single argument")
		}
	})

	t.Run("tls mode", func(t *testing.T) {
		cfg := &ServerConfig{}
		err := ApplyServerArgs(cfg, []string{"0.0.0.0:8443", "cert.pem", "key.pem"})
		if err != nil {
			t.Fatalf("Failed to apply three arguments: %v", err)
		}
		if !cfg.TLSEnabled {
			t.Error("TLSEnabled = false for three arguments")
		}
		if cfg.CertFile != "cert.pem" || cfg.KeyFile != "key.pem" {
			t.Errorf("Cert/key mismatch: got (%q, %q)", cfg.CertFile, cfg.KeyFile)
		}
	})

	t.Run("wrong argument counts", func(t *testing.T) {
		for _, args := range [][]string{
			{},
			{"addr", "cert.pem"},
			{"addr", "cert.pem", "key.pem", "extra"},
		} {
			cfg := &ServerConfig{}
			if err := ApplyServerArgs(cfg, args); err == nil {
				t.Errorf("Expected an error for %d argument(s), got nil", len(args))
			}
		}
	})
}

// TestGetEnvBool tests the accepted spellings for boolean env values.
func TestGetEnvBool(t *testing.T) {
	cases := map[string]bool{
		"1": true, "true": true, "YES": true, "on": true,
		"0": false, "false": false, "No": false, "off": false,
		"whatever": true, // falls back to the default
	}
	for raw, want := range cases {
		t.Setenv("HOP_PROXY_TEST_BOOL", raw)
		if got := getEnvBool("HOP_PROXY_TEST_BOOL", true); got != want {
			t.Errorf("getEnvBool(%q) = %v, want %v", raw, got, want)
		}
	}

	t.Setenv("HOP_PROXY_TEST_BOOL", "")
	if got := getEnvBool("HOP_PROXY_TEST_BOOL", false); got {
		t.Error("getEnvBool() ignored the default for an empty value")
	}
}

// TestGetEnvMillis tests millisecond env parsing and its fallbacks.
func TestGetEnvMillis(t *testing.T) {
	def := 200 * time.Millisecond

	cases := map[string]time.Duration{
		"250":  250 * time.Millisecond,
		"0":    0,
		"":     def,
		"abc":  def,
		"-5":   def,
		"1000": time.Second,
	}
	for raw, want := range cases {
		t.Setenv("HOP_PROXY_TEST_MS", raw)
		if got := getEnvMillis("HOP_PROXY_TEST_MS", def); got != want {
			t.Errorf("getEnvMillis(%q) = %v, want %v", raw, got, want)
		}
	}
}

// TestLoadServerConfigFromEnvDefaults tests the defaults applied when no
// tuning keys are set.
func TestLoadServerConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"HOP_PROXY_LOG_LEVEL",
		"HOP_PROXY_CONNECT_TIMEOUT_MS",
		"HOP_PROXY_METRICS_LISTEN",
		"HOP_PROXY_DNS_SERVER",
		"HOP_PROXY_DNS_CACHE",
		"HOP_PROXY_DNS_CACHE_TTL_MS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadServerConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to load server config: %v", err)
	}
	if cfg.ConnectTimeout != proxy.DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", cfg.ConnectTimeout, proxy.DefaultConnectTimeout)
	}
	if cfg.DNSCacheTTL != 30*time.Second {
		t.Errorf("DNSCacheTTL = %v, want 30s", cfg.DNSCacheTTL)
	}
	if cfg.MetricsListen != "" || cfg.DNSServer != "" || cfg.DNSCache {
		t.Errorf("Expected empty tuning fields, got %+v", cfg)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.TLSEnabled || cfg.ListenAddr != "" {
		t.Error("Listen fields must come from ApplyServerArgs, not the env")
	}
}

// TestLoadServerConfigFromEnvOverrides tests that tuning keys are honored.
func TestLoadServerConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("HOP_PROXY_LOG_LEVEL", "debug")
	t.Setenv("HOP_PROXY_CONNECT_TIMEOUT_MS", "500")
	t.Setenv("HOP_PROXY_METRICS_LISTEN", ":9100")
	t.Setenv("HOP_PROXY_DNS_SERVER", "1.1.1.1:53")
	t.Setenv("HOP_PROXY_DNS_CACHE", "true")
	t.Setenv("HOP_PROXY_DNS_CACHE_TTL_MS", "60000")

	cfg, err := LoadServerConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to load server config: %v", err)
	}
	if cfg.ConnectTimeout != 500*time.Millisecond {
		t.Errorf("ConnectTimeout = %v, want 500ms", cfg.ConnectTimeout)
	}
	if cfg.MetricsListen != ":9100" {
		t.Errorf("MetricsListen = %q, want %q", cfg.MetricsListen, ":9100")
	}
	if cfg.DNSServer != "1.1.1.1:53" {
		t.Errorf("DNSServer = %q, want %q", cfg.DNSServer, "1.1.1.1:53")
	}
	if !cfg.DNSCache || cfg.DNSCacheTTL != time.Minute {
		t.Errorf("DNS cache settings mismatch: %v / %v", cfg.DNSCache, cfg.DNSCacheTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

// TestLoadClientConfigFromEnv tests the client env keys.
func TestLoadClientConfigFromEnv(t *testing.T) {
	t.Setenv("HOP_PROXY_CLIENT_PROXY_ADDR", "127.0.0.1:8443")
	t.Setenv("HOP_PROXY_CLIENT_TARGET", "example.com:443")
	t.Setenv("HOP_PROXY_CLIENT_TLS", "true")
	t.Setenv("HOP_PROXY_CLIENT_INSECURE", "1")

	cfg, err := LoadClientConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to load client config: %v", err)
	}
	if cfg.ProxyAddr != "127.0.0.1:8443" || cfg.Target != "example.com:443" {
		t.Errorf("Address fields mismatch: %+v", cfg)
	}
	if !cfg.UseTLS || !cfg.Insecure {
		t.Errorf("TLS fields mismatch: %+v", cfg)
	}
}
