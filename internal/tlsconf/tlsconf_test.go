package tlsconf

import (
	"crypto/tls"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// writePEMFiles writes cert/key bytes into a temp dir and returns the paths.
func writePEMFiles(t *testing.T, certPEM, keyPEM []byte) (certPath, keyPath string) {
	t.Helper()

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		t.Fatalf("Failed to write cert file: %v", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	return certPath, keyPath
}

// TestFileSourceLoadsGeneratedPair tests that a generated self-signed pair
// loads from disk and serves a working TLS handshake on loopback.
func TestFileSourceLoadsGeneratedPair(t *testing.T) {
	certPEM, keyPEM, err := NewSelfSignedPEM()
	if err != nil {
		t.Fatalf("Failed to generate PEM pair: %v", err)
	}
	certPath, keyPath := writePEMFiles(t, certPEM, keyPEM)

	cfg, err := FileSource{CertFile: certPath, KeyFile: keyPath}.TLSConfig()
	if err != nil {
		t.Fatalf("Failed to load TLS config: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("Certificate count mismatch: got %d, want 1", len(cfg.Certificates))
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		_, _ = conn.Write(buf)
	}()

	client, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("Failed to dial TLS: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("Failed to read echo: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("Echo mismatch: got %q, want %q", string(buf), "hello")
	}
}

// TestFileSourceLastKeyWins tests that with multiple RSA key blocks in the
// key file, the last one is used.
func TestFileSourceLastKeyWins(t *testing.T) {
	_, keyA, err := NewSelfSignedPEM()
	if err != nil {
		t.Fatalf("Failed to generate first pair: %v", err)
	}
	certB, keyB, err := NewSelfSignedPEM()
	if err != nil {
		t.Fatalf("Failed to generate second pair: %v", err)
	}

	// keyB last: matches certB, must load
	certPath, keyPath := writePEMFiles(t, certB, append(append([]byte{}, keyA...), keyB...))
	if _, err := (FileSource{CertFile: certPath, KeyFile: keyPath}).TLSConfig(); err != nil {
		t.Errorf("Expected load with matching last key, got error: %v", err)
	}

	// keyA last: does not match certB, must fail
	certPath, keyPath = writePEMFiles(t, certB, append(append([]byte{}, keyB...), keyA...))
	if _, err := (FileSource{CertFile: certPath, KeyFile: keyPath}).TLSConfig(); err == nil {
		t.Error("Expected mismatch error with non-matching last key, got success")
	}
}

// TestFileSourceMissingKey tests that a key file without any RSA PKCS#1
// block fails to load.
func TestFileSourceMissingKey(t *testing.T) {
	certPEM, _, err := NewSelfSignedPEM()
	if err != nil {
		t.Fatalf("Failed to generate pair: %v", err)
	}
	// Use the certificate PEM as the key file: no RSA PRIVATE KEY block.
	certPath, keyPath := writePEMFiles(t, certPEM, certPEM)

	if _, err := (FileSource{CertFile: certPath, KeyFile: keyPath}).TLSConfig(); err == nil {
		t.Fatal("Expected an error for a keyless key file, got success")
	}
}

// TestFileSourceMissingCert tests that a cert file without any CERTIFICATE
// block fails to load.
func TestFileSourceMissingCert(t *testing.T) {
	_, keyPEM, err := NewSelfSignedPEM()
	if err != nil {
		t.Fatalf("Failed to generate pair: %v", err)
	}
	certPath, keyPath := writePEMFiles(t, keyPEM, keyPEM)

	if _, err := (FileSource{CertFile: certPath, KeyFile: keyPath}).TLSConfig(); err == nil {
		t.Fatal("Expected an error for a certless cert file, got success")
	}
}

// TestSelfSignedSource tests the in-memory source used for development.
func TestSelfSignedSource(t *testing.T) {
	cfg, err := SelfSignedSource{}.TLSConfig()
	if err != nil {
		t.Fatalf("Failed to build self-signed config: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("Certificate count mismatch: got %d, want 1", len(cfg.Certificates))
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion mismatch: got %x, want %x", cfg.MinVersion, tls.VersionTLS12)
	}
}
