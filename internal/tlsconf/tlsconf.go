package tlsconf

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// Source 는 TLS 리스너에 주입할 tls.Config 를 공급하는 추상화입니다.
// 파일 기반 구현 외에 self-signed, 추후 ACME 연동 구현으로 교체할 수 있습니다.
type Source interface {
	// TLSConfig 는 서버 리스너에 적용할 tls.Config 를 반환합니다.
	// 사용할 수 있는 인증서/키가 없으면 오류를 반환하며, 이는 기동 실패로 이어집니다.
	TLSConfig() (*tls.Config, error)
}

// FileSource 는 PEM 파일에서 인증서 체인과 RSA 개인키를 읽는 Source 입니다.
//
// - 인증서 파일의 모든 CERTIFICATE 블록이 순서대로 체인이 됩니다.
// - 키 파일에서는 PKCS#1("RSA PRIVATE KEY") 블록만 인식하며, 여러 개면
//   마지막 블록을 사용합니다. 다른 형식의 키는 무시되므로 RSA 키가 하나도
//   없으면 로드에 실패합니다.
type FileSource struct {
	CertFile string
	KeyFile  string
}

func (s FileSource) TLSConfig() (*tls.Config, error) {
	chain, err := loadCertificateChain(s.CertFile)
	if err != nil {
		return nil, err
	}
	key, err := loadRSAPrivateKey(s.KeyFile)
	if err != nil {
		return nil, err
	}

	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return nil, fmt.Errorf("parse leaf certificate: %w", err)
	}
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok || pub.N.Cmp(key.N) != 0 {
		return nil, fmt.Errorf("private key in %s does not match certificate %s", s.KeyFile, s.CertFile)
	}

	cert := tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
		Leaf:        leaf,
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// loadCertificateChain 은 파일의 모든 CERTIFICATE PEM 블록을 DER 목록으로 반환합니다.
func loadCertificateChain(path string) ([][]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate file: %w", err)
	}

	var chain [][]byte
	for block, rest := pem.Decode(raw); block != nil; block, rest = pem.Decode(rest) {
		if block.Type == "CERTIFICATE" {
			chain = append(chain, block.Bytes)
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no certificates in %s", path)
	}
	return chain, nil
}

// loadRSAPrivateKey 는 파일의 "RSA PRIVATE KEY" 블록들을 파싱해 마지막 키를 반환합니다.
func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var keys []*rsa.PrivateKey
	for block, rest := pem.Decode(raw); block != nil; block, rest = pem.Decode(rest) {
		if block.Type != "RSA PRIVATE KEY" {
			continue
		}
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse rsa private key: %w", err)
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no rsa private key in %s", path)
	}
	return keys[len(keys)-1], nil
}
