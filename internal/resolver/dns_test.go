package resolver

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/miekg/dns"
)

// startTestDNSServer runs a local UDP DNS server with a few fixed zones and
// returns its address. The server is shut down when the test ends.
func startTestDNSServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to bind UDP socket: %v", err)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc("resolvable.test.", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		if req.Question[0].Qtype == dns.TypeA {
			rr, err := dns.NewRR("resolvable.test. 60 IN A 192.0.2.10")
			if err == nil {
				m.Answer = append(m.Answer, rr)
			}
		}
		_ = w.WriteMsg(m)
	})
	mux.HandleFunc("sixonly.test.", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		if req.Question[0].Qtype == dns.TypeAAAA {
			rr, err := dns.NewRR("sixonly.test. 60 IN AAAA 2001:db8::7")
			if err == nil {
				m.Answer = append(m.Answer, rr)
			}
		}
		_ = w.WriteMsg(m)
	})
	mux.HandleFunc("missing.test.", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, dns.RcodeNameError)
		_ = w.WriteMsg(m)
	})
	mux.HandleFunc("empty.test.", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		_ = w.WriteMsg(m)
	})

	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	t.Cleanup(func() {
		_ = srv.Shutdown()
	})

	return pc.LocalAddr().String()
}

// TestDNSResolverResolvesA tests that the first A answer from the upstream
// becomes the resolved address, with the target port attached.
func TestDNSResolverResolvesA(t *testing.T) {
	r := NewDNSResolver(startTestDNSServer(t))

	got, err := r.Resolve(context.Background(), "resolvable.test:8080")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if got.String() != "192.0.2.10:8080" {
		t.Errorf("Address mismatch: got %q, want %q", got.String(), "192.0.2.10:8080")
	}
}

// TestDNSResolverFallsBackToAAAA tests that an empty A answer falls back
// to an AAAA query.
func TestDNSResolverFallsBackToAAAA(t *testing.T) {
	r := NewDNSResolver(startTestDNSServer(t))

	got, err := r.Resolve(context.Background(), "sixonly.test:443")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if got.String() != "[2001:db8::7]:443" {
		t.Errorf("Address mismatch: got %q, want %q", got.String(), "[2001:db8::7]:443")
	}
}

// TestDNSResolverNXDomain tests that an NXDOMAIN answer is an error.
func TestDNSResolverNXDomain(t *testing.T) {
	r := NewDNSResolver(startTestDNSServer(t))

	if _, err := r.Resolve(context.Background(), "missing.test:80"); err == nil {
		t.Fatal("Expected a resolution error, got success")
	}
}

// TestDNSResolverNoAnswers tests that a NOERROR response without address
// records maps to ErrNoAddresses.
func TestDNSResolverNoAnswers(t *testing.T) {
	r := NewDNSResolver(startTestDNSServer(t))

	_, err := r.Resolve(context.Background(), "empty.test:80")
	if !errors.Is(err, ErrNoAddresses) {
		t.Errorf("Error mismatch: got %v, want ErrNoAddresses", err)
	}
}

// TestDNSResolverLiteralBypassesUpstream tests that IP literals never
// reach the upstream server, even an unreachable one.
func TestDNSResolverLiteralBypassesUpstream(t *testing.T) {
	r := NewDNSResolver("127.0.0.1:1")

	got, err := r.Resolve(context.Background(), "192.0.2.7:80")
	if err != nil {
		t.Fatalf("Failed to resolve literal: %v", err)
	}
	if got.String() != "192.0.2.7:80" {
		t.Errorf("Address mismatch: got %q, want %q", got.String(), "192.0.2.7:80")
	}
}
