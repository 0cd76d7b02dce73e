package certgen

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func parseCert(t *testing.T, certPEM []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatalf("invalid certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}
	return cert
}

func TestGenerateSelfSigned(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSigned([]string{"localhost", "127.0.0.1", "issues.local"})
	if err != nil {
		t.Fatalf("GenerateSelfSigned: %v", err)
	}

	if _, err := tls.X509KeyPair(certPEM, keyPEM); err != nil {
		t.Fatalf("cert and key do not match: %v", err)
	}

	cert := parseCert(t, certPEM)
	if err := cert.VerifyHostname("issues.local"); err != nil {
		t.Errorf("hostname not covered: %v", err)
	}
	if err := cert.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("ip not covered: %v", err)
	}
	if err := cert.VerifyHostname("example.com"); err == nil {
		t.Error("unexpected hostname accepted")
	}
	if cert.ExtKeyUsage[0] != x509.ExtKeyUsageServerAuth {
		t.Errorf("ExtKeyUsage = %v; want ServerAuth", cert.ExtKeyUsage)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	if _, err := cert.Verify(x509.VerifyOptions{Roots: pool, DNSName: "localhost"}); err != nil {
		t.Errorf("self-signed chain does not verify: %v", err)
	}
}

func TestEnsureSelfSigned(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "certs", "server.crt")
	keyPath := filepath.Join(dir, "certs", "server.key")

	created, err := EnsureSelfSigned(certPath, keyPath, []string{"localhost"})
	if err != nil {
		t.Fatalf("EnsureSelfSigned: %v", err)
	}
	if !created {
		t.Fatal("expected files to be created")
	}
	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		t.Fatalf("load generated pair: %v", err)
	}
	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key mode = %v; want 0600", info.Mode().Perm())
	}

	before, _ := os.ReadFile(certPath)
	created, err = EnsureSelfSigned(certPath, keyPath, []string{"localhost"})
	if err != nil {
		t.Fatalf("second EnsureSelfSigned: %v", err)
	}
	if created {
		t.Error("existing pair must be kept")
	}
	after, _ := os.ReadFile(certPath)
	if string(before) != string(after) {
		t.Error("certificate was rewritten")
	}
}

func TestEnsureSelfSigned_RegeneratesHalfPair(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")
	if err := os.WriteFile(certPath, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	created, err := EnsureSelfSigned(certPath, keyPath, nil)
	if err != nil {
		t.Fatalf("EnsureSelfSigned: %v", err)
	}
	if !created {
		t.Fatal("missing key should regenerate the pair")
	}
	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		t.Fatalf("load regenerated pair: %v", err)
	}
}

func TestHostsFor(t *testing.T) {
	tests := []struct {
		addr string
		want int
	}{
		{"localhost:8080", 3},
		{":8080", 3},
		{"10.0.0.5:443", 4},
		{"issues.internal:8443", 4},
		{"garbage", 3},
	}
	for _, tt := range tests {
		if got := HostsFor(tt.addr); len(got) != tt.want {
			t.Errorf("HostsFor(%q) = %v; want %d hosts", tt.addr, got, tt.want)
		}
	}
}
