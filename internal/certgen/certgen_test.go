package certgen_test

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jeepedia/jeepedia/internal/certgen"
	"github.com/jeepedia/jeepedia/internal/client/api"
)

func readCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatalf("%s: no PEM block", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return cert
}

func TestEnsure_IssuesVerifiableServerCert(t *testing.T) {
	dir := t.TempDir()
	p, err := certgen.Ensure(dir)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	ca := readCert(t, p.CACert)
	if !ca.IsCA {
		t.Error("CA certificate is not marked as CA")
	}
	srv := readCert(t, p.ServerCert)
	pool := x509.NewCertPool()
	pool.AddCert(ca)
	for _, host := range []string{"localhost", "127.0.0.1"} {
		if _, err := srv.Verify(x509.VerifyOptions{Roots: pool, DNSName: host}); err != nil {
			t.Errorf("verify for %s: %v", host, err)
		}
	}

	info, err := os.Stat(p.ServerKey)
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestEnsure_ReusesExistingCA(t *testing.T) {
	dir := t.TempDir()
	p, err := certgen.Ensure(dir)
	if err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	first := readCert(t, p.CACert)
	firstServer := readCert(t, p.ServerCert)

	if _, err := certgen.Ensure(dir); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if got := readCert(t, p.CACert); got.SerialNumber.Cmp(first.SerialNumber) != 0 {
		t.Error("CA was regenerated")
	}
	if got := readCert(t, p.ServerCert); got.SerialNumber.Cmp(firstServer.SerialNumber) != 0 {
		t.Error("valid server certificate was reissued")
	}

	if err := os.Remove(p.ServerCert); err != nil {
		t.Fatal(err)
	}
	if _, err := certgen.Ensure(dir, "api.local"); err != nil {
		t.Fatalf("third Ensure: %v", err)
	}
	reissued := readCert(t, p.ServerCert)
	if len(reissued.DNSNames) != 1 || reissued.DNSNames[0] != "api.local" {
		t.Errorf("DNSNames = %v", reissued.DNSNames)
	}
	if err := reissued.CheckSignatureFrom(first); err != nil {
		t.Errorf("reissued cert not signed by the existing CA: %v", err)
	}
}

func TestLoadCA_InvalidPEM(t *testing.T) {
	dir := t.TempDir()
	p := certgen.PathsIn(dir)
	if err := os.WriteFile(p.CACert, []byte("not pem"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p.CAKey, []byte("not pem"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := certgen.LoadCA(p.CACert, p.CAKey); err == nil {
		t.Error("expected error for invalid PEM")
	}
	if _, err := certgen.Ensure(dir); err == nil {
		t.Error("Ensure should not overwrite an unreadable CA")
	}
}

func TestIssueServer_RequiresHost(t *testing.T) {
	p, err := certgen.Ensure(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ca, key, err := certgen.LoadCA(p.CACert, p.CAKey)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := certgen.IssueServer(ca, key, nil); err == nil {
		t.Error("expected error without hosts")
	}
}

func TestClientTrustsIssuedCA(t *testing.T) {
	p, err := certgen.Ensure(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	pair, err := tls.LoadX509KeyPair(p.ServerCert, p.ServerKey)
	if err != nil {
		t.Fatalf("load server pair: %v", err)
	}

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{pair}}
	srv.StartTLS()
	defer srv.Close()

	client, err := api.NewHTTPClient(p.CACert, 5*time.Second)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET over TLS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	plain, err := api.NewHTTPClient("", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := plain.Get(srv.URL); err == nil {
		t.Error("system roots should not trust the dev CA")
	}
}
