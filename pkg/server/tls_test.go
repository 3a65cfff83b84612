package server

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTLSConfig(t *testing.T) {
	t.Run("missing files", func(t *testing.T) {
		_, err := LoadTLSConfig("/missing/server.crt", "/missing/server.key")
		if err == nil {
			t.Fatal("expected error for missing certificate files")
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		dir := t.TempDir()
		certPath, _, _ := writeTestCertificate(t, dir)
		keyPath := filepath.Join(dir, "invalid.key")
		if err := os.WriteFile(keyPath, []byte("not-a-pem"), 0o600); err != nil {
			t.Fatalf("failed to write key: %v", err)
		}

		if _, err := LoadTLSConfig(certPath, keyPath); err == nil {
			t.Fatal("expected error for invalid key")
		}
	})

	t.Run("valid certificate", func(t *testing.T) {
		certPath, keyPath, _ := writeTestCertificate(t, t.TempDir())

		cfg, err := LoadTLSConfig(certPath, keyPath)
		if err != nil {
			t.Fatalf("expected valid TLS config, got error: %v", err)
		}
		if cfg.MinVersion != tls.VersionTLS12 {
			t.Fatalf("expected TLS min version 1.2, got %d", cfg.MinVersion)
		}
		if len(cfg.Certificates) != 1 {
			t.Fatalf("expected one server certificate, got %d", len(cfg.Certificates))
		}
		if cfg.ClientAuth != tls.NoClientCert {
			t.Fatalf("expected no client certificate requirement, got %v", cfg.ClientAuth)
		}
	})
}
