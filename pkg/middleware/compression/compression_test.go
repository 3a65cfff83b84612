package compression

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/nimburion/postsvc/pkg/server/router"
	ginrouter "github.com/nimburion/postsvc/pkg/server/router/gin"
)

var largeText = strings.Repeat("compressed-response ", 200)

func newRouter(cfg Config) router.Router {
	r := ginrouter.NewRouter()
	r.Use(Middleware(cfg))
	r.GET("/items", func(c router.Context) error {
		items := make([]map[string]string, 0, 100)
		for i := 0; i < 100; i++ {
			items = append(items, map[string]string{"name": "value"})
		}
		return c.JSON(http.StatusOK, items)
	})
	r.GET("/text", func(c router.Context) error {
		return c.String(http.StatusOK, largeText)
	})
	r.GET("/small", func(c router.Context) error {
		return c.String(http.StatusOK, "tiny")
	})
	r.GET("/binary", func(c router.Context) error {
		c.Response().Header().Set("Content-Type", "image/png")
		c.Response().WriteHeader(http.StatusOK)
		_, err := c.Response().Write(bytes.Repeat([]byte{0x89}, 4096))
		return err
	})
	r.DELETE("/items", func(c router.Context) error {
		c.Response().WriteHeader(http.StatusNoContent)
		return nil
	})
	r.GET("/metrics", func(c router.Context) error {
		return c.String(http.StatusOK, largeText)
	})
	return r
}

func do(r http.Handler, method, path, acceptEncoding string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_UsesBrotliWhenAccepted(t *testing.T) {
	rec := do(newRouter(DefaultConfig()), http.MethodGet, "/items", "br, gzip")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("expected br encoding, got %q", rec.Header().Get("Content-Encoding"))
	}

	body, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
	if err != nil {
		t.Fatalf("failed to decode br body: %v", err)
	}
	var payload []map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("failed to decode json payload: %v", err)
	}
	if len(payload) != 100 || payload[0]["name"] != "value" {
		t.Fatalf("unexpected payload: %v", payload[:1])
	}
}

func TestMiddleware_FallsBackToGzip(t *testing.T) {
	rec := do(newRouter(DefaultConfig()), http.MethodGet, "/text", "gzip")

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", rec.Header().Get("Content-Encoding"))
	}
	if rec.Header().Get("Vary") != "Accept-Encoding" {
		t.Fatalf("expected Vary header, got %q", rec.Header().Get("Vary"))
	}

	zr, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("failed to open gzip body: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("failed to decode gzip body: %v", err)
	}
	if string(body) != largeText {
		t.Fatal("gzip body does not match")
	}
}

func TestMiddleware_LeavesResponseUntouched(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExcludedPathPrefixes = []string{"/metrics"}
	r := newRouter(cfg)

	tests := []struct {
		name           string
		method         string
		path           string
		acceptEncoding string
		wantStatus     int
		wantBody       string
	}{
		{"no accept-encoding", http.MethodGet, "/text", "", http.StatusOK, largeText},
		{"below min size", http.MethodGet, "/small", "gzip", http.StatusOK, "tiny"},
		{"identity only", http.MethodGet, "/text", "identity", http.StatusOK, largeText},
		{"gzip refused", http.MethodGet, "/text", "gzip;q=0", http.StatusOK, largeText},
		{"excluded path", http.MethodGet, "/metrics", "gzip", http.StatusOK, largeText},
		{"no content", http.MethodDelete, "/items", "gzip", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, tt.method, tt.path, tt.acceptEncoding)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if enc := rec.Header().Get("Content-Encoding"); enc != "" {
				t.Fatalf("expected no encoding, got %q", enc)
			}
			if rec.Body.String() != tt.wantBody {
				t.Fatalf("unexpected body of %d bytes", rec.Body.Len())
			}
		})
	}
}

func TestMiddleware_SkipsIncompressibleContentType(t *testing.T) {
	rec := do(newRouter(DefaultConfig()), http.MethodGet, "/binary", "br")
	if enc := rec.Header().Get("Content-Encoding"); enc != "" {
		t.Fatalf("expected no encoding, got %q", enc)
	}
	if rec.Body.Len() != 4096 {
		t.Fatalf("expected raw body, got %d bytes", rec.Body.Len())
	}
}

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"br", "br"},
		{"gzip", "gzip"},
		{"gzip, br", "br"},
		{"br;q=0.5, gzip;q=0.8", "gzip"},
		{"br;q=0, gzip", "gzip"},
		{"*", "br"},
		{"*;q=0.1, gzip;q=0.9", "gzip"},
		{"deflate", ""},
		{"BR", "br"},
	}
	for _, tt := range tests {
		if got := negotiateEncoding(tt.header); got != tt.want {
			t.Errorf("negotiateEncoding(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestAppendVary(t *testing.T) {
	h := http.Header{}
	appendVary(h, "Accept-Encoding")
	appendVary(h, "accept-encoding")
	if got := h.Get("Vary"); got != "Accept-Encoding" {
		t.Fatalf("unexpected Vary %q", got)
	}
	h.Set("Vary", "Origin")
	appendVary(h, "Accept-Encoding")
	if got := h.Get("Vary"); got != "Origin, Accept-Encoding" {
		t.Fatalf("unexpected Vary %q", got)
	}
}
