// Package compression encodes responses with Brotli or gzip, chosen from Accept-Encoding.
package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/nimburion/postsvc/pkg/server/router"
)

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// Config controls response compression.
type Config struct {
	GzipLevel   int
	BrotliLevel int
	// MinSize is the smallest body, in bytes, worth compressing.
	MinSize                  int
	CompressibleContentTypes []string
	ExcludedPathPrefixes     []string
}

// DefaultConfig compresses JSON and text bodies of 1 KiB or more.
func DefaultConfig() Config {
	return Config{
		GzipLevel:   gzip.DefaultCompression,
		BrotliLevel: 4,
		MinSize:     1024,
		CompressibleContentTypes: []string{
			"application/json",
			"text/",
		},
	}
}

// Middleware negotiates an encoding and buffers the response until MinSize bytes
// decide whether compressing is worthwhile. Brotli wins ties with gzip.
func Middleware(cfg Config) router.MiddlewareFunc {
	def := DefaultConfig()
	if cfg.BrotliLevel <= 0 {
		cfg.BrotliLevel = def.BrotliLevel
	}
	if cfg.GzipLevel == 0 {
		cfg.GzipLevel = def.GzipLevel
	}
	if cfg.MinSize < 0 {
		cfg.MinSize = 0
	}
	if len(cfg.CompressibleContentTypes) == 0 {
		cfg.CompressibleContentTypes = def.CompressibleContentTypes
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if req.Method == http.MethodHead {
				return next(c)
			}
			for _, prefix := range cfg.ExcludedPathPrefixes {
				if prefix != "" && strings.HasPrefix(req.URL.Path, prefix) {
					return next(c)
				}
			}

			encoding := negotiateEncoding(req.Header.Get("Accept-Encoding"))
			if encoding == "" {
				return next(c)
			}
			appendVary(c.Response().Header(), "Accept-Encoding")

			base := c.Response()
			w := &compressResponseWriter{ResponseWriter: base, encoding: encoding, cfg: cfg}
			c.SetResponse(w)
			defer c.SetResponse(base)

			err := next(c)
			closeErr := w.Close()
			if err != nil {
				return err
			}
			return closeErr
		}
	}
}

func negotiateEncoding(acceptEncoding string) string {
	if acceptEncoding == "" {
		return ""
	}
	qBr, hasBr := qualityForEncoding(acceptEncoding, encodingBrotli)
	qGzip, hasGzip := qualityForEncoding(acceptEncoding, encodingGzip)
	if qAny, hasAny := qualityForEncoding(acceptEncoding, "*"); hasAny {
		if !hasBr {
			qBr, hasBr = qAny, true
		}
		if !hasGzip {
			qGzip, hasGzip = qAny, true
		}
	}

	switch {
	case hasBr && qBr > 0 && (!hasGzip || qBr >= qGzip):
		return encodingBrotli
	case hasGzip && qGzip > 0:
		return encodingGzip
	default:
		return ""
	}
}

func qualityForEncoding(acceptEncoding, encoding string) (float64, bool) {
	for _, part := range strings.Split(acceptEncoding, ",") {
		sections := strings.Split(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(sections[0]), encoding) {
			continue
		}
		q := 1.0
		for _, section := range sections[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(section), "=")
			if !ok || !strings.EqualFold(key, "q") {
				continue
			}
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				q = parsed
			}
		}
		return q, true
	}
	return 0, false
}

// compressResponseWriter holds the status and the first MinSize bytes back until
// it knows whether to compress.
type compressResponseWriter struct {
	router.ResponseWriter
	encoding string
	cfg      Config

	status     int
	decided    bool
	compress   bool
	buffer     bytes.Buffer
	compressor io.WriteCloser
}

func (w *compressResponseWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}
	w.status = code
	if noBodyStatus(code) {
		w.decided = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *compressResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if w.decided {
		if w.compress {
			return w.compressor.Write(p)
		}
		return w.ResponseWriter.Write(p)
	}

	w.buffer.Write(p)
	if w.buffer.Len() < w.cfg.MinSize {
		return len(p), nil
	}
	if err := w.decide(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *compressResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *compressResponseWriter) Written() bool {
	return w.status != 0
}

func (w *compressResponseWriter) decide() error {
	w.decided = true
	header := w.Header()
	w.compress = w.buffer.Len() >= w.cfg.MinSize &&
		header.Get("Content-Encoding") == "" &&
		compressible(header.Get("Content-Type"), w.cfg.CompressibleContentTypes)

	if !w.compress {
		w.ResponseWriter.WriteHeader(w.Status())
		_, err := w.ResponseWriter.Write(w.buffer.Bytes())
		w.buffer.Reset()
		return err
	}

	header.Del("Content-Length")
	header.Set("Content-Encoding", w.encoding)
	w.ResponseWriter.WriteHeader(w.Status())

	if w.encoding == encodingBrotli {
		w.compressor = brotli.NewWriterLevel(w.ResponseWriter, w.cfg.BrotliLevel)
	} else {
		gz, err := gzip.NewWriterLevel(w.ResponseWriter, w.cfg.GzipLevel)
		if err != nil {
			return err
		}
		w.compressor = gz
	}
	_, err := w.compressor.Write(w.buffer.Bytes())
	w.buffer.Reset()
	return err
}

// Close flushes whatever is buffered and terminates the compressed stream.
func (w *compressResponseWriter) Close() error {
	if w.status == 0 {
		return nil
	}
	if !w.decided {
		if err := w.decide(); err != nil {
			return err
		}
	}
	if w.compressor != nil {
		return w.compressor.Close()
	}
	return nil
}

func noBodyStatus(code int) bool {
	return code == http.StatusNoContent || code == http.StatusNotModified || (code >= 100 && code < 200)
}

func compressible(contentType string, allow []string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for _, prefix := range allow {
		if strings.HasPrefix(ct, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func appendVary(header http.Header, value string) {
	current := header.Get("Vary")
	if current == "" {
		header.Set("Vary", value)
		return
	}
	for _, part := range strings.Split(current, ",") {
		if strings.EqualFold(strings.TrimSpace(part), value) {
			return
		}
	}
	header.Set("Vary", current+", "+value)
}
