package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSONL = `{"template-id":"tls-weak","host":"a.example.com","info":{"severity":"high"}}
{"template-id":"open-redis","host":"10.0.0.5","info":{"severity":"critical"}}
`

func echoBody(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Empty(t, r.Header.Get("Content-Encoding"))
		_, _ = w.Write(body)
	})
}

func gzipBytes(t *testing.T, data string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data string) []byte {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll([]byte(data), nil)
}

func TestDecompress(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"gzip", "gzip", gzipBytes(t, sampleJSONL)},
		{"zstd", "zstd", zstdBytes(t, sampleJSONL)},
		{"identity", "", []byte(sampleJSONL)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", bytes.NewReader(tt.body))
			if tt.encoding != "" {
				req.Header.Set("Content-Encoding", tt.encoding)
			}
			rec := httptest.NewRecorder()
			Decompress(nil)(echoBody(t)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, sampleJSONL, rec.Body.String())
		})
	}
}

func TestDecompress_Rejects(t *testing.T) {
	t.Run("unsupported encoding", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
		req.Header.Set("Content-Encoding", "br")
		rec := httptest.NewRecorder()
		Decompress(nil)(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not gzip"))
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		Decompress(nil)(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("encoding not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(zstdBytes(t, sampleJSONL)))
		req.Header.Set("Content-Encoding", "zstd")
		rec := httptest.NewRecorder()
		Decompress(&DecompressConfig{
			MaxDecompressedSize: 1 << 20,
			MaxCompressedSize:   1 << 20,
			AllowedEncodings:    []string{"gzip"},
		})(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	limits := []struct {
		name string
		cfg  DecompressConfig
	}{
		{"decompressed size", DecompressConfig{MaxDecompressedSize: 1024, MaxCompressedSize: 1 << 20, MaxCompressionRatio: 1000}},
		{"compressed size", DecompressConfig{MaxDecompressedSize: 1 << 20, MaxCompressedSize: 8, MaxCompressionRatio: 1000}},
		{"compression ratio", DecompressConfig{MaxDecompressedSize: 1 << 20, MaxCompressedSize: 1 << 20, MaxCompressionRatio: 2}},
	}
	for _, tt := range limits {
		t.Run(tt.name+" limit", func(t *testing.T) {
			cfg := tt.cfg
			cfg.AllowedEncodings = []string{"gzip"}

			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(gzipBytes(t, strings.Repeat("a", 4096))))
			req.Header.Set("Content-Encoding", "gzip")
			rec := httptest.NewRecorder()
			Decompress(&cfg)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
		})
	}
}
