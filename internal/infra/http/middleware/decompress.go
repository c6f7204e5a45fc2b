package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/pkg/apierror"
)

var (
	errCompressedTooLarge   = errors.New("compressed body too large")
	errDecompressedTooLarge = errors.New("decompressed body too large")
	errRatioExceeded        = errors.New("compression ratio too high")
)

// DecompressConfig bounds what a compressed upload may expand to.
type DecompressConfig struct {
	MaxDecompressedSize int64
	MaxCompressedSize   int64

	// MaxCompressionRatio rejects bodies whose decompressed/compressed ratio
	// exceeds it.
	MaxCompressionRatio float64

	AllowedEncodings []string
}

// DefaultDecompressConfig allows gzip and zstd up to 50 MiB decompressed.
func DefaultDecompressConfig() *DecompressConfig {
	return &DecompressConfig{
		MaxDecompressedSize: 50 << 20,
		MaxCompressedSize:   10 << 20,
		MaxCompressionRatio: 100,
		AllowedEncodings:    []string{"gzip", "zstd"},
	}
}

type decoderFunc func(r io.Reader, dc *DecompressConfig) (io.ReadCloser, error)

var decoders = map[string]decoderFunc{
	"gzip": func(r io.Reader, _ *DecompressConfig) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"zstd": func(r io.Reader, dc *DecompressConfig) (io.ReadCloser, error) {
		//nolint:gosec // MaxDecompressedSize is positive
		dec, err := zstd.NewReader(r,
			zstd.WithDecoderMaxMemory(uint64(dc.MaxDecompressedSize)),
			zstd.WithDecoderConcurrency(1),
		)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	},
}

// Decompress replaces a gzip or zstd request body with its decoded form
// and drops the Content-Encoding header. Scanner exports compress well, so
// uploads usually arrive compressed. Oversized bodies and bodies that
// expand beyond MaxCompressionRatio get 413.
func Decompress(dc *DecompressConfig) func(http.Handler) http.Handler {
	if dc == nil {
		dc = DefaultDecompressConfig()
	}
	allowed := make([]string, 0, len(dc.AllowedEncodings))
	for _, enc := range dc.AllowedEncodings {
		allowed = append(allowed, strings.ToLower(enc))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enc := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
			if !carriesBody(r.Method) || enc == "" || enc == "identity" {
				next.ServeHTTP(w, r)
				return
			}

			decode, known := decoders[enc]
			if !known || !slices.Contains(allowed, enc) {
				apierror.UnsupportedFormat(fmt.Sprintf("unsupported Content-Encoding: %s", enc)).WriteJSON(w)
				return
			}

			body, err := inflate(r.Body, decode, dc)
			if err != nil {
				decompressError(err).WriteJSON(w)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Del("Content-Encoding")
			next.ServeHTTP(w, r)
		})
	}
}

func decompressError(err error) *apierror.Error {
	switch {
	case errors.Is(err, errCompressedTooLarge),
		errors.Is(err, errDecompressedTooLarge),
		errors.Is(err, errRatioExceeded):
		return apierror.PayloadTooLarge(err.Error())
	default:
		return apierror.BadRequest("invalid compressed request body")
	}
}

// inflate reads at most MaxCompressedSize bytes, decodes them and stops
// as soon as the output passes MaxDecompressedSize.
func inflate(body io.ReadCloser, decode decoderFunc, dc *DecompressConfig) ([]byte, error) {
	defer body.Close()

	compressed, err := io.ReadAll(io.LimitReader(body, dc.MaxCompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(compressed)) > dc.MaxCompressedSize {
		return nil, fmt.Errorf("%w: limit %d bytes", errCompressedTooLarge, dc.MaxCompressedSize)
	}
	if len(compressed) == 0 {
		return []byte{}, nil
	}

	dec, err := decode(bytes.NewReader(compressed), dc)
	if err != nil {
		return nil, fmt.Errorf("open decoder: %w", err)
	}
	defer dec.Close()

	out, err := io.ReadAll(io.LimitReader(dec, dc.MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if int64(len(out)) > dc.MaxDecompressedSize {
		return nil, fmt.Errorf("%w: limit %d bytes", errDecompressedTooLarge, dc.MaxDecompressedSize)
	}
	if ratio := float64(len(out)) / float64(len(compressed)); dc.MaxCompressionRatio > 0 && ratio > dc.MaxCompressionRatio {
		return nil, fmt.Errorf("%w: %.1f exceeds %.1f", errRatioExceeded, ratio, dc.MaxCompressionRatio)
	}
	return out, nil
}

// DecompressForIngest is the variant mounted on the upload route, sized
// from the ingest limits.
func DecompressForIngest(cfg *config.IngestConfig) func(http.Handler) http.Handler {
	return Decompress(&DecompressConfig{
		MaxDecompressedSize: cfg.MaxDecompressed,
		MaxCompressedSize:   cfg.MaxUploadSize,
		MaxCompressionRatio: 200,
		AllowedEncodings:    []string{"gzip", "zstd"},
	})
}
