package server

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"todoapp/internal/domain/errors"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID keeps an incoming X-Request-ID or assigns a new one. The id is
// set on the request too, so the proxy forwards it to the backend.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := strings.TrimSpace(ctx.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.New().String()
			ctx.Request.Header.Set(RequestIDHeader, id)
		}
		ctx.Set(requestIDKey, id)
		ctx.Header(RequestIDHeader, id)
		ctx.Next()
	}
}

func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.Info("request",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status(),
			"latency", time.Since(start),
			"request_id", ctx.GetString(requestIDKey),
		)
	}
}

// Recovery turns handler panics into a generic JSON 500.
func Recovery(logger *log.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(ctx *gin.Context, rec any) {
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		logger.Error("panic recovered", "panic", rec, "path", ctx.Request.URL.Path, "request_id", ctx.GetString(requestIDKey))
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
	})
}

type dualCloser struct {
	io.Reader
	gzipReader io.Closer
	bodyCloser io.Closer
}

func (dc *dualCloser) Close() error {
	var err1, err2 error
	if dc.gzipReader != nil {
		err1 = dc.gzipReader.Close()
	}
	if dc.bodyCloser != nil {
		err2 = dc.bodyCloser.Close()
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// GzipRequestDecompress inflates gzip request bodies. The length becomes
// unknown, so the proxy re-sends the body chunked.
func GzipRequestDecompress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		encoding := strings.ToLower(ctx.GetHeader("Content-Encoding"))
		if strings.Contains(encoding, "gzip") {
			gr, err := gzip.NewReader(ctx.Request.Body)
			if err != nil {
				ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidGzipRequest.Error()})
				return
			}

			ctx.Request.Body = &dualCloser{
				Reader:     gr,
				gzipReader: gr,
				bodyCloser: ctx.Request.Body,
			}

			ctx.Request.Header.Del("Content-Encoding")
			ctx.Request.Header.Del("Content-Length")
			ctx.Request.ContentLength = -1
		}
		ctx.Next()
	}
}

type gzipResponseWriter struct {
	writer      gin.ResponseWriter
	gw          *gzip.Writer
	gzipEnabled bool
	passthrough bool
	statusCode  int
	preBuf      bytes.Buffer
}

const minCompressSize = 1024

var nonCompressibleStatuses = map[int]bool{
	http.StatusNoContent:         true,
	http.StatusNotModified:       true,
	http.StatusPartialContent:    true,
	http.StatusMultipleChoices:   true,
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

// Write buffers until minCompressSize bytes are seen, then switches to gzip
// if the response qualifies. It always reports the full input as written.
func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	switch {
	case w.gzipEnabled:
		if _, err := w.gw.Write(data); err != nil {
			return 0, errors.ErrGzipCompressionFailed
		}
		return len(data), nil
	case w.passthrough:
		return w.writer.Write(data)
	}

	w.preBuf.Write(data)
	if w.preBuf.Len() < minCompressSize {
		return len(data), nil
	}

	if w.mayCompress() {
		w.enableGzip()
		if _, err := w.gw.Write(w.preBuf.Bytes()); err != nil {
			return 0, errors.ErrGzipCompressionFailed
		}
	} else {
		w.passthrough = true
		if _, err := w.writer.Write(w.preBuf.Bytes()); err != nil {
			return 0, err
		}
	}
	w.preBuf.Reset()
	return len(data), nil
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) { return w.Write([]byte(s)) }

func (w *gzipResponseWriter) mayCompress() bool {
	if nonCompressibleStatuses[w.statusCode] {
		return false
	}
	if w.writer.Header().Get("Content-Encoding") != "" {
		return false
	}
	if w.writer.Header().Get("Content-Range") != "" {
		return false
	}
	ct := w.writer.Header().Get("Content-Type")
	return isCompressibleContentType(ct)
}

func (w *gzipResponseWriter) enableGzip() {
	w.writer.Header().Del("Content-Length")
	w.writer.Header().Set("Content-Encoding", "gzip")
	addVary(w.writer.Header())
	w.gw = gzip.NewWriter(w.writer)
	w.gzipEnabled = true
}

func (w *gzipResponseWriter) Flush() {
	if w.gw != nil {
		_ = w.gw.Flush()
	} else if w.preBuf.Len() > 0 {
		_, _ = w.writer.Write(w.preBuf.Bytes())
		w.preBuf.Reset()
	}
	w.writer.Flush()
}

func (w *gzipResponseWriter) Header() http.Header {
	return w.writer.Header()
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.writer.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) CloseNotify() <-chan bool { return w.writer.CloseNotify() }

func (w *gzipResponseWriter) Pusher() http.Pusher { return w.writer.Pusher() }

func (w *gzipResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) { return w.writer.Hijack() }

func (w *gzipResponseWriter) Size() int { return w.writer.Size() }

func (w *gzipResponseWriter) Status() int { return w.writer.Status() }

func (w *gzipResponseWriter) WriteHeaderNow() { w.writer.WriteHeaderNow() }

func (w *gzipResponseWriter) Written() bool { return w.writer.Written() || w.preBuf.Len() > 0 }

// GzipResponseCompress compresses responses for clients that accept gzip.
// Paths under any of skipPrefixes are left untouched.
func GzipResponseCompress(skipPrefixes ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodHead {
			ctx.Next()
			return
		}
		for _, prefix := range skipPrefixes {
			if hasPathPrefix(ctx.Request.URL.Path, prefix) {
				ctx.Next()
				return
			}
		}

		acceptEnc := strings.ToLower(ctx.GetHeader("Accept-Encoding"))
		if !strings.Contains(acceptEnc, "gzip") {
			ctx.Next()
			return
		}

		addVary(ctx.Writer.Header())

		gw := &gzipResponseWriter{writer: ctx.Writer}
		ctx.Writer = gw
		// Runs on panic too, so an outer Recovery writes to the plain writer.
		defer gw.finish(ctx)

		ctx.Next()
	}
}

func (w *gzipResponseWriter) finish(ctx *gin.Context) {
	if w.gw != nil {
		if err := w.gw.Close(); err != nil {
			_ = ctx.Error(errors.ErrGzipCompressionFailed)
		}
	} else if w.preBuf.Len() > 0 {
		if _, err := w.writer.Write(w.preBuf.Bytes()); err != nil {
			_ = ctx.Error(err)
		}
		w.preBuf.Reset()
	}
	ctx.Writer = w.writer
}

func addVary(h http.Header) {
	vary := h.Get("Vary")
	if vary == "" {
		h.Set("Vary", "Accept-Encoding")
	} else if !strings.Contains(vary, "Accept-Encoding") {
		h.Set("Vary", vary+", Accept-Encoding")
	}
}

// hasPathPrefix matches whole path segments: /api matches /api and /api/x
// but not /apix.
func hasPathPrefix(path, prefix string) bool {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/' || strings.HasSuffix(prefix, "/")
}

func isCompressibleContentType(ct string) bool {
	if ct == "" {
		return false
	}

	lower := strings.ToLower(ct)
	if strings.HasPrefix(lower, "text/event-stream") {
		return false
	}

	compressiblePrefixes := []string{
		"application/json",
		"application/xml",
		"application/javascript",
		"image/svg+xml",
		"text/html",
		"text/css",
		"text/plain",
		"text/xml",
		"text/javascript",
	}

	for _, prefix := range compressiblePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	return false
}
