package middleware

import (
	"time"

	"github.com/annel0/worldstream/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDKey - ключ gin.Context и заголовок ответа с trace-ID запроса
const TraceIDKey = "trace_id"

// TraceIDHeader - заголовок ответа с trace-ID
const TraceIDHeader = "X-Trace-Id"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
// Пути из quiet логируются на уровне Debug (пробы здоровья, сбор метрик).
type RequestLogger struct {
	log   *logging.Logger
	quiet map[string]struct{}
}

func NewRequestLogger(log *logging.Logger, quiet ...string) *RequestLogger {
	rl := &RequestLogger{log: log, quiet: make(map[string]struct{}, len(quiet))}
	for _, p := range quiet {
		rl.quiet[p] = struct{}{}
	}
	return rl
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Пытаемся извлечь trace-id из OpenTelemetry, если уже создан.
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logf := rl.log.Info
		if _, ok := rl.quiet[path]; ok {
			logf = rl.log.Debug
		}

		logf("[HTTP] ▶ %s %s ip=%s trace=%s", method, path, c.ClientIP(), traceID)

		c.Next()

		logf("[HTTP] ◀ %s %s %d %s trace=%s", method, path, c.Writer.Status(), time.Since(start), traceID)
	}
}
