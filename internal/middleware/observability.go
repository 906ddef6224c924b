package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chatrelay/internal/httputil"
	"chatrelay/internal/metrics"
	"chatrelay/internal/service"
	"chatrelay/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ObservabilityMiddleware adds metrics collection and tracing to HTTP requests
func ObservabilityMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, span := tracing.StartSpan(r.Context(), "http_request",
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.String("client.address", httputil.GetClientIP(r)),
			)
			defer span.End()

			requestID := tracing.GenerateRequestID()
			ctx = tracing.WithRequestID(ctx, requestID)
			r = r.WithContext(ctx)

			wrapper := &responseWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			metrics.IncrementCounter("http_requests_total", map[string]string{
				"method":   r.Method,
				"endpoint": r.URL.Path,
			})

			next.ServeHTTP(wrapper, r)

			duration := time.Since(start)

			span.SetAttributes(
				attribute.Int("http.response.status_code", wrapper.statusCode),
				attribute.Int64("http.response.size", wrapper.responseSize),
			)
			if wrapper.statusCode >= 400 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", wrapper.statusCode))
			} else {
				span.SetStatus(codes.Ok, "")
			}

			metrics.RecordTimer("http_request_duration", duration, map[string]string{
				"method":      r.Method,
				"endpoint":    r.URL.Path,
				"status_code": strconv.Itoa(wrapper.statusCode),
			})
			metrics.IncrementCounter("http_responses_total", map[string]string{
				"method":      r.Method,
				"endpoint":    r.URL.Path,
				"status_code": strconv.Itoa(wrapper.statusCode),
			})

			logLevel := logrus.InfoLevel
			if wrapper.statusCode >= 500 {
				logLevel = logrus.ErrorLevel
			} else if wrapper.statusCode >= 400 {
				logLevel = logrus.WarnLevel
			}

			logger.WithFields(logrus.Fields{
				service.LogFieldRequestID:    requestID,
				service.LogFieldMethod:       r.Method,
				service.LogFieldPath:         r.URL.Path,
				service.LogFieldStatusCode:   wrapper.statusCode,
				service.LogFieldDurationMs:   duration.Milliseconds(),
				service.LogFieldRemoteIP:     httputil.GetClientIP(r),
				service.LogFieldResponseSize: wrapper.responseSize,
			}).Log(logLevel, "HTTP request completed")
		})
	}
}

// responseWrapper captures response metrics
type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	responseSize int64
}

func (rw *responseWrapper) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWrapper) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.responseSize += int64(n)
	return n, err
}
