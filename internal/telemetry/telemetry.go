// Package telemetry records request metrics and access logs for the API
// server.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Request headers read or written by the middleware.
const (
	HeaderRequestID   = "X-Request-ID"
	HeaderCountry     = "CF-IPCountry"
	HeaderConnectedIP = "CF-Connecting-IP"
)

// DefaultSalt is used when no IP salt is configured.
const DefaultSalt = "change-this-salt-in-production-2026"

const requestIDKey = "request_id"

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Config configures the middleware.
type Config struct {
	App      string
	Salt     string
	Registry prometheus.Registerer
	Logger   *zap.Logger
}

// Middleware instruments gin requests.
type Middleware struct {
	app    string
	salt   string
	logger *zap.Logger

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	errors   *prometheus.CounterVec
}

// New registers the request metrics on cfg.Registry.
func New(cfg Config) *Middleware {
	if cfg.Salt == "" {
		cfg.Salt = DefaultSalt
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	f := promauto.With(cfg.Registry)
	return &Middleware{
		app:    cfg.App,
		salt:   cfg.Salt,
		logger: cfg.Logger.With(zap.String("mod", "telemetry")),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status_code", "app", "country"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: durationBuckets,
		}, []string{"method", "route", "status_code", "app"}),
		inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}, []string{"app"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors",
		}, []string{"method", "route", "status_code", "app", "error_type"}),
	}
}

// Handler returns the gin middleware.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(requestIDKey, reqID)
		c.Header(HeaderRequestID, reqID)

		inFlight := m.inFlight.WithLabelValues(m.app)
		inFlight.Inc()
		defer inFlight.Dec()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		code := strconv.Itoa(status)
		method := c.Request.Method
		route := Route(c)
		country := c.GetHeader(HeaderCountry)
		if country == "" {
			country = "unknown"
		}

		m.requests.WithLabelValues(method, route, code, m.app, country).Inc()
		m.duration.WithLabelValues(method, route, code, m.app).Observe(duration.Seconds())
		if status >= 400 {
			m.errors.WithLabelValues(method, route, code, m.app, ErrorType(status)).Inc()
		}

		ua := ParseUserAgent(c.GetHeader("User-Agent"))
		referer := c.GetHeader("Referer")
		if referer == "" {
			referer = "direct"
		}
		if ce := m.logger.Check(LogLevel(status), "HTTP request"); ce != nil {
			ce.Write(
				zap.String("request_id", reqID),
				zap.String("app", m.app),
				zap.String("method", method),
				zap.String("path", c.Request.URL.Path),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
				zap.String("ip_hash", HashIP(clientIP(c), m.salt)),
				zap.String("country", country),
				zap.String("browser", ua.Browser),
				zap.String("os", ua.OS),
				zap.String("referer", referer),
			)
		}
	}
}

// RequestID returns the request ID assigned by the middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// HashIP anonymizes an address as the first 16 hex characters of
// sha256(ip + salt).
func HashIP(ip, salt string) string {
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])[:16]
}

// ErrorType classifies an error status code.
func ErrorType(status int) string {
	if status >= 500 {
		return "server_error"
	}
	return "client_error"
}

// LogLevel maps a status code to the access log level.
func LogLevel(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

var (
	uuidSegment    = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	numericSegment = regexp.MustCompile(`/\d+`)
)

// Route returns the matched route pattern, or for unmatched requests the
// path with UUIDs and numeric segments replaced by ":id".
func Route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	p := uuidSegment.ReplaceAllString(c.Request.URL.Path, ":id")
	return numericSegment.ReplaceAllString(p, "/:id")
}

func clientIP(c *gin.Context) string {
	if ip := c.GetHeader(HeaderConnectedIP); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
