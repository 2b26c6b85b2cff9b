// Package handle is the HTTP front-end: the upload page and a small JSON API over
// the same capture and analysis components.
package handle

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"areca-grader/api/internal/analysis"
	"areca-grader/api/internal/capture"
	"areca-grader/api/internal/logger"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderRequestTimeout = "X-Request-Timeout"

	defaultRequestTimeout = 120 * time.Second
)

type Options struct {
	RequestTimeout time.Duration
	EngineName     string
}

type Handle struct {
	capture *capture.Capture
	coord   *analysis.Coordinator
	opts    Options
}

func New(cp *capture.Capture, coord *analysis.Coordinator, opts Options) *Handle {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &Handle{capture: cp, coord: coord, opts: opts}
}

// Router wires every route. The body limit leaves room for multipart framing and
// for base64 in JSON bodies; the upload ceiling itself is enforced by capture.
func (h *Handle) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(2*h.capture.MaxBytes()+(1<<20)),
	)

	r.GET("/", h.Index)
	r.POST("/upload", h.Upload)
	r.POST("/clear", h.Clear)
	r.POST("/analyze", h.Analyze)

	v1 := r.Group("/api/v1")
	v1.POST("/analysis", h.APIAnalysis)
	v1.POST("/quality", h.APIQuality)
	v1.GET("/schema", h.APISchema)

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (h *Handle) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "available",
		"engine": h.opts.EngineName,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// deadline honours X-Request-Timeout or ?timeoutSec= (seconds) over the configured timeout.
func (h *Handle) deadline(c *gin.Context) (context.Context, context.CancelFunc) {
	d := h.opts.RequestTimeout
	if ts := c.GetHeader(HeaderRequestTimeout); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	} else if ts := c.Query("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	}
	return context.WithTimeout(c.Request.Context(), d)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"ip":         c.ClientIP(),
			"duration":   time.Since(start).Milliseconds(),
		}).Info("request")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
