package server

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ginjaninja78/ventas-historico/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// maxRequestIDLength bounds caller-supplied request ids.
const maxRequestIDLength = 64

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

type requestIDContextKey struct{}

// RequestIDMiddleware assigns every request an id. The caller's X-Request-ID
// is reused when it is at most 64 characters of letters, digits, '.', '_',
// ':' or '-'; any other value is replaced with a new UUID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if !validRequestID(reqID) {
			reqID = uuid.New().String()
		}

		c.Set(requestIDKey, reqID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDContextKey{}, reqID))
		c.Header(RequestIDHeader, reqID)

		c.Next()
	}
}

func validRequestID(id string) bool {
	return len(id) <= maxRequestIDLength && requestIDPattern.MatchString(id)
}

// RequestID returns the id assigned by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	reqID, _ := ctx.Value(requestIDContextKey{}).(string)
	return reqID
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"module":     "server",
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"bytes":      c.Writer.Size(),
		})

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}

// RecoveryMiddleware turns a panic into a 500 JSON error.
func RecoveryMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"module":     "server",
			"request_id": c.GetString(requestIDKey),
			"panic":      recovered,
		}).Error("panic while serving request")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msgInternalError})
	})
}

// CORSMiddleware allows cross-origin GET requests. An empty origin list
// allows every origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	corsConfig.AddAllowHeaders(RequestIDHeader)
	corsConfig.AddExposeHeaders(RequestIDHeader, "Content-Disposition")
	return cors.New(corsConfig)
}

// RateLimitMiddleware rejects requests beyond perMinute with 429. A limit of
// 0 disables it.
func RateLimitMiddleware(perMinute int, logger *logrus.Logger) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.WithFields(logrus.Fields{
				"module":     "server",
				"request_id": c.GetString(requestIDKey),
				"path":       c.Request.URL.Path,
			}).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": msgRateLimited})
			return
		}
		c.Next()
	}
}

// errorLogger logs handler failures with their request id.
func errorLogger(logger *logrus.Logger, c *gin.Context, funcName, what string, err error) {
	logging.LogError(logger, "server", funcName, what, gin.H{requestIDKey: c.GetString(requestIDKey)}, err)
}
