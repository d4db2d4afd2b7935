// Package httpserver exposes the library state machine over HTTP.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gamerack/gamerack/internal/auth/token"
	"github.com/gamerack/gamerack/internal/cli/common"
	"github.com/gamerack/gamerack/internal/ports"
	"github.com/gamerack/gamerack/internal/service/library"
)

const userKey = "user"

type Server struct {
	svc     *library.Service
	query   *library.QueryService
	catalog ports.CatalogRepository
	jwtMgr  *token.Manager

	startedAt time.Time
	httpSrv   *http.Server
}

func New(svc *library.Service, query *library.QueryService, catalog ports.CatalogRepository, jwtMgr *token.Manager) *Server {
	return &Server{svc: svc, query: query, catalog: catalog, jwtMgr: jwtMgr, startedAt: time.Now()}
}

// Engine builds the gin engine with the standard middleware chain.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(s.ginReqID(), s.ginLogger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		s.JSON(c, http.StatusOK, gin.H{
			"status":   "ok",
			"uptime_s": int(time.Since(s.startedAt).Seconds()),
			"logs":     common.LogCounters(),
		})
	})

	api := r.Group("/api", s.ginAuth())
	s.libraryRoutes(api)
	return r
}

// Serve blocks until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Engine()}
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()
	slog.Info("http: listening", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// ginReqID injects/propagates an X-Request-ID for traceability.
func (s *Server) ginReqID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.Request.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("reqid", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func (s *Server) ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)
		lvl := slog.LevelInfo
		st := c.Writer.Status()
		if st >= 500 {
			lvl = slog.LevelError
		} else if st >= 400 {
			lvl = slog.LevelWarn
		}
		rid, _ := c.Get("reqid")
		slog.Log(c, lvl, "http",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", st,
			"bytes", c.Writer.Size(),
			"remote", c.ClientIP(),
			"user", c.GetString(userKey),
			"reqid", rid,
			"dur_ms", dur.Milliseconds(),
		)
	}
}

// ginAuth extracts the authenticated user from the bearer token. The service
// is always addressed on behalf of one user; there is no anonymous surface.
func (s *Server) ginAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Request.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			s.respondError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			c.Abort()
			return
		}
		user, err := s.jwtMgr.Verify(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			s.respondError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// respondError sends the unified JSON error body.
func (s *Server) respondError(c *gin.Context, status int, code, message string) {
	type errBody struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	}
	rid := ""
	if v, ok := c.Get("reqid"); ok {
		rid, _ = v.(string)
	}
	c.JSON(status, errBody{Code: code, Message: message, RequestID: rid})
}

func (s *Server) JSON(c *gin.Context, code int, v any) { c.JSON(code, v) }
