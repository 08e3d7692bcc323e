/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package api serves stored CVs over HTTP and drives live canvas sessions
// over a websocket.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cvcanvas/internal/config"
	"cvcanvas/internal/document"
	"cvcanvas/internal/editor"
	"cvcanvas/internal/export"
	applog "cvcanvas/internal/log"
	"cvcanvas/internal/storage"
)

// errBadPayload marks canvas content that could not be decoded.
var errBadPayload = errors.New("api: bad canvas payload")

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	store     *storage.Store
	canvas    config.CanvasConfig
	rescueDir string
	log       *slog.Logger
	upgrader  websocket.Upgrader
	sessOpts  []editor.Option
	origins   []string
}

type Option func(*Server)

// WithRescueDir sets where crash reports and autosaves of live sessions go.
func WithRescueDir(dir string) Option { return func(s *Server) { s.rescueDir = dir } }

// WithSessionOptions are passed to every editor session the server opens.
func WithSessionOptions(opts ...editor.Option) Option {
	return func(s *Server) { s.sessOpts = append(s.sessOpts, opts...) }
}

// WithCheckOrigin replaces the websocket origin check. The default accepts
// same-host requests only.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = fn }
}

// WithAllowOrigins enables CORS for the given browser origins. Websocket
// upgrades from those origins are accepted as well.
func WithAllowOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, origins...) }
}

func New(store *storage.Store, canvas config.CanvasConfig, opts ...Option) *Server {
	s := &Server{
		store:  store,
		canvas: canvas,
		log:    applog.WithComponent("api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, fn := range opts {
		fn(s)
	}
	if len(s.origins) > 0 && s.upgrader.CheckOrigin == nil {
		allowed := s.origins
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || slices.Contains(allowed, o) || sameHost(r, o)
		}
	}
	return s
}

func sameHost(r *http.Request, origin string) bool {
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if len(s.origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  s.origins,
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Type", "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	cvs := r.Group("/api/cvs")
	{
		cvs.GET("", s.listCVs)
		cvs.POST("", s.createCV)
		cvs.GET("/:id", s.getCV)
		cvs.PATCH("/:id", s.renameCV)
		cvs.DELETE("/:id", s.deleteCV)
		cvs.GET("/:id/canvas", s.getCanvas)
		cvs.PUT("/:id/canvas", s.saveCanvas)
		cvs.GET("/:id/export/:format", s.exportCV)
		cvs.GET("/:id/live", s.live)
	}
	r.GET("/api/templates", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"templates": editor.TemplateNames()})
	})
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)))
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", slog.String("addr", addr))
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// fail writes an error response with a status derived from err.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadPayload), errors.Is(err, document.ErrUnknownFormat), errors.Is(err, export.ErrUnknownFormat):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "request failed", slog.String("path", c.FullPath()), slog.Any("err", err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// newSession opens an editor session holding content. Empty content gives
// an empty canvas.
func (s *Server) newSession(content []byte, opts ...editor.Option) (*editor.Session, editor.LoadReport, error) {
	all := append(append([]editor.Option{}, s.sessOpts...), opts...)
	sess := editor.New(s.canvas, all...)
	if len(content) == 0 {
		return sess, editor.LoadReport{}, nil
	}
	rep, err := sess.Load(content)
	if err != nil {
		return nil, rep, errors.Join(errBadPayload, err)
	}
	return sess, rep, nil
}
