// Package server exposes the index, the tools and the agent over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ragagent/internal/agent"
	"ragagent/internal/app"
	"ragagent/internal/domain"
	"ragagent/internal/llm"
	"ragagent/internal/loader"
	"ragagent/internal/service"
	"ragagent/internal/tools"
)

type Server struct {
	app    *app.App
	engine *gin.Engine
	log    *slog.Logger
}

func New(a *app.App) *Server {
	if mode := a.Config.Server.Mode; mode != "" {
		gin.SetMode(mode)
	}
	g := gin.New()
	g.MaxMultipartMemory = int64(a.Config.Server.MaxUploadMB) << 20
	s := &Server{app: a, engine: g, log: a.Log.With("component", "http")}
	g.Use(gin.Recovery(), s.requestLogger())

	g.GET("/healthz", s.health)
	api := g.Group("/api")
	api.POST("/index", s.buildIndex)
	api.POST("/index/load", s.loadIndex)
	api.DELETE("/index", s.clearIndex)
	api.GET("/search", s.search)
	api.POST("/ask", s.ask)
	api.POST("/tools/:name", s.callTool)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.app.Config.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "index_ready": s.app.Index.Ready()})
}

func (s *Server) buildIndex(c *gin.Context) {
	limit := int64(s.app.Config.Server.MaxUploadMB) << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Expected a multipart form with files: " + err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Upload files first."})
		return
	}
	dir := s.app.Config.Server.UploadDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Error("Create upload dir failed", "dir", dir, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot store uploads"})
		return
	}
	var docs []domain.Document
	for _, fh := range files {
		path, err := uploadPath(dir, fh.Filename)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		if !loader.Supported(path) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Unsupported file type: " + fh.Filename})
			return
		}
		if err := c.SaveUploadedFile(fh, path); err != nil {
			s.log.Error("Save upload failed", "file", path, "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot store " + fh.Filename})
			return
		}
		doc, err := loader.LoadFile(path)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		docs = append(docs, doc)
	}
	m, err := s.app.Index.BuildDocuments(c.Request.Context(), docs)
	if err != nil {
		s.log.Error("Index build failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Index build failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Index built.", "manifest": m})
}

func (s *Server) loadIndex(c *gin.Context) {
	m, err := s.app.Index.Load(c.Request.Context())
	if errors.Is(err, service.ErrNoIndex) {
		c.JSON(http.StatusNotFound, gin.H{"message": "No index found."})
		return
	}
	if err != nil {
		s.log.Error("Index load failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Index load failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Loaded index.", "manifest": m})
}

func (s *Server) clearIndex(c *gin.Context) {
	cleared, err := s.app.Index.Clear(c.Request.Context())
	if err != nil {
		s.log.Error("Index clear failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Index clear failed: " + err.Error()})
		return
	}
	if !cleared {
		c.JSON(http.StatusOK, gin.H{"message": "Nothing to clear.", "cleared": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Index cleared.", "cleared": true})
}

func (s *Server) search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Query parameter q is required"})
		return
	}
	k := s.app.Config.Index.TopK
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "k must be an integer between 1 and 100"})
			return
		}
		k = n
	}
	res, err := s.app.Index.Query(c.Request.Context(), q, k)
	if errors.Is(err, service.ErrNoIndex) {
		c.JSON(http.StatusNotFound, gin.H{"message": "No index found."})
		return
	}
	if err != nil {
		s.log.Error("Search failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Search failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": res})
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Wrong request body format"})
		return
	}
	res, err := s.app.Ask(c.Request.Context(), req.Question)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
		return
	case errors.Is(err, agent.ErrMaxSteps):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error(), "steps": res.Steps})
		return
	case err != nil:
		s.log.Error("Agent run failed", "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"message": "Agent run failed: " + err.Error(), "steps": res.Steps})
		return
	}
	body := gin.H{"output": res.Output, "steps": res.Steps}
	if s.app.Index.Ready() {
		if chunks, err := s.app.Index.Query(c.Request.Context(), req.Question, s.app.Config.Index.TopK); err == nil {
			body["chunks"] = chunks
		}
	}
	c.JSON(http.StatusOK, body)
}

type toolRequest struct {
	Input string `json:"input"`
}

func (s *Server) callTool(c *gin.Context) {
	var req toolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Wrong request body format"})
		return
	}
	name := c.Param("name")
	out, err := s.app.Tools.Call(c.Request.Context(), name, req.Input)
	if errors.Is(err, tools.ErrUnknownTool) {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error(), "tools": s.app.Tools.Names()})
		return
	}
	if err != nil {
		s.log.Error("Tool call failed", "tool", name, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Tool call failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tool": name, "output": out})
}
